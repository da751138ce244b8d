// Package lineup scores a paper's author list by resolving per-author
// reputation metrics and combining them into a composite quality score.
package lineup

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds the scoring thresholds, component weights, and lookup
// throttle settings.
type Config struct {
	// PrestigeThreshold is the h-index at which an author counts as
	// prestigious.
	PrestigeThreshold int `yaml:"prestige_threshold" mapstructure:"prestige_threshold"`

	// JuniorThreshold is the h-index at or below which an author counts as
	// junior for the balance score.
	JuniorThreshold int `yaml:"junior_threshold" mapstructure:"junior_threshold"`

	IdealTeamSize int `yaml:"ideal_team_size" mapstructure:"ideal_team_size"`
	MaxTeamSize   int `yaml:"max_team_size" mapstructure:"max_team_size"`

	PrestigeWeight    float64 `yaml:"prestige_weight" mapstructure:"prestige_weight"`
	BalanceWeight     float64 `yaml:"balance_weight" mapstructure:"balance_weight"`
	IndustryWeight    float64 `yaml:"industry_weight" mapstructure:"industry_weight"`
	SizePenaltyWeight float64 `yaml:"size_penalty_weight" mapstructure:"size_penalty_weight"`

	// AcademicKeywords classifies an affiliation as academic when any of
	// them appears in it (case-insensitive). Everything else is industry.
	AcademicKeywords []string `yaml:"academic_keywords" mapstructure:"academic_keywords"`

	// Lookup throttle. The base inter-request delay is randomized within
	// [MinDelay, MaxDelay] and doubles on each transient failure up to
	// MaxBackoff.
	MinDelay    time.Duration `yaml:"min_delay" mapstructure:"min_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	MaxBackoff  time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// DefaultConfig returns the standard scoring configuration.
func DefaultConfig() Config {
	return Config{
		PrestigeThreshold: 30,
		JuniorThreshold:   3,
		IdealTeamSize:     5,
		MaxTeamSize:       10,

		PrestigeWeight:    0.4,
		BalanceWeight:     0.3,
		IndustryWeight:    0.2,
		SizePenaltyWeight: -0.1,

		AcademicKeywords: []string{"university", "college", "institute"},

		MinDelay:    30 * time.Second,
		MaxDelay:    60 * time.Second,
		MaxBackoff:  600 * time.Second,
		MaxAttempts: 3,
	}
}

// Validate checks that a Config is internally consistent.
func Validate(c Config) error {
	var errs []string

	if c.PrestigeThreshold <= 0 {
		errs = append(errs, "prestige_threshold must be > 0")
	}
	if c.JuniorThreshold < 0 {
		errs = append(errs, "junior_threshold must be >= 0")
	}
	if c.IdealTeamSize <= 0 {
		errs = append(errs, "ideal_team_size must be > 0")
	}
	if c.MaxTeamSize <= c.IdealTeamSize {
		errs = append(errs, "max_team_size must be > ideal_team_size")
	}

	weights := map[string]float64{
		"prestige_weight": c.PrestigeWeight,
		"balance_weight":  c.BalanceWeight,
		"industry_weight": c.IndustryWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}
	if c.SizePenaltyWeight > 0 {
		errs = append(errs, "size_penalty_weight must be <= 0 (it is a penalty)")
	}

	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		errs = append(errs, "delay range must satisfy 0 <= min_delay <= max_delay")
	}
	if c.MaxBackoff < c.MaxDelay {
		errs = append(errs, "max_backoff must be >= max_delay")
	}
	if c.MaxAttempts <= 0 {
		errs = append(errs, "max_attempts must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("lineup: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
