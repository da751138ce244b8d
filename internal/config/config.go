package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/paperdesk/paperdesk/internal/lineup"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Feed      FeedConfig      `yaml:"feed" mapstructure:"feed"`
	Scholar   ScholarConfig   `yaml:"scholar" mapstructure:"scholar"`
	Lineup    lineup.Config   `yaml:"lineup" mapstructure:"lineup"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int    `yaml:"min_conns" mapstructure:"min_conns"`
}

// FeedConfig configures arXiv feed ingestion.
type FeedConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Category   string `yaml:"category" mapstructure:"category"`
	WindowDays int    `yaml:"window_days" mapstructure:"window_days"`
	Limit      int    `yaml:"limit" mapstructure:"limit"`
}

// ScholarConfig holds Semantic Scholar API settings.
type ScholarConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	ProxyURL    string `yaml:"proxy_url" mapstructure:"proxy_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings for paper assessment.
type AnthropicConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	Model             string `yaml:"model" mapstructure:"model"`
	MaxTokens         int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	UserInterests     string `yaml:"user_interests" mapstructure:"user_interests"`
	ExtraInstructions string `yaml:"extra_instructions" mapstructure:"extra_instructions"`
}

// ExportConfig configures spreadsheet export.
type ExportConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PAPERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "papers.db")
	v.SetDefault("store.max_conns", 5)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("feed.base_url", "https://rss.arxiv.org/rss")
	v.SetDefault("feed.category", "cs.AI")
	v.SetDefault("feed.window_days", 7)
	v.SetDefault("feed.limit", 0)
	v.SetDefault("scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("scholar.api_key", "")
	v.SetDefault("scholar.proxy_url", "")
	v.SetDefault("scholar.timeout_secs", 30)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 512)
	v.SetDefault("anthropic.user_interests", "")
	v.SetDefault("anthropic.extra_instructions", "")
	v.SetDefault("export.path", "papers.xlsx")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	setLineupDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := lineup.Validate(cfg.Lineup); err != nil {
		return nil, eris.Wrap(err, "config: lineup")
	}

	return &cfg, nil
}

func setLineupDefaults(v *viper.Viper) {
	d := lineup.DefaultConfig()
	v.SetDefault("lineup.prestige_threshold", d.PrestigeThreshold)
	v.SetDefault("lineup.junior_threshold", d.JuniorThreshold)
	v.SetDefault("lineup.ideal_team_size", d.IdealTeamSize)
	v.SetDefault("lineup.max_team_size", d.MaxTeamSize)
	v.SetDefault("lineup.prestige_weight", d.PrestigeWeight)
	v.SetDefault("lineup.balance_weight", d.BalanceWeight)
	v.SetDefault("lineup.industry_weight", d.IndustryWeight)
	v.SetDefault("lineup.size_penalty_weight", d.SizePenaltyWeight)
	v.SetDefault("lineup.academic_keywords", d.AcademicKeywords)
	v.SetDefault("lineup.min_delay", d.MinDelay)
	v.SetDefault("lineup.max_delay", d.MaxDelay)
	v.SetDefault("lineup.max_backoff", d.MaxBackoff)
	v.SetDefault("lineup.max_attempts", d.MaxAttempts)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
