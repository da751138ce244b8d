package lineup

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/paperdesk/paperdesk/internal/model"
)

// Result is the outcome of scoring one author lineup.
type Result struct {
	Score        float64               `json:"score"`
	AuthorScores map[string]int        `json:"author_scores"`
	Components   model.ScoreComponents `json:"components"`
}

// Evaluator combines per-author metrics into a composite lineup score.
type Evaluator struct {
	resolver *Resolver
	cfg      Config
	log      *zap.Logger
}

// NewEvaluator creates an Evaluator over the given resolver.
func NewEvaluator(resolver *Resolver, cfg Config) *Evaluator {
	return &Evaluator{
		resolver: resolver,
		cfg:      cfg,
		log:      zap.L().With(zap.String("component", "lineup.evaluator")),
	}
}

// Score resolves metrics for every author and computes the weighted
// composite, clamped to [0, 1]. The author list must not be empty; callers
// handle that case with a sentinel instead of invoking resolution.
func (e *Evaluator) Score(ctx context.Context, authors []string) (*Result, error) {
	if len(authors) == 0 {
		return nil, eris.New("lineup: empty author list")
	}

	metrics := make([]model.AuthorMetrics, 0, len(authors))
	scores := make(map[string]int, len(authors))
	for _, name := range authors {
		m := e.resolver.Resolve(ctx, name)
		metrics = append(metrics, m)
		scores[name] = m.HIndex
	}

	components := model.ScoreComponents{
		Prestige:    e.prestigeScore(scores),
		Balance:     e.balanceScore(scores),
		Industry:    e.industryScore(metrics),
		SizePenalty: e.sizePenalty(len(authors)),
	}

	composite := components.Prestige*e.cfg.PrestigeWeight +
		components.Balance*e.cfg.BalanceWeight +
		components.Industry*e.cfg.IndustryWeight +
		components.SizePenalty*e.cfg.SizePenaltyWeight
	composite = clamp01(composite)

	return &Result{
		Score:        composite,
		AuthorScores: scores,
		Components:   components,
	}, nil
}

// prestigeScore is max(h-index)/threshold, capped at 1.0.
func (e *Evaluator) prestigeScore(scores map[string]int) float64 {
	maxScore := 0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	if maxScore >= e.cfg.PrestigeThreshold {
		return 1.0
	}
	return float64(maxScore) / float64(e.cfg.PrestigeThreshold)
}

// balanceScore prefers a small team with one prestigious author and at
// least one junior author.
func (e *Evaluator) balanceScore(scores map[string]int) float64 {
	if len(scores) == 1 {
		return 0.7
	}

	hasPrestige := false
	numJunior := 0
	sum := 0
	for _, s := range scores {
		if s >= e.cfg.PrestigeThreshold {
			hasPrestige = true
		}
		if s <= e.cfg.JuniorThreshold {
			numJunior++
		}
		sum += s
	}

	switch {
	case hasPrestige && len(scores) <= 4 && numJunior >= 1:
		return 1.0
	case hasPrestige:
		return 0.8
	default:
		return float64(sum) / float64(len(scores)) / 10
	}
}

// industryScore is 1.0 for an all-industry lineup, 0.5 for mixed, 0 for
// pure academia.
func (e *Evaluator) industryScore(metrics []model.AuthorMetrics) float64 {
	industryCount := 0
	for _, m := range metrics {
		if m.IsIndustry {
			industryCount++
		}
	}
	switch {
	case industryCount == len(metrics):
		return 1.0
	case industryCount > 0:
		return 0.5
	default:
		return 0.0
	}
}

// sizePenalty grows linearly from 0 at the ideal team size to 1 past the
// maximum.
func (e *Evaluator) sizePenalty(teamSize int) float64 {
	switch {
	case teamSize <= e.cfg.IdealTeamSize:
		return 0.0
	case teamSize > e.cfg.MaxTeamSize:
		return 1.0
	default:
		return math.Min(1.0,
			float64(teamSize-e.cfg.IdealTeamSize)/
				float64(e.cfg.MaxTeamSize-e.cfg.IdealTeamSize))
	}
}

// BatchStats aggregates the outcome of a batch evaluation.
type BatchStats struct {
	Evaluated  int            `json:"evaluated"`
	Errors     int            `json:"errors"`
	ByScore    map[string]int `json:"by_score"` // one-decimal buckets, e.g. "0.7"
	AvgSeconds float64        `json:"avg_seconds"`
}

// BatchEvaluate scores each paper independently; a failure on one paper is
// counted and the batch continues. Only successfully scored papers (and
// no-author sentinels) appear in the returned slice.
func (e *Evaluator) BatchEvaluate(ctx context.Context, papers []model.Paper) ([]model.Paper, *BatchStats) {
	stats := &BatchStats{ByScore: make(map[string]int)}
	var totalElapsed time.Duration
	updated := make([]model.Paper, 0, len(papers))

	for i := range papers {
		p := papers[i]

		if len(p.Authors) == 0 {
			zero := 0.0
			p.LineupScore = &zero
			p.LineupMetrics = &model.LineupMetrics{Note: "no_authors"}
			updated = append(updated, p)
			continue
		}

		start := time.Now()
		result, err := e.Score(ctx, p.Authors)
		if err != nil {
			e.log.Error("evaluation failed",
				zap.String("arxiv_id", p.ArxivID),
				zap.Error(err),
			)
			stats.Errors++
			continue
		}

		score := result.Score
		p.LineupScore = &score
		p.LineupMetrics = &model.LineupMetrics{
			AuthorScores: result.AuthorScores,
			Components:   &result.Components,
		}

		elapsed := time.Since(start)
		totalElapsed += elapsed
		stats.Evaluated++
		stats.ByScore[fmt.Sprintf("%.1f", math.Round(score*10)/10)]++
		updated = append(updated, p)

		e.log.Info("paper evaluated",
			zap.String("arxiv_id", p.ArxivID),
			zap.Float64("score", score),
			zap.Duration("elapsed", elapsed),
		)
	}

	if stats.Evaluated > 0 {
		stats.AvgSeconds = totalElapsed.Seconds() / float64(stats.Evaluated)
	}
	return updated, stats
}

// Render writes a human-readable evaluation report.
func (s *BatchStats) Render(w io.Writer) {
	fmt.Fprintln(w, "=== Author Evaluation Report ===")
	fmt.Fprintf(w, "Papers evaluated: %d\n", s.Evaluated)
	fmt.Fprintf(w, "Average time per paper: %.2fs\n", s.AvgSeconds)
	fmt.Fprintf(w, "Errors: %d\n", s.Errors)

	if len(s.ByScore) == 0 {
		return
	}
	buckets := make([]string, 0, len(s.ByScore))
	for b := range s.ByScore {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)

	fmt.Fprintln(w, "Score distribution:")
	for _, b := range buckets {
		fmt.Fprintf(w, "  %s: %d papers\n", b, s.ByScore[b])
	}
}

func clamp01(v float64) float64 {
	return math.Min(1.0, math.Max(0.0, v))
}
