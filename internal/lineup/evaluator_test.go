package lineup

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdesk/paperdesk/internal/model"
	"github.com/paperdesk/paperdesk/pkg/scholar"
)

func newTestEvaluator(authors map[string]scholar.Author) *Evaluator {
	cfg := testConfig()
	resolver := NewResolver(&fakeScholar{authors: authors}, cfg)
	return NewEvaluator(resolver, cfg)
}

func academic(h int) scholar.Author {
	return scholar.Author{HIndex: h, Affiliation: "Example University"}
}

func industry(h int) scholar.Author {
	return scholar.Author{HIndex: h, Affiliation: "Example Corp"}
}

func TestScore_EmptyAuthorList(t *testing.T) {
	e := newTestEvaluator(nil)
	_, err := e.Score(context.Background(), nil)
	require.Error(t, err)
}

func TestScore_SingleAuthorBalance(t *testing.T) {
	e := newTestEvaluator(map[string]scholar.Author{"Solo": academic(0)})

	result, err := e.Score(context.Background(), []string{"Solo"})
	require.NoError(t, err)
	assert.InDelta(t, 0.7, result.Components.Balance, 1e-9)
}

func TestScore_BalancedSmallTeam(t *testing.T) {
	// One prestigious author, juniors, four people total.
	e := newTestEvaluator(map[string]scholar.Author{
		"Prof": academic(40),
		"Phd1": academic(2),
		"Phd2": academic(1),
		"Phd3": academic(0),
	})

	result, err := e.Score(context.Background(), []string{"Prof", "Phd1", "Phd2", "Phd3"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.Components.Balance, 1e-9)
	assert.InDelta(t, 1.0, result.Components.Prestige, 1e-9)
}

func TestScore_PrestigeOnLargerTeam(t *testing.T) {
	// Prestige present but five people: balance drops to 0.8.
	e := newTestEvaluator(map[string]scholar.Author{
		"Prof": academic(40),
		"A":    academic(2),
		"B":    academic(1),
		"C":    academic(0),
		"D":    academic(3),
	})

	result, err := e.Score(context.Background(), []string{"Prof", "A", "B", "C", "D"})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, result.Components.Balance, 1e-9)
}

func TestScore_NoPrestigeBalanceIsMean(t *testing.T) {
	e := newTestEvaluator(map[string]scholar.Author{
		"A": academic(10),
		"B": academic(20),
	})

	result, err := e.Score(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, result.Components.Balance, 1e-9) // mean 15 / 10
}

func TestScore_PrestigeBelowThresholdIsLinear(t *testing.T) {
	e := newTestEvaluator(map[string]scholar.Author{
		"A": academic(15),
		"B": academic(3),
	})

	result, err := e.Score(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, result.Components.Prestige, 1e-9) // 15/30
}

func TestScore_IndustryComponent(t *testing.T) {
	tests := []struct {
		name    string
		authors map[string]scholar.Author
		want    float64
	}{
		{
			"all industry",
			map[string]scholar.Author{"A": industry(5), "B": industry(8)},
			1.0,
		},
		{
			"mixed",
			map[string]scholar.Author{"A": industry(5), "B": academic(8)},
			0.5,
		},
		{
			"all academic",
			map[string]scholar.Author{"A": academic(5), "B": academic(8)},
			0.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEvaluator(tt.authors)
			names := make([]string, 0, len(tt.authors))
			for n := range tt.authors {
				names = append(names, n)
			}
			result, err := e.Score(context.Background(), names)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, result.Components.Industry, 1e-9)
		})
	}
}

func TestSizePenalty(t *testing.T) {
	e := newTestEvaluator(nil)

	tests := []struct {
		teamSize int
		want     float64
	}{
		{1, 0.0},
		{5, 0.0},
		{6, 0.2},
		{7, 0.4},
		{10, 1.0},
		{11, 1.0},
		{30, 1.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, e.sizePenalty(tt.teamSize), 1e-9, "team size %d", tt.teamSize)
	}
}

func TestScore_CompositeIsClamped(t *testing.T) {
	// Everything maxed out: 0.4 + 0.3 + 0.2 - 0 = 0.9; no clamp needed here,
	// but a degenerate all-zero lineup must not go below zero either.
	e := newTestEvaluator(map[string]scholar.Author{
		"Star":   industry(50),
		"Junior": industry(1),
	})

	result, err := e.Score(context.Background(), []string{"Star", "Junior"})
	require.NoError(t, err)
	assert.InDelta(t, 0.9, result.Score, 1e-9)
	assert.GreaterOrEqual(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 1.0)
}

func TestScore_FallbackAuthorsScoreZero(t *testing.T) {
	// Nobody resolves: fallback metrics are all zero, so only the size
	// penalty is free of signal and the composite bottoms out.
	e := newTestEvaluator(map[string]scholar.Author{})

	result, err := e.Score(context.Background(), []string{"Ghost1", "Ghost2"})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, result.Score, 1e-9)
	assert.Equal(t, 0, result.AuthorScores["Ghost1"])
}

func TestBatchEvaluate(t *testing.T) {
	e := newTestEvaluator(map[string]scholar.Author{
		"Star":   industry(50),
		"Junior": industry(1),
	})

	papers := []model.Paper{
		{ArxivID: "2506.00001", Authors: []string{"Star", "Junior"}},
		{ArxivID: "2506.00002", Authors: nil},
	}

	updated, stats := e.BatchEvaluate(context.Background(), papers)
	require.Len(t, updated, 2)

	require.NotNil(t, updated[0].LineupScore)
	assert.InDelta(t, 0.9, *updated[0].LineupScore, 1e-9)
	require.NotNil(t, updated[0].LineupMetrics)
	assert.Equal(t, 50, updated[0].LineupMetrics.AuthorScores["Star"])

	// Papers without authors get the zero sentinel and skip resolution.
	require.NotNil(t, updated[1].LineupScore)
	assert.Zero(t, *updated[1].LineupScore)
	require.NotNil(t, updated[1].LineupMetrics)
	assert.Equal(t, "no_authors", updated[1].LineupMetrics.Note)

	assert.Equal(t, 1, stats.Evaluated)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, 1, stats.ByScore["0.9"])
}

func TestBatchStats_Render(t *testing.T) {
	stats := &BatchStats{
		Evaluated:  3,
		Errors:     1,
		ByScore:    map[string]int{"0.7": 2, "0.3": 1},
		AvgSeconds: 1.25,
	}

	var buf bytes.Buffer
	stats.Render(&buf)

	out := buf.String()
	assert.Contains(t, out, "Papers evaluated: 3")
	assert.Contains(t, out, "Average time per paper: 1.25s")
	assert.Contains(t, out, "Errors: 1")
	assert.Contains(t, out, "0.3: 1 papers")
	assert.Contains(t, out, "0.7: 2 papers")
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, Validate(DefaultConfig()))

	bad := DefaultConfig()
	bad.PrestigeThreshold = 0
	bad.MaxTeamSize = 2
	err := Validate(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prestige_threshold")
	assert.Contains(t, err.Error(), "max_team_size")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30, cfg.PrestigeThreshold)
	assert.Equal(t, 3, cfg.JuniorThreshold)
	assert.InDelta(t, 0.4, cfg.PrestigeWeight, 1e-9)
	assert.InDelta(t, -0.1, cfg.SizePenaltyWeight, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.MinDelay)
	assert.Equal(t, 600*time.Second, cfg.MaxBackoff)
}
