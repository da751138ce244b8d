package assess

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdesk/paperdesk/internal/model"
	"github.com/paperdesk/paperdesk/pkg/anthropic"
)

// fakeLLM returns a fixed reply and records the last request.
type fakeLLM struct {
	reply string
	err   error
	last  anthropic.MessageRequest
}

func (f *fakeLLM) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{Text: f.reply}, nil
}

func TestParseAssessment(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		score    float64
		contains string
	}{
		{
			"leading score line",
			"SCORE: 8\nStrong empirical results from a well-known group.",
			8,
			"Strong empirical results",
		},
		{
			"score with fraction",
			"SCORE: 7.5\nInteresting but incremental.",
			7.5,
			"incremental",
		},
		{
			"score out of ten",
			"SCORE: 6/10\nDecent survey.",
			6,
			"Decent survey",
		},
		{
			"lowercase and indented",
			"  score: 9\nMust read.",
			9,
			"Must read",
		},
		{
			"missing score keeps full text",
			"This paper looks interesting but I cannot rate it.",
			0,
			"cannot rate it",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := parseAssessment(tt.text)
			assert.InDelta(t, tt.score, a.Score, 1e-9)
			assert.Contains(t, a.Explanation, tt.contains)
		})
	}
}

func TestAssessPaper(t *testing.T) {
	llm := &fakeLLM{reply: "SCORE: 8\nNovel approach with solid evaluation."}
	a := New(llm, Options{
		Model:         "claude-haiku-4-5-20251001",
		UserInterests: "retrieval, agents",
	})

	p := &model.Paper{
		ArxivID:  "2506.00001",
		Title:    "A Paper",
		Authors:  []string{"Alice", "Bob"},
		Abstract: "We do things.",
	}
	got, err := a.AssessPaper(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, got.Score, 1e-9)
	assert.Equal(t, "Novel approach with solid evaluation.", got.Explanation)

	assert.Equal(t, "claude-haiku-4-5-20251001", llm.last.Model)
	assert.Equal(t, int64(512), llm.last.MaxTokens) // default
	assert.Contains(t, llm.last.System, "SCORE")
	require.Len(t, llm.last.Messages, 1)
	assert.Contains(t, llm.last.Messages[0].Content, "A Paper")
	assert.Contains(t, llm.last.Messages[0].Content, "Alice, Bob")
	assert.Contains(t, llm.last.Messages[0].Content, "retrieval, agents")
}

func TestAssessPaper_ExtraInstructions(t *testing.T) {
	llm := &fakeLLM{reply: "SCORE: 5\nOk."}
	a := New(llm, Options{Model: "m", ExtraInstructions: "Penalize surveys."})

	_, err := a.AssessPaper(context.Background(), &model.Paper{ArxivID: "x"})
	require.NoError(t, err)
	assert.Contains(t, llm.last.Messages[0].Content, "Penalize surveys.")
}

func TestAssessPaper_ClientError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("overloaded")}
	a := New(llm, Options{Model: "m"})

	_, err := a.AssessPaper(context.Background(), &model.Paper{ArxivID: "2506.00001"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2506.00001")
}

func TestHealthCheck(t *testing.T) {
	llm := &fakeLLM{reply: "Hello!"}
	a := New(llm, Options{Model: "m"})

	require.NoError(t, a.HealthCheck(context.Background()))
	assert.Equal(t, int64(16), llm.last.MaxTokens)

	llm.err = errors.New("401 unauthorized")
	require.Error(t, a.HealthCheck(context.Background()))
}
