// Package assess scores a paper's relevance with an LLM and parses the
// reply into a score and explanation.
package assess

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/paperdesk/paperdesk/internal/model"
	"github.com/paperdesk/paperdesk/pkg/anthropic"
)

const systemPrompt = "You are a research paper assessment assistant. " +
	"Determine a relevance score for each paper and explain it. " +
	"Start your reply with a line of the form \"SCORE: <1-10>\"."

const promptTemplate = `For the following paper, score its relevance from 1-10 considering:
1. Importance of the result for the chosen research space.
2. How well-known or expert the authors are on the topic.
3. Relevance to the user's interests (see below).

User interests: %s

Paper:
Title: %s
Authors: %s
Abstract: %s`

var scoreLine = regexp.MustCompile(`(?mi)^\s*SCORE:\s*([0-9]+(?:\.[0-9]+)?)\s*(?:/\s*10)?\s*$`)

// Assessment is the parsed outcome of one LLM relevance call.
type Assessment struct {
	Score       float64
	Explanation string
}

// Assessor calls the LLM once per paper.
type Assessor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	interests string
	extra     string // optional extra instructions appended to the prompt
}

// Options configures an Assessor.
type Options struct {
	Model             string
	MaxTokens         int64
	UserInterests     string
	ExtraInstructions string
}

// New creates an Assessor.
func New(client anthropic.Client, opts Options) *Assessor {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	return &Assessor{
		client:    client,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		interests: opts.UserInterests,
		extra:     opts.ExtraInstructions,
	}
}

// AssessPaper scores one paper. The reply's leading "SCORE: n" line becomes
// the score; when it is missing the full text is kept as the explanation
// with a zero score rather than failing the call.
func (a *Assessor) AssessPaper(ctx context.Context, p *model.Paper) (*Assessment, error) {
	prompt := fmt.Sprintf(promptTemplate,
		a.interests, p.Title, strings.Join(p.Authors, ", "), p.Abstract)
	if a.extra != "" {
		prompt += "\n" + a.extra
	}

	temp := 0.7
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "assess: paper %s", p.ArxivID)
	}

	assessment := parseAssessment(resp.Text)
	zap.L().Info("paper assessed",
		zap.String("arxiv_id", p.ArxivID),
		zap.Float64("score", assessment.Score),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)
	return assessment, nil
}

// HealthCheck round-trips a trivial message to verify credentials and
// connectivity before a batch of assessments.
func (a *Assessor) HealthCheck(ctx context.Context) error {
	_, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: 16,
		Messages:  []anthropic.Message{{Role: "user", Content: "Say hello"}},
	})
	return eris.Wrap(err, "assess: health check")
}

func parseAssessment(text string) *Assessment {
	m := scoreLine.FindStringSubmatch(text)
	if m == nil {
		return &Assessment{Score: 0, Explanation: strings.TrimSpace(text)}
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return &Assessment{Score: 0, Explanation: strings.TrimSpace(text)}
	}
	explanation := strings.TrimSpace(strings.Replace(text, m[0], "", 1))
	return &Assessment{Score: score, Explanation: explanation}
}
