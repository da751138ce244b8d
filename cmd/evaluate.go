package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paperdesk/paperdesk/internal/lineup"
	"github.com/paperdesk/paperdesk/pkg/scholar"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score author lineups for unevaluated papers",
	Long: `Resolve each author's Semantic Scholar metrics and compute a composite
lineup score for papers that have not been reviewed yet. Lookups share a
global throttle, so large batches are deliberately slow.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "evaluate"))

		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		papers, err := st.UnevaluatedPapers(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "evaluate: load papers")
		}
		if len(papers) == 0 {
			fmt.Fprintln(os.Stderr, "No unevaluated papers.")
			return nil
		}

		resolver := lineup.NewResolver(newScholarClient(), cfg.Lineup)
		evaluator := lineup.NewEvaluator(resolver, cfg.Lineup)

		log.Info("evaluating papers", zap.Int("count", len(papers)))
		scored, stats := evaluator.BatchEvaluate(ctx, papers)

		for i := range scored {
			p := &scored[i]
			if p.LineupScore == nil {
				continue
			}
			ok, err := st.UpdateAuthorEvaluation(ctx, p.ArxivID, *p.LineupScore, p.LineupMetrics)
			if err != nil {
				log.Error("writeback failed", zap.String("arxiv_id", p.ArxivID), zap.Error(err))
				continue
			}
			if !ok {
				log.Warn("paper vanished before writeback", zap.String("arxiv_id", p.ArxivID))
			}
		}

		stats.Render(os.Stdout)
		return nil
	},
}

func init() {
	evaluateCmd.Flags().Int("limit", 10, "max papers to evaluate per run")
	rootCmd.AddCommand(evaluateCmd)
}

func newScholarClient() scholar.Client {
	opts := []scholar.Option{scholar.WithBaseURL(cfg.Scholar.BaseURL)}
	if cfg.Scholar.TimeoutSecs > 0 {
		opts = append(opts, scholar.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Scholar.TimeoutSecs) * time.Second,
		}))
	}
	if cfg.Scholar.APIKey != "" {
		opts = append(opts, scholar.WithAPIKey(cfg.Scholar.APIKey))
	}
	if cfg.Scholar.ProxyURL != "" {
		opts = append(opts, scholar.WithProxyURL(cfg.Scholar.ProxyURL))
	}
	return scholar.NewClient(opts...)
}
