package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paperdesk/paperdesk/internal/assess"
	"github.com/paperdesk/paperdesk/pkg/anthropic"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Score unreviewed papers with Claude",
	Long: `Send each unreviewed paper's title, authors, and abstract to Claude and
store the returned relevance score and explanation. Use --check to verify
API connectivity without assessing anything.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "assess"))

		limit, _ := cmd.Flags().GetInt("limit")
		check, _ := cmd.Flags().GetBool("check")

		client, err := anthropic.NewClient(cfg.Anthropic.Key)
		if err != nil {
			return err
		}

		assessor := assess.New(client, assess.Options{
			Model:             cfg.Anthropic.Model,
			MaxTokens:         int64(cfg.Anthropic.MaxTokens),
			UserInterests:     cfg.Anthropic.UserInterests,
			ExtraInstructions: cfg.Anthropic.ExtraInstructions,
		})

		if check {
			if err := assessor.HealthCheck(ctx); err != nil {
				return eris.Wrap(err, "assess: health check")
			}
			fmt.Println("Anthropic API reachable.")
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		papers, err := st.UnevaluatedPapers(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "assess: load papers")
		}
		if len(papers) == 0 {
			fmt.Fprintln(os.Stderr, "No papers to assess.")
			return nil
		}

		assessed, failed := 0, 0
		for i := range papers {
			p := &papers[i]
			result, err := assessor.AssessPaper(ctx, p)
			if err != nil {
				log.Error("assessment failed", zap.String("arxiv_id", p.ArxivID), zap.Error(err))
				failed++
				continue
			}

			ok, err := st.UpdateLLMEvaluation(ctx, p.ArxivID, result.Score, result.Explanation)
			if err != nil {
				log.Error("writeback failed", zap.String("arxiv_id", p.ArxivID), zap.Error(err))
				failed++
				continue
			}
			if !ok {
				log.Warn("paper vanished before writeback", zap.String("arxiv_id", p.ArxivID))
				continue
			}

			fmt.Printf("%-24s %4.1f  %s\n", p.ArxivID, result.Score, p.Title)
			assessed++
		}

		fmt.Printf("\nAssessed %d papers (%d failed).\n", assessed, failed)
		return nil
	},
}

func init() {
	assessCmd.Flags().Int("limit", 10, "max papers to assess per run")
	assessCmd.Flags().Bool("check", false, "verify API connectivity and exit")
	rootCmd.AddCommand(assessCmd)
}
