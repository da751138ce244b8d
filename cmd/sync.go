package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paperdesk/paperdesk/internal/feed"
	"github.com/paperdesk/paperdesk/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch new papers from the arXiv feed",
	Long: `Fetch the RSS feed for one arXiv category and store papers newer than
the latest already persisted. On an empty store the lookback window
(--days) decides how far back to accept entries.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "sync"))

		category, _ := cmd.Flags().GetString("category")
		days, _ := cmd.Flags().GetInt("days")
		limit, _ := cmd.Flags().GetInt("limit")
		if category == "" {
			category = cfg.Feed.Category
		}
		if days <= 0 {
			days = cfg.Feed.WindowDays
		}
		if limit == 0 {
			limit = cfg.Feed.Limit
		}

		if _, err := feed.LookupCategory(category); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		source := feed.NewArxivSource(feed.WithBaseURL(cfg.Feed.BaseURL))
		log.Info("starting sync",
			zap.String("category", category),
			zap.Int("window_days", days),
			zap.Int("limit", limit),
		)

		report := syncer.New(st, source).Sync(ctx, syncer.Options{
			Category: category,
			Window:   time.Duration(days) * 24 * time.Hour,
			Limit:    limit,
		})

		formatSyncReport(report)
		if report.Status == syncer.StatusError {
			cmd.SilenceUsage = true
			return eris.New(report.Message)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().String("category", "", "arXiv category id (e.g. cs.AI)")
	syncCmd.Flags().Int("days", 0, "lookback window in days when the store is empty")
	syncCmd.Flags().Int("limit", 0, "max papers to persist per run (0 = no limit)")
	rootCmd.AddCommand(syncCmd)
}

func formatSyncReport(r *syncer.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", r.Status)
	_, _ = fmt.Fprintf(w, "Message:\t%s\n", r.Message)
	_, _ = fmt.Fprintf(w, "Fetched:\t%d\n", r.Fetched)
	_, _ = fmt.Fprintf(w, "New papers:\t%d\n", r.NewPapers)
	if r.UpsertErrors > 0 {
		_, _ = fmt.Fprintf(w, "Upsert errors:\t%d\n", r.UpsertErrors)
	}
	if r.Stats != nil {
		_, _ = fmt.Fprintf(w, "Total stored:\t%d\n", r.Stats.TotalPapers)
	}
	_ = w.Flush()
}
