package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/paperdesk/paperdesk/internal/model"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "stats")
		}

		formatStats(stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func formatStats(s *model.StoreStats) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total papers:\t%d\n", s.TotalPapers)
	_, _ = fmt.Fprintf(w, "User evaluated:\t%d\n", s.UserEvaluated)
	_, _ = fmt.Fprintf(w, "LLM evaluated:\t%d\n", s.LLMEvaluated)
	_, _ = fmt.Fprintf(w, "Author evaluated:\t%d\n", s.AuthorEvaluated)
	if s.OldestPaper != nil {
		_, _ = fmt.Fprintf(w, "Oldest paper:\t%s\n", s.OldestPaper.Format("2006-01-02 15:04"))
	}
	if s.NewestPaper != nil {
		_, _ = fmt.Fprintf(w, "Newest paper:\t%s\n", s.NewestPaper.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}
