package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paperdesk/paperdesk/internal/feed"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List known arXiv categories",
	Run: func(cmd *cobra.Command, _ []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
		for _, c := range feed.Categories() {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Description)
		}
		_ = w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
