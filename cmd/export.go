package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/paperdesk/paperdesk/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all papers to an XLSX spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = cfg.Export.Path
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		papers, err := st.ListPapers(ctx)
		if err != nil {
			return eris.Wrap(err, "export: load papers")
		}
		if len(papers) == 0 {
			fmt.Fprintln(os.Stderr, "Store is empty, nothing to export.")
			return nil
		}

		if err := export.WriteXLSX(out, papers); err != nil {
			return err
		}

		fmt.Printf("Wrote %d papers to %s\n", len(papers), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "", "output file path (default from config)")
	rootCmd.AddCommand(exportCmd)
}
