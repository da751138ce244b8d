package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/paperdesk/paperdesk/internal/model"
	"github.com/paperdesk/paperdesk/internal/store"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Interactively score unreviewed papers",
	Long: `Walk through papers without a user score, one at a time. For each paper
enter a score from 1 to 10 and an optional note, "s" to skip, or "q" to
stop the session.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		papers, err := st.UnevaluatedPapers(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "review: load papers")
		}
		if len(papers) == 0 {
			fmt.Fprintln(os.Stderr, "Nothing to review.")
			return nil
		}

		reader := bufio.NewReader(os.Stdin)
		reviewed := 0
		for i := range papers {
			done, err := reviewPaper(cmd, st, reader, &papers[i], i+1, len(papers))
			if err != nil {
				return err
			}
			if done {
				break
			}
			reviewed++
		}

		fmt.Printf("\nSession complete: %d of %d papers reviewed.\n", reviewed, len(papers))
		return nil
	},
}

func init() {
	reviewCmd.Flags().Int("limit", 10, "max papers to review per session")
	rootCmd.AddCommand(reviewCmd)
}

// reviewPaper shows one paper and records the user's verdict. Returns true
// when the user quits the session.
func reviewPaper(cmd *cobra.Command, st store.Store, reader *bufio.Reader, p *model.Paper, n, total int) (bool, error) {
	fmt.Printf("\n[%d/%d] %s\n", n, total, p.Title)
	fmt.Printf("  arXiv:   %s\n", p.ArxivID)
	fmt.Printf("  Authors: %s\n", strings.Join(p.Authors, ", "))
	if p.LineupScore != nil {
		fmt.Printf("  Lineup:  %.2f\n", *p.LineupScore)
	}
	if p.LLMScore != nil {
		fmt.Printf("  LLM:     %.1f\n", *p.LLMScore)
	}
	fmt.Printf("\n%s\n", p.Abstract)

	for {
		fmt.Print("\nScore [1-10], (s)kip, (q)uit: ")
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			return true, nil
		}
		if err != nil {
			return false, eris.Wrap(err, "review: read input")
		}

		switch input := strings.ToLower(strings.TrimSpace(line)); input {
		case "q":
			return true, nil
		case "s", "":
			return false, nil
		default:
			score, err := strconv.ParseFloat(input, 64)
			if err != nil || score < 1 || score > 10 {
				fmt.Println("Enter a number from 1 to 10.")
				continue
			}

			fmt.Print("Note (optional): ")
			note, err := reader.ReadString('\n')
			if err != nil && err != io.EOF {
				return false, eris.Wrap(err, "review: read note")
			}

			ok, err := st.UpdateUserEvaluation(cmd.Context(), p.ArxivID, score, strings.TrimSpace(note))
			if err != nil {
				return false, eris.Wrap(err, "review: save score")
			}
			if !ok {
				fmt.Fprintf(os.Stderr, "Paper %s no longer exists, skipping.\n", p.ArxivID)
			}
			return false, nil
		}
	}
}
