// kbctl is the maintenance CLI for the FAQ knowledge base: inspect a CSV
// export, rewrite it in canonical form, and try queries offline.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tlxsante/assistant/internal/domain"
	"github.com/tlxsante/assistant/internal/kb"
	"github.com/tlxsante/assistant/internal/lang"
)

func main() {
	root := &cobra.Command{
		Use:           "kbctl",
		Short:         "Knowledge base maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(checkCmd(), cleanCmd(), askCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func checkCmd() *cobra.Command {
	var sample int
	cmd := &cobra.Command{
		Use:   "check <source.csv>",
		Short: "Parse a CSV export and report what would be indexed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index := kb.NewIndex(args[0])
			n, err := index.Reload("")
			if err != nil {
				return err
			}
			fmt.Printf("%d entries parsed from %s\n", n, args[0])
			for i, e := range index.Entries() {
				if i >= sample {
					break
				}
				fmt.Printf("  Q: %s\n  A: %s\n", e.Question, truncate(e.Answer, 100))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&sample, "sample", 5, "number of entries to print")
	return cmd
}

func cleanCmd() *cobra.Command {
	var dst string
	cmd := &cobra.Command{
		Use:   "clean <source.csv>",
		Short: "Rewrite a CSV export as a canonical two-column UTF-8 table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index := kb.NewIndex(args[0])
			out, n, err := index.Clean(args[0], dst)
			if err != nil {
				return err
			}
			fmt.Printf("%d rows written to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dst, "output", "o", "", "destination path (default <source>_clean.csv)")
	return cmd
}

func askCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "ask <source.csv> <question>",
		Short: "Run a lexical-only query against a CSV export",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index := kb.NewIndex(args[0])
			if _, err := index.Reload(""); err != nil {
				return err
			}

			l := lang.Normalize(language)
			if l == "" {
				l = domain.LangFrench
			}
			retriever := kb.NewRetriever(index, nil, nil, kb.Options{})
			res, err := retriever.Answer(context.Background(), args[1], l)
			if err != nil {
				return err
			}
			if !res.Found {
				fmt.Println("no match above the acceptance floor")
				return nil
			}
			fmt.Printf("matched: %s (confidence %.2f)\n%s\n", res.MatchedQuestion, res.Confidence, res.Answer)
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "lang", "l", "fr", "reply language (fr, en, ar)")
	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
