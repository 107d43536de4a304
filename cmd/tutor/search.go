package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
)

var (
	searchChapter string
	searchTopK    int
	searchExplain bool
)

var searchCmd = &cobra.Command{
	Use:   "search <textbook> <query...>",
	Short: "Show the passages retrieved for a query",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchChapter, "chapter", "", "chapter the student is reading")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of passages (default from config)")
	searchCmd.Flags().BoolVar(&searchExplain, "explain", false, "print the score of every strategy")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.LoadRef(ctx, args[0])
	if err != nil {
		return err
	}
	query := strings.Join(args[1:], " ")

	found, err := a.Tutor.Search(query, searchChapter, searchTopK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printLoaded(out, res.Name, res.Pages, len(res.Chunks), res.FromArchive)
	printMatches(out, found)
	if searchExplain {
		printScores(out, a.Engine.Explain(res.Index, query))
	}
	return nil
}

func printMatches(out io.Writer, found []chunker.Chunk) {
	if len(found) == 0 {
		fmt.Fprintln(out, "No matching passages.")
		return
	}
	for i, c := range found {
		fmt.Fprintf(out, "%d. #%d %s %s\n   %s\n", i+1, c.ID, pages(c.PageStart, c.PageEnd), c.Section, preview(c.Text, 160))
	}
}

// printScores lists every strategy's per-chunk score, sorted by strategy
// name and chunk ID.
func printScores(out io.Writer, scores map[string]map[int]float64) {
	fmt.Fprintln(out, "\nStrategy scores:")
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-10s", name)
		ids := make([]int, 0, len(scores[name]))
		for id := range scores[name] {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			fmt.Fprintf(out, " #%d=%.1f", id, scores[name][id])
		}
		fmt.Fprintln(out)
	}
}
