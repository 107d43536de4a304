package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
)

var chunksFull bool

var chunksCmd = &cobra.Command{
	Use:   "chunks <textbook>",
	Short: "List the passages a textbook is split into",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunks,
}

func init() {
	chunksCmd.Flags().BoolVar(&chunksFull, "full", false, "print the full text of every passage")
}

func runChunks(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	printLoaded(out, res.Name, res.Pages, len(res.Chunks), res.FromArchive)
	printChunks(out, res.Chunks, chunksFull)
	return nil
}

func printChunks(out io.Writer, chunks []chunker.Chunk, full bool) {
	for _, c := range chunks {
		fmt.Fprintf(out, "#%d %s [%s]", c.ID, pages(c.PageStart, c.PageEnd), c.Topic)
		if c.Section != "" {
			fmt.Fprintf(out, " %s", c.Section)
		}
		fmt.Fprintln(out)
		if len(c.Keywords) > 0 {
			fmt.Fprintf(out, "  keywords: %s\n", strings.Join(c.Keywords, ", "))
		}
		if full {
			fmt.Fprintf(out, "%s\n\n", c.Text)
		} else {
			fmt.Fprintf(out, "  %s\n", preview(c.Text, 100))
		}
	}
}
