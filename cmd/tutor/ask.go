package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mdsalman850/co-teachers-sub003/internal/session"
)

var (
	askChapter string
	askTopic   string
)

var askCmd = &cobra.Command{
	Use:   "ask <textbook> [question...]",
	Short: "Ask questions answered from the textbook",
	Long: `Ask one question, or start an interactive session when no question is
given. In a session, "/clear" forgets the conversation and "/chapter <name>"
sets the chapter being read.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askChapter, "chapter", "", "chapter the student is reading")
	askCmd.Flags().StringVar(&askTopic, "topic", session.DefaultTopic, "conversation thread")
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	if len(args) > 1 {
		return ask(cmd, a.Tutor, strings.Join(args[1:], " "), askChapter, out)
	}

	chapter := askChapter
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/clear":
			if err := a.Tutor.ClearConversation(ctx, askTopic); err != nil {
				return err
			}
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		case strings.HasPrefix(line, "/chapter"):
			chapter = strings.TrimSpace(strings.TrimPrefix(line, "/chapter"))
			fmt.Fprintf(out, "Chapter set to %q.\n", chapter)
			continue
		}
		if err := ask(cmd, a.Tutor, line, chapter, out); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// ask prints the answer to one question. Model failures are shown, not
// returned, so a session can continue.
func ask(cmd *cobra.Command, tutor *session.Tutor, question, chapter string, out io.Writer) error {
	answer, err := tutor.Ask(cmd.Context(), session.Question{
		Text:        question,
		ChapterHint: chapter,
		Topic:       askTopic,
	})
	switch {
	case errors.Is(err, session.ErrEmptyQuestion):
		return nil
	case err != nil && answer != nil:
		fmt.Fprintf(out, "%s\n\n", answer.Message)
		return nil
	case err != nil:
		return err
	}

	fmt.Fprintf(out, "%s\n", answer.Text)
	if !answer.Refused && len(answer.Excerpts) > 0 {
		refs := make([]string, 0, len(answer.Excerpts))
		for _, ex := range answer.Excerpts {
			refs = append(refs, pages(ex.PageStart, ex.PageEnd))
		}
		fmt.Fprintf(out, "(see %s)\n", strings.Join(refs, ", "))
	}
	fmt.Fprintln(out)
	return nil
}
