package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
	"github.com/mdsalman850/co-teachers-sub003/internal/document"
	"github.com/mdsalman850/co-teachers-sub003/internal/history"
	"github.com/mdsalman850/co-teachers-sub003/internal/indexer"
	"github.com/mdsalman850/co-teachers-sub003/internal/llm"
	"github.com/mdsalman850/co-teachers-sub003/internal/prompt"
	"github.com/mdsalman850/co-teachers-sub003/internal/rerank"
	"github.com/mdsalman850/co-teachers-sub003/internal/search"
	"github.com/mdsalman850/co-teachers-sub003/internal/session"
)

const bookText = "Chapter 1: Cells\n" +
	"The cell is the basic unit of life. Every living thing is made of one or more cells.\n\n" +
	"Mitochondria produce ATP, the energy currency of the cell, through cellular respiration."

type modelFunc func(ctx context.Context, prompt string) (string, error)

func (f modelFunc) Complete(ctx context.Context, prompt string, _ llm.Options) (string, error) {
	return f(ctx, prompt)
}

type extractFunc func(ctx context.Context, data []byte) (string, int, error)

func (f extractFunc) Extract(ctx context.Context, data []byte) (string, int, error) {
	return f(ctx, data)
}

func newTutor(t *testing.T, model session.Completer) *session.Tutor {
	t.Helper()
	manager := history.NewManager(history.NewMemoryStore(), history.Config{}, nil)
	t.Cleanup(manager.Close)

	extractor := extractFunc(func(context.Context, []byte) (string, int, error) {
		return "", 0, nil
	})
	tutor, err := session.New(session.Components{
		Pipeline: indexer.NewPipeline(extractor, chunker.New(), search.DefaultFieldWeights(), nil, nil),
		Engine:   search.NewEngine(search.Config{}, nil),
		Reranker: rerank.New(rerank.Weights{}),
		Builder:  prompt.NewBuilder(prompt.Config{}, nil),
		Model:    model,
		History:  manager,
	}, session.Config{}, nil)
	require.NoError(t, err)
	return tutor
}

func loadBook(t *testing.T, tutor *session.Tutor) *indexer.Result {
	t.Helper()
	res, err := tutor.LoadText("biology", document.Normalize(document.PageMarker(1)+"\n"+bookText), 1)
	require.NoError(t, err)
	require.NotEmpty(t, res.Chunks)
	return res
}

func testCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func TestPrintChunks(t *testing.T) {
	res := loadBook(t, newTutor(t, modelFunc(func(context.Context, string) (string, error) { return "", nil })))
	first := res.Chunks[0]

	var short bytes.Buffer
	printChunks(&short, res.Chunks, false)
	assert.True(t, strings.HasPrefix(short.String(), fmt.Sprintf("#%d p.1 [%s]", first.ID, first.Topic)))
	assert.Contains(t, short.String(), "  "+preview(first.Text, 100)+"\n")
	if len(first.Keywords) > 0 {
		assert.Contains(t, short.String(), "  keywords: "+strings.Join(first.Keywords, ", "))
	}

	var full bytes.Buffer
	printChunks(&full, res.Chunks, true)
	for _, c := range res.Chunks {
		assert.Contains(t, full.String(), c.Text+"\n\n")
	}
}

func TestPrintLoaded(t *testing.T) {
	var out bytes.Buffer
	printLoaded(&out, "biology.pdf", 12, 40, false)
	printLoaded(&out, "biology.pdf", 12, 40, true)
	assert.Equal(t,
		"Loaded biology.pdf: 12 pages, 40 passages (extracted)\n\n"+
			"Loaded biology.pdf: 12 pages, 40 passages (archive)\n\n",
		out.String())
}

func TestPrintMatches(t *testing.T) {
	tutor := newTutor(t, modelFunc(func(context.Context, string) (string, error) { return "", nil }))
	loadBook(t, tutor)

	found, err := tutor.Search("What do mitochondria produce?", "", 0)
	require.NoError(t, err)
	require.NotEmpty(t, found)

	var out bytes.Buffer
	printMatches(&out, found)
	assert.True(t, strings.HasPrefix(out.String(), fmt.Sprintf("1. #%d p.1 ", found[0].ID)))
	assert.Contains(t, out.String(), "Mitochondria")

	out.Reset()
	printMatches(&out, nil)
	assert.Equal(t, "No matching passages.\n", out.String())
}

func TestPrintScores(t *testing.T) {
	var out bytes.Buffer
	printScores(&out, map[string]map[int]float64{
		"topic":   {2: 5, 0: 5},
		"keyword": {1: 2.5},
		"chapter": {},
	})
	assert.Equal(t,
		"\nStrategy scores:\n"+
			"  chapter   \n"+
			"  keyword    #1=2.5\n"+
			"  topic      #0=5.0 #2=5.0\n",
		out.String())
}

func TestPrintScores_Explain(t *testing.T) {
	res := loadBook(t, newTutor(t, modelFunc(func(context.Context, string) (string, error) { return "", nil })))
	scores := search.NewEngine(search.Config{}, nil).Explain(res.Index, "What do mitochondria produce?")

	var out bytes.Buffer
	printScores(&out, scores)
	for name := range scores {
		assert.Contains(t, out.String(), "  "+name)
	}
	assert.Contains(t, out.String(), "=")
}

func TestAsk_Output(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		err     error
		want    []string
		notWant []string
	}{
		{
			name:  "answer cites pages",
			reply: "Mitochondria produce ATP.",
			want:  []string{"Mitochondria produce ATP.\n", "(see p.1"},
		},
		{
			name:    "refusal has no page references",
			reply:   prompt.RefusalSentence,
			want:    []string{prompt.RefusalSentence + "\n"},
			notWant: []string{"(see"},
		},
		{
			name:    "model failure prints the student message",
			err:     &llm.APIError{Kind: llm.ErrQuotaExceeded, Backend: "fake", Model: "m"},
			want:    []string{llm.UserMessage(llm.ErrQuotaExceeded) + "\n\n"},
			notWant: []string{"(see"},
		},
		{
			name:    "timeout prints the timeout message",
			err:     context.DeadlineExceeded,
			want:    []string{"The tutor took too long to answer. Please try again.\n\n"},
			notWant: []string{"(see"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tutor := newTutor(t, modelFunc(func(context.Context, string) (string, error) {
				return tt.reply, tt.err
			}))
			loadBook(t, tutor)

			var out bytes.Buffer
			err := ask(testCommand(), tutor, "What do mitochondria produce?", "", &out)
			require.NoError(t, err)
			for _, s := range tt.want {
				assert.Contains(t, out.String(), s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, out.String(), s)
			}
		})
	}
}

func TestAsk_EmptyQuestionPrintsNothing(t *testing.T) {
	tutor := newTutor(t, modelFunc(func(context.Context, string) (string, error) { return "never", nil }))
	loadBook(t, tutor)

	var out bytes.Buffer
	require.NoError(t, ask(testCommand(), tutor, "   ", "", &out))
	assert.Empty(t, out.String())
}

func TestAsk_NoDocumentIsAnError(t *testing.T) {
	tutor := newTutor(t, modelFunc(func(context.Context, string) (string, error) { return "never", nil }))

	var out bytes.Buffer
	err := ask(testCommand(), tutor, "What is a cell?", "", &out)
	assert.ErrorIs(t, err, session.ErrNoDocument)
	assert.Empty(t, out.String())
}
