// Package main provides the tutor CLI: inspect how a textbook is chunked and
// searched, and ask it questions from the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mdsalman850/co-teachers-sub003/internal/app"
	"github.com/mdsalman850/co-teachers-sub003/internal/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Textbook question answering from the terminal",
	Long: `Load a textbook PDF and inspect its passages, run searches against it
or ask questions answered from its pages.

Textbooks are given as a local path, an http(s) URL or library:<path> when a
GitHub library is configured.

Environment variables:
  GEMINI_API_KEY  Gemini API key (provider gemini)
  OPENAI_API_KEY  OpenAI API key (provider openai)
  MODEL_PROVIDER  gemini or openai
  QDRANT_HOST     Enables the chunk archive at this host
  GITHUB_TOKEN    GitHub token for the textbook library (optional)`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./tutor.yaml or ~/.config/tutor/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(chunksCmd, searchCmd, askCmd, libraryCmd, configCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

// newApp builds the tutor for one command. Callers must Close it.
func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	} else if level == "info" {
		level = "warn"
	}
	return app.New(ctx, cfg, app.NewLogger(os.Stderr, level))
}

// preview shortens text to n runes on one line.
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}

func pages(start, end int) string {
	if start == end {
		return fmt.Sprintf("p.%d", start)
	}
	return fmt.Sprintf("pp.%d-%d", start, end)
}

func printLoaded(w io.Writer, name string, pageCount, chunks int, fromArchive bool) {
	source := "extracted"
	if fromArchive {
		source = "archive"
	}
	fmt.Fprintf(w, "Loaded %s: %d pages, %d passages (%s)\n\n", name, pageCount, chunks, source)
}
