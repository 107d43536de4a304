// Package main provides the MCP server entry point for the textbook tutor.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mdsalman850/co-teachers-sub003/internal/app"
	"github.com/mdsalman850/co-teachers-sub003/internal/config"
	"github.com/mdsalman850/co-teachers-sub003/internal/library"
	mcpserver "github.com/mdsalman850/co-teachers-sub003/internal/mcp"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return err
	}

	// stdout carries the MCP stream in stdio mode, so log to stderr.
	logger := app.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)
	if cfgPath != "" {
		logger.Info("Loaded config", "path", cfgPath)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if ref := cfg.Server.Textbook; ref != "" {
		if res, err := a.LoadRef(ctx, ref); err != nil {
			logger.Warn("Failed to load startup textbook", "source", ref, "error", err)
		} else {
			logger.Info("Loaded textbook", "name", res.Name, "pages", res.Pages, "chunks", len(res.Chunks), "from_archive", res.FromArchive)
		}
	}

	var lib mcpserver.Library
	if a.Library != nil {
		lib = a.Library
	}
	server := mcpserver.NewServer(&mcpserver.Config{
		Tutor:   a.Tutor,
		Loader:  a,
		Library: lib,
	})

	mux := mcpserver.NewMux(server, mcpserver.NewHealthHandler(a, a.Tutor), nil)
	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.History.Run(gctx, cfg.History.SweepInterval)
	})

	if path := cfg.Server.Textbook; isLocalPath(path) {
		g.Go(func() error {
			return a.Tutor.Watch(gctx, path)
		})
	}

	g.Go(func() error {
		if cfg.Server.HTTP {
			logger.Info("Starting HTTP server", "addr", httpServer.Addr, "mcp", "/mcp", "health", "/health")
		} else {
			logger.Info("Starting health server", "addr", httpServer.Addr)
		}
		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		if !cfg.Server.HTTP {
			// The health endpoint is optional next to stdio.
			logger.Warn("Health server error", "error", err)
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if !cfg.Server.HTTP {
		g.Go(func() error {
			defer stop()
			logger.Info("Starting textbook tutor MCP server (stdio mode)")
			return server.Run(gctx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loadConfig reads CONFIG_PATH when set, otherwise the default locations.
func loadConfig() (*config.Config, string, error) {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}
	return config.LoadDefault()
}

func isLocalPath(ref string) bool {
	return ref != "" &&
		!strings.HasPrefix(ref, "http://") &&
		!strings.HasPrefix(ref, "https://") &&
		!strings.HasPrefix(ref, library.LibraryPrefix)
}
