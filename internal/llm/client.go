// Package llm sends prompts to hosted text-completion models with retry,
// fallback across backends and client-side pacing, and cleans the replies
// down to plain text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Config tunes retries and pacing. Zero fields take the defaults.
type Config struct {
	// MaxAttempts bounds the calls made to one target, first try included.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	// MaxRetryAfter caps a server-suggested delay.
	MaxRetryAfter time.Duration
	// RequestsPerMinute paces calls across all targets; 0 disables pacing.
	RequestsPerMinute int
}

const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
	DefaultMaxElapsedTime  = 30 * time.Second
	DefaultMaxRetryAfter   = 30 * time.Second
)

// Client completes prompts against an ordered list of targets.
type Client struct {
	targets []Target
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a Client. The first target is preferred; later ones are
// fallbacks. A nil logger uses slog.Default().
func NewClient(targets []Target, cfg Config, logger *slog.Logger) (*Client, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	for i, t := range targets {
		if t.Backend == nil || t.Model == "" {
			return nil, fmt.Errorf("target %d: backend and model are required", i)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultInitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultMaxInterval
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = DefaultMaxElapsedTime
	}
	if cfg.MaxRetryAfter <= 0 {
		cfg.MaxRetryAfter = DefaultMaxRetryAfter
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Client{
		targets: targets,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Targets returns the configured targets in preference order.
func (c *Client) Targets() []Target {
	return append([]Target(nil), c.targets...)
}

// Complete sends prompt to the first target that answers and returns the
// reply as plain text. Rate limits and transient failures are retried with
// backoff; quota, missing-model and exhausted retries move on to the next
// target; authentication, blocked content and malformed replies fail at once.
// When every target fails the last error is returned.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	var lastErr error
	for i, t := range c.targets {
		text, err := c.attempt(ctx, t, prompt, opts)
		if err == nil {
			return Clean(text), nil
		}
		lastErr = err

		if ctx.Err() != nil || !fallsThrough(err) {
			return "", err
		}
		if i+1 < len(c.targets) {
			c.logger.Warn("Model target failed, falling back",
				"target", t.String(), "next", c.targets[i+1].String(), "error", err)
		}
	}
	return "", lastErr
}

// attempt calls one target, retrying retryable failures with exponential
// backoff that honours server-suggested delays.
func (c *Client) attempt(ctx context.Context, t Target, prompt string, opts Options) (string, error) {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = c.cfg.InitialInterval
	exponentialBackoff.MaxInterval = c.cfg.MaxInterval
	exponentialBackoff.MaxElapsedTime = c.cfg.MaxElapsedTime

	policy := &retryAfterBackOff{BackOff: exponentialBackoff, max: c.cfg.MaxRetryAfter}
	retries := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.cfg.MaxAttempts-1)), ctx)

	var text string
	tries := 0
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return backoff.Permanent(ctxErr)
			}
			// The limiter refuses early when the wait would outlast the deadline.
			return backoff.Permanent(fmt.Errorf("rate limit wait: %v: %w", err, context.DeadlineExceeded))
		}
		tries++

		out, err := t.Backend.Generate(ctx, t.Model, prompt, opts)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Retryable() {
				policy.suggest(apiErr.RetryAfter)
				c.logger.Warn("Model call failed, retrying",
					"target", t.String(), "attempt", tries, "error", err)
				return err
			}
			return backoff.Permanent(err)
		}
		if strings.TrimSpace(out) == "" {
			return backoff.Permanent(&APIError{
				Kind:    ErrMalformedResponse,
				Backend: t.Backend.Name(),
				Model:   t.Model,
				Message: "empty reply",
			})
		}
		text = out
		return nil
	}

	if err := backoff.Retry(operation, retries); err != nil {
		return "", err
	}
	c.logger.Debug("Model call succeeded", "target", t.String(), "attempts", tries)
	return text, nil
}

// retryAfterBackOff waits at least as long as the server asked, up to max.
type retryAfterBackOff struct {
	backoff.BackOff
	max  time.Duration
	hint time.Duration
}

func (b *retryAfterBackOff) suggest(d time.Duration) {
	b.hint = min(d, b.max)
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.hint > next {
		next = b.hint
	}
	b.hint = 0
	return next
}

func (b *retryAfterBackOff) Reset() {
	b.hint = 0
	b.BackOff.Reset()
}
