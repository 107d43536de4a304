package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	text string
	err  error
}

// scriptedBackend plays back replies in order, repeating the last one.
type scriptedBackend struct {
	name    string
	mu      sync.Mutex
	replies []reply
	calls   int
	models  []string
}

func (s *scriptedBackend) Name() string { return s.name }

func (s *scriptedBackend) Generate(_ context.Context, model, _ string, _ Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.calls, len(s.replies)-1)
	s.calls++
	s.models = append(s.models, model)
	return s.replies[i].text, s.replies[i].err
}

func (s *scriptedBackend) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func kindErr(kind error) error {
	return &APIError{Kind: kind, Backend: "fake", Model: "m"}
}

func fastConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  time.Second,
		MaxRetryAfter:   5 * time.Millisecond,
	}
}

func newTestClient(t *testing.T, backends ...*scriptedBackend) *Client {
	t.Helper()
	targets := make([]Target, len(backends))
	for i, b := range backends {
		targets[i] = Target{Backend: b, Model: b.name + "-model"}
	}
	c, err := NewClient(targets, fastConfig(), nil)
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil, Config{}, nil)
	assert.ErrorIs(t, err, ErrNoTargets)

	_, err = NewClient([]Target{{Backend: &scriptedBackend{name: "a"}}}, Config{}, nil)
	assert.Error(t, err, "missing model should be rejected")

	c, err := NewClient([]Target{{Backend: &scriptedBackend{name: "a"}, Model: "x"}}, Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxAttempts, c.cfg.MaxAttempts)
	assert.Equal(t, DefaultInitialInterval, c.cfg.InitialInterval)
	assert.Equal(t, "a/x", c.Targets()[0].String())
}

func TestComplete_SuccessIsCleaned(t *testing.T) {
	primary := &scriptedBackend{name: "primary", replies: []reply{{text: "The **mitochondria** produce ATP.\n\n\n\n"}}}
	c := newTestClient(t, primary)

	got, err := c.Complete(context.Background(), "prompt", Options{})
	require.NoError(t, err)
	assert.Equal(t, "The mitochondria produce ATP.", got)
	assert.Equal(t, 1, primary.Calls())
}

func TestComplete_RetriesTransient(t *testing.T) {
	primary := &scriptedBackend{name: "primary", replies: []reply{
		{err: kindErr(ErrTransient)},
		{err: kindErr(ErrRateLimited)},
		{text: "answer"},
	}}
	c := newTestClient(t, primary)

	got, err := c.Complete(context.Background(), "prompt", Options{})
	require.NoError(t, err)
	assert.Equal(t, "answer", got)
	assert.Equal(t, 3, primary.Calls())
}

func TestComplete_FallsBackAfterExhaustedRetries(t *testing.T) {
	primary := &scriptedBackend{name: "primary", replies: []reply{{err: kindErr(ErrRateLimited)}}}
	secondary := &scriptedBackend{name: "secondary", replies: []reply{{text: "from fallback"}}}
	c := newTestClient(t, primary, secondary)

	got, err := c.Complete(context.Background(), "prompt", Options{})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", got)
	assert.Equal(t, 3, primary.Calls(), "primary should use every attempt")
	assert.Equal(t, []string{"secondary-model"}, secondary.models)
}

func TestComplete_FallsBackImmediately(t *testing.T) {
	for _, kind := range []error{ErrQuotaExceeded, ErrModelNotFound} {
		t.Run(kind.Error(), func(t *testing.T) {
			primary := &scriptedBackend{name: "primary", replies: []reply{{err: kindErr(kind)}}}
			secondary := &scriptedBackend{name: "secondary", replies: []reply{{text: "ok"}}}
			c := newTestClient(t, primary, secondary)

			got, err := c.Complete(context.Background(), "prompt", Options{})
			require.NoError(t, err)
			assert.Equal(t, "ok", got)
			assert.Equal(t, 1, primary.Calls(), "non-retryable kind should not be retried")
		})
	}
}

func TestComplete_Aborts(t *testing.T) {
	tests := []struct {
		name  string
		reply reply
		kind  error
	}{
		{name: "auth", reply: reply{err: kindErr(ErrAuth)}, kind: ErrAuth},
		{name: "blocked", reply: reply{err: kindErr(ErrContentBlocked)}, kind: ErrContentBlocked},
		{name: "malformed", reply: reply{err: kindErr(ErrMalformedResponse)}, kind: ErrMalformedResponse},
		{name: "empty text", reply: reply{text: "  \n"}, kind: ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &scriptedBackend{name: "primary", replies: []reply{tt.reply}}
			secondary := &scriptedBackend{name: "secondary", replies: []reply{{text: "unused"}}}
			c := newTestClient(t, primary, secondary)

			_, err := c.Complete(context.Background(), "prompt", Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, 1, primary.Calls())
			assert.Zero(t, secondary.Calls(), "abort must not reach the fallback")
		})
	}
}

func TestComplete_AllTargetsFail(t *testing.T) {
	primary := &scriptedBackend{name: "primary", replies: []reply{{err: kindErr(ErrQuotaExceeded)}}}
	secondary := &scriptedBackend{name: "secondary", replies: []reply{{err: kindErr(ErrTransient)}}}
	c := newTestClient(t, primary, secondary)

	_, err := c.Complete(context.Background(), "prompt", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient, "last target's error is returned")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Retryable())
}

func TestComplete_ContextCancelled(t *testing.T) {
	primary := &scriptedBackend{name: "primary", replies: []reply{{text: "never"}}}
	secondary := &scriptedBackend{name: "secondary", replies: []reply{{text: "never"}}}
	c := newTestClient(t, primary, secondary)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Complete(ctx, "prompt", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, secondary.Calls())
}

func TestComplete_RateLimiterPaces(t *testing.T) {
	primary := &scriptedBackend{name: "primary", replies: []reply{{text: "ok"}}}
	cfg := fastConfig()
	cfg.RequestsPerMinute = 600 // one every 100ms
	c, err := NewClient([]Target{{Backend: primary, Model: "m"}}, cfg, nil)
	require.NoError(t, err)

	start := time.Now()
	for range 3 {
		_, err := c.Complete(context.Background(), "prompt", Options{})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestComplete_RateLimitWaitPastDeadline(t *testing.T) {
	primary := &scriptedBackend{name: "primary", replies: []reply{{text: "ok"}}}
	cfg := fastConfig()
	cfg.RequestsPerMinute = 1
	c, err := NewClient([]Target{{Backend: primary, Model: "m"}}, cfg, nil)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "prompt", Options{})
	require.NoError(t, err)

	// The next token is a minute away, well past this deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = c.Complete(ctx, "prompt", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "The tutor took too long to answer. Please try again.", UserMessage(err))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, primary.Calls())
}

func TestRetryAfterBackOff(t *testing.T) {
	policy := &retryAfterBackOff{BackOff: backoff.NewConstantBackOff(time.Millisecond), max: 50 * time.Millisecond}

	assert.Equal(t, time.Millisecond, policy.NextBackOff())

	policy.suggest(20 * time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, policy.NextBackOff())
	assert.Equal(t, time.Millisecond, policy.NextBackOff(), "hint applies once")

	policy.suggest(time.Hour)
	assert.Equal(t, 50*time.Millisecond, policy.NextBackOff(), "hint is capped")

	stopped := &retryAfterBackOff{BackOff: &backoff.StopBackOff{}, max: time.Second}
	stopped.suggest(time.Millisecond)
	assert.Equal(t, backoff.Stop, stopped.NextBackOff())
}

func TestFallsThrough(t *testing.T) {
	assert.True(t, fallsThrough(kindErr(ErrQuotaExceeded)))
	assert.True(t, fallsThrough(kindErr(ErrTransient)))
	assert.False(t, fallsThrough(kindErr(ErrAuth)))
	assert.False(t, fallsThrough(errors.New("plain")))
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Contains(t, UserMessage(kindErr(ErrQuotaExceeded)), "quota")
	assert.Contains(t, UserMessage(kindErr(ErrAuth)), "API key")
	assert.Contains(t, UserMessage(kindErr(ErrRateLimited)), "too many")
	assert.Contains(t, UserMessage(context.DeadlineExceeded), "too long")
	assert.NotEmpty(t, UserMessage(errors.New("boom")))
}
