package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultMaxMessages bounds a conversation; older messages are dropped.
	DefaultMaxMessages = 50

	// DefaultTTL is the idle time after which a conversation is deleted.
	DefaultTTL = 30 * time.Minute

	expireTimeout = 5 * time.Second
)

// Config tunes a Manager. Zero fields take the defaults.
type Config struct {
	MaxMessages int
	TTL         time.Duration
	// Now overrides the wall clock used for timestamps and expiry checks.
	Now func() time.Time
}

// Manager appends to and expires conversations held in a Store. Each write
// re-arms a per-key timer that deletes the record once it has been idle for
// the TTL; reads also drop records found past their TTL.
type Manager struct {
	store       Store
	maxMessages int
	ttl         time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu     sync.Mutex
	timers map[string]expiry
	seq    uint64
	closed bool
}

// expiry is the pending timer of one key; seq tells a stale firing from the
// current one.
type expiry struct {
	timer *time.Timer
	seq   uint64
}

// NewManager creates a Manager over store. A nil logger uses slog.Default().
func NewManager(store Store, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		store:       store,
		maxMessages: cfg.MaxMessages,
		ttl:         cfg.TTL,
		now:         cfg.Now,
		logger:      logger,
		timers:      make(map[string]expiry),
	}
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}

// Append adds messages to the conversation at key, trims it to the maximum
// length from the head and returns the stored record.
func (m *Manager) Append(ctx context.Context, key string, msgs ...Message) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.load(ctx, key)
	if err != nil {
		return Record{}, err
	}

	now := m.now().UnixMilli()
	for _, msg := range msgs {
		if msg.Timestamp == 0 {
			msg.Timestamp = now
		}
		rec.Messages = append(rec.Messages, msg)
	}
	if over := len(rec.Messages) - m.maxMessages; over > 0 {
		rec.Messages = append([]Message(nil), rec.Messages[over:]...)
	}
	rec.LastUpdated = now

	if err := m.store.Put(ctx, key, rec); err != nil {
		return Record{}, fmt.Errorf("append: %w", err)
	}
	m.arm(key)
	return rec, nil
}

// Messages returns the conversation at key, or nil when there is none or it
// has expired.
func (m *Manager) Messages(ctx context.Context, key string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}
	return rec.Messages, nil
}

// Recent returns at most the last n messages at key.
func (m *Manager) Recent(ctx context.Context, key string, n int) ([]Message, error) {
	msgs, err := m.Messages(ctx, key)
	if err != nil || n <= 0 || len(msgs) <= n {
		return msgs, err
	}
	return msgs[len(msgs)-n:], nil
}

// Clear deletes the conversation at key.
func (m *Manager) Clear(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.disarm(key)
	if err := m.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// Sweep deletes every conversation idle for longer than the TTL.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-m.ttl).UnixMilli()
	n, err := m.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}
	if n > 0 {
		m.logger.Info("Expired conversations", "count", n)
	}
	return n, nil
}

// Run sweeps every interval until ctx is done. It returns nil on
// cancellation.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = m.ttl / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil && ctx.Err() == nil {
				m.logger.Warn("History sweep failed", "error", err)
			}
		}
	}
}

// Pending returns the number of armed expiry timers.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Close stops all pending expiry timers. The store is left open.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.timers {
		e.timer.Stop()
		delete(m.timers, key)
	}
	m.closed = true
}

// load reads the record at key, deleting it when it is past the TTL. A
// missing record is returned empty. m.mu must be held.
func (m *Manager) load(ctx context.Context, key string) (Record, error) {
	rec, err := m.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("load: %w", err)
	}

	if m.expired(rec) {
		m.disarm(key)
		if err := m.store.Delete(ctx, key); err != nil {
			return Record{}, fmt.Errorf("delete expired: %w", err)
		}
		m.logger.Debug("Dropped expired conversation", "key", key)
		return Record{}, nil
	}
	return rec, nil
}

func (m *Manager) expired(rec Record) bool {
	return m.now().UnixMilli()-rec.LastUpdated >= m.ttl.Milliseconds()
}

// arm (re)starts the expiry timer of key. m.mu must be held.
func (m *Manager) arm(key string) {
	if m.closed {
		return
	}
	m.disarm(key)
	m.seq++
	seq := m.seq
	m.timers[key] = expiry{timer: time.AfterFunc(m.ttl, func() { m.expire(key, seq) }), seq: seq}
}

// disarm stops the expiry timer of key. m.mu must be held.
func (m *Manager) disarm(key string) {
	if e, ok := m.timers[key]; ok {
		e.timer.Stop()
		delete(m.timers, key)
	}
}

// expire runs when the timer of key fires.
func (m *Manager) expire(key string, seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.timers[key]; m.closed || !ok || e.seq != seq {
		return
	}
	delete(m.timers, key)

	ctx, cancel := context.WithTimeout(context.Background(), expireTimeout)
	defer cancel()

	rec, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Warn("Failed to read conversation for expiry", "key", key, "error", err)
		}
		return
	}
	if !m.expired(rec) {
		return
	}
	if err := m.store.Delete(ctx, key); err != nil {
		m.logger.Warn("Failed to expire conversation", "key", key, "error", err)
		return
	}
	m.logger.Debug("Expired conversation", "key", key)
}
