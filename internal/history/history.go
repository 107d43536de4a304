// Package history keeps the per-document conversation between a student and
// the tutor. Records expire after an idle period measured from their last
// write.
package history

import (
	"context"
	"errors"
)

// ErrNotFound means no record exists for the key.
var ErrNotFound = errors.New("conversation not found")

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // epoch millis
}

// Record is the persisted conversation of one key.
type Record struct {
	Messages    []Message `json:"messages"`
	LastUpdated int64     `json:"lastUpdated"` // epoch millis
}

// Store persists records by key.
type Store interface {
	// Get returns ErrNotFound when the key has no record.
	Get(ctx context.Context, key string) (Record, error)
	Put(ctx context.Context, key string, rec Record) error
	Delete(ctx context.Context, key string) error
	// DeleteBefore removes records last updated before cutoff (epoch millis)
	// and returns how many were removed.
	DeleteBefore(ctx context.Context, cutoff int64) (int, error)
	Health(ctx context.Context) error
	Close() error
}
