package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by a Repository when no snapshot exists under a key.
	ErrNotFound = errors.New("snapshot not found")
	// ErrJournalClosed is returned by a journal used after Close.
	ErrJournalClosed = errors.New("journal closed")
)

// Exchange is one journaled turn: what the user said, the concepts extracted from
// it and what the bot answered. Exchanges are appended in chronological order.
type Exchange struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text"`
	Concepts  []string  `json:"concepts,omitempty"`
	Reply     string    `json:"reply"`
}

// Journal is an append-only audit trail of exchanges.
// Implementations must be safe for concurrent use.
type Journal interface {
	Append(ex Exchange) error
	// Since lists exchanges stamped at or after t. A zero t lists all of them.
	Since(t time.Time) ([]Exchange, error)
}

// Repository persists encoded memory snapshots by key. Load returns ErrNotFound
// for unknown keys. Implementations must be safe for concurrent use.
type Repository interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
