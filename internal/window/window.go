// Package window keeps the per-business recent-content window and the
// per-customer submission history. Both are bounded and time-indexed; callers
// read a snapshot before scoring and append after.
package window

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultMaxEntries = 200
	DefaultRetention  = 72 * time.Hour
)

var ErrEmptyKey = errors.New("window: empty key")

type ContentEntry struct {
	SessionID  string    `json:"session_id"`
	Text       string    `json:"text"`
	Keywords   []string  `json:"keywords"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ContentStore is the recent-content window, keyed by business.
type ContentStore interface {
	RecentContent(ctx context.Context, businessID string, since time.Time) ([]ContentEntry, error)
	InsertContent(ctx context.Context, businessID string, e ContentEntry) error
}

// HistoryStore is the submission history, keyed by customer identity hash.
type HistoryStore interface {
	Submissions(ctx context.Context, customerHash string, since time.Time) ([]time.Time, error)
	RecordSubmission(ctx context.Context, customerHash string, at time.Time) error
}

type Config struct {
	MaxEntries int           `yaml:"max_entries"`
	Retention  time.Duration `yaml:"retention"`
}

func (c Config) withDefaults() Config {
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultMaxEntries
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	return c
}
