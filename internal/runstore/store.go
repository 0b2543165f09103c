package runstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when a run ID has no record.
var ErrNotFound = errors.New("run not found")

// IsNotFound reports whether err means the run does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store persists run records.
type Store interface {
	// UpsertRun inserts or replaces the record with the same ID.
	UpsertRun(ctx context.Context, record *RunRecord) error
	// GetRun returns ErrNotFound when no record has the ID.
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	// ListRuns returns matching records, oldest first.
	ListRuns(ctx context.Context, filter *Filter) ([]*RunRecord, error)
	// ScanRunIDs returns the IDs starting with prefix.
	ScanRunIDs(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Filter narrows ListRuns. Zero fields do not filter; all set fields are ANDed.
type Filter struct {
	Since    time.Time
	Until    time.Time
	Status   Status
	Pipeline string
}

// Matches reports whether r passes every set criterion.
func (f *Filter) Matches(r *RunRecord) bool {
	if f == nil {
		return true
	}
	if !f.Since.IsZero() && r.StartedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.StartedAt.After(f.Until) {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Pipeline != "" && r.Pipeline != f.Pipeline {
		return false
	}
	return true
}

// sortRuns orders records by start time, then ID for equal times.
func sortRuns(runs []*RunRecord) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
}

// Options selects and configures a store.
type Options struct {
	// RedisURL selects the Redis store when set, e.g. redis://localhost:6379/0.
	RedisURL  string
	Namespace string
	// File is the path of the file store used when RedisURL is empty.
	File string
}

// Open returns the store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	if strings.TrimSpace(opts.RedisURL) != "" {
		store, err := NewRedisStoreFromURL(opts.RedisURL, opts.Namespace)
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.RedisURL, err)
		}
		return store, nil
	}
	if strings.TrimSpace(opts.File) == "" {
		return nil, errors.New("either a Redis URL or a store file is required")
	}
	return NewFileStore(opts.File), nil
}
