package journal

import (
	"fmt"
	"strings"
	"time"
)

// Package journal keeps an optional audit trail of tool invocations.

// Entry is one recorded invocation.
type Entry struct {
	Tool           string         `json:"tool"`
	Args           map[string]any `json:"args,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	DurationMS     int64          `json:"duration_ms"`
	UpstreamStatus int            `json:"upstream_status,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Store persists invocation entries. The gateway only writes; Recent is the
// read path for offline inspection of a journal file and is never consulted
// when answering a tool call.
type Store interface {
	Close() error
	Record(e Entry) error
	// Recent returns up to limit unexpired entries, newest first. A
	// non-positive limit returns all of them.
	Recent(limit int) ([]Entry, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultEntryTTL        = 7 * 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// NewStore creates the configured journal backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt journal requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported journal type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                { return nil }
func (noopStore) Record(Entry) error          { return nil }
func (noopStore) Recent(int) ([]Entry, error) { return nil, nil }
