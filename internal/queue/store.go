package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxzi/postq/internal/source"
)

// ErrNotFound is returned when a queue ID is not in the current snapshot.
var ErrNotFound = errors.New("message not found")

// Store holds one parsed snapshot of the queue listing. A snapshot is
// replaced atomically by Load and is never mutated in place, so reads
// against a loaded store are deterministic until the next Load. The
// store is not safe for concurrent Load calls; consumers that share a
// store across goroutines must serialize loading externally.
type Store struct {
	src      source.Listing
	autoLoad bool
	logger   *slog.Logger

	loaded   bool
	loadedAt time.Time
	order    []*Message
	byID     map[string]*Message
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithAutoLoad makes the store load itself on the first query instead
// of requiring an explicit Load call. It never reloads on later
// queries; staleness handling stays with the consumer.
func WithAutoLoad() StoreOption {
	return func(s *Store) { s.autoLoad = true }
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates an empty store reading from src.
func NewStore(src source.Listing, opts ...StoreOption) *Store {
	s := &Store{
		src:    src,
		logger: slog.Default(),
		byID:   map[string]*Message{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the listing, parses it and replaces the snapshot. On a
// source failure the previous snapshot is preserved unchanged.
func (s *Store) Load(ctx context.Context) error {
	raw, err := s.src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to load queue from %s: %w", s.src, err)
	}

	msgs := Parse(raw)
	byID := make(map[string]*Message, len(msgs))
	corrupt := 0
	for _, m := range msgs {
		if m.Status == StatusCorrupt {
			corrupt++
		}
		if m.ID != "" {
			byID[m.ID] = m
		}
	}

	s.order = msgs
	s.byID = byID
	s.loaded = true
	s.loadedAt = time.Now()

	s.logger.Info("queue snapshot loaded",
		"source", s.src.String(),
		"messages", len(msgs),
		"corrupt", corrupt)

	return nil
}

// ensure runs the one-time auto-load if configured. Queries never
// trigger more than the first load; reloading mid-evaluation would make
// selection non-deterministic.
func (s *Store) ensure(ctx context.Context) error {
	if s.loaded || !s.autoLoad {
		return nil
	}
	return s.Load(ctx)
}

// Get returns the record for a queue ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Message, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	m, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	return m, nil
}

// All returns the snapshot records in listing order.
func (s *Store) All(ctx context.Context) ([]*Message, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	return s.order, nil
}

// Select returns the records satisfying sel, in listing order. An
// empty store yields an empty result.
func (s *Store) Select(ctx context.Context, sel Selector) ([]*Message, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	var out []*Message
	for _, m := range s.order {
		if sel(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Summary computes per-status counts and the aggregate size of the
// current snapshot.
func (s *Store) Summary(ctx context.Context) (*Summary, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	sum := &Summary{ByStatus: map[Status]int{}}
	for _, m := range s.order {
		sum.Total++
		sum.Bytes += m.Size
		sum.ByStatus[m.Status]++
		if !m.Arrived.IsZero() && (sum.Oldest.IsZero() || m.Arrived.Before(sum.Oldest)) {
			sum.Oldest = m.Arrived
		}
	}
	return sum, nil
}

// LoadedAt returns the snapshot timestamp, zero if never loaded.
func (s *Store) LoadedAt() time.Time {
	return s.loadedAt
}

// Stale reports whether the snapshot is older than maxAge. A store
// that was never loaded is always stale.
func (s *Store) Stale(maxAge time.Duration) bool {
	if !s.loaded {
		return true
	}
	return time.Since(s.loadedAt) > maxAge
}

// Source describes where snapshots are loaded from.
func (s *Store) Source() string {
	return s.src.String()
}
