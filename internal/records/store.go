// Package records manages the student record list and its persisted
// snapshot. Every mutation rewrites the whole snapshot.
package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/example/kiosk/pkg/audit"
)

// Auditor receives one journal line per store mutation.
type Auditor interface {
	Append(payload string) *audit.LogEntry
}

// Store keeps records in insertion order. Lookups use first-match
// semantics: the earliest record with a matching identifier wins.
//
// The mutex covers both the in-memory sequence and the snapshot write.
type Store struct {
	mu        sync.Mutex
	backend   Snapshotter
	records   []Record
	uniqueIDs bool
	auditor   Auditor
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithUniqueIDs makes Add reject identifiers that are already stored.
func WithUniqueIDs() Option {
	return func(s *Store) {
		s.uniqueIDs = true
	}
}

// WithAuditor journals every mutation to a.
func WithAuditor(a Auditor) Option {
	return func(s *Store) {
		s.auditor = a
	}
}

// WithLogger sets the logger used for persistence events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore returns an empty store backed by backend. Call Load to read the
// existing snapshot.
func NewStore(backend Snapshotter, opts ...Option) *Store {
	s := &Store{backend: backend, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a store and loads its snapshot. The store is always usable;
// a non-nil error describes a load failure after which the store is empty.
func Open(ctx context.Context, backend Snapshotter, opts ...Option) (*Store, error) {
	s := NewStore(backend, opts...)
	return s, s.Load(ctx)
}

// Add validates rec, appends it and rewrites the snapshot.
func (s *Store) Add(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := rec.Validate(); err != nil {
		s.journal("add", rec.ID, err)
		return fmt.Errorf("add %d: %w", rec.ID, err)
	}
	if s.uniqueIDs && s.indexOf(rec.ID) >= 0 {
		s.journal("add", rec.ID, ErrDuplicateID)
		return fmt.Errorf("add %d: %w", rec.ID, ErrDuplicateID)
	}

	s.records = append(s.records, rec)
	s.journal("add", rec.ID, nil)
	return s.save(ctx)
}

// Remove deletes the first record with identifier id and rewrites the
// snapshot. Nothing is written when id is unknown.
func (s *Store) Remove(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.journal("remove", id, ErrNotFound)
		return fmt.Errorf("remove %d: %w", id, ErrNotFound)
	}

	s.records = append(s.records[:i], s.records[i+1:]...)
	s.journal("remove", id, nil)
	return s.save(ctx)
}

// Edit overwrites the name and category of the first record with
// identifier id, keeping its identifier and position.
func (s *Store) Edit(ctx context.Context, id int, name, category string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.journal("edit", id, ErrNotFound)
		return Record{}, fmt.Errorf("edit %d: %w", id, ErrNotFound)
	}

	s.records[i].Name = name
	s.records[i].Category = category
	s.journal("edit", id, nil)
	return s.records[i], s.save(ctx)
}

// Find returns the first record with identifier id.
func (s *Store) Find(id int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Record{}, fmt.Errorf("find %d: %w", id, ErrNotFound)
	}
	return s.records[i], nil
}

// All returns a copy of every record in insertion order.
func (s *Store) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Save writes the full sequence through the backend.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx)
}

// Load replaces the in-memory sequence with the stored snapshot. A missing
// snapshot yields an empty store. Any other failure also leaves the store
// empty and is returned as a *PersistenceError.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.backend.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		s.records = nil
		s.logger.Info("no student snapshot found, starting empty")
		return nil
	case err != nil:
		s.records = nil
		s.logger.Warn("failed to load student snapshot, starting empty", "error", err)
		return &PersistenceError{Op: "load", Err: err}
	}

	s.records = recs
	s.logger.Info("student snapshot loaded", "records", len(recs))
	return nil
}

// save must be called with s.mu held.
func (s *Store) save(ctx context.Context) error {
	snap := make([]Record, len(s.records))
	copy(snap, s.records)

	if err := s.backend.Save(ctx, snap); err != nil {
		s.logger.Error("failed to save student snapshot", "error", err)
		return &PersistenceError{Op: "save", Err: err}
	}
	s.logger.Debug("student snapshot saved", "records", len(snap))
	return nil
}

func (s *Store) indexOf(id int) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) journal(op string, id int, err error) {
	if s.auditor == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = err.Error()
	}
	s.auditor.Append(fmt.Sprintf("records op=%s id=%d result=%q", op, id, result))
}
