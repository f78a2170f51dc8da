// Package memory is an in-process tracking store. Its state does not survive
// restarts and is not shared between processes; use it for tests and for
// single-instance deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/jwtpair/tracking"
)

type entry struct {
	rec    tracking.Record
	status tracking.Status
}

// Store keeps renewal records in a map guarded by a mutex. The mutex makes
// Blacklist's check-and-set a single critical section.
type Store struct {
	mu      sync.Mutex
	records map[string]*entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]*entry),
	}
}

func (s *Store) Status(ctx context.Context, jti string) (tracking.Status, error) {
	if err := ctx.Err(); err != nil {
		return tracking.StatusNotFound, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.records[jti]
	if !ok {
		return tracking.StatusNotFound, nil
	}
	return e.status, nil
}

func (s *Store) Blacklist(ctx context.Context, jti string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.records[jti]
	if !ok {
		return tracking.ErrNotFound
	}
	if e.status == tracking.StatusBlacklisted {
		return tracking.ErrAlreadyBlacklisted
	}
	e.status = tracking.StatusBlacklisted
	return nil
}

func (s *Store) InsertOutstanding(ctx context.Context, rec tracking.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.JTI]; exists {
		return tracking.ErrDuplicate
	}
	s.records[rec.JTI] = &entry{rec: rec, status: tracking.StatusOutstanding}
	return nil
}

// Purge drops records whose renewal token expired before now and returns how
// many were removed. Purged identifiers report NotFound afterwards.
func (s *Store) Purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for jti, e := range s.records {
		if !e.rec.ExpiresAt.IsZero() && !e.rec.ExpiresAt.After(now) {
			delete(s.records, jti)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identifiers.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
