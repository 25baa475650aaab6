// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/sift/internal/triage"
)

// Store holds prediction records in memory. Suitable for dev/testing and for
// deployments that do not need durable history.
type Store struct {
	mu      sync.RWMutex
	records map[string]*triage.Record // prediction ID -> record
	seen    map[string]string         // content fingerprint -> latest prediction ID
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		records: make(map[string]*triage.Record),
		seen:    make(map[string]string),
	}
}

// Get retrieves a prediction record by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*triage.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// GetByFingerprint retrieves the most recent prediction for identical issue
// content. Returns a copy.
func (s *Store) GetByFingerprint(_ context.Context, fp string) (*triage.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.seen[fp]
	if !ok {
		return nil, false, nil
	}
	r := s.records[id]
	cp := *r
	return &cp, true, nil
}

// Put stores a copy of the prediction record.
func (s *Store) Put(_ context.Context, r *triage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[r.ID] = &cp
	s.seen[r.Fingerprint] = r.ID
	return nil
}
