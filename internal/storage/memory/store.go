// Package memory is an in-process assessment.Store for tests and local
// development. Items are kept as JSON under the same partition and sort
// keys the other drivers use.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
	"github.com/felixgeelhaar/ailevels/internal/level"
)

var _ assessment.Store = (*Store)(nil)

// Store provides thread-safe in-memory storage
type Store struct {
	mu    sync.RWMutex
	items map[string]map[string][]byte // partition key -> sort key -> JSON
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{items: make(map[string]map[string][]byte)}
}

func (s *Store) save(pk, sk string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", pk, sk, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.items[pk]
	if !ok {
		part = make(map[string][]byte)
		s.items[pk] = part
	}
	part[sk] = data
	return nil
}

func (s *Store) load(pk, sk string, v any) error {
	s.mu.RLock()
	data, ok := s.items[pk][sk]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%s/%s: %w", pk, sk, assessment.ErrNotFound)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", pk, sk, err)
	}
	return nil
}

// GetProgress implements assessment.Store.
func (s *Store) GetProgress(_ context.Context, sessionID string) (*assessment.ProgressRecord, error) {
	var p assessment.ProgressRecord
	if err := s.load(assessment.SessionKey(sessionID), assessment.ProgressKey, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PutProgress implements assessment.Store.
func (s *Store) PutProgress(_ context.Context, p *assessment.ProgressRecord) error {
	return s.save(assessment.SessionKey(p.SessionID), assessment.ProgressKey, p)
}

// GetResult implements assessment.Store.
func (s *Store) GetResult(_ context.Context, sessionID string, l level.Level) (*assessment.CompletionRecord, error) {
	var r assessment.CompletionRecord
	if err := s.load(assessment.SessionKey(sessionID), assessment.ResultKey(l), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// PutResult implements assessment.Store.
func (s *Store) PutResult(_ context.Context, r *assessment.CompletionRecord) error {
	l, err := level.Parse(r.Level)
	if err != nil {
		return fmt.Errorf("result level %q: %w", r.Level, err)
	}
	return s.save(assessment.SessionKey(r.SessionID), assessment.ResultKey(l), r)
}

// itemCount reports how many items are stored under a session.
func (s *Store) itemCount(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items[assessment.SessionKey(sessionID)])
}
