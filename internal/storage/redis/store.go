// Package redis keeps each session as one Redis hash. The hash key is the
// session partition key and each field is a sort key (PROGRESS, RESULT#lvN)
// holding the item as JSON.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
	"github.com/felixgeelhaar/ailevels/internal/level"
)

var _ assessment.Store = (*Store)(nil)

// Store implements assessment.Store on Redis hashes.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

// NewStore wraps an existing client. prefix namespaces every key.
func NewStore(client goredis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Open connects to addr and verifies the connection.
func Open(ctx context.Context, addr, prefix string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewStore(client, prefix), nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(sessionID string) string {
	if s.prefix == "" {
		return assessment.SessionKey(sessionID)
	}
	return s.prefix + ":" + assessment.SessionKey(sessionID)
}

func (s *Store) get(ctx context.Context, sessionID, field string, v any) error {
	data, err := s.client.HGet(ctx, s.key(sessionID), field).Bytes()
	if errors.Is(err, goredis.Nil) {
		return fmt.Errorf("%s/%s: %w", sessionID, field, assessment.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("hget %s: %w", field, err)
	}
	return json.Unmarshal(data, v)
}

func (s *Store) put(ctx context.Context, sessionID, field string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.key(sessionID), field, data).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", field, err)
	}
	return nil
}

// GetProgress implements assessment.Store.
func (s *Store) GetProgress(ctx context.Context, sessionID string) (*assessment.ProgressRecord, error) {
	var p assessment.ProgressRecord
	if err := s.get(ctx, sessionID, assessment.ProgressKey, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PutProgress implements assessment.Store.
func (s *Store) PutProgress(ctx context.Context, p *assessment.ProgressRecord) error {
	return s.put(ctx, p.SessionID, assessment.ProgressKey, p)
}

// GetResult implements assessment.Store.
func (s *Store) GetResult(ctx context.Context, sessionID string, l level.Level) (*assessment.CompletionRecord, error) {
	var r assessment.CompletionRecord
	if err := s.get(ctx, sessionID, assessment.ResultKey(l), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// PutResult implements assessment.Store.
func (s *Store) PutResult(ctx context.Context, r *assessment.CompletionRecord) error {
	l, err := level.Parse(r.Level)
	if err != nil {
		return err
	}
	return s.put(ctx, r.SessionID, assessment.ResultKey(l), r)
}
