// Package postgres stores assessment progress and results in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
	"github.com/felixgeelhaar/ailevels/internal/level"
)

//go:embed schema.sql
var schema string

var _ assessment.Store = (*Store)(nil)

// Store implements assessment.Store using PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store over an existing pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to databaseURL and makes sure the tables exist.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewStore(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// GetProgress retrieves a session's progress row
func (s *Store) GetProgress(ctx context.Context, sessionID string) (*assessment.ProgressRecord, error) {
	query := `
		SELECT lv1_passed, lv2_passed, lv3_passed, lv4_passed, updated_at
		FROM level_progress WHERE session_id = $1
	`
	p := &assessment.ProgressRecord{SessionID: sessionID}
	err := s.pool.QueryRow(ctx, query, sessionID).
		Scan(&p.Lv1Passed, &p.Lv2Passed, &p.Lv3Passed, &p.Lv4Passed, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("progress %s: %w", sessionID, assessment.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

// PutProgress upserts a session's progress row
func (s *Store) PutProgress(ctx context.Context, p *assessment.ProgressRecord) error {
	query := `
		INSERT INTO level_progress (session_id, lv1_passed, lv2_passed, lv3_passed, lv4_passed, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE SET
			lv1_passed = EXCLUDED.lv1_passed, lv2_passed = EXCLUDED.lv2_passed,
			lv3_passed = EXCLUDED.lv3_passed, lv4_passed = EXCLUDED.lv4_passed,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.pool.Exec(ctx, query,
		p.SessionID, p.Lv1Passed, p.Lv2Passed, p.Lv3Passed, p.Lv4Passed, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// GetResult retrieves a session's completion record for one level
func (s *Store) GetResult(ctx context.Context, sessionID string, l level.Level) (*assessment.CompletionRecord, error) {
	query := `
		SELECT questions, answers, grades, final_passed, total_score, completed_at
		FROM level_results WHERE session_id = $1 AND level = $2
	`
	var questions, answers, grades []byte
	r := &assessment.CompletionRecord{SessionID: sessionID, Level: l.Tag()}
	err := s.pool.QueryRow(ctx, query, sessionID, l.Tag()).
		Scan(&questions, &answers, &grades, &r.FinalPassed, &r.TotalScore, &r.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("result %s/%s: %w", sessionID, l.Tag(), assessment.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query result: %w", err)
	}
	r.CompletedAt = r.CompletedAt.UTC()

	if err := json.Unmarshal(questions, &r.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	if err := json.Unmarshal(answers, &r.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if err := json.Unmarshal(grades, &r.Grades); err != nil {
		return nil, fmt.Errorf("unmarshal grades: %w", err)
	}
	return r, nil
}

// PutResult upserts a session's completion record
func (s *Store) PutResult(ctx context.Context, r *assessment.CompletionRecord) error {
	questions, err := json.Marshal(r.Questions)
	if err != nil {
		return err
	}
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return err
	}
	grades, err := json.Marshal(r.Grades)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO level_results (session_id, level, questions, answers, grades, final_passed, total_score, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, level) DO UPDATE SET
			questions = EXCLUDED.questions, answers = EXCLUDED.answers, grades = EXCLUDED.grades,
			final_passed = EXCLUDED.final_passed, total_score = EXCLUDED.total_score,
			completed_at = EXCLUDED.completed_at
	`
	_, err = s.pool.Exec(ctx, query,
		r.SessionID, r.Level, string(questions), string(answers), string(grades),
		r.FinalPassed, r.TotalScore, r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}
