package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
	"github.com/felixgeelhaar/ailevels/internal/level"
)

// Store persists progress and completion records in SQLite.
type Store struct {
	db *DB
}

// NewStore creates a store over a migrated database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// GetProgress returns the progress row for a session.
func (s *Store) GetProgress(ctx context.Context, sessionID string) (*assessment.ProgressRecord, error) {
	p := &assessment.ProgressRecord{SessionID: sessionID}
	err := s.db.QueryRowContext(ctx, `
		SELECT lv1_passed, lv2_passed, lv3_passed, lv4_passed, updated_at
		FROM progress WHERE session_id = ?`, sessionID).
		Scan(&p.Lv1Passed, &p.Lv2Passed, &p.Lv3Passed, &p.Lv4Passed, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("progress %s: %w", sessionID, assessment.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	return p, nil
}

// PutProgress replaces the progress row for a session.
func (s *Store) PutProgress(ctx context.Context, p *assessment.ProgressRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (session_id, lv1_passed, lv2_passed, lv3_passed, lv4_passed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			lv1_passed=excluded.lv1_passed, lv2_passed=excluded.lv2_passed,
			lv3_passed=excluded.lv3_passed, lv4_passed=excluded.lv4_passed,
			updated_at=excluded.updated_at`,
		p.SessionID, p.Lv1Passed, p.Lv2Passed, p.Lv3Passed, p.Lv4Passed, p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// GetResult returns a session's completion record for one level.
func (s *Store) GetResult(ctx context.Context, sessionID string, l level.Level) (*assessment.CompletionRecord, error) {
	var (
		questions, answers, grades string
		r                          = &assessment.CompletionRecord{SessionID: sessionID, Level: l.Tag()}
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT questions, answers, grades, final_passed, total_score, completed_at
		FROM results WHERE session_id = ? AND level = ?`, sessionID, l.Tag()).
		Scan(&questions, &answers, &grades, &r.FinalPassed, &r.TotalScore, &r.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result %s/%s: %w", sessionID, l.Tag(), assessment.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query result: %w", err)
	}

	for _, col := range []struct {
		name string
		raw  string
		dst  *[]json.RawMessage
	}{
		{"questions", questions, &r.Questions},
		{"answers", answers, &r.Answers},
		{"grades", grades, &r.Grades},
	} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", col.name, err)
		}
	}
	return r, nil
}

// PutResult replaces a session's completion record for the record's level.
func (s *Store) PutResult(ctx context.Context, r *assessment.CompletionRecord) error {
	questions, err := json.Marshal(r.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	grades, err := json.Marshal(r.Grades)
	if err != nil {
		return fmt.Errorf("marshal grades: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (session_id, level, questions, answers, grades, final_passed, total_score, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, level) DO UPDATE SET
			questions=excluded.questions, answers=excluded.answers, grades=excluded.grades,
			final_passed=excluded.final_passed, total_score=excluded.total_score,
			completed_at=excluded.completed_at`,
		r.SessionID, r.Level, string(questions), string(answers), string(grades),
		r.FinalPassed, r.TotalScore, completedAt(r.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

func completedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
