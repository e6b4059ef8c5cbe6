package assessment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/ailevels/internal/level"
)

// Key layout shared by every store: one partition per session holding a
// RESULT#lvN item per level plus a single PROGRESS item.
const (
	sessionKeyPrefix = "SESSION#"
	resultKeyPrefix  = "RESULT#"
	ProgressKey      = "PROGRESS"
)

// SessionKey returns the partition key for a session. It is also the
// record_id reported by Complete.
func SessionKey(sessionID string) string { return sessionKeyPrefix + sessionID }

// ResultKey returns the sort key of a level's completion record.
func ResultKey(l level.Level) string { return resultKeyPrefix + l.Tag() }

// CompletionRecord is what Complete persists for one session and level.
// Questions, answers and grades are stored as the caller sent them.
type CompletionRecord struct {
	SessionID   string            `json:"session_id"`
	Level       string            `json:"level"`
	Questions   []json.RawMessage `json:"questions"`
	Answers     []json.RawMessage `json:"answers"`
	Grades      []json.RawMessage `json:"grades"`
	FinalPassed bool              `json:"final_passed"`
	TotalScore  float64           `json:"total_score"`
	CompletedAt time.Time         `json:"completed_at"`
}

// Store persists completion records and progress. Implementations return
// ErrNotFound (possibly wrapped) for missing items. No cross-item
// transaction is required.
type Store interface {
	GetProgress(ctx context.Context, sessionID string) (*ProgressRecord, error)
	PutProgress(ctx context.Context, p *ProgressRecord) error
	GetResult(ctx context.Context, sessionID string, l level.Level) (*CompletionRecord, error)
	PutResult(ctx context.Context, r *CompletionRecord) error
}

// LevelCompleted is announced after a completion record is stored.
type LevelCompleted struct {
	EventID     string    `json:"event_id"`
	SessionID   string    `json:"session_id"`
	Level       string    `json:"level"`
	FinalPassed bool      `json:"final_passed"`
	TotalScore  float64   `json:"total_score"`
	CompletedAt time.Time `json:"completed_at"`
}

// EventPublisher delivers LevelCompleted events. It is optional.
type EventPublisher interface {
	PublishLevelCompleted(ctx context.Context, ev LevelCompleted) error
}
