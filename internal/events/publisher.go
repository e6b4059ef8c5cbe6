package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
)

// jsonPublisher is the part of Connection the Publisher needs.
type jsonPublisher interface {
	PublishJSON(ctx context.Context, v any) error
}

// Publisher sends LevelCompleted events. It satisfies
// assessment.EventPublisher.
type Publisher struct {
	conn   jsonPublisher
	logger *slog.Logger
}

var _ assessment.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a publisher on an open connection
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return newPublisher(conn, logger)
}

func newPublisher(conn jsonPublisher, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// PublishLevelCompleted publishes one event
func (p *Publisher) PublishLevelCompleted(ctx context.Context, ev assessment.LevelCompleted) error {
	if err := p.conn.PublishJSON(ctx, ev); err != nil {
		return fmt.Errorf("failed to publish level completed: %w", err)
	}

	p.logger.Info("published level completed",
		"event_id", ev.EventID,
		"session_id", ev.SessionID,
		"level", ev.Level,
		"final_passed", ev.FinalPassed,
	)
	return nil
}
