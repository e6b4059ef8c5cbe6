package assessment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/ailevels/internal/level"
	"github.com/felixgeelhaar/ailevels/internal/llm"
)

// Completer runs one single-turn model call. *llm.Gateway satisfies it.
type Completer interface {
	Invoke(ctx context.Context, system, user string, maxTokens int) (*llm.Response, error)
}

// Service orchestrates generation, grading, completion and status queries.
type Service struct {
	completer  Completer
	store      Store
	thresholds *ThresholdResolver
	prompter   *Prompter
	events     EventPublisher
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEvents publishes a LevelCompleted event after each stored completion.
func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new assessment service
func NewService(completer Completer, store Store, thresholds *ThresholdResolver, opts ...Option) *Service {
	s := &Service{
		completer:  completer,
		store:      store,
		thresholds: thresholds,
		prompter:   NewPrompter(),
		logger:     slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateResult is a validated question set for one session.
type GenerateResult struct {
	SessionID string     `json:"session_id"`
	Questions []Question `json:"questions"`
}

// Generate asks the model for a question set and validates it against the
// level schema. Nothing is persisted.
func (s *Service) Generate(ctx context.Context, l level.Level, sessionID string) (*GenerateResult, error) {
	if sessionID == "" {
		return nil, invalidInput("session_id is required")
	}
	schema, err := level.SchemaFor(l)
	if err != nil {
		return nil, err
	}

	resp, err := s.completer.Invoke(ctx,
		s.prompter.GenerateSystem(l),
		s.prompter.GenerateUser(l, sessionID),
		schema.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", l.Tag(), err)
	}

	v := &Validator{schema: schema}
	questions, err := v.Validate(StripWrapping(resp.Content))
	if err != nil {
		s.logger.Error("question set rejected",
			"level", l.Tag(),
			"session_id", sessionID,
			"error", err,
			"completion", preview(resp.Content))
		return nil, err
	}

	return &GenerateResult{SessionID: sessionID, Questions: questions}, nil
}

// GradeRequest is one answered question.
type GradeRequest struct {
	SessionID string          `json:"session_id"`
	Step      int             `json:"step"`
	Question  json.RawMessage `json:"question"`
	Answer    string          `json:"answer"`
}

// GradeOutcome combines the resolved grade with review text.
type GradeOutcome struct {
	SessionID   string `json:"session_id"`
	Step        int    `json:"step"`
	Passed      bool   `json:"passed"`
	Score       int    `json:"score"`
	Feedback    string `json:"feedback"`
	Explanation string `json:"explanation"`
}

// Grade scores an answer, decides pass/fail from the configured threshold
// and then asks for feedback that can reference that verdict.
func (s *Service) Grade(ctx context.Context, l level.Level, req GradeRequest) (*GradeOutcome, error) {
	if err := validateGradeRequest(req); err != nil {
		return nil, err
	}
	if !l.Valid() {
		return nil, level.ErrUnknownLevel
	}

	resp, err := s.completer.Invoke(ctx, s.prompter.GradeSystem(l), s.prompter.GradeUser(req.Question, req.Answer), 0)
	if err != nil {
		return nil, fmt.Errorf("grade %s: %w", l.Tag(), err)
	}
	grade, err := ParseGrade(StripWrapping(resp.Content))
	if err != nil {
		s.logger.Error("grade rejected", "level", l.Tag(), "step", req.Step, "error", err,
			"completion", preview(resp.Content))
		return nil, err
	}

	modelPassed := grade.Passed
	grade.Passed = s.thresholds.Passed(l, grade.Score)
	if modelPassed != grade.Passed {
		s.logger.Debug("model verdict overridden by threshold",
			"level", l.Tag(), "score", grade.Score,
			"threshold", s.thresholds.Threshold(l), "passed", grade.Passed)
	}

	resp, err = s.completer.Invoke(ctx, s.prompter.ReviewSystem(l), s.prompter.ReviewUser(req.Question, req.Answer, *grade), 0)
	if err != nil {
		return nil, fmt.Errorf("review %s: %w", l.Tag(), err)
	}
	review, err := ParseFeedback(StripWrapping(resp.Content))
	if err != nil {
		s.logger.Error("feedback rejected", "level", l.Tag(), "step", req.Step, "error", err,
			"completion", preview(resp.Content))
		return nil, err
	}

	return &GradeOutcome{
		SessionID:   req.SessionID,
		Step:        req.Step,
		Passed:      grade.Passed,
		Score:       grade.Score,
		Feedback:    review.Feedback,
		Explanation: review.Explanation,
	}, nil
}

func validateGradeRequest(req GradeRequest) error {
	if req.SessionID == "" {
		return invalidInput("session_id is required")
	}
	if req.Step < 1 {
		return invalidInput("step must be a positive integer")
	}
	q := bytes.TrimSpace(req.Question)
	if len(q) == 0 || q[0] != '{' || !json.Valid(q) {
		return invalidInput("question is required")
	}
	if strings.TrimSpace(req.Answer) == "" {
		return invalidInput("answer is required")
	}
	return nil
}

// CompleteRequest is the learner's finished level.
type CompleteRequest struct {
	SessionID   string            `json:"session_id"`
	Questions   []json.RawMessage `json:"questions"`
	Answers     []json.RawMessage `json:"answers"`
	Grades      []json.RawMessage `json:"grades"`
	FinalPassed bool              `json:"final_passed"`
}

// CompleteResult acknowledges a stored completion.
type CompleteResult struct {
	Saved    bool   `json:"saved"`
	RecordID string `json:"record_id"`
}

// Complete stores the completion record and folds final_passed into the
// session's progress. A level flag that is already true stays true.
//
// The progress update is a read-modify-write without a concurrency token;
// concurrent completions for one session can lose a flag.
func (s *Service) Complete(ctx context.Context, l level.Level, req CompleteRequest) (*CompleteResult, error) {
	if !l.Valid() {
		return nil, level.ErrUnknownLevel
	}
	if err := ValidateSessionID(req.SessionID); err != nil {
		return nil, err
	}
	switch {
	case len(req.Questions) == 0:
		return nil, invalidInput("questions must be a non-empty list")
	case len(req.Answers) == 0:
		return nil, invalidInput("answers must be a non-empty list")
	case len(req.Grades) == 0:
		return nil, invalidInput("grades must be a non-empty list")
	}

	now := s.now()
	record := &CompletionRecord{
		SessionID:   req.SessionID,
		Level:       l.Tag(),
		Questions:   req.Questions,
		Answers:     req.Answers,
		Grades:      req.Grades,
		FinalPassed: req.FinalPassed,
		TotalScore:  TotalScore(req.Grades),
		CompletedAt: now,
	}
	if err := s.store.PutResult(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: save result: %v", ErrPersistence, err)
	}

	progress, err := s.store.GetProgress(ctx, req.SessionID)
	switch {
	case errors.Is(err, ErrNotFound):
		progress = &ProgressRecord{SessionID: req.SessionID}
	case err != nil:
		return nil, fmt.Errorf("%w: load progress: %v", ErrPersistence, err)
	}
	progress.SessionID = req.SessionID
	progress.MarkLevel(l, req.FinalPassed)
	progress.UpdatedAt = now
	if err := s.store.PutProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("%w: save progress: %v", ErrPersistence, err)
	}

	s.publish(ctx, record)

	return &CompleteResult{Saved: true, RecordID: SessionKey(req.SessionID)}, nil
}

func (s *Service) publish(ctx context.Context, r *CompletionRecord) {
	if s.events == nil {
		return
	}
	ev := LevelCompleted{
		EventID:     uuid.NewString(),
		SessionID:   r.SessionID,
		Level:       r.Level,
		FinalPassed: r.FinalPassed,
		TotalScore:  r.TotalScore,
		CompletedAt: r.CompletedAt,
	}
	if err := s.events.PublishLevelCompleted(ctx, ev); err != nil {
		// The record is already stored; a lost event is not worth failing the request.
		s.logger.Warn("publish level completed", "session_id", r.SessionID, "level", r.Level, "error", err)
	}
}

// StatusResult is the gate view for one session.
type StatusResult struct {
	Levels map[string]LevelState `json:"levels"`
}

// Status reads the session's progress and derives the unlock view. A session
// with no progress yet has only level 1 unlocked.
func (s *Service) Status(ctx context.Context, sessionID string) (*StatusResult, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	progress, err := s.store.GetProgress(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: load progress: %v", ErrPersistence, err)
	}
	return &StatusResult{Levels: Gate(progress)}, nil
}

// Thresholds reports the resolved pass cutoff of every level.
func (s *Service) Thresholds() map[string]int {
	return s.thresholds.Thresholds()
}

// ValidateSessionID accepts only canonical UUIDv4 strings (any case).
func ValidateSessionID(id string) error {
	u, err := uuid.Parse(id)
	if err != nil || len(id) != 36 || u.Version() != 4 || u.Variant() != uuid.RFC4122 {
		return invalidInput("session_id must be a valid UUID v4")
	}
	return nil
}

// TotalScore sums the numeric score field of every object grade. Other
// entries are ignored.
func TotalScore(grades []json.RawMessage) float64 {
	var total float64
	for _, g := range grades {
		var obj map[string]any
		if err := json.Unmarshal(g, &obj); err != nil {
			continue
		}
		if n, ok := obj["score"].(float64); ok {
			total += n
		}
	}
	return total
}

// preview trims s to at most 200 bytes for logging, cutting on a rune
// boundary.
func preview(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
