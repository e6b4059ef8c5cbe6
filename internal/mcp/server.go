package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
	"github.com/felixgeelhaar/ailevels/internal/level"
)

// Server exposes the level assessment service as MCP tools.
type Server struct {
	mcpServer *server.Server
	service   *assessment.Service
}

// Config contains configuration for the MCP server
type Config struct {
	Service *assessment.Service
	Version string
}

// NewServer creates a new MCP server for the level assessments
func NewServer(cfg Config) *Server {
	s := &Server{service: cfg.Service}

	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "ailevels",
		Version: version,
	}, server.WithInstructions(`
AI Levels runs four graded levels of AI literacy questions.
A session moves through a level by generating questions, grading each answer
and completing the level. Level N+1 unlocks once level N is passed.

Available tools:
- levels_generate: Generate the question set for a level
- levels_grade: Grade one answer and get feedback
- levels_complete: Store a finished level and update progress
- levels_status: Show which levels are unlocked and passed
`))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("levels_generate").
		Description("Generate the question set for a level (1-4).").
		Handler(s.handleGenerate)

	s.mcpServer.Tool("levels_grade").
		Description("Grade one answer. Pass/fail uses the level's configured threshold.").
		Handler(s.handleGrade)

	s.mcpServer.Tool("levels_complete").
		Description("Store a completed level and fold its result into the session progress.").
		Handler(s.handleComplete)

	s.mcpServer.Tool("levels_status").
		Description("Get the unlock and pass state of every level for a session.").
		Handler(s.handleStatus)
}

type GenerateInput struct {
	Level     int    `json:"level" jsonschema:"description=Level number 1-4"`
	SessionID string `json:"session_id" jsonschema:"description=Session ID"`
}

type GenerateOutput struct {
	SessionID string          `json:"session_id"`
	Level     string          `json:"level"`
	Questions json.RawMessage `json:"questions"`
}

type GradeInput struct {
	Level     int             `json:"level" jsonschema:"description=Level number 1-4"`
	SessionID string          `json:"session_id" jsonschema:"description=Session ID"`
	Step      int             `json:"step" jsonschema:"description=1-based question position"`
	Question  json.RawMessage `json:"question" jsonschema:"description=The question object as generated"`
	Answer    string          `json:"answer" jsonschema:"description=The learner's answer"`
}

type CompleteInput struct {
	Level       int               `json:"level" jsonschema:"description=Level number 1-4"`
	SessionID   string            `json:"session_id" jsonschema:"description=Session ID (UUID v4)"`
	Questions   []json.RawMessage `json:"questions"`
	Answers     []json.RawMessage `json:"answers"`
	Grades      []json.RawMessage `json:"grades"`
	FinalPassed bool              `json:"final_passed"`
}

type StatusInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID (UUID v4)"`
}

type StatusOutput struct {
	SessionID string                           `json:"session_id"`
	Levels    map[string]assessment.LevelState `json:"levels"`
}

func (s *Server) handleGenerate(ctx context.Context, input GenerateInput) (GenerateOutput, error) {
	l, err := toolLevel(input.Level)
	if err != nil {
		return GenerateOutput{}, err
	}
	res, err := s.service.Generate(ctx, l, input.SessionID)
	if err != nil {
		return GenerateOutput{}, toolError("generate", err)
	}
	questions, err := json.Marshal(res.Questions)
	if err != nil {
		return GenerateOutput{}, fmt.Errorf("encode questions: %w", err)
	}
	return GenerateOutput{SessionID: res.SessionID, Level: l.Tag(), Questions: questions}, nil
}

func (s *Server) handleGrade(ctx context.Context, input GradeInput) (assessment.GradeOutcome, error) {
	l, err := toolLevel(input.Level)
	if err != nil {
		return assessment.GradeOutcome{}, err
	}
	out, err := s.service.Grade(ctx, l, assessment.GradeRequest{
		SessionID: input.SessionID,
		Step:      input.Step,
		Question:  input.Question,
		Answer:    input.Answer,
	})
	if err != nil {
		return assessment.GradeOutcome{}, toolError("grade", err)
	}
	return *out, nil
}

func (s *Server) handleComplete(ctx context.Context, input CompleteInput) (assessment.CompleteResult, error) {
	l, err := toolLevel(input.Level)
	if err != nil {
		return assessment.CompleteResult{}, err
	}
	out, err := s.service.Complete(ctx, l, assessment.CompleteRequest{
		SessionID:   input.SessionID,
		Questions:   input.Questions,
		Answers:     input.Answers,
		Grades:      input.Grades,
		FinalPassed: input.FinalPassed,
	})
	if err != nil {
		return assessment.CompleteResult{}, toolError("complete", err)
	}
	return *out, nil
}

func (s *Server) handleStatus(ctx context.Context, input StatusInput) (StatusOutput, error) {
	out, err := s.service.Status(ctx, input.SessionID)
	if err != nil {
		return StatusOutput{}, toolError("status", err)
	}
	return StatusOutput{SessionID: input.SessionID, Levels: out.Levels}, nil
}

func toolLevel(n int) (level.Level, error) {
	l := level.Level(n)
	if !l.Valid() {
		return 0, fmt.Errorf("%w: %d", level.ErrUnknownLevel, n)
	}
	return l, nil
}

// toolError keeps caller mistakes readable and hides model and storage
// detail behind a short message.
func toolError(op string, err error) error {
	var inputErr *assessment.InputError
	switch {
	case errors.As(err, &inputErr):
		return errors.New(inputErr.Message)
	case errors.Is(err, assessment.ErrPersistence):
		return fmt.Errorf("%s: could not save progress, try again", op)
	case assessment.IsContractViolation(err):
		return fmt.Errorf("%s: the model returned an unusable answer, try again", op)
	default:
		return fmt.Errorf("%s failed: %w", op, err)
	}
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP serves MCP over HTTP on addr until ctx is cancelled.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}
