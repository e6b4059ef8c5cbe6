package assessment

import (
	"errors"
	"fmt"
	"strings"
)

// Contract violations in model output. A *ContractError unwraps to one of these.
var (
	ErrInvalidResponseFormat = errors.New("invalid response format")
	ErrQuestionCountMismatch = errors.New("question count mismatch")
	ErrInvalidStep           = errors.New("invalid step")
	ErrInvalidQuestionType   = errors.New("invalid question type")
	ErrEmptyPrompt           = errors.New("empty prompt")
	ErrMissingContext        = errors.New("missing context")
	ErrInvalidGradeFormat    = errors.New("invalid grade format")
	ErrInvalidFeedbackFormat = errors.New("invalid feedback format")
)

var (
	// ErrInvalidInput marks caller mistakes; see InputError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPersistence wraps any failure of the session store.
	ErrPersistence = errors.New("persistence failure")
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")
)

// ContractError describes the first violation found in a model completion.
type ContractError struct {
	Kind     error
	Step     int // 1-based; 0 when the violation is not tied to a question
	Expected string
	Received string
	Detail   string
}

func (e *ContractError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Step > 0 {
		fmt.Fprintf(&b, " at step %d", e.Step)
	}
	if e.Expected != "" || e.Received != "" {
		fmt.Fprintf(&b, ": expected %s, got %s", e.Expected, e.Received)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *ContractError) Unwrap() error { return e.Kind }

// IsContractViolation reports whether err came from validating model output.
func IsContractViolation(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}

// InputError is a malformed request. Message is safe to show to the caller.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalidInput(format string, args ...any) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}
