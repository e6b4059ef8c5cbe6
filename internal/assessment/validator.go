package assessment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/ailevels/internal/level"
)

// Question is one validated, normalized entry of a generated question set.
type Question struct {
	Step    int                `json:"step"`
	Type    level.QuestionType `json:"type"`
	Prompt  string             `json:"prompt"`
	Options []string           `json:"options"`
	Context *string            `json:"context"`
}

// Validator enforces a level's question-set contract on model output.
type Validator struct {
	schema level.Schema

	// Strict restores the first fixed-level contract: type compared
	// verbatim and context required to be a non-empty string. It exists as
	// a regression reference; the service never enables it.
	Strict bool
}

// NewValidator returns the validator for l.
func NewValidator(l level.Level) (*Validator, error) {
	s, err := level.SchemaFor(l)
	if err != nil {
		return nil, err
	}
	return &Validator{schema: s}, nil
}

// ValidateQuestionSet validates already-normalized completion text for l.
func ValidateQuestionSet(l level.Level, text string) ([]Question, error) {
	v, err := NewValidator(l)
	if err != nil {
		return nil, err
	}
	return v.Validate(text)
}

// Validate parses text and projects it onto the level schema. It returns the
// first violation as a *ContractError and never a partial result.
func (v *Validator) Validate(text string) ([]Question, error) {
	doc, err := decodeObject(text)
	if err != nil {
		return nil, &ContractError{Kind: ErrInvalidResponseFormat, Detail: err.Error()}
	}

	raw, present := doc["questions"]
	entries, isList := raw.([]any)
	if !isList {
		return nil, &ContractError{
			Kind:     ErrQuestionCountMismatch,
			Expected: v.countRule(),
			Received: "none",
			Detail:   fmt.Sprintf("questions field is %s", describeKind(raw, present)),
		}
	}
	if !v.countOK(len(entries)) {
		return nil, &ContractError{
			Kind:     ErrQuestionCountMismatch,
			Expected: v.countRule(),
			Received: strconv.Itoa(len(entries)),
		}
	}

	out := make([]Question, 0, len(entries))
	for i, entry := range entries {
		q, err := v.validateEntry(i+1, entry)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (v *Validator) countOK(n int) bool {
	if v.schema.Fixed() {
		return n == v.schema.ExpectedCount()
	}
	return n >= 1
}

func (v *Validator) countRule() string {
	if v.schema.Fixed() {
		return strconv.Itoa(v.schema.ExpectedCount())
	}
	return "at least 1"
}

func (v *Validator) validateEntry(expectedStep int, entry any) (Question, error) {
	obj, ok := entry.(map[string]any)
	if !ok {
		return Question{}, &ContractError{
			Kind:   ErrInvalidResponseFormat,
			Step:   expectedStep,
			Detail: fmt.Sprintf("question entry is %s, not an object", jsonKind(entry)),
		}
	}

	step, err := v.checkStep(expectedStep, obj)
	if err != nil {
		return Question{}, err
	}

	qType, err := v.checkType(expectedStep, obj)
	if err != nil {
		return Question{}, err
	}

	prompt, ok := obj["prompt"].(string)
	if !ok || strings.TrimSpace(prompt) == "" {
		return Question{}, &ContractError{Kind: ErrEmptyPrompt, Step: expectedStep}
	}

	q := Question{Step: step, Type: qType, Prompt: prompt}

	if v.schema.Fixed() {
		ctx, err := v.fixedContext(expectedStep, obj)
		if err != nil {
			return Question{}, err
		}
		q.Context = &ctx
		return q, nil
	}

	q.Context = openContext(obj)
	if v.schema.ChoiceType != "" && qType == v.schema.ChoiceType {
		q.Options = options(obj["options"])
	}
	return q, nil
}

func (v *Validator) checkStep(expected int, obj map[string]any) (int, error) {
	raw, present := obj["step"]
	n, isInt := exactInt(raw)

	if v.schema.Fixed() {
		if !isInt || n != expected {
			return 0, &ContractError{
				Kind:     ErrInvalidStep,
				Step:     expected,
				Expected: strconv.Itoa(expected),
				Received: describe(raw, present),
			}
		}
		return n, nil
	}

	if !isInt || n < 1 {
		return 0, &ContractError{
			Kind:     ErrInvalidStep,
			Step:     expected,
			Expected: "a positive integer",
			Received: describe(raw, present),
		}
	}
	return n, nil
}

func (v *Validator) checkType(step int, obj map[string]any) (level.QuestionType, error) {
	raw, present := obj["type"]
	s, isString := raw.(string)

	normalized := s
	if !v.Strict {
		normalized = strings.ToLower(strings.TrimSpace(s))
	}
	qType := level.QuestionType(normalized)

	if v.schema.Fixed() {
		want, _ := v.schema.TypeForStep(step)
		if !isString || qType != want {
			return "", &ContractError{
				Kind:     ErrInvalidQuestionType,
				Step:     step,
				Expected: string(want),
				Received: describe(raw, present),
			}
		}
		return qType, nil
	}

	if !isString || !v.schema.Allows(qType) {
		return "", &ContractError{
			Kind:     ErrInvalidQuestionType,
			Step:     step,
			Expected: "one of " + joinTypes(v.schema.AllowedTypes),
			Received: describe(raw, present),
		}
	}
	return qType, nil
}

// fixedContext coerces a null or missing context to "". Strict mode
// rejects anything but a non-empty string instead.
func (v *Validator) fixedContext(step int, obj map[string]any) (string, error) {
	raw := obj["context"]

	if v.Strict {
		s, ok := raw.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return "", &ContractError{Kind: ErrMissingContext, Step: step}
		}
		return s, nil
	}

	switch c := raw.(type) {
	case nil:
		return "", nil
	case string:
		return c, nil
	default:
		return describe(c, true), nil
	}
}

// openContext passes context through: strings as-is, null or missing as nil,
// anything else as its JSON text.
func openContext(obj map[string]any) *string {
	switch c := obj["context"].(type) {
	case nil:
		return nil
	case string:
		return &c
	default:
		s := describe(c, true)
		return &s
	}
}

func options(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		b, _ := json.Marshal(item)
		out = append(out, string(b))
	}
	return out
}

func describeKind(v any, present bool) string {
	if !present {
		return "missing"
	}
	return jsonKind(v)
}

func joinTypes(types []level.QuestionType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
