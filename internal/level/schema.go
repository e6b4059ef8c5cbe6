package level

// QuestionType is the normalized kind of a generated question.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	FreeText       QuestionType = "free_text"
	Scenario       QuestionType = "scenario"
)

// Schema is the question-set contract for one level.
//
// A fixed-shape schema lists the required type for every step and the
// question count is len(StepTypes). An open schema has no StepTypes,
// accepts at least one question, and lets each question pick any of
// AllowedTypes.
type Schema struct {
	Level        Level
	StepTypes    []QuestionType
	AllowedTypes []QuestionType
	// ChoiceType is the type whose questions carry options. Empty when
	// the level has no choice questions.
	ChoiceType QuestionType
	MaxTokens  int
}

// Fixed reports whether the schema pins an exact count and per-step types.
func (s Schema) Fixed() bool {
	return len(s.StepTypes) > 0
}

// ExpectedCount is the exact number of questions for a fixed schema,
// or the minimum (1) for an open one.
func (s Schema) ExpectedCount() int {
	if s.Fixed() {
		return len(s.StepTypes)
	}
	return 1
}

// TypeForStep returns the required type for a 1-based step of a fixed schema.
func (s Schema) TypeForStep(step int) (QuestionType, bool) {
	if step < 1 || step > len(s.StepTypes) {
		return "", false
	}
	return s.StepTypes[step-1], true
}

// Allows reports whether t is a member of the open schema's type set.
func (s Schema) Allows(t QuestionType) bool {
	for _, a := range s.AllowedTypes {
		if a == t {
			return true
		}
	}
	return false
}

const defaultMaxTokens = 4096

var schemas = map[Level]Schema{
	Lv1: {
		Level:        Lv1,
		AllowedTypes: []QuestionType{MultipleChoice, FreeText, Scenario},
		ChoiceType:   MultipleChoice,
		MaxTokens:    defaultMaxTokens,
	},
	Lv2: {
		Level:        Lv2,
		StepTypes:    []QuestionType{Scenario, FreeText, Scenario, FreeText},
		AllowedTypes: []QuestionType{Scenario, FreeText},
		MaxTokens:    defaultMaxTokens,
	},
	Lv3: {
		Level:        Lv3,
		StepTypes:    []QuestionType{Scenario, FreeText, Scenario, Scenario, FreeText},
		AllowedTypes: []QuestionType{Scenario, FreeText},
		MaxTokens:    defaultMaxTokens,
	},
	Lv4: {
		Level:        Lv4,
		StepTypes:    []QuestionType{Scenario, FreeText, Scenario, FreeText, Scenario, FreeText},
		AllowedTypes: []QuestionType{Scenario, FreeText},
		MaxTokens:    defaultMaxTokens,
	},
}

// SchemaFor returns the question-set contract for l.
func SchemaFor(l Level) (Schema, error) {
	s, ok := schemas[l]
	if !ok {
		return Schema{}, ErrUnknownLevel
	}
	return s, nil
}

// MustSchema is SchemaFor for levels known to be valid.
func MustSchema(l Level) Schema {
	s, err := SchemaFor(l)
	if err != nil {
		panic(err)
	}
	return s
}
