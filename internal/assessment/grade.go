package assessment

// GradeResult is a validated grading completion. Passed is the model's own
// opinion and is only checked for shape; callers decide pass/fail with
// ThresholdResolver.Passed.
type GradeResult struct {
	Passed bool `json:"passed"`
	Score  int  `json:"score"`
}

var gradeSchema = map[string]any{
	"type":     "object",
	"required": []string{"passed", "score"},
	"properties": map[string]any{
		"passed": map[string]any{"type": "boolean"},
		"score":  map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
	},
}

// ParseGrade validates normalized grading output. Any violation is an
// ErrInvalidGradeFormat; the detail separates bad JSON from bad fields.
func ParseGrade(text string) (*GradeResult, error) {
	obj, err := checkContract(ErrInvalidGradeFormat, "grade", gradeSchema, text)
	if err != nil {
		return nil, err
	}

	// jsonschema accepts 50.0 as an integer; the contract does not.
	score, ok := exactInt(obj["score"])
	if !ok {
		return nil, &ContractError{
			Kind:     ErrInvalidGradeFormat,
			Detail:   "wrong field type or range: score must be an integer",
			Expected: "integer in [0,100]",
			Received: describe(obj["score"], true),
		}
	}

	return &GradeResult{Passed: obj["passed"].(bool), Score: score}, nil
}
