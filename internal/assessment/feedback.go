package assessment

import "strings"

// FeedbackResult is a validated review completion.
type FeedbackResult struct {
	Feedback    string `json:"feedback"`
	Explanation string `json:"explanation"`
}

var nonBlank = map[string]any{"type": "string", "pattern": `\S`}

var feedbackSchema = map[string]any{
	"type":     "object",
	"required": []string{"feedback", "explanation"},
	"properties": map[string]any{
		"feedback":    nonBlank,
		"explanation": nonBlank,
	},
}

// ParseFeedback validates normalized review output.
func ParseFeedback(text string) (*FeedbackResult, error) {
	obj, err := checkContract(ErrInvalidFeedbackFormat, "feedback", feedbackSchema, text)
	if err != nil {
		return nil, err
	}

	res := &FeedbackResult{
		Feedback:    obj["feedback"].(string),
		Explanation: obj["explanation"].(string),
	}
	// \S is ASCII-only; catch strings of unicode spaces here.
	if strings.TrimSpace(res.Feedback) == "" {
		return nil, &ContractError{Kind: ErrInvalidFeedbackFormat, Detail: "wrong field type or range: feedback is blank"}
	}
	if strings.TrimSpace(res.Explanation) == "" {
		return nil, &ContractError{Kind: ErrInvalidFeedbackFormat, Detail: "wrong field type or range: explanation is blank"}
	}
	return res, nil
}
