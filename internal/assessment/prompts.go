package assessment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/ailevels/internal/level"
)

// curriculum describes what a level assesses. Only prompts use it.
type curriculum struct {
	title    string
	unit     string // what one question set is called
	steps    []string
	criteria []string
}

var curricula = map[level.Level]curriculum{
	level.Lv1: {
		title: "Work Division x Request Design x Quality Assurance x Two-Case Reproduction",
		unit:  "test drill",
		steps: []string{
			"Work division: designing roles and responsibilities inside a team",
			"Request design: structuring and clarifying requests to other people or teams",
			"Quality assurance: review and test design that guarantees deliverable quality",
			"Two-case reproduction: two case studies checking the same skill in different situations",
		},
		criteria: []string{
			"Understands the intent of the question",
			"Answers concretely and practically",
			"Stays aligned with the learning goals of the curriculum",
		},
	},
	level.Lv2: {
		title: "Process Design x AI Execution Instructions x Deliverable Verification x Improvement Cycle",
		unit:  "case study",
		steps: []string{
			"Process design: present a business scenario and ask for an AI-assisted workflow",
			"AI execution instructions: ask for the concrete instruction text for part of that workflow",
			"Deliverable verification: present an AI-generated deliverable and ask for a quality review",
			"Improvement cycle: ask for a retrospective and improvement proposals",
		},
		criteria: []string{
			"The workflow separates human and AI work sensibly",
			"Instructions are specific enough to execute",
			"Verification finds real defects and proposes fixes",
			"Improvements are actionable",
		},
	},
	level.Lv3: {
		title: "AI Project Leadership x Team AI Strategy x Rollout Planning x Skill Development x ROI Evaluation",
		unit:  "project leadership scenario",
		steps: []string{
			"AI project leadership: present an organizational challenge and ask for a project plan",
			"Team AI strategy: ask for a short, mid and long term AI roadmap for the team",
			"Rollout planning: present a target business process and ask for an execution plan with risks",
			"Skill development: present team skill data and ask for a staged development plan with metrics",
			"ROI evaluation: present usage results and ask for a quantitative ROI review",
		},
		criteria: []string{
			"Plans define goal, scope, structure and schedule",
			"Roadmaps are staged and realistic",
			"Risks and resources are addressed",
			"Metrics are measurable",
		},
	},
	level.Lv4: {
		title: "Cross-Organization AI Standardization x Governance Design x Sustainable AI Culture",
		unit:  "cross-organization governance scenario",
		steps: []string{
			"Standardization strategy: analyze AI usage across the organization and propose standards",
			"Governance framework: ask for policies, audit structure and ownership",
			"Cross-functional enablement: present several departments and ask for a delivery structure",
			"Culture program: ask for a staged culture change program with success metrics",
			"Risk and compliance: ask for risk scenarios with regulatory and ethical controls",
			"Long-term roadmap: ask for a multi-year roadmap with quantitative KPIs",
		},
		criteria: []string{
			"Analysis covers the whole organization",
			"Governance is enforceable and ownership is clear",
			"Risks are identified comprehensively",
			"KPIs are quantitative and reviewed on a cycle",
		},
	},
}

// Prompter builds the system and user prompts for each model call.
type Prompter struct{}

// NewPrompter creates a new prompter
func NewPrompter() *Prompter {
	return &Prompter{}
}

// GenerateSystem returns the question-generation system prompt for l.
func (p *Prompter) GenerateSystem(l level.Level) string {
	c := curricula[l]
	s := level.MustSchema(l)

	var sb strings.Builder
	fmt.Fprintf(&sb, "You write assessment questions for the AI curriculum %q.\n", c.title)
	fmt.Fprintf(&sb, "Generate a new %s based on a realistic consulting scenario. Use a different scenario every time.\n\n", c.unit)

	if s.Fixed() {
		fmt.Fprintf(&sb, "All %d questions must share one scenario.\n\nSteps:\n", s.ExpectedCount())
		for i, step := range c.steps {
			fmt.Fprintf(&sb, "- Step %d (%s): %s\n", i+1, s.StepTypes[i], step)
		}
		fmt.Fprintf(&sb, "\nRespond with JSON only, no other text:\n%s\n", fixedExample(s))
		fmt.Fprintf(&sb, "\ntype is %s only. step runs 1 to %d. Always include context.",
			quoteTypes(s.AllowedTypes), s.ExpectedCount())
		return sb.String()
	}

	sb.WriteString("Cover these themes:\n")
	for i, step := range c.steps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}
	sb.WriteString(`
Respond with JSON only, no other text:
{"questions":[{"step":1,"type":"multiple_choice | free_text | scenario","prompt":"question","options":["choice", "..."] or null,"context":"background" or null}]}

Use 4 to 6 questions numbered from step 1. options is only for multiple_choice.`)
	return sb.String()
}

// GenerateUser returns the question-generation user prompt.
func (p *Prompter) GenerateUser(l level.Level, sessionID string) string {
	return fmt.Sprintf("Session ID: %s\nGenerate a new %s.", sessionID, curricula[l].unit)
}

// GradeSystem returns the grading system prompt for l.
func (p *Prompter) GradeSystem(l level.Level) string {
	c := curricula[l]

	var sb strings.Builder
	fmt.Fprintf(&sb, "You grade answers for the AI curriculum %q.\n\nCriteria:\n", c.title)
	for _, cr := range c.criteria {
		fmt.Fprintf(&sb, "- %s\n", cr)
	}
	sb.WriteString(`
Respond with JSON only, no other text:
{"passed": true or false, "score": integer from 0 to 100}`)
	return sb.String()
}

// GradeUser returns the grading user prompt.
func (p *Prompter) GradeUser(question json.RawMessage, answer string) string {
	return fmt.Sprintf("Question: %s\nAnswer: %s\n\nGrade this answer.", question, answer)
}

// ReviewSystem returns the feedback system prompt for l.
func (p *Prompter) ReviewSystem(l level.Level) string {
	return fmt.Sprintf(`You review answers for the AI curriculum %q.

Using the grade, write feedback and an explanation for the learner.
Feedback names what was good, what to improve and one concrete next action.
The explanation describes the reasoning behind a strong answer with a practical example.

Respond with JSON only, no other text:
{"feedback": "text", "explanation": "text"}`, curricula[l].title)
}

// ReviewUser returns the feedback user prompt. The grade carries the
// resolved pass/fail, not the model's.
func (p *Prompter) ReviewUser(question json.RawMessage, answer string, grade GradeResult) string {
	g, _ := json.Marshal(grade)
	return fmt.Sprintf("Question: %s\nAnswer: %s\nGrade: %s\n\nWrite feedback and an explanation for this answer.",
		question, answer, g)
}

func fixedExample(s level.Schema) string {
	type example struct {
		Step    int     `json:"step"`
		Type    string  `json:"type"`
		Prompt  string  `json:"prompt"`
		Options *string `json:"options"`
		Context string  `json:"context"`
	}
	qs := make([]example, len(s.StepTypes))
	for i, t := range s.StepTypes {
		qs[i] = example{Step: i + 1, Type: string(t), Prompt: "question", Context: "scenario detail"}
	}
	b, _ := json.Marshal(map[string]any{"questions": qs})
	return string(b)
}

func quoteTypes(types []level.QuestionType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("%q", t)
	}
	return strings.Join(parts, " or ")
}
