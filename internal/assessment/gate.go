package assessment

import (
	"time"

	"github.com/felixgeelhaar/ailevels/internal/level"
)

// ProgressRecord holds the persisted pass flags of one session.
type ProgressRecord struct {
	SessionID string    `json:"session_id"`
	Lv1Passed bool      `json:"lv1_passed"`
	Lv2Passed bool      `json:"lv2_passed"`
	Lv3Passed bool      `json:"lv3_passed"`
	Lv4Passed bool      `json:"lv4_passed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PassedLevel returns the persisted flag for l. Nil records report false.
func (p *ProgressRecord) PassedLevel(l level.Level) bool {
	if p == nil {
		return false
	}
	switch l {
	case level.Lv1:
		return p.Lv1Passed
	case level.Lv2:
		return p.Lv2Passed
	case level.Lv3:
		return p.Lv3Passed
	case level.Lv4:
		return p.Lv4Passed
	}
	return false
}

// MarkLevel sets the flag for l to existing || passed. A true flag is never
// cleared.
func (p *ProgressRecord) MarkLevel(l level.Level, passed bool) {
	v := p.PassedLevel(l) || passed
	switch l {
	case level.Lv1:
		p.Lv1Passed = v
	case level.Lv2:
		p.Lv2Passed = v
	case level.Lv3:
		p.Lv3Passed = v
	case level.Lv4:
		p.Lv4Passed = v
	}
}

// LevelState is one level's entry in the gate view.
type LevelState struct {
	Unlocked bool `json:"unlocked"`
	Passed   bool `json:"passed"`
}

// Gate derives the unlock view from persisted pass flags. Level 1 is always
// unlocked; level k unlocks only when level k-1 has passed.
func Gate(p *ProgressRecord) map[string]LevelState {
	out := make(map[string]LevelState, len(level.All))
	for _, l := range level.All {
		unlocked := true
		if prev, ok := l.Prev(); ok {
			unlocked = p.PassedLevel(prev)
		}
		out[l.Tag()] = LevelState{Unlocked: unlocked, Passed: p.PassedLevel(l)}
	}
	return out
}
