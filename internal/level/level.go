package level

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Level identifies one of the four assessment stages.
type Level int

const (
	Lv1 Level = iota + 1
	Lv2
	Lv3
	Lv4
)

// All lists every level in unlock order.
var All = []Level{Lv1, Lv2, Lv3, Lv4}

var ErrUnknownLevel = errors.New("unknown level")

// Valid reports whether l is one of the four known levels.
func (l Level) Valid() bool {
	return l >= Lv1 && l <= Lv4
}

// Tag returns the wire/storage tag, e.g. "lv2".
func (l Level) Tag() string {
	return fmt.Sprintf("lv%d", int(l))
}

func (l Level) String() string {
	return l.Tag()
}

// ThresholdKey is the configuration name holding this level's pass threshold.
func (l Level) ThresholdKey() string {
	return fmt.Sprintf("PASS_THRESHOLD_LV%d", int(l))
}

// Prev returns the level that must be passed to unlock l.
// The second result is false for Lv1, which has no predecessor.
func (l Level) Prev() (Level, bool) {
	if l <= Lv1 {
		return 0, false
	}
	return l - 1, true
}

// Parse accepts "lv3", "LV3" or "3".
func Parse(s string) (Level, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	raw = strings.TrimPrefix(raw, "lv")

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
	l := Level(n)
	if !l.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
	return l, nil
}
