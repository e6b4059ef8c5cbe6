package assessment

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/ailevels/internal/level"
)

// DefaultThreshold applies when a level has no usable configured threshold.
const DefaultThreshold = 30

// ThresholdSource looks up raw configuration values by name. A missing key
// is normal and reported with ok == false.
type ThresholdSource interface {
	Lookup(name string) (value string, ok bool)
}

// ThresholdResolver turns configured values into per-level pass cutoffs.
// It never fails: bad values degrade to DefaultThreshold or are clamped.
type ThresholdResolver struct {
	src    ThresholdSource
	logger *slog.Logger
}

// NewThresholdResolver returns a resolver over src. A nil src yields the
// default for every level.
func NewThresholdResolver(src ThresholdSource, logger *slog.Logger) *ThresholdResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThresholdResolver{src: src, logger: logger}
}

// Threshold returns the cutoff for l, always within [0,100].
func (r *ThresholdResolver) Threshold(l level.Level) int {
	if r == nil || r.src == nil {
		return DefaultThreshold
	}

	key := l.ThresholdKey()
	raw, ok := r.src.Lookup(key)
	if !ok {
		return DefaultThreshold
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		// Out-of-range integers still carry a sign; clamp them like any other.
		if errors.Is(err, strconv.ErrRange) {
			if strings.HasPrefix(strings.TrimSpace(raw), "-") {
				n = -1
			} else {
				n = 101
			}
		} else {
			r.logger.Warn("invalid pass threshold, using default",
				"key", key, "value", raw, "default", DefaultThreshold)
			return DefaultThreshold
		}
	}

	switch {
	case n < 0:
		r.logger.Warn("pass threshold below 0, clamping", "key", key, "value", raw)
		return 0
	case n > 100:
		r.logger.Warn("pass threshold above 100, clamping", "key", key, "value", raw)
		return 100
	}
	return n
}

// Passed is the single authoritative pass/fail decision.
func (r *ThresholdResolver) Passed(l level.Level, score int) bool {
	return score >= r.Threshold(l)
}

// Thresholds resolves every level, keyed by tag.
func (r *ThresholdResolver) Thresholds() map[string]int {
	out := make(map[string]int, len(level.All))
	for _, l := range level.All {
		out[l.Tag()] = r.Threshold(l)
	}
	return out
}

// MapSource is a ThresholdSource over a fixed map.
type MapSource map[string]string

func (m MapSource) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}
