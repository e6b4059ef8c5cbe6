package assessment

import (
	"regexp"
	"strings"
)

var codeFence = regexp.MustCompile("(?is)^```(?:json)?\\s*(.*?)\\s*```$")

// StripWrapping removes a markdown code fence (optionally tagged json) that
// encloses the whole completion, along with surrounding whitespace. Text that
// is not entirely fenced is returned trimmed.
//
// Fences are peeled until none remain so the result is a fixed point.
func StripWrapping(text string) string {
	out := strings.TrimSpace(text)
	for {
		m := codeFence.FindStringSubmatch(out)
		if m == nil {
			return out
		}
		out = strings.TrimSpace(m[1])
	}
}
