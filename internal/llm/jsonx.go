package llm

import (
	"encoding/json"
	"strings"

	"github.com/nexusresearch/paper-recommendation-service/internal/domain"
)

// StripFences removes a surrounding markdown code fence from a judge
// response. Models frequently wrap the requested JSON in ```json ... ```
// even when told not to. The transform is purely structural: it drops a
// leading fence line (with or without a language tag) and a trailing fence
// line, and trims whitespace. Text without fences passes through unchanged.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// Drop the opening fence line, including any language tag on it.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		// A single-line fenced blob like ```json {...} ```.
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
	}

	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-3]
	}
	return strings.TrimSpace(s)
}

// DecodeJSON decodes judge output into v using the two-stage contract:
// fence-strip, then parse, then shape-check. The two parse stages fail with
// distinct domain.JudgeOutputError stages so "not JSON" and "wrong shape"
// stay independently testable failure modes.
func DecodeJSON(text string, v any) error {
	clean := StripFences(text)

	var raw json.RawMessage
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return domain.NewJudgeOutputError(domain.JudgeFailureNotJSON, err.Error(), err)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return domain.NewJudgeOutputError(domain.JudgeFailureWrongShape, err.Error(), err)
	}

	return nil
}
