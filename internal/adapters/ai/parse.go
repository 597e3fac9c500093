package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrNoJSON means the model response contained no JSON object
	ErrNoJSON = errors.New("no JSON object in response")
	// ErrBadJSON means the extracted object failed to decode
	ErrBadJSON = errors.New("malformed JSON in response")
)

var fenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// ParseVerdict extracts the JSON object from raw model output and decodes
// it into a Verdict. Missing keys become nil fields; label values are
// canonicalized so "high" and "HIGH" both match "High".
func ParseVerdict(content string) (*Verdict, error) {
	jsonStr, ok := extractJSON(content)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoJSON, snippet(content))
	}

	var payload struct {
		Significance *string `json:"significance"`
		Sentiment    *string `json:"sentiment"`
		Summary      *string `json:"summary"`
	}

	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}

	return &Verdict{
		Significance: canonLabel(payload.Significance),
		Sentiment:    canonLabel(payload.Sentiment),
		Summary:      trimmedOrNil(payload.Summary),
		Raw:          jsonStr,
	}, nil
}

// extractJSON pulls a JSON object out of text that may contain markdown
// fences or surrounding prose
func extractJSON(text string) (string, bool) {
	if matches := fenceRe.FindStringSubmatch(text); len(matches) > 1 {
		text = matches[1]
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}

	return strings.TrimSpace(text[start : end+1]), true
}

func canonLabel(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}

	runes := []rune(strings.ToLower(trimmed))
	runes[0] = unicode.ToUpper(runes[0])
	canon := string(runes)

	return &canon
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func snippet(s string) string {
	const maxLen = 120
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
