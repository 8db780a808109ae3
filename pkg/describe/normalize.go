package describe

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// proseLimit caps the prose-fallback alt text length in runes.
const proseLimit = 200

var (
	fencedBlock   = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")
	altObject     = regexp.MustCompile(`\{[^{}]*"alt_en"[^{}]*\}`)
	anyObject     = regexp.MustCompile(`(?s)\{.+\}`)
	headingPrefix = regexp.MustCompile(`^#{1,6}\s*`)
)

// ExtractAltText pulls the alt text out of raw model output. Models answer
// with strict JSON, fenced JSON, JSON buried in prose, or plain prose; the
// strategies run in that order and the first non-empty result wins. The
// extracted text is punctuation-normalized.
func ExtractAltText(raw string) string {
	return NormalizePunctuation(extract(strings.TrimSpace(raw)))
}

func extract(raw string) string {
	if raw == "" {
		return ""
	}
	if alt := altFromJSON(raw); alt != "" {
		return alt
	}
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		if alt := altFromJSON(m[1]); alt != "" {
			return alt
		}
	}
	if m := altObject.FindString(raw); m != "" {
		if alt := altFromJSON(m); alt != "" {
			return alt
		}
	}
	if m := anyObject.FindString(raw); m != "" {
		if alt := altFromJSON(m); alt != "" {
			return alt
		}
	}
	return proseFallback(raw)
}

// altFromJSON parses s as a JSON object and returns its alt_en field.
func altFromJSON(s string) string {
	var payload struct {
		AltEN string `json:"alt_en"`
	}
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.AltEN)
}

// proseFallback strips markdown decoration and picks the first substantial
// line as the alt text.
func proseFallback(raw string) string {
	text := strings.ReplaceAll(raw, "**", "")
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(headingPrefix.ReplaceAllString(line, ""))
		if utf8.RuneCountInString(line) > 10 {
			return Truncate(line, proseLimit)
		}
	}
	return ""
}

// Truncate cuts s to at most limit runes, marking the cut with an ellipsis.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// NormalizePunctuation uppercases the first letter and guarantees terminal
// punctuation. Empty input stays empty.
func NormalizePunctuation(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	switch runes[len(runes)-1] {
	case '.', '!', '?':
		return string(runes)
	}
	return string(runes) + "."
}
