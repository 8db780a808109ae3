package metadata

import (
	"regexp"
	"strings"
)

// ProductFacts maps normalized keys (lowercase, underscores for spaces) to
// short factual values distilled from the free-form description.
type ProductFacts map[string]string

// maxFactLength caps how long a value may be to count as a fact rather than
// marketing prose.
const maxFactLength = 100

// promotionalPatterns match lines of marketing language that must never
// reach the describer prompt.
var promotionalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(warranty|guarantee|limited warranty)\b`),
	regexp.MustCompile(`(?i)\b(free|complimentary|included at no extra cost)\b`),
	regexp.MustCompile(`(?i)\b(best|revolutionary|innovative|cutting-edge)\b`),
	regexp.MustCompile(`(?i)\b(certified|patented|proprietary)\b`),
	regexp.MustCompile(`(?i)\b(savings|discount|reduced price)\b`),
}

// factLine matches "Key: value" lines; keys are letters and spaces only.
var factLine = regexp.MustCompile(`^([A-Za-z ]+):\s*(.+)$`)

// Distill parses a description line-wise into ProductFacts, dropping
// promotional lines and overlong values.
func Distill(description string) ProductFacts {
	facts := make(ProductFacts)
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isPromotional(line) {
			continue
		}
		m := factLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[2])
		if len(value) >= maxFactLength {
			continue
		}
		facts[normalizeKey(m[1])] = value
	}
	return facts
}

func isPromotional(line string) bool {
	for _, p := range promotionalPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
}
