package metadata

import "strings"

// Hints carries optional visual context for the describer: a camera angle
// and any objects a vision provider observed in the image.
type Hints struct {
	Angle   string
	Objects []string
}

// angleTable maps each angle to the substrings that indicate it. Order
// matters: the first angle with a matching substring wins.
var angleTable = []struct {
	angle      string
	substrings []string
}{
	{"front", []string{"front view", "front-facing", "face-on", "straight on", "frontal"}},
	{"angle", []string{"angled", "perspective", "iso", "3/4 view", "three-quarter"}},
	{"side", []string{"side view", "profile", "left side", "right side"}},
	{"top", []string{"top view", "overhead", "above", "bird's eye"}},
	{"detail", []string{"close-up", "close up", "detail", "macro", "zoom"}},
	{"action", []string{"in use", "action shot", "printing", "scanning", "operating"}},
}

// knownAngles validates an explicit metadata angle field.
var knownAngles = map[string]bool{
	"front": true, "angle": true, "side": true,
	"top": true, "detail": true, "action": true,
}

// DeriveHints infers the angle from the blob name first, then from any
// provider-supplied tags, then from an explicit metadata field. Tags are
// carried through as observed objects.
func DeriveHints(blobName string, tags []string, doc *Document) Hints {
	hints := Hints{Objects: tags}

	if angle := angleFrom(blobName); angle != "" {
		hints.Angle = angle
		return hints
	}
	for _, tag := range tags {
		if angle := angleFrom(tag); angle != "" {
			hints.Angle = angle
			return hints
		}
	}
	if doc != nil {
		if angle := strings.ToLower(strings.TrimSpace(doc.Angle)); knownAngles[angle] {
			hints.Angle = angle
		}
	}
	return hints
}

// angleFrom returns the first angle whose any substring occurs in s,
// case-insensitively.
func angleFrom(s string) string {
	lower := strings.ToLower(s)
	for _, entry := range angleTable {
		for _, sub := range entry.substrings {
			if strings.Contains(lower, sub) {
				return entry.angle
			}
		}
	}
	return ""
}
