// Package prompt composes the system and user instructions for describer
// calls. System instructions are markdown files embedded in the binary and
// selected by the metadata source tag; a shared response-format instruction
// is always appended.
package prompt

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/prodimg/alttexter/pkg/metadata"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// Hard-coded fallbacks keep the describer functional even if the embedded
// files are ever trimmed from a build.
const (
	fallbackSystemPrompt = "You are an accessibility specialist writing alt text for product images. " +
		"Write one concise English sentence (under 125 characters) describing what is visible in the image. " +
		"Mention the brand and model when provided. Never invent features or promotional claims."

	fallbackResponseFormat = "Respond with a single JSON object and nothing else: " +
		`{"alt_en": "<the alt text sentence>"}`
)

// SystemPrompt returns the system instruction for a metadata source. The
// lookup tries <normalized-source>_system_prompt.md, then the default file,
// then the hard-coded constant. The response-format instruction is appended
// in every case.
func SystemPrompt(source string) string {
	base := loadPrompt(normalizeSource(source) + "_system_prompt.md")
	if base == "" {
		base = loadPrompt("default_system_prompt.md")
	}
	if base == "" {
		base = fallbackSystemPrompt
	}
	format := loadPrompt("_response_format.md")
	if format == "" {
		format = fallbackResponseFormat
	}
	return base + "\n\n" + format
}

func loadPrompt(name string) string {
	data, err := promptFiles.ReadFile("prompts/" + name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// normalizeSource lowercases a source tag and folds spaces and hyphens to
// underscores so "Public Website" selects public_website_system_prompt.md.
func normalizeSource(source string) string {
	s := strings.ToLower(strings.TrimSpace(source))
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "-", "_")
}

// BuildUserInstruction composes the per-image request text. Sections with no
// content are omitted; fact keys are emitted in sorted order so the same
// inputs always produce the same instruction.
func BuildUserInstruction(blobName string, doc *metadata.Document, facts metadata.ProductFacts, hints metadata.Hints) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Image filename: %s\n", blobName)

	brand := doc.EffectiveBrand()
	var model string
	if doc != nil {
		model = doc.Model
	}
	if brand != "" || model != "" {
		b.WriteString("\n## Product Metadata\n")
		if brand != "" {
			fmt.Fprintf(&b, "Brand: %s\n", brand)
		}
		if model != "" {
			fmt.Fprintf(&b, "Model: %s\n", model)
		}
	}

	if len(facts) > 0 {
		keys := make([]string, 0, len(facts))
		for k := range facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\n## Product Facts\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, facts[k])
		}
	}

	if hints.Angle != "" || len(hints.Objects) > 0 {
		b.WriteString("\n## Visual Hints\n")
		if hints.Angle != "" {
			fmt.Fprintf(&b, "Camera angle: %s\n", hints.Angle)
		}
		if len(hints.Objects) > 0 {
			fmt.Fprintf(&b, "Observed objects: %s\n", strings.Join(hints.Objects, ", "))
		}
	}

	b.WriteString("\n## Task\nWrite the alt text for this product image.")
	return b.String()
}
