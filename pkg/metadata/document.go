// Package metadata handles the per-image companion document and derives the
// curated context (product facts, vision hints) fed to the describer.
package metadata

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the structured companion stored as <stem>.yml next to the
// image. Direct requests may inline the same shape as JSON. Absent or
// malformed documents are not errors; processing proceeds with an empty
// Document.
type Document struct {
	Asset       string       `yaml:"asset" json:"asset"`
	Source      string       `yaml:"source" json:"source"`
	Languages   LanguageList `yaml:"languages" json:"languages"`
	Brand       string       `yaml:"brand" json:"brand"`
	Make        string       `yaml:"make" json:"make"`
	Model       string       `yaml:"model" json:"model"`
	Description string       `yaml:"description" json:"description"`
	Angle       string       `yaml:"angle" json:"angle"`
}

// Parse decodes a companion document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse metadata document: %w", err)
	}
	return &doc, nil
}

// EffectiveBrand prefers the brand field and falls back to make, which older
// documents use for the same thing.
func (d *Document) EffectiveBrand() string {
	if d == nil {
		return ""
	}
	if d.Brand != "" {
		return d.Brand
	}
	return d.Make
}

// LanguageList accepts either a sequence of codes or a single scalar,
// optionally comma-joined ("EN, JP"), in both YAML and JSON documents.
type LanguageList []string

func (l *LanguageList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	case yaml.ScalarNode:
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*l = splitCodes(raw)
		return nil
	default:
		return fmt.Errorf("languages must be a list or a string")
	}
}

func (l *LanguageList) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*l = items
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("languages must be a list or a string")
	}
	*l = splitCodes(raw)
	return nil
}

func splitCodes(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
