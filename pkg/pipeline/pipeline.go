// Package pipeline orchestrates the processing of one image blob: metadata,
// facts, hints, description, translation, and the persisted outputs (sidecar,
// tags, public copy). Each webhook event runs the pipeline end to end; there
// is no queue and no background worker.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prodimg/alttexter/pkg/config"
	"github.com/prodimg/alttexter/pkg/describe"
	"github.com/prodimg/alttexter/pkg/metadata"
	"github.com/prodimg/alttexter/pkg/storage"
	"github.com/prodimg/alttexter/pkg/translate"
)

// Store is the slice of the object-store client the orchestrator uses.
type Store interface {
	ReadYAMLMetadata(ctx context.Context, container, blobName string) (*metadata.Document, error)
	DataURL(ctx context.Context, container, blob string) (string, error)
	Write(ctx context.Context, container, blob string, data []byte, contentType string) error
	SetTags(ctx context.Context, container, blob string, tags map[string]string) error
	Copy(ctx context.Context, srcContainer, srcBlob, dstContainer, dstBlob string) error
}

// AltTextResult is the sidecar document persisted as <stem>.alt.json.
type AltTextResult struct {
	Asset       string            `json:"asset"`
	Image       string            `json:"image"`
	Source      string            `json:"source"`
	AltText     map[string]string `json:"altText"`
	GeneratedAt string            `json:"generatedAt"`
}

// Request is one orchestrator invocation. Doc and CMSText are optional
// pre-supplied values from direct requests; when absent, metadata comes from
// the companion document in the ingest container.
type Request struct {
	BlobName string
	Doc      *metadata.Document
	CMSText  string
}

// Result summarizes a completed run for the HTTP response.
type Result struct {
	Sidecar     AltTextResult
	SidecarBlob string
	Tags        map[string]string
	Copied      bool
	Languages   []string
}

// Orchestrator coordinates the full pipeline for one image.
type Orchestrator struct {
	store      Store
	describer  describe.Describer
	translator translate.Translator

	ingest  string
	public  string
	locales []string

	now func() time.Time
}

// New creates an Orchestrator bound to the configured containers and default
// language list.
func New(store Store, describer describe.Describer, translator translate.Translator, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		store:      store,
		describer:  describer,
		translator: translator,
		ingest:     cfg.IngestContainer,
		public:     cfg.PublicContainer,
		locales:    cfg.Locales,
		now:        time.Now,
	}
}

// Process runs the pipeline for one blob. Any failed step aborts the run and
// surfaces to the handler, except tag writes (logged, non-fatal) and
// per-language translation failures (English fallback). The delivery service
// retries the whole event on failure; every persisted effect is an overwrite,
// so retries converge.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*Result, error) {
	slog.Info("Processing image", "blob", req.BlobName, "container", o.ingest)

	doc := req.Doc
	if doc == nil {
		loaded, err := o.store.ReadYAMLMetadata(ctx, o.ingest, req.BlobName)
		if err != nil {
			slog.Warn("Metadata unavailable, proceeding without it", "blob", req.BlobName, "error", err)
		}
		doc = loaded
	}

	languages := o.languages(doc)

	description := req.CMSText
	if description == "" && doc != nil {
		description = doc.Description
	}
	facts := metadata.Distill(description)
	hints := metadata.DeriveHints(req.BlobName, nil, doc)

	imageRef, err := o.store.DataURL(ctx, o.ingest, req.BlobName)
	if err != nil {
		return nil, fmt.Errorf("image reference for %s: %w", req.BlobName, err)
	}

	described, err := o.describer.Describe(ctx, describe.Request{
		BlobName: req.BlobName,
		ImageRef: imageRef,
		Doc:      doc,
		Facts:    facts,
		Hints:    hints,
	})
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", req.BlobName, err)
	}
	if described.AltEN == "" {
		return nil, fmt.Errorf("describer produced no alt text for %s", req.BlobName)
	}
	if described.Usage != nil {
		slog.Debug("Describer token usage", "blob", req.BlobName, "total", described.Usage.TotalTokens)
	}

	targets := make([]string, 0, len(languages))
	for _, lang := range languages {
		if lang != "en" {
			targets = append(targets, lang)
		}
	}

	altText := map[string]string{"en": described.AltEN}
	if len(targets) > 0 {
		translations, err := o.translator.Translate(ctx, described.AltEN, targets, doc)
		if err != nil {
			return nil, fmt.Errorf("translate %s: %w", req.BlobName, err)
		}
		for _, lang := range targets {
			if text := translations[lang]; text != "" {
				altText[lang] = text
			} else {
				altText[lang] = described.AltEN
			}
		}
	}

	sidecar := AltTextResult{
		Asset:       o.asset(doc, req.BlobName),
		Image:       req.BlobName,
		Source:      docSource(doc),
		AltText:     altText,
		GeneratedAt: o.now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(sidecar)
	if err != nil {
		return nil, fmt.Errorf("marshal sidecar: %w", err)
	}

	sidecarBlob := storage.Stem(req.BlobName) + ".alt.json"
	if err := o.store.Write(ctx, o.ingest, sidecarBlob, payload, "application/json"); err != nil {
		return nil, fmt.Errorf("write sidecar %s: %w", sidecarBlob, err)
	}

	tags := map[string]string{
		"processed": "true",
		"alt.v":     "1",
		"langs":     strings.Join(languages, ","),
	}
	if err := o.store.SetTags(ctx, o.ingest, req.BlobName, tags); err != nil {
		slog.Warn("Tag write failed, continuing", "blob", req.BlobName, "error", err)
	}

	copied := false
	if !strings.HasSuffix(strings.ToLower(req.BlobName), ".json") {
		if err := o.store.Copy(ctx, o.ingest, req.BlobName, o.public, req.BlobName); err != nil {
			return nil, fmt.Errorf("copy %s to %s: %w", req.BlobName, o.public, err)
		}
		copied = true
	}

	slog.Info("Pipeline complete", "blob", req.BlobName, "sidecar", sidecarBlob, "languages", languages, "copied", copied)
	return &Result{
		Sidecar:     sidecar,
		SidecarBlob: sidecarBlob,
		Tags:        tags,
		Copied:      copied,
		Languages:   languages,
	}, nil
}

// languages resolves the requested language list: the metadata document's
// list when present, else the configured default. Codes are normalized and
// deduplicated, preserving order.
func (o *Orchestrator) languages(doc *metadata.Document) []string {
	raw := o.locales
	if doc != nil && len(doc.Languages) > 0 {
		raw = doc.Languages
	}

	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, code := range raw {
		c := translate.NormalizeCode(code)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return []string{"en"}
	}
	return out
}

// asset falls back to the blob stem when the metadata names no asset.
func (o *Orchestrator) asset(doc *metadata.Document, blobName string) string {
	if doc != nil && doc.Asset != "" {
		return doc.Asset
	}
	return storage.Stem(blobName)
}

func docSource(doc *metadata.Document) string {
	if doc == nil {
		return ""
	}
	return doc.Source
}
