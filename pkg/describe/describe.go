// Package describe turns a product image plus its curated context into one
// English alt-text sentence. Variants are selected at startup: multimodal
// chat completions (slm, llm), text chat completions (phi4), and the
// caption-plus-tags vision API (vision).
package describe

import (
	"context"
	"fmt"
	"time"

	"github.com/prodimg/alttexter/pkg/config"
	"github.com/prodimg/alttexter/pkg/foundry"
	"github.com/prodimg/alttexter/pkg/identity"
	"github.com/prodimg/alttexter/pkg/metadata"
)

const (
	describerTimeout = 60 * time.Second

	slmMaxTokens = 300
	llmMaxTokens = 500
)

// Request carries everything a describer variant needs for one image.
type Request struct {
	BlobName string
	ImageRef string
	Doc      *metadata.Document
	Facts    metadata.ProductFacts
	Hints    metadata.Hints
}

// Result is the describer output. A remote failure yields an empty AltEN with
// a nil error; the caller treats empty alt text as a processing failure.
type Result struct {
	AltEN string
	Usage *foundry.Usage
}

// Describer is the contract all variants implement.
type Describer interface {
	Describe(ctx context.Context, req Request) (Result, error)
}

// New builds the describer selected by the configuration.
func New(cfg *config.Config, tokens identity.TokenSource) (Describer, error) {
	switch cfg.Describer {
	case config.DescriberStrategySLM:
		client := foundry.NewChatClient(cfg.FoundryEndpoint, cfg.DescriberDeployment(), tokens, describerTimeout)
		return NewChatDescriber(client, slmMaxTokens), nil
	case config.DescriberStrategyLLM:
		client := foundry.NewChatClient(cfg.FoundryEndpoint, cfg.DescriberDeployment(), tokens, describerTimeout)
		return NewChatDescriber(client, llmMaxTokens), nil
	case config.DescriberStrategyPhi4:
		client := foundry.NewChatClient(cfg.FoundryEndpoint, cfg.DescriberDeployment(), tokens, describerTimeout)
		return NewTextChatDescriber(client, slmMaxTokens), nil
	case config.DescriberStrategyVision:
		return NewVisionDescriber(cfg.VisionEndpoint, tokens), nil
	default:
		return nil, fmt.Errorf("unknown describer strategy %q", cfg.Describer)
	}
}

// docSource returns the metadata source tag, tolerating a nil document.
func docSource(doc *metadata.Document) string {
	if doc == nil {
		return ""
	}
	return doc.Source
}
