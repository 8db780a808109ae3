package describe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prodimg/alttexter/pkg/foundry"
	"github.com/prodimg/alttexter/pkg/prompt"
)

// chatCompleter is the slice of foundry.ChatClient the describers use.
type chatCompleter interface {
	Complete(ctx context.Context, messages []foundry.Message, maxTokens int) (string, *foundry.Usage, error)
}

// ChatDescriber drives a multimodal chat deployment: the user turn carries
// the image part first, then the composed instruction text.
type ChatDescriber struct {
	client    chatCompleter
	maxTokens int
}

// NewChatDescriber creates the multimodal chat variant.
func NewChatDescriber(client chatCompleter, maxTokens int) *ChatDescriber {
	return &ChatDescriber{client: client, maxTokens: maxTokens}
}

func (d *ChatDescriber) Describe(ctx context.Context, req Request) (Result, error) {
	messages := []foundry.Message{
		foundry.TextMessage("system", prompt.SystemPrompt(docSource(req.Doc))),
		foundry.MultimodalMessage("user",
			foundry.ImagePart(req.ImageRef),
			foundry.TextPart(prompt.BuildUserInstruction(req.BlobName, req.Doc, req.Facts, req.Hints)),
		),
	}

	content, usage, err := d.client.Complete(ctx, messages, d.maxTokens)
	if err != nil {
		slog.Error("Describer chat call failed", "blob", req.BlobName, "error", err)
		return Result{}, nil
	}
	return Result{AltEN: ExtractAltText(content), Usage: usage}, nil
}

// TextChatDescriber drives a text-only chat deployment; the image reference
// travels inline in the user message instead of as a content part.
type TextChatDescriber struct {
	client    chatCompleter
	maxTokens int
}

// NewTextChatDescriber creates the text chat variant.
func NewTextChatDescriber(client chatCompleter, maxTokens int) *TextChatDescriber {
	return &TextChatDescriber{client: client, maxTokens: maxTokens}
}

func (d *TextChatDescriber) Describe(ctx context.Context, req Request) (Result, error) {
	instruction := fmt.Sprintf("Image URL: %s\n\n%s",
		req.ImageRef, prompt.BuildUserInstruction(req.BlobName, req.Doc, req.Facts, req.Hints))

	messages := []foundry.Message{
		foundry.TextMessage("system", prompt.SystemPrompt(docSource(req.Doc))),
		foundry.TextMessage("user", instruction),
	}

	content, usage, err := d.client.Complete(ctx, messages, d.maxTokens)
	if err != nil {
		slog.Error("Describer text chat call failed", "blob", req.BlobName, "error", err)
		return Result{}, nil
	}
	return Result{AltEN: ExtractAltText(content), Usage: usage}, nil
}
