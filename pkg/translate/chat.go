package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prodimg/alttexter/pkg/foundry"
	"github.com/prodimg/alttexter/pkg/metadata"
)

// translateMaxTokens bounds one translated sentence.
const translateMaxTokens = 200

// chatCompleter is the slice of foundry.ChatClient this variant uses.
type chatCompleter interface {
	Complete(ctx context.Context, messages []foundry.Message, maxTokens int) (string, *foundry.Usage, error)
}

// ChatTranslator translates through chat completions, one call per language.
type ChatTranslator struct {
	client chatCompleter
}

// NewChatTranslator creates the chat-completion variant.
func NewChatTranslator(client chatCompleter) *ChatTranslator {
	return &ChatTranslator{client: client}
}

func (t *ChatTranslator) Translate(ctx context.Context, text string, languages []string, doc *metadata.Document) (map[string]string, error) {
	out := make(map[string]string, len(languages))
	for _, lang := range languages {
		code := NormalizeCode(lang)
		if code == "" {
			continue
		}
		if code == "en" {
			out[code] = text
			continue
		}

		messages := []foundry.Message{
			foundry.TextMessage("system", translationPrompt(wireCode(code), doc)),
			foundry.TextMessage("user", text),
		}
		content, _, err := t.client.Complete(ctx, messages, translateMaxTokens)
		if err != nil {
			slog.Warn("Chat translation failed, keeping English", "language", code, "error", err)
			out[code] = text
			continue
		}

		translated := strings.Trim(strings.TrimSpace(content), `"`)
		if translated == "" {
			out[code] = text
			continue
		}
		out[code] = translated
	}
	return out, nil
}

// translationPrompt constrains the model to a bare translated sentence that
// keeps product terms intact.
func translationPrompt(target string, doc *metadata.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional translator for product alt text. ")
	fmt.Fprintf(&b, "Translate the user's sentence from English into the language with ISO code %q. ", target)
	b.WriteString("Keep the translation under 125 characters. Respond with the translated sentence only, no quotes and no commentary.")

	var terms []string
	if brand := doc.EffectiveBrand(); brand != "" {
		terms = append(terms, brand)
	}
	if doc != nil && doc.Model != "" {
		terms = append(terms, doc.Model)
	}
	if len(terms) > 0 {
		fmt.Fprintf(&b, " Never translate these product terms: %s.", strings.Join(terms, ", "))
	}
	return b.String()
}
