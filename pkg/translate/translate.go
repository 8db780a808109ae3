// Package translate produces the non-English alt-text entries. The primary
// variant calls the dedicated translation API; the alternates translate
// through chat completions. All variants degrade per language: a failed
// translation falls back to the English source text and never fails the
// batch.
package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prodimg/alttexter/pkg/config"
	"github.com/prodimg/alttexter/pkg/foundry"
	"github.com/prodimg/alttexter/pkg/identity"
	"github.com/prodimg/alttexter/pkg/metadata"
)

const (
	apiTimeout            = 10 * time.Second
	chatTranslatorTimeout = 30 * time.Second
)

// Translator maps English text into each requested language. The returned
// map is keyed by the normalized input codes (lowercase two-letter), holding
// an entry for every requested language.
type Translator interface {
	Translate(ctx context.Context, text string, languages []string, doc *metadata.Document) (map[string]string, error)
}

// codeAliases maps non-ISO language codes that appear in metadata documents
// to the codes the translation endpoints understand. Output keys keep the
// input spelling ("jp"), only the wire call uses the alias ("ja").
var codeAliases = map[string]string{
	"jp": "ja",
	"cn": "zh-Hans",
	"tw": "zh-Hant",
	"kr": "ko",
	"br": "pt",
	"cz": "cs",
	"dk": "da",
	"gr": "el",
	"se": "sv",
	"no": "nb",
}

// New builds the translator selected by the configuration.
func New(cfg *config.Config, tokens identity.TokenSource) (Translator, error) {
	switch cfg.Translator {
	case config.TranslatorStrategyAPI:
		return NewAPITranslator(cfg.TranslatorEndpoint, cfg.TranslatorRegion, tokens), nil
	case config.TranslatorStrategyLLM, config.TranslatorStrategyPhi4:
		client := foundry.NewChatClient(cfg.FoundryEndpoint, cfg.TranslatorDeployment(), tokens, chatTranslatorTimeout)
		return NewChatTranslator(client), nil
	default:
		return nil, fmt.Errorf("unknown translator strategy %q", cfg.Translator)
	}
}

// NormalizeCode lowercases a language code and keeps its two-letter prefix.
// Output maps and blob tags key languages by this normalized form.
func NormalizeCode(code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	if len(c) > 2 {
		c = c[:2]
	}
	return c
}

// wireCode resolves the code sent to the endpoint, applying aliases.
func wireCode(code string) string {
	if alias, ok := codeAliases[code]; ok {
		return alias
	}
	return code
}
