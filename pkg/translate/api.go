package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/prodimg/alttexter/pkg/identity"
	"github.com/prodimg/alttexter/pkg/metadata"
	"github.com/prodimg/alttexter/pkg/version"
)

// APITranslator calls the dedicated translation REST API, one request per
// target language.
type APITranslator struct {
	endpoint   string
	region     string
	tokens     identity.TokenSource
	httpClient *http.Client
}

// NewAPITranslator creates the dedicated-API variant.
func NewAPITranslator(endpoint, region string, tokens identity.TokenSource) *APITranslator {
	return &APITranslator{
		endpoint:   strings.TrimRight(endpoint, "/"),
		region:     region,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: apiTimeout},
	}
}

type translationRequest struct {
	Text string `json:"text"`
}

type translationResponse []struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

func (t *APITranslator) Translate(ctx context.Context, text string, languages []string, doc *metadata.Document) (map[string]string, error) {
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

		translated, err := t.translateOne(ctx, text, wireCode(code))
		if err != nil {
			slog.Warn("Translation failed, keeping English", "language", code, "error", err)
			out[code] = text
			continue
		}
		out[code] = translated
	}
	return out, nil
}

// requestURL builds the per-language URL. Endpoints on a managed-identity
// custom subdomain route through the /translator/text path; the global
// endpoint takes api-version as a query parameter.
func (t *APITranslator) requestURL(target string) string {
	if u, err := url.Parse(t.endpoint); err == nil && strings.HasSuffix(u.Host, ".cognitiveservices.azure.com") {
		return fmt.Sprintf("%s/translator/text/v3.0/translate?from=en&to=%s", t.endpoint, url.QueryEscape(target))
	}
	return fmt.Sprintf("%s/translate?api-version=3.0&from=en&to=%s", t.endpoint, url.QueryEscape(target))
}

func (t *APITranslator) translateOne(ctx context.Context, text, target string) (string, error) {
	payload, err := json.Marshal([]translationRequest{{Text: text}})
	if err != nil {
		return "", fmt.Errorf("marshal translation request: %w", err)
	}

	token, err := t.tokens.Token(ctx, identity.AudienceCognitive)
	if err != nil {
		return "", fmt.Errorf("get cognitive token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.requestURL(target), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", version.Full())
	if t.region != "" {
		req.Header.Set("Ocp-Apim-Subscription-Region", t.region)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate to %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translate to %s returned HTTP %d: %s", target, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr translationResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode translation response: %w", err)
	}
	if len(tr) == 0 || len(tr[0].Translations) == 0 {
		return "", fmt.Errorf("translate to %s returned no translations", target)
	}
	return tr[0].Translations[0].Text, nil
}
