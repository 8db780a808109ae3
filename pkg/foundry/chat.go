// Package foundry is a thin wire client for model deployments exposing the
// chat-completions REST protocol, including multimodal content arrays.
package foundry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prodimg/alttexter/pkg/identity"
	"github.com/prodimg/alttexter/pkg/version"
)

const (
	apiVersion = "2024-05-01-preview"

	defaultTemperature      = 0.3
	defaultTopP             = 0.95
	defaultFrequencyPenalty = 0.0
	defaultPresencePenalty  = 0.0
)

// Message is one chat turn. Content is either a plain string or an ordered
// []ContentPart for multimodal turns; both marshal to the wire shape the
// endpoint expects.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// TextMessage builds a single-string message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

// MultimodalMessage builds a message whose content is an ordered part list.
func MultimodalMessage(role string, parts ...ContentPart) Message {
	return Message{Role: role, Content: parts}
}

// ContentPart is one element of a multimodal content array.
type ContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *ImageURLPart `json:"image_url,omitempty"`
}

// ImageURLPart wraps an image reference, typically a base64 data URL.
type ImageURLPart struct {
	URL string `json:"url"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an image-reference content part.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURLPart{URL: url}}
}

// Usage is the token accounting block of a completion response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatRequest struct {
	Messages         []Message `json:"messages"`
	Temperature      float64   `json:"temperature"`
	MaxTokens        int       `json:"max_tokens"`
	TopP             float64   `json:"top_p"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	PresencePenalty  float64   `json:"presence_penalty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// ChatClient posts chat completions to one model deployment.
type ChatClient struct {
	endpoint   string
	deployment string
	tokens     identity.TokenSource
	httpClient *http.Client
}

// NewChatClient creates a client for a deployment under the given endpoint.
// The timeout bounds each completion call.
func NewChatClient(endpoint, deployment string, tokens identity.TokenSource, timeout time.Duration) *ChatClient {
	return &ChatClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		deployment: deployment,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Complete sends the messages and returns the first choice's content. The
// sampling parameters are fixed; only the completion budget varies by caller.
func (c *ChatClient) Complete(ctx context.Context, messages []Message, maxTokens int) (string, *Usage, error) {
	payload, err := json.Marshal(chatRequest{
		Messages:         messages,
		Temperature:      defaultTemperature,
		MaxTokens:        maxTokens,
		TopP:             defaultTopP,
		FrequencyPenalty: defaultFrequencyPenalty,
		PresencePenalty:  defaultPresencePenalty,
	})
	if err != nil {
		return "", nil, fmt.Errorf("marshal chat request: %w", err)
	}

	token, err := c.tokens.Token(ctx, identity.AudienceCognitive)
	if err != nil {
		return "", nil, fmt.Errorf("get cognitive token: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", c.endpoint, c.deployment, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", version.Full())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("chat completion %s: %w", c.deployment, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", nil, fmt.Errorf("chat completion %s returned HTTP %d: %s", c.deployment, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", nil, fmt.Errorf("chat completion %s returned no choices", c.deployment)
	}
	return cr.Choices[0].Message.Content, cr.Usage, nil
}
