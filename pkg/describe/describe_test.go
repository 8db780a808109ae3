package describe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prodimg/alttexter/pkg/config"
	"github.com/prodimg/alttexter/pkg/foundry"
	"github.com/prodimg/alttexter/pkg/metadata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	content string
	usage   *foundry.Usage
	err     error

	gotMessages  []foundry.Message
	gotMaxTokens int
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []foundry.Message, maxTokens int) (string, *foundry.Usage, error) {
	f.gotMessages = messages
	f.gotMaxTokens = maxTokens
	return f.content, f.usage, f.err
}

type staticTokens struct{ token string }

func (s staticTokens) Token(ctx context.Context, audience string) (string, error) {
	return s.token, nil
}

func TestChatDescriber(t *testing.T) {
	completer := &fakeCompleter{
		content: `{"alt_en":"a printer on a desk"}`,
		usage:   &foundry.Usage{TotalTokens: 42},
	}
	describer := NewChatDescriber(completer, 300)

	doc := &metadata.Document{Source: "public website", Make: "Epson", Model: "EcoTank L3560"}
	result, err := describer.Describe(context.Background(), Request{
		BlobName: "img_0.png",
		ImageRef: "data:image/png;base64,AAAA",
		Doc:      doc,
		Facts:    metadata.ProductFacts{"print": "15 ppm"},
		Hints:    metadata.Hints{Angle: "front"},
	})
	require.NoError(t, err)
	assert.Equal(t, "A printer on a desk.", result.AltEN)
	assert.Equal(t, 42, result.Usage.TotalTokens)
	assert.Equal(t, 300, completer.gotMaxTokens)

	require.Len(t, completer.gotMessages, 2)

	system := completer.gotMessages[0]
	assert.Equal(t, "system", system.Role)
	assert.Contains(t, system.Content.(string), "e-commerce website")
	assert.Contains(t, system.Content.(string), `{"alt_en":`)

	user := completer.gotMessages[1]
	assert.Equal(t, "user", user.Role)
	parts := user.Content.([]foundry.ContentPart)
	require.Len(t, parts, 2)
	assert.Equal(t, "image_url", parts[0].Type)
	assert.Equal(t, "data:image/png;base64,AAAA", parts[0].ImageURL.URL)
	assert.Equal(t, "text", parts[1].Type)
	assert.Contains(t, parts[1].Text, "Image filename: img_0.png")
	assert.Contains(t, parts[1].Text, "Brand: Epson")
	assert.Contains(t, parts[1].Text, "print: 15 ppm")
	assert.Contains(t, parts[1].Text, "Camera angle: front")
}

func TestChatDescriberRemoteFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("HTTP 503")}
	describer := NewChatDescriber(completer, 300)

	result, err := describer.Describe(context.Background(), Request{BlobName: "img_0.png"})
	require.NoError(t, err)
	assert.Empty(t, result.AltEN)
}

func TestTextChatDescriber(t *testing.T) {
	completer := &fakeCompleter{content: `{"alt_en":"a scanner"}`}
	describer := NewTextChatDescriber(completer, 300)

	result, err := describer.Describe(context.Background(), Request{
		BlobName: "scan.jpg",
		ImageRef: "data:image/jpeg;base64,BBBB",
	})
	require.NoError(t, err)
	assert.Equal(t, "A scanner.", result.AltEN)

	require.Len(t, completer.gotMessages, 2)
	user := completer.gotMessages[1]
	text, ok := user.Content.(string)
	require.True(t, ok, "text chat variant sends plain string content")
	assert.Contains(t, text, "Image URL: data:image/jpeg;base64,BBBB")
	assert.Contains(t, text, "Image filename: scan.jpg")
}

func TestVisionDescriber(t *testing.T) {
	var describeBody, tagBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch {
		case strings.HasPrefix(r.URL.Path, "/vision/v3.2/describe"):
			describeBody = body
			assert.Equal(t, "1", r.URL.Query().Get("maxCandidates"))
			json.NewEncoder(w).Encode(map[string]any{
				"description": map[string]any{
					"captions": []map[string]any{{"text": "a white printer on a desk", "confidence": 0.93}},
				},
			})
		case strings.HasPrefix(r.URL.Path, "/vision/v3.2/tag"):
			tagBody = body
			json.NewEncoder(w).Encode(map[string]any{
				"tags": []map[string]any{{"name": "printer", "confidence": 0.99}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	describer := NewVisionDescriber(server.URL, staticTokens{"t"})
	doc := &metadata.Document{Make: "Epson", Model: "EcoTank L3560"}

	// Bytes 0x89 0x50 0x4e 0x47 encode to iVBORw==.
	result, err := describer.Describe(context.Background(), Request{
		BlobName: "img_0.png",
		ImageRef: "data:image/png;base64,iVBORw==",
		Doc:      doc,
	})
	require.NoError(t, err)
	assert.Equal(t, "Epson EcoTank L3560 a white printer on a desk.", result.AltEN)

	// Both calls receive the decoded image bytes.
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, describeBody)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, tagBody)
}

func TestVisionDescriberTruncates(t *testing.T) {
	longCaption := strings.Repeat("very long caption ", 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/vision/v3.2/describe") {
			json.NewEncoder(w).Encode(map[string]any{
				"description": map[string]any{
					"captions": []map[string]any{{"text": longCaption, "confidence": 0.9}},
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"tags": []any{}})
	}))
	defer server.Close()

	describer := NewVisionDescriber(server.URL, staticTokens{"t"})
	result, err := describer.Describe(context.Background(), Request{
		BlobName: "img_0.png",
		ImageRef: "data:image/png;base64,iVBORw==",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(result.AltEN, "..."))
	assert.Len(t, []rune(result.AltEN), visionAltLimit+3)
}

func TestVisionDescriberRemoteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "vision unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	describer := NewVisionDescriber(server.URL, staticTokens{"t"})
	result, err := describer.Describe(context.Background(), Request{
		BlobName: "img_0.png",
		ImageRef: "data:image/png;base64,iVBORw==",
	})
	require.NoError(t, err)
	assert.Empty(t, result.AltEN)
}

func TestVisionDescriberURLReference(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		if strings.HasPrefix(r.URL.Path, "/vision/v3.2/describe") {
			json.NewEncoder(w).Encode(map[string]any{"description": map[string]any{"captions": []any{}}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"tags": []any{}})
	}))
	defer server.Close()

	describer := NewVisionDescriber(server.URL, staticTokens{"t"})
	_, err := describer.Describe(context.Background(), Request{
		BlobName: "img_0.png",
		ImageRef: "https://example.com/img_0.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"url":"https://example.com/img_0.png"}`, string(gotBody))
}

func TestNewSelectsVariant(t *testing.T) {
	base := &config.Config{
		FoundryEndpoint:      "https://foundry.example.com",
		FoundryDeploymentSLM: "gpt-4o-mini",
		FoundryDeploymentLLM: "gpt-4o",
		VisionEndpoint:       "https://vision.example.com",
	}

	tests := []struct {
		strategy config.DescriberStrategy
		check    func(t *testing.T, d Describer)
	}{
		{config.DescriberStrategySLM, func(t *testing.T, d Describer) {
			assert.IsType(t, &ChatDescriber{}, d)
		}},
		{config.DescriberStrategyLLM, func(t *testing.T, d Describer) {
			assert.IsType(t, &ChatDescriber{}, d)
		}},
		{config.DescriberStrategyPhi4, func(t *testing.T, d Describer) {
			assert.IsType(t, &TextChatDescriber{}, d)
		}},
		{config.DescriberStrategyVision, func(t *testing.T, d Describer) {
			assert.IsType(t, &VisionDescriber{}, d)
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			cfg := *base
			cfg.Describer = tt.strategy
			d, err := New(&cfg, staticTokens{"t"})
			require.NoError(t, err)
			tt.check(t, d)
		})
	}
}

func TestNewUnknownStrategy(t *testing.T) {
	_, err := New(&config.Config{Describer: "imaginary"}, staticTokens{"t"})
	assert.Error(t, err)
}
