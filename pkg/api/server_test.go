package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prodimg/alttexter/pkg/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrchestrator struct {
	result *pipeline.Result
	err    error
	calls  []pipeline.Request
}

func (f *fakeOrchestrator) Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func okResult() *pipeline.Result {
	return &pipeline.Result{
		Sidecar: pipeline.AltTextResult{
			Asset:       "SKU-1",
			Image:       "img_0.png",
			Source:      "public website",
			AltText:     map[string]string{"en": "A printer."},
			GeneratedAt: "2025-06-01T12:00:00Z",
		},
		SidecarBlob: "img_0.alt.json",
		Tags:        map[string]string{"processed": "true", "alt.v": "1", "langs": "en"},
		Copied:      true,
		Languages:   []string{"en"},
	}
}

func performRequest(t *testing.T, orch Orchestrator, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	server := NewServer(orch, "8080")
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := performRequest(t, &fakeOrchestrator{}, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Positive(t, resp.Timestamp)
	assert.NotEmpty(t, resp.Version)
}

func TestValidationHandshake(t *testing.T) {
	orch := &fakeOrchestrator{}
	body := `[{"eventType":"Microsoft.EventGrid.SubscriptionValidationEvent","data":{"validationCode":"ABC-123"}}]`

	w := performRequest(t, orch, http.MethodPost, "/describe", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"validationResponse":"ABC-123"}`, w.Body.String())
	assert.Empty(t, orch.calls, "handshake must cause no processing")

	// The handshake is a pure function of the validation code.
	second := performRequest(t, orch, http.MethodPost, "/describe", body)
	assert.Equal(t, w.Body.String(), second.Body.String())
}

func TestNonImageSkip(t *testing.T) {
	orch := &fakeOrchestrator{}
	body := `[{"eventType":"Microsoft.Storage.BlobCreated","data":{"url":"https://acct.blob.core.windows.net/ingest/notes.txt"}}]`

	w := performRequest(t, orch, http.MethodPost, "/describe", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SkipResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "skipped", resp.Status)
	assert.Equal(t, "Not an image file", resp.Reason)
	assert.Empty(t, orch.calls, "skipped blobs must cause no processing")
}

func TestBlobCreatedProcessed(t *testing.T) {
	orch := &fakeOrchestrator{result: okResult()}
	body := `[{"eventType":"Microsoft.Storage.BlobCreated","data":{"url":"https://acct.blob.core.windows.net/ingest/img_0.png"}}]`

	w := performRequest(t, orch, http.MethodPost, "/describe", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ProcessedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "processed", resp.Status)
	assert.Equal(t, "img_0.png", resp.Blob)
	assert.Equal(t, "A printer.", resp.AltText["en"])
	assert.Equal(t, "img_0.alt.json", resp.Sidecar)
	assert.True(t, resp.Copied)

	require.Len(t, orch.calls, 1)
	assert.Equal(t, "img_0.png", orch.calls[0].BlobName)
}

func TestMixedEventBatch(t *testing.T) {
	orch := &fakeOrchestrator{result: okResult()}
	body := `[
		{"eventType":"Microsoft.Storage.BlobDeleted","data":{"url":"https://acct.blob.core.windows.net/ingest/old.png"}},
		{"eventType":"Microsoft.Storage.BlobCreated","data":{"url":"https://acct.blob.core.windows.net/ingest/img_0.png"}}
	]`

	w := performRequest(t, orch, http.MethodPost, "/describe", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, orch.calls, 1)
	assert.Equal(t, "img_0.png", orch.calls[0].BlobName)
}

func TestUnrecognizedEventsPending(t *testing.T) {
	orch := &fakeOrchestrator{}
	body := `[{"eventType":"Microsoft.Storage.BlobDeleted","data":{"url":"https://acct.blob.core.windows.net/ingest/old.png"}}]`

	w := performRequest(t, orch, http.MethodPost, "/describe", body)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"status":"pending"}`, w.Body.String())
	assert.Empty(t, orch.calls)
}

func TestProcessingFailure(t *testing.T) {
	orch := &fakeOrchestrator{err: errors.New("describe img_0.png: HTTP 503")}
	body := `[{"eventType":"Microsoft.Storage.BlobCreated","data":{"url":"https://acct.blob.core.windows.net/ingest/img_0.png"}}]`

	w := performRequest(t, orch, http.MethodPost, "/describe", body)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "processing failed", resp.Error)
	assert.Contains(t, resp.Message, "HTTP 503")
}

func TestMalformedJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"broken array", `[{"eventType":`},
		{"broken object", `{"blobName":`},
		{"empty body", ``},
		{"empty array", `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(t, &fakeOrchestrator{}, http.MethodPost, "/describe", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestInvalidBlobURL(t *testing.T) {
	body := `[{"eventType":"Microsoft.Storage.BlobCreated","data":{"url":"https://acct.blob.core.windows.net/onlycontainer"}}]`
	w := performRequest(t, &fakeOrchestrator{}, http.MethodPost, "/describe", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDirectRequest(t *testing.T) {
	orch := &fakeOrchestrator{result: okResult()}
	body := `{"blobName":"img_1.png","cmsText":"Print: 10 ppm","sidecar":{"asset":"SKU-9","languages":["en","fr"]}}`

	w := performRequest(t, orch, http.MethodPost, "/describe", body)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, orch.calls, 1)
	call := orch.calls[0]
	assert.Equal(t, "img_1.png", call.BlobName)
	assert.Equal(t, "Print: 10 ppm", call.CMSText)
	require.NotNil(t, call.Doc)
	assert.Equal(t, "SKU-9", call.Doc.Asset)
	assert.Len(t, call.Doc.Languages, 2)
}

func TestDirectRequestWithoutBlobName(t *testing.T) {
	orch := &fakeOrchestrator{}
	w := performRequest(t, orch, http.MethodPost, "/describe", `{"cmsText":"whatever"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"status":"pending"}`, w.Body.String())
	assert.Empty(t, orch.calls)
}

func TestLogin(t *testing.T) {
	w := performRequest(t, &fakeOrchestrator{}, http.MethodPost, "/login", `{"tenant_id":"acme","user_id":"u-7"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "acme", resp.TenantID)
	assert.Equal(t, "u-7", resp.UserID)
	assert.Equal(t, 3600, resp.ExpiresIn)

	// The token is base64-encoded JSON claims.
	raw, err := base64.StdEncoding.DecodeString(resp.SessionToken)
	require.NoError(t, err)
	var claims sessionClaims
	require.NoError(t, json.Unmarshal(raw, &claims))
	assert.Equal(t, "acme", claims.TenantID)
	assert.Equal(t, "u-7", claims.UserID)
	assert.Equal(t, int64(3600), claims.ExpiresAt-claims.IssuedAt)
}

func TestLoginDefaults(t *testing.T) {
	w := performRequest(t, &fakeOrchestrator{}, http.MethodPost, "/login", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "default", resp.TenantID)
	assert.NotEmpty(t, resp.UserID)
}

func TestLoginMalformed(t *testing.T) {
	w := performRequest(t, &fakeOrchestrator{}, http.MethodPost, "/login", `{"tenant_id":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	w := performRequest(t, &fakeOrchestrator{}, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not found", resp.Error)
}

func TestRequestIDHeader(t *testing.T) {
	server := NewServer(&fakeOrchestrator{}, "8080")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	w = httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(w, req)
	assert.Equal(t, "trace-42", w.Header().Get("X-Request-ID"))
}
