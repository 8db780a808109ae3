// Package identity acquires bearer tokens for cloud resource audiences from
// the platform-provided managed-identity endpoint, caching them until close
// to expiry. Tokens are scoped to one audience and never substitutable.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Well-known token audiences used by the pipeline.
const (
	// AudienceStorage authorizes object-store REST calls.
	AudienceStorage = "https://storage.azure.com"
	// AudienceCognitive authorizes chat-completion, vision, and translation calls.
	AudienceCognitive = "https://cognitiveservices.azure.com/.default"
)

const (
	// imdsEndpoint is the fixed link-local instance-metadata token endpoint,
	// used when no identity endpoint is published in the environment.
	imdsEndpoint = "http://169.254.169.254/metadata/identity/oauth2/token"

	// API versions differ between the two acquisition paths.
	identityEndpointAPIVersion = "2019-08-01"
	imdsAPIVersion             = "2018-02-01"

	// minResidualLifetime is how much lifetime a cached token must retain to
	// be served. Below this the token is re-acquired.
	minResidualLifetime = 5 * time.Minute

	// defaultExpirySeconds applies when the endpoint omits expires_in.
	defaultExpirySeconds = 3600

	acquireTimeout = 10 * time.Second
)

// TokenSource is the narrow contract consumers depend on. The pipeline's
// outbound clients take a TokenSource so tests can substitute a static one.
type TokenSource interface {
	Token(ctx context.Context, audience string) (string, error)
}

// cacheEntry holds one acquired token and its absolute expiry.
type cacheEntry struct {
	token   string
	expires time.Time
}

// Provider implements TokenSource against the managed-identity endpoints.
// Safe for concurrent use; the cache is a mutex-guarded map keyed by a hash
// of the canonical audience.
type Provider struct {
	httpClient *http.Client
	clientID   string

	mu    sync.Mutex
	cache map[uint64]cacheEntry

	now func() time.Time
}

// NewProvider creates a Provider. clientID names a user-assigned identity
// and may be empty for the system-assigned one.
func NewProvider(clientID string) *Provider {
	return &Provider{
		httpClient: &http.Client{Timeout: acquireTimeout},
		clientID:   clientID,
		cache:      make(map[uint64]cacheEntry),
		now:        time.Now,
	}
}

// Token returns a bearer token for the audience, from cache when the cached
// token retains more than five minutes of lifetime.
func (p *Provider) Token(ctx context.Context, audience string) (string, error) {
	canonical := CanonicalAudience(audience)
	key := xxhash.Sum64String(canonical)

	if tok, ok := p.cached(key); ok {
		slog.Debug("Token cache hit", "audience", canonical, "token", Redact(tok))
		return tok, nil
	}

	tok, expires, err := p.acquire(ctx, canonical)
	if err != nil {
		return "", fmt.Errorf("acquire token for %s: %w", canonical, err)
	}

	p.mu.Lock()
	p.cache[key] = cacheEntry{token: tok, expires: expires}
	p.mu.Unlock()

	slog.Debug("Token acquired", "audience", canonical, "expires", expires, "token", Redact(tok))
	return tok, nil
}

// cached returns a token when present with enough residual lifetime.
func (p *Provider) cached(key uint64) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.cache[key]
	if !ok {
		return "", false
	}
	if entry.expires.Sub(p.now()) <= minResidualLifetime {
		return "", false
	}
	return entry.token, true
}

// acquire fetches a fresh token. The identity endpoint published via
// IDENTITY_ENDPOINT (or the legacy MSI_ENDPOINT) takes priority; otherwise
// the fixed instance-metadata endpoint is used.
func (p *Provider) acquire(ctx context.Context, audience string) (string, time.Time, error) {
	endpoint := os.Getenv("IDENTITY_ENDPOINT")
	if endpoint == "" {
		endpoint = os.Getenv("MSI_ENDPOINT")
	}
	secret := os.Getenv("IDENTITY_HEADER")
	if secret == "" {
		secret = os.Getenv("MSI_SECRET")
	}

	apiVersion := imdsAPIVersion
	target := imdsEndpoint
	if endpoint != "" {
		apiVersion = identityEndpointAPIVersion
		target = endpoint
	}

	q := url.Values{}
	q.Set("resource", audience)
	q.Set("api-version", apiVersion)
	if p.clientID != "" {
		q.Set("client_id", p.clientID)
	}

	ctx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"?"+q.Encode(), nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Metadata", "true")
	if endpoint != "" && secret != "" {
		req.Header.Set("X-IDENTITY-HEADER", secret)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("identity endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", time.Time{}, fmt.Errorf("identity endpoint returned HTTP %d: %s", resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("identity endpoint returned no access_token")
	}

	seconds := int64(tr.ExpiresIn)
	if seconds <= 0 {
		seconds = defaultExpirySeconds
	}
	return tr.AccessToken, p.now().Add(time.Duration(seconds) * time.Second), nil
}

// tokenResponse is the wire shape of both identity endpoints.
type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   flexSeconds `json:"expires_in"`
}

// flexSeconds decodes expires_in, which the endpoints return either as a
// JSON number or as a quoted decimal string.
type flexSeconds int64

func (s *flexSeconds) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("parse expires_in %q: %w", raw, err)
	}
	*s = flexSeconds(v)
	return nil
}

// CanonicalAudience normalizes an audience string for cache keying and for
// the resource query parameter: the ".default" scope suffix and trailing
// slashes are stripped.
func CanonicalAudience(audience string) string {
	a := strings.TrimSpace(audience)
	a = strings.TrimSuffix(a, "/.default")
	return strings.TrimRight(a, "/")
}

// Redact shortens a token for logging. Tokens are never logged in full.
func Redact(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
