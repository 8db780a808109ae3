package describe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/prodimg/alttexter/pkg/identity"
	"github.com/prodimg/alttexter/pkg/version"
)

// visionAltLimit caps the composed caption alt text in runes.
const visionAltLimit = 125

// VisionDescriber is the fallback for environments without multimodal chat
// deployments: two sequential vision API calls (caption, then tags) and an
// alt text composed as "<brand> <model> <caption>".
type VisionDescriber struct {
	endpoint   string
	tokens     identity.TokenSource
	httpClient *http.Client
}

// NewVisionDescriber creates the vision API variant.
func NewVisionDescriber(endpoint string, tokens identity.TokenSource) *VisionDescriber {
	return &VisionDescriber{
		endpoint:   strings.TrimRight(endpoint, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: describerTimeout},
	}
}

type visionDescribeResponse struct {
	Description struct {
		Captions []struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"captions"`
	} `json:"description"`
}

type visionTagResponse struct {
	Tags []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"tags"`
}

func (d *VisionDescriber) Describe(ctx context.Context, req Request) (Result, error) {
	caption, err := d.caption(ctx, req.ImageRef)
	if err != nil {
		slog.Error("Vision caption call failed", "blob", req.BlobName, "error", err)
		return Result{}, nil
	}
	tags, err := d.tags(ctx, req.ImageRef)
	if err != nil {
		slog.Error("Vision tag call failed", "blob", req.BlobName, "error", err)
		return Result{}, nil
	}
	slog.Debug("Vision observations", "blob", req.BlobName, "caption", caption, "tags", tags)

	var parts []string
	if brand := req.Doc.EffectiveBrand(); brand != "" {
		parts = append(parts, brand)
	}
	if req.Doc != nil && req.Doc.Model != "" {
		parts = append(parts, req.Doc.Model)
	}
	if caption != "" {
		parts = append(parts, caption)
	}

	alt := Truncate(strings.Join(parts, " "), visionAltLimit)
	return Result{AltEN: NormalizePunctuation(alt)}, nil
}

func (d *VisionDescriber) caption(ctx context.Context, imageRef string) (string, error) {
	q := url.Values{}
	q.Set("maxCandidates", "1")
	q.Set("language", "en")

	var out visionDescribeResponse
	if err := d.post(ctx, "/vision/v3.2/describe", q, imageRef, &out); err != nil {
		return "", err
	}
	if len(out.Description.Captions) == 0 {
		return "", nil
	}
	return out.Description.Captions[0].Text, nil
}

func (d *VisionDescriber) tags(ctx context.Context, imageRef string) ([]string, error) {
	q := url.Values{}
	q.Set("language", "en")

	var out visionTagResponse
	if err := d.post(ctx, "/vision/v3.2/tag", q, imageRef, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Tags))
	for _, t := range out.Tags {
		names = append(names, t.Name)
	}
	return names, nil
}

// post sends one vision call. A data URL is decoded and sent as the binary
// body; any other reference is sent as a {"url": ...} JSON body.
func (d *VisionDescriber) post(ctx context.Context, path string, query url.Values, imageRef string, out any) error {
	token, err := d.tokens.Token(ctx, identity.AudienceCognitive)
	if err != nil {
		return fmt.Errorf("get cognitive token: %w", err)
	}

	var body io.Reader
	contentType := "application/json"
	if data, ok := decodeDataURL(imageRef); ok {
		body = bytes.NewReader(data)
		contentType = "application/octet-stream"
	} else {
		payload, err := json.Marshal(map[string]string{"url": imageRef})
		if err != nil {
			return fmt.Errorf("marshal image reference: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+path+"?"+query.Encode(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", version.Full())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vision call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("vision call %s returned HTTP %d: %s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode vision response: %w", err)
	}
	return nil
}

// decodeDataURL extracts the raw bytes of a base64 data URL. A non-data
// reference yields ok=false.
func decodeDataURL(ref string) ([]byte, bool) {
	rest, found := strings.CutPrefix(ref, "data:")
	if !found {
		return nil, false
	}
	_, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, false
	}
	return data, true
}
