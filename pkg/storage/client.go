// Package storage talks to the object store over its HTTPS REST interface.
// All operations authenticate with a bearer token for the storage audience.
// No retries happen at this layer; the event-delivery service retries the
// whole webhook on failure.
package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/prodimg/alttexter/pkg/identity"
	"github.com/prodimg/alttexter/pkg/version"
)

const (
	// serviceVersion pins the store's REST protocol version.
	serviceVersion = "2021-08-06"

	operationTimeout = 30 * time.Second
	tagTimeout       = 15 * time.Second
)

// mimeTypes maps image extensions to content types for data URLs.
var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Client performs authenticated blob operations against one storage account.
type Client struct {
	endpoint   string
	tokens     identity.TokenSource
	httpClient *http.Client
}

// NewClient creates a Client for the named account.
func NewClient(account string, tokens identity.TokenSource) *Client {
	return &Client{
		endpoint:   fmt.Sprintf("https://%s.blob.core.windows.net", account),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: operationTimeout},
	}
}

// newClientForEndpoint supports tests pointing at a local server.
func newClientForEndpoint(endpoint string, tokens identity.TokenSource) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: operationTimeout},
	}
}

// blobURL builds the escaped absolute URL for a blob. Blob names may contain
// slashes; each path segment is escaped individually.
func (c *Client) blobURL(container, blob string) string {
	u, _ := url.Parse(c.endpoint)
	u.Path = "/" + container + "/" + blob
	return u.String()
}

// newRequest builds a request carrying the bearer token and protocol headers
// common to every operation.
func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	token, err := c.tokens.Token(ctx, identity.AudienceStorage)
	if err != nil {
		return nil, fmt.Errorf("get storage token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-ms-version", serviceVersion)
	req.Header.Set("User-Agent", version.Full())
	return req, nil
}

// statusError drains a remote failure into an error carrying the status and
// a body prefix for logging.
func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s returned HTTP %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
}

// Read fetches a blob's bytes. A missing blob yields (nil, nil).
func (c *Client) Read(ctx context.Context, container, blob string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.blobURL(container, blob), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("read blob %s/%s: %w", container, blob, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(fmt.Sprintf("read blob %s/%s", container, blob), resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read blob %s/%s body: %w", container, blob, err)
	}
	return data, nil
}

// Write uploads bytes as a block blob, overwriting any existing blob.
func (c *Client) Write(ctx context.Context, container, blob string, data []byte, contentType string) error {
	req, err := c.newRequest(ctx, http.MethodPut, c.blobURL(container, blob), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("x-ms-blob-type", "BlockBlob")
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("write blob %s/%s: %w", container, blob, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(fmt.Sprintf("write blob %s/%s", container, blob), resp)
	}
	return nil
}

// tagsDocument is the XML body of a set-tags call.
type tagsDocument struct {
	XMLName xml.Name   `xml:"Tags"`
	TagSet  tagSetNode `xml:"TagSet"`
}

type tagSetNode struct {
	Tags []tagNode `xml:"Tag"`
}

type tagNode struct {
	Key   string `xml:"Key"`
	Value string `xml:"Value"`
}

// SetTags replaces the blob's tags. Keys are written in sorted order so
// repeated calls produce identical bodies.
func (c *Client) SetTags(ctx context.Context, container, blob string, tags map[string]string) error {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := tagsDocument{}
	for _, k := range keys {
		doc.TagSet.Tags = append(doc.TagSet.Tags, tagNode{Key: k, Value: tags[k]})
	}
	body, err := xml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, tagTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPut, c.blobURL(container, blob)+"?comp=tags", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/xml")
	req.ContentLength = int64(len(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("set tags on %s/%s: %w", container, blob, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(fmt.Sprintf("set tags on %s/%s", container, blob), resp)
	}
	return nil
}

// Copy server-side copies a blob by pointing the destination PUT at the
// absolute source URL. Overwrites the destination.
func (c *Client) Copy(ctx context.Context, srcContainer, srcBlob, dstContainer, dstBlob string) error {
	req, err := c.newRequest(ctx, http.MethodPut, c.blobURL(dstContainer, dstBlob), nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-ms-copy-source", c.blobURL(srcContainer, srcBlob))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("copy blob %s/%s to %s/%s: %w", srcContainer, srcBlob, dstContainer, dstBlob, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(fmt.Sprintf("copy blob %s/%s to %s/%s", srcContainer, srcBlob, dstContainer, dstBlob), resp)
	}
	return nil
}

// DataURL reads a blob and returns it as an inline base64 data URL, with
// the mime type inferred from the blob's extension.
func (c *Client) DataURL(ctx context.Context, container, blob string) (string, error) {
	data, err := c.Read(ctx, container, blob)
	if err != nil {
		return "", err
	}
	if data == nil {
		return "", fmt.Errorf("blob %s/%s not found", container, blob)
	}
	return fmt.Sprintf("data:%s;base64,%s", MimeType(blob), base64.StdEncoding.EncodeToString(data)), nil
}

// MimeType returns the content type for a blob name by extension.
func MimeType(blob string) string {
	if m, ok := mimeTypes[strings.ToLower(path.Ext(blob))]; ok {
		return m
	}
	return "application/octet-stream"
}

// Stem returns the blob name without its final extension. Sidecar names are
// derived from it: <stem>.yml for metadata, <stem>.alt.json for results.
func Stem(blob string) string {
	return strings.TrimSuffix(blob, path.Ext(blob))
}
