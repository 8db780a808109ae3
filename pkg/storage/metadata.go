package storage

import (
	"context"
	"fmt"

	"github.com/prodimg/alttexter/pkg/metadata"
)

// ReadYAMLMetadata fetches and parses the companion document <stem>.yml in
// the same container as the image. A missing document yields (nil, nil); a
// malformed one yields an error the caller may downgrade to a warning.
func (c *Client) ReadYAMLMetadata(ctx context.Context, container, blobName string) (*metadata.Document, error) {
	name := Stem(blobName) + ".yml"
	data, err := c.Read(ctx, container, name)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	doc, err := metadata.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("metadata %s/%s: %w", container, name, err)
	}
	return doc, nil
}
