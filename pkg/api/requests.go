package api

import "github.com/prodimg/alttexter/pkg/metadata"

// DescribeRequest is the direct (non-event) form of POST /describe. Sidecar
// inlines a metadata document; CMSText overrides the description used for
// fact distillation.
type DescribeRequest struct {
	BlobName string             `json:"blobName"`
	Sidecar  *metadata.Document `json:"sidecar,omitempty"`
	CMSText  string             `json:"cmsText,omitempty"`
}

// LoginRequest is the POST /login body; both fields are optional.
type LoginRequest struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
}
