// Package eventgrid holds the wire types for delivery-service notifications
// and helpers for interpreting them. The event type strings are
// vendor-specific literals and must match the delivery service exactly.
package eventgrid

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Event type literals emitted by the delivery service.
const (
	// EventTypeSubscriptionValidation is sent once when a webhook subscription
	// is created; the handler must echo the validation code back.
	EventTypeSubscriptionValidation = "Microsoft.EventGrid.SubscriptionValidationEvent"

	// EventTypeBlobCreated is sent for every object written to a subscribed
	// container.
	EventTypeBlobCreated = "Microsoft.Storage.BlobCreated"
)

// imageExtensions is the set of blob extensions the pipeline processes.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Event is one delivery notification. A webhook invocation carries an
// ordered JSON array of one or more of these.
type Event struct {
	ID        string    `json:"id,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	EventType string    `json:"eventType"`
	EventTime string    `json:"eventTime,omitempty"`
	Data      EventData `json:"data"`
}

// EventData carries the payload fields the pipeline consumes: the blob URL
// for blob-created events, the validation code for the subscription handshake.
type EventData struct {
	URL            string `json:"url,omitempty"`
	ValidationCode string `json:"validationCode,omitempty"`
}

// IsValidation reports whether the event is the subscription handshake.
func (e *Event) IsValidation() bool {
	return e.EventType == EventTypeSubscriptionValidation
}

// IsBlobCreated reports whether the event announces a new blob.
func (e *Event) IsBlobCreated() bool {
	return e.EventType == EventTypeBlobCreated
}

// ParseBlobURL splits an absolute blob URL into container and blob name.
// The path layout is /<container>/<blobName>, where the blob name may
// itself contain slashes.
func ParseBlobURL(raw string) (container, blob string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse blob url: %w", err)
	}
	trimmed := strings.TrimPrefix(u.Path, "/")
	container, blob, found := strings.Cut(trimmed, "/")
	if !found || container == "" || blob == "" {
		return "", "", fmt.Errorf("blob url %q has no container/blob path", raw)
	}
	return container, blob, nil
}

// IsImageBlob reports whether the blob name carries a processable image
// extension. The check is case-insensitive.
func IsImageBlob(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}
