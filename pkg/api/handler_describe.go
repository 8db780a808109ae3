package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prodimg/alttexter/pkg/eventgrid"
	"github.com/prodimg/alttexter/pkg/pipeline"
)

// maxBodyBytes bounds the webhook body; event batches and direct requests
// are small.
const maxBodyBytes = 1 << 20

// describeHandler handles POST /describe. The body is either an array of
// delivery-service events or a direct request naming a blob.
func (s *Server) describeHandler(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable body", err)
		return
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		respondError(c, http.StatusBadRequest, "empty body", nil)
		return
	}

	if body[0] == '[' {
		var events []eventgrid.Event
		if err := json.Unmarshal(body, &events); err != nil {
			respondError(c, http.StatusBadRequest, "malformed event array", err)
			return
		}
		s.handleEvents(c, events)
		return
	}

	var req DescribeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(c, http.StatusBadRequest, "malformed request", err)
		return
	}
	s.handleDirect(c, req)
}

// handleEvents walks an event batch. The subscription-validation handshake
// answers immediately with no side effects; otherwise the first blob-created
// event determines the response. A batch with nothing to act on is
// acknowledged as pending.
func (s *Server) handleEvents(c *gin.Context, events []eventgrid.Event) {
	if len(events) == 0 {
		respondError(c, http.StatusBadRequest, "empty event array", nil)
		return
	}

	if events[0].IsValidation() {
		slog.Info("Subscription validation handshake", "event_id", events[0].ID)
		c.JSON(http.StatusOK, ValidationResponse{ValidationResponse: events[0].Data.ValidationCode})
		return
	}

	for _, event := range events {
		if !event.IsBlobCreated() {
			slog.Debug("Ignoring event", "event_type", event.EventType, "event_id", event.ID)
			continue
		}

		container, blob, err := eventgrid.ParseBlobURL(event.Data.URL)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid blob URL", err)
			return
		}
		if !eventgrid.IsImageBlob(blob) {
			slog.Info("Skipping non-image blob", "blob", blob, "container", container)
			c.JSON(http.StatusOK, SkipResponse{Status: statusSkipped, Reason: "Not an image file", Blob: blob})
			return
		}

		slog.Info("Blob-created event received", "blob", blob, "container", container, "event_id", event.ID)
		result, err := s.orchestrator.Process(c.Request.Context(), pipeline.Request{BlobName: blob})
		if err != nil {
			respondProcessingError(c, err)
			return
		}
		c.JSON(http.StatusOK, processedResponse(blob, result))
		return
	}

	c.JSON(http.StatusAccepted, PendingResponse{Status: statusPending})
}

// handleDirect processes an explicit request for one blob, with optional
// inline metadata and CMS text.
func (s *Server) handleDirect(c *gin.Context, req DescribeRequest) {
	if req.BlobName == "" {
		c.JSON(http.StatusAccepted, PendingResponse{Status: statusPending})
		return
	}

	result, err := s.orchestrator.Process(c.Request.Context(), pipeline.Request{
		BlobName: req.BlobName,
		Doc:      req.Sidecar,
		CMSText:  req.CMSText,
	})
	if err != nil {
		respondProcessingError(c, err)
		return
	}
	c.JSON(http.StatusOK, processedResponse(req.BlobName, result))
}

func processedResponse(blob string, result *pipeline.Result) ProcessedResponse {
	return ProcessedResponse{
		Status:    statusProcessed,
		Blob:      blob,
		AltText:   result.Sidecar.AltText,
		Sidecar:   result.SidecarBlob,
		Languages: result.Languages,
		Copied:    result.Copied,
	}
}
