package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError writes the uniform {error, message} body.
func respondError(c *gin.Context, status int, errText string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorResponse{Error: errText, Message: msg})
}

// respondProcessingError maps a pipeline failure to a 500. The delivery
// service treats it as retriable and re-posts the event.
func respondProcessingError(c *gin.Context, err error) {
	slog.Error("Processing failed", "error", err, "request_id", c.GetString(requestIDKey))
	respondError(c, http.StatusInternalServerError, "processing failed", err)
}
