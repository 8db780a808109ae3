package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prodimg/alttexter/pkg/version"
)

// healthHandler handles GET /health. The response is minimal and safe for
// unauthenticated access; external dependencies are not probed.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    statusOK,
		Timestamp: time.Now().Unix(),
		Version:   version.GitCommit,
	})
}
