package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// sessionTokenTTL is the advertised lifetime of a login token.
const sessionTokenTTL = time.Hour

// sessionClaims is the payload encoded into a session token. The token is
// opaque and unsigned; downstream flows use it only as an audit tag.
type sessionClaims struct {
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// loginHandler handles POST /login: a stateless short-lived session token
// for downstream multi-tenant flows. Both body fields are optional.
func (s *Server) loginHandler(c *gin.Context) {
	var req LoginRequest
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable body", err)
		return
	}
	if body = bytes.TrimSpace(body); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(c, http.StatusBadRequest, "malformed request", err)
			return
		}
	}

	if req.TenantID == "" {
		req.TenantID = "default"
	}
	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}

	now := time.Now()
	claims := sessionClaims{
		TenantID:  req.TenantID,
		UserID:    req.UserID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(sessionTokenTTL).Unix(),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "token encoding failed", err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Status:       statusOK,
		SessionToken: base64.StdEncoding.EncodeToString(payload),
		TenantID:     req.TenantID,
		UserID:       req.UserID,
		ExpiresIn:    int(sessionTokenTTL.Seconds()),
	})
}
