package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"callsight/internal/auth"
	"callsight/internal/backend"
)

// Authenticator is the backend login surface used by the session handler
type Authenticator interface {
	Login(ctx context.Context, email, password string) (backend.LoginResult, error)
	Register(ctx context.Context, username, email, password, companyCode string) (auth.Profile, error)
}

// SessionHandler manages the local authentication session
type SessionHandler struct {
	client  Authenticator
	manager *auth.Manager
	logger  *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(client Authenticator, manager *auth.Manager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		client:  client,
		manager: manager,
		logger:  logger,
	}
}

type loginRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// Login signs in against the backend and stores the issued tokens.
// remember_me selects the long-lived persistence scope.
// POST /session/login
func (h *SessionHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "email and password are required",
			"code":  "INVALID_REQUEST",
		})
		return
	}

	result, err := h.client.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("login failed",
			"component", "web",
			"email", req.Email,
			"kind", auth.KindOf(err),
		)
		writeAuthError(c, err)
		return
	}

	if err := h.manager.StoreTokens(result.Record, req.RememberMe); err != nil {
		h.logger.Error("failed to store tokens", "component", "web", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store session",
			"code":  "INTERNAL_ERROR",
		})
		return
	}
	if err := h.manager.StoreProfile(result.Profile, req.RememberMe); err != nil {
		h.logger.Error("failed to store profile", "component", "web", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"user":       result.Profile,
		"expires_at": result.Record.ExpiresAt,
	})
}

type registerRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	CompanyCode string `json:"company_code"`
}

// Register creates a backend account. No session is established; the
// account may still need admin verification before login succeeds.
// POST /session/register
func (h *SessionHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "username, email and password are required",
			"code":  "INVALID_REQUEST",
		})
		return
	}

	profile, err := h.client.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.CompanyCode)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":                  profile,
		"verification_required": !profile.IsVerified,
	})
}

// Logout clears the stored session from both persistence scopes.
// POST /session/logout
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.manager.ClearTokens(); err != nil {
		h.logger.Error("failed to clear tokens", "component", "web", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to clear session",
			"code":  "INTERNAL_ERROR",
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// Status reports the current session state without touching the network.
// GET /session/status
func (h *SessionHandler) Status(c *gin.Context) {
	token := h.manager.AccessToken()
	if token == "" {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	response := gin.H{
		"authenticated": true,
		"token_expired": h.manager.IsTokenExpired(),
	}
	if profile, err := h.manager.Profile(); err == nil {
		response["user"] = profile
	}
	c.JSON(http.StatusOK, response)
}
