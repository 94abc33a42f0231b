package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenSource yields an access token guaranteed fresh for the immediate
// call, refreshing behind the scenes when needed.
type TokenSource interface {
	ValidToken(ctx context.Context) (string, error)
}

// RequireSession gates dashboard routes behind a live session. Browser
// navigations are bounced to the login route; API callers get 401 JSON.
func RequireSession(tokens TokenSource, loginPath string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := tokens.ValidToken(c.Request.Context())
		if err == nil {
			c.Next()
			return
		}

		logger.Info("unauthenticated request",
			"component", "web",
			"request_id", c.GetString(RequestIDKey),
			"path", c.Request.URL.Path,
			"error", err,
		)

		if wantsHTML(c) {
			c.Redirect(http.StatusSeeOther, loginPath)
		} else {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Session expired, please sign in again",
				"code":  "SESSION_EXPIRED",
			})
		}
		c.Abort()
	}
}

// wantsHTML reports whether the request is a browser navigation rather
// than an API call.
func wantsHTML(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html")
}
