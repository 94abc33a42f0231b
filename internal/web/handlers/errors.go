package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"callsight/internal/auth"
)

// writeAuthError maps the auth error taxonomy onto HTTP responses for
// user-facing display. Anything unclassified is a plain 502 since it
// means the backend misbehaved, not the user.
func writeAuthError(c *gin.Context, err error) {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Upstream request failed",
			"code":  "UPSTREAM_ERROR",
		})
		return
	}

	switch authErr.Kind {
	case auth.KindValidation:
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":        "Invalid input",
			"code":         "VALIDATION_ERROR",
			"field_errors": authErr.FieldErrors,
		})

	case auth.KindVerificationRequired:
		c.JSON(http.StatusForbidden, gin.H{
			"error": authErr.Message,
			"code":  "VERIFICATION_REQUIRED",
		})

	case auth.KindAccountInactive:
		c.JSON(http.StatusForbidden, gin.H{
			"error": authErr.Message,
			"code":  "ACCOUNT_INACTIVE",
		})

	case auth.KindDelay:
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":              authErr.Message,
			"code":               "LOGIN_DELAYED",
			"retry_after":        int(authErr.RetryAfter.Seconds()),
			"attempts_remaining": authErr.AttemptsRemaining,
		})

	case auth.KindLockout:
		c.JSON(http.StatusLocked, gin.H{
			"error":       authErr.Message,
			"code":        "ACCOUNT_LOCKED",
			"unlock_time": authErr.UnlockAt.UnixMilli(),
		})

	case auth.KindRefreshFailure:
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Session expired, please sign in again",
			"code":  "SESSION_EXPIRED",
		})

	default: // auth.KindUnauthorized
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Incorrect email or password",
			"code":  "UNAUTHORIZED",
		})
	}
}
