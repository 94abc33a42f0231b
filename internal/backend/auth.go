package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"callsight/internal/auth"
)

// loginResponse mirrors the backend's /auth/login payload
type loginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"` // seconds
	UserInfo     userInfo `json:"user_info"`
}

type userInfo struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	CompanyID   string `json:"company_id"`
	CompanyCode string `json:"company_code"`
	IsVerified  bool   `json:"is_verified"`
	IsActive    bool   `json:"is_active"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Record  auth.TokenRecord
	Profile auth.Profile
}

// Login exchanges credentials for a token record. A verified, active
// account is required: the backend can answer 200 for accounts that are
// still pending verification or have been deactivated, and those are
// rejected here with the matching error kind.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", nil, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return LoginResult{}, err
	}

	var resp loginResponse
	if err := c.doJSON(c.plain, req, &resp); err != nil {
		return LoginResult{}, err
	}

	if !resp.UserInfo.IsVerified {
		return LoginResult{}, &auth.Error{
			Kind:    auth.KindVerificationRequired,
			Message: "account is pending verification by an administrator",
		}
	}
	if !resp.UserInfo.IsActive {
		return LoginResult{}, &auth.Error{
			Kind:    auth.KindAccountInactive,
			Message: "account has been deactivated",
		}
	}

	c.logger.Info("login successful", "username", resp.UserInfo.Username)

	return LoginResult{
		Record: auth.NewTokenRecord(resp.AccessToken, resp.RefreshToken, time.Duration(resp.ExpiresIn)*time.Second, time.Now()),
		Profile: auth.Profile{
			Username:    resp.UserInfo.Username,
			Email:       resp.UserInfo.Email,
			CompanyID:   resp.UserInfo.CompanyID,
			CompanyCode: resp.UserInfo.CompanyCode,
			IsVerified:  resp.UserInfo.IsVerified,
			IsActive:    resp.UserInfo.IsActive,
		},
	}, nil
}

// Register creates a new account. The backend auto-verifies when a known
// company code is supplied, otherwise the account waits for an admin.
func (c *Client) Register(ctx context.Context, username, email, password, companyCode string) (auth.Profile, error) {
	payload := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}
	if companyCode != "" {
		payload["company_code"] = companyCode
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/auth/register", nil, payload)
	if err != nil {
		return auth.Profile{}, err
	}

	var resp struct {
		Username             string `json:"username"`
		Email                string `json:"email"`
		CompanyID            string `json:"company_id"`
		CompanyCode          string `json:"company_code"`
		IsVerified           bool   `json:"is_verified"`
		VerificationRequired bool   `json:"verification_required"`
	}
	if err := c.doJSON(c.plain, req, &resp); err != nil {
		return auth.Profile{}, err
	}

	return auth.Profile{
		Username:    resp.Username,
		Email:       resp.Email,
		CompanyID:   resp.CompanyID,
		CompanyCode: resp.CompanyCode,
		IsVerified:  resp.IsVerified,
		IsActive:    true,
	}, nil
}

// Refresh exchanges a refresh token for a new token record. Any backend
// rejection is a refresh failure, which ends the session upstream.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (auth.TokenRecord, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/refresh", nil, map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return auth.TokenRecord{}, err
	}

	var resp refreshResponse
	if err := c.doJSON(c.plain, req, &resp); err != nil {
		if kind := auth.KindOf(err); kind != "" && kind != auth.KindRefreshFailure {
			err = &auth.Error{Kind: auth.KindRefreshFailure, Err: err}
		}
		return auth.TokenRecord{}, err
	}

	return auth.NewTokenRecord(resp.AccessToken, resp.RefreshToken, time.Duration(resp.ExpiresIn)*time.Second, time.Now()), nil
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (auth.Profile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/me", nil, nil)
	if err != nil {
		return auth.Profile{}, err
	}

	var resp userInfo
	if err := c.doJSON(c.authed, req, &resp); err != nil {
		return auth.Profile{}, err
	}

	return auth.Profile{
		Username:    resp.Username,
		Email:       resp.Email,
		CompanyID:   resp.CompanyID,
		CompanyCode: resp.CompanyCode,
		IsVerified:  resp.IsVerified,
		IsActive:    resp.IsActive,
	}, nil
}

// errorBody is the common shape of backend error payloads
type errorBody struct {
	Detail            json.RawMessage `json:"detail"`
	Message           string          `json:"message"`
	RetryAfter        int             `json:"retry_after"`
	AttemptsRemaining int             `json:"attempts_remaining"`
	UnlockTime        int64           `json:"unlock_time"` // ms since epoch
}

// fieldError is one entry of a 422 validation detail list
type fieldError struct {
	Loc []json.RawMessage `json:"loc"`
	Msg string            `json:"msg"`
}

// classifyError maps a backend error response onto the auth error
// taxonomy so callers can branch on kind instead of status codes.
func classifyError(status int, body []byte) error {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	message := parsed.Message
	var detailText string
	if len(parsed.Detail) > 0 {
		// detail is either a plain string or a structured object/list
		if err := json.Unmarshal(parsed.Detail, &detailText); err != nil {
			detailText = ""
		}
	}
	if message == "" {
		message = detailText
	}
	lower := strings.ToLower(message + " " + string(parsed.Detail))

	switch {
	case status == http.StatusUnprocessableEntity:
		return &auth.Error{
			Kind:        auth.KindValidation,
			Message:     "invalid input",
			FieldErrors: parseFieldErrors(parsed.Detail),
		}

	case status == http.StatusForbidden && strings.Contains(lower, "verification"):
		return &auth.Error{Kind: auth.KindVerificationRequired, Message: message}

	case status == http.StatusForbidden && (strings.Contains(lower, "inactive") || strings.Contains(lower, "deactivated")):
		return &auth.Error{Kind: auth.KindAccountInactive, Message: message}

	case status == http.StatusTooManyRequests && parsed.UnlockTime > 0,
		status == http.StatusLocked:
		return &auth.Error{
			Kind:     auth.KindLockout,
			Message:  message,
			UnlockAt: time.UnixMilli(parsed.UnlockTime),
		}

	case status == http.StatusTooManyRequests:
		return &auth.Error{
			Kind:              auth.KindDelay,
			Message:           message,
			RetryAfter:        time.Duration(parsed.RetryAfter) * time.Second,
			AttemptsRemaining: parsed.AttemptsRemaining,
		}

	case status == http.StatusUnauthorized:
		return &auth.Error{Kind: auth.KindUnauthorized, Message: message}

	default:
		return fmt.Errorf("backend returned status %d: %s", status, strings.TrimSpace(string(body)))
	}
}

// parseFieldErrors extracts per-field messages from a FastAPI-style 422
// detail list. The last loc element is the field name.
func parseFieldErrors(detail json.RawMessage) map[string]string {
	var entries []fieldError
	if err := json.Unmarshal(detail, &entries); err != nil {
		return nil
	}

	fields := make(map[string]string, len(entries))
	for _, entry := range entries {
		if len(entry.Loc) == 0 {
			continue
		}
		var field string
		if err := json.Unmarshal(entry.Loc[len(entry.Loc)-1], &field); err != nil {
			continue
		}
		fields[field] = entry.Msg
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
