package auth

import (
	"io"
	"log/slog"
	"net/http"
)

// Transport is an http.RoundTripper that attaches a fresh bearer token to
// every outgoing request and retries exactly once after a silent refresh
// when the backend answers 401. A second 401, or a failed refresh, ends
// the session: tokens are cleared and the on-auth-failure hook fires
// (the web layer uses it to send the user back to login).
//
// Failures unrelated to authorization pass through unmodified.
type Transport struct {
	base          http.RoundTripper
	manager       *Manager
	onAuthFailure func()
	logger        *slog.Logger
}

// NewTransport wraps base with token handling. onAuthFailure may be nil.
func NewTransport(base http.RoundTripper, manager *Manager, onAuthFailure func(), logger *slog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		base:          base,
		manager:       manager,
		onAuthFailure: onAuthFailure,
		logger:        logger.With("component", "auth"),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.manager.ValidToken(req.Context())
	if err != nil {
		if IsTerminal(err) {
			t.failSession()
		}
		return nil, err
	}

	resp, err := t.base.RoundTrip(t.withBearer(req, token))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// One silent refresh, one resubmission. Never more, so a backend that
	// keeps rejecting credentials cannot loop us.
	t.logger.Debug("request unauthorized, refreshing and retrying once",
		"method", req.Method,
		"path", req.URL.Path,
	)

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	record, err := t.manager.RefreshTokens(req.Context())
	if err != nil {
		if IsTerminal(err) {
			t.failSession()
		}
		return nil, err
	}

	retry, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err = t.base.RoundTrip(t.withBearer(retry, record.AccessToken))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		t.logger.Warn("request still unauthorized after refresh, ending session",
			"method", req.Method,
			"path", req.URL.Path,
		)
		if err := t.manager.ClearTokens(); err != nil {
			t.logger.Error("failed to clear tokens", "error", err)
		}
		t.failSession()
	}
	return resp, nil
}

func (t *Transport) withBearer(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return out
}

func (t *Transport) failSession() {
	if t.onAuthFailure != nil {
		t.onAuthFailure()
	}
}

// cloneRequest prepares a request for resubmission, rewinding the body
// when the original declared one.
func cloneRequest(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	if req.GetBody == nil {
		return nil, &Error{Kind: KindUnauthorized, Message: "cannot retry request with unrepeatable body"}
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

// Ensure Transport implements http.RoundTripper
var _ http.RoundTripper = (*Transport)(nil)
