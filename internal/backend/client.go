package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the call-intelligence backend. Auth endpoints go out on
// a plain HTTP client (no bearer token, no retry); everything else rides
// the authenticated client whose transport attaches a fresh token and
// retries once on 401.
type Client struct {
	baseURL string
	plain   *http.Client
	authed  *http.Client
	logger  *slog.Logger
}

// New creates a backend client. authed must carry the auth.Transport; it
// may equal plain in tests that don't exercise token handling.
func New(baseURL string, authed *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if authed == nil {
		authed = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: baseURL,
		plain: &http.Client{
			Timeout: 30 * time.Second,
		},
		authed: authed,
		logger: logger.With("component", "backend-client"),
	}
}

// SetAuthedClient installs the authenticated HTTP client. Wiring is
// two-phase: the token manager needs this client's Refresh, and the
// authenticated transport needs the manager.
func (c *Client) SetAuthedClient(client *http.Client) {
	c.authed = client
}

// newRequest creates a JSON request against the backend
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// doJSON executes req on client and decodes a 200 response into out.
// Non-2xx responses are classified into the auth error taxonomy.
func (c *Client) doJSON(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
