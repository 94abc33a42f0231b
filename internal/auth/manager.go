package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"callsight/internal/tokenstore"
)

// DefaultRefreshThreshold is how much remaining validity ValidToken
// guarantees before it forces a refresh.
const DefaultRefreshThreshold = 5 * time.Minute

// refreshTimeout bounds one refresh exchange. The exchange is detached
// from caller contexts, so it needs its own deadline.
const refreshTimeout = 30 * time.Second

// Refresher exchanges a refresh token for a new token record. Implemented
// by the backend client; kept as an interface here to avoid a dependency
// cycle with the authenticated transport.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenRecord, error)
}

// Manager is the single source of truth for the current authentication
// token: it stores, validates and refreshes the token pair, and coalesces
// concurrent refresh attempts into one backend exchange. Construct one
// per application and inject it; there is no package-level instance.
type Manager struct {
	store     *tokenstore.Tiered
	refresher Refresher
	threshold time.Duration
	logger    *slog.Logger

	// now is swapped in tests
	now func() time.Time

	refreshGroup singleflight.Group
}

// NewManager creates a token manager over the given tiered store.
func NewManager(store *tokenstore.Tiered, refresher Refresher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		refresher: refresher,
		threshold: DefaultRefreshThreshold,
		logger:    logger.With("component", "auth"),
		now:       time.Now,
	}
}

// SetRefreshThreshold overrides the look-ahead window used by ValidToken.
func (m *Manager) SetRefreshThreshold(d time.Duration) {
	m.threshold = d
}

// StoreTokens writes the record into the chosen persistence scope,
// replacing any existing record. The opposite scope is cleared so that at
// most one record is current across both tiers.
func (m *Manager) StoreTokens(record TokenRecord, persistLong bool) error {
	scope := tokenstore.ScopeSession
	if persistLong {
		scope = tokenstore.ScopePersistent
	}
	return m.storeTokens(record, scope)
}

func (m *Manager) storeTokens(record TokenRecord, scope tokenstore.Scope) error {
	// The record goes down in one write so the access token and its
	// expiry can never be observed out of step with each other.
	err := m.store.SetMany(scope, map[string]string{
		tokenstore.KeyAuthToken:    record.AccessToken,
		tokenstore.KeyRefreshToken: record.RefreshToken,
		tokenstore.KeyTokenExpiry:  strconv.FormatInt(record.ExpiresAt, 10),
	})
	if err != nil {
		return fmt.Errorf("failed to store token record: %w", err)
	}

	// A record in the other tier would shadow or be shadowed by this one,
	// so drop it.
	return m.clearScope(otherScope(scope))
}

// StoreProfile persists the minimal user profile next to the tokens.
func (m *Manager) StoreProfile(profile Profile, persistLong bool) error {
	scope := tokenstore.ScopeSession
	if persistLong {
		scope = tokenstore.ScopePersistent
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to serialize profile: %w", err)
	}
	if err := m.store.Set(scope, tokenstore.KeyUser, string(data)); err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}
	return nil
}

// Profile returns the stored user profile, or ErrUnauthenticated.
func (m *Manager) Profile() (Profile, error) {
	data, err := m.store.Get(tokenstore.KeyUser)
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return Profile{}, ErrUnauthenticated
		}
		return Profile{}, err
	}

	var profile Profile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return Profile{}, fmt.Errorf("failed to parse stored profile: %w", err)
	}
	return profile, nil
}

// AccessToken returns the current access token, or "" when
// unauthenticated. It performs no validity check; callers that need a
// token guaranteed fresh must use ValidToken.
func (m *Manager) AccessToken() string {
	token, err := m.store.Get(tokenstore.KeyAuthToken)
	if err != nil {
		return ""
	}
	return token
}

// IsTokenExpired reports whether the stored access token has passed its
// expiry. A missing expiry counts as expired.
func (m *Manager) IsTokenExpired() bool {
	return m.now().UnixMilli() >= m.expiresAt()
}

// expiresAt returns the stored expiry in ms, defaulting to 0 when absent
// or unparseable.
func (m *Manager) expiresAt() int64 {
	raw, err := m.store.Get(tokenstore.KeyTokenExpiry)
	if err != nil {
		return 0
	}
	expiry, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return expiry
}

// ValidToken returns an access token with at least the configured
// look-ahead window of remaining validity, refreshing proactively when
// the stored one is missing or about to expire. This is the only path
// other components should use before an authenticated call.
func (m *Manager) ValidToken(ctx context.Context) (string, error) {
	token := m.AccessToken()
	shouldRefresh := token == "" || m.now().Add(m.threshold).UnixMilli() >= m.expiresAt()
	if !shouldRefresh {
		return token, nil
	}

	record, err := m.RefreshTokens(ctx)
	if err != nil {
		return "", err
	}
	return record.AccessToken, nil
}

// RefreshTokens exchanges the stored refresh token for a new record.
// Concurrent callers are coalesced into a single backend exchange and all
// observe the same outcome; none of them can abandon the exchange early.
// On success the new record is persisted in the same scope the old one
// lived in. A backend rejection of the refresh token clears both scopes
// and ends the session; a transport-level failure leaves the stored
// record alone so the next caller can retry.
func (m *Manager) RefreshTokens(ctx context.Context) (TokenRecord, error) {
	result, err, _ := m.refreshGroup.Do("refresh", func() (interface{}, error) {
		// Several callers may be waiting on this one flight. The first
		// caller disconnecting must not abort the exchange for the rest,
		// so it runs detached from the caller's context.
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return m.doRefresh(refreshCtx)
	})
	if err != nil {
		return TokenRecord{}, err
	}
	return result.(TokenRecord), nil
}

func (m *Manager) doRefresh(ctx context.Context) (TokenRecord, error) {
	refreshToken, scope, err := m.store.GetScoped(tokenstore.KeyRefreshToken)
	if err != nil || refreshToken == "" {
		m.logger.Warn("refresh requested without a stored refresh token")
		if clearErr := m.ClearTokens(); clearErr != nil {
			m.logger.Error("failed to clear tokens", "error", clearErr)
		}
		return TokenRecord{}, &Error{Kind: KindRefreshFailure, Err: ErrNoRefreshToken}
	}

	record, err := m.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		// Only a backend verdict on the refresh token is terminal.
		// Timeouts and connection errors mean the endpoint never ruled,
		// so the session survives for a later attempt.
		if KindOf(err) == "" {
			m.logger.Warn("token refresh failed, will retry on next use", "error", err)
			return TokenRecord{}, err
		}

		m.logger.Warn("token refresh rejected, clearing session", "error", err)
		if clearErr := m.ClearTokens(); clearErr != nil {
			m.logger.Error("failed to clear tokens", "error", clearErr)
		}
		if KindOf(err) == KindRefreshFailure {
			return TokenRecord{}, err
		}
		return TokenRecord{}, &Error{Kind: KindRefreshFailure, Err: err}
	}

	if err := m.storeTokens(record, scope); err != nil {
		return TokenRecord{}, err
	}

	m.logger.Debug("tokens refreshed",
		"scope", scopeName(scope),
		"expires_at", time.UnixMilli(record.ExpiresAt),
	)

	return record, nil
}

// ClearTokens removes the token record and profile from both persistence
// scopes. Idempotent.
func (m *Manager) ClearTokens() error {
	return m.store.DeleteAll(
		tokenstore.KeyAuthToken,
		tokenstore.KeyRefreshToken,
		tokenstore.KeyTokenExpiry,
		tokenstore.KeyUser,
	)
}

func (m *Manager) clearScope(scope tokenstore.Scope) error {
	return m.store.DeleteScope(scope,
		tokenstore.KeyAuthToken,
		tokenstore.KeyRefreshToken,
		tokenstore.KeyTokenExpiry,
		tokenstore.KeyUser,
	)
}

func otherScope(scope tokenstore.Scope) tokenstore.Scope {
	if scope == tokenstore.ScopePersistent {
		return tokenstore.ScopeSession
	}
	return tokenstore.ScopePersistent
}

func scopeName(scope tokenstore.Scope) string {
	if scope == tokenstore.ScopePersistent {
		return "persistent"
	}
	return "session"
}
