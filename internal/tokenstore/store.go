package tokenstore

import "errors"

// Well-known credential keys. Both persistence scopes use the same layout.
const (
	KeyAuthToken    = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyTokenExpiry  = "token_expiry" // absolute ms timestamp, decimal string
	KeyUser         = "user"         // serialized JSON profile
)

// ErrNotFound is returned when a key has no value in the store.
var ErrNotFound = errors.New("tokenstore: key not found")

// Store is a flat key-value surface for credential material.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) (string, error)

	// Set writes the value for key, replacing any previous value.
	Set(key, value string) error

	// SetMany writes all the given pairs as one unit: either every pair
	// is applied or none is.
	SetMany(values map[string]string) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(keys ...string) error

	// Close releases any underlying resources.
	Close() error
}
