package tokenstore

import "errors"

// Scope selects which tier a write lands in.
type Scope int

const (
	// ScopePersistent is the long-lived tier ("remember me").
	ScopePersistent Scope = iota
	// ScopeSession is the ephemeral tier, gone when the process exits.
	ScopeSession
)

// Tiered combines the long-lived and session stores behind a single
// lookup surface. Reads check the persistent tier first; writes go to
// exactly one tier; clears hit both. Credential state is only ever
// replaced whole, never field by field, so callers see either the old
// record or the new one.
type Tiered struct {
	persistent Store
	session    Store
}

// NewTiered creates a tiered store over the two scopes.
func NewTiered(persistent, session Store) *Tiered {
	return &Tiered{
		persistent: persistent,
		session:    session,
	}
}

// Get returns the value for key from the persistent tier if present,
// falling back to the session tier, else ErrNotFound.
func (t *Tiered) Get(key string) (string, error) {
	value, err := t.persistent.Get(key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	return t.session.Get(key)
}

// GetScoped returns the value for key along with the tier it was found
// in, so a caller can preserve the scope when rewriting the record.
func (t *Tiered) GetScoped(key string) (string, Scope, error) {
	value, err := t.persistent.Get(key)
	if err == nil {
		return value, ScopePersistent, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", ScopePersistent, err
	}
	value, err = t.session.Get(key)
	return value, ScopeSession, err
}

// Set writes the value for key into the given scope.
func (t *Tiered) Set(scope Scope, key, value string) error {
	return t.store(scope).Set(key, value)
}

// SetMany writes all the given pairs into one scope as a unit.
func (t *Tiered) SetMany(scope Scope, values map[string]string) error {
	return t.store(scope).SetMany(values)
}

// DeleteScope removes the given keys from one tier only.
func (t *Tiered) DeleteScope(scope Scope, keys ...string) error {
	return t.store(scope).Delete(keys...)
}

// DeleteAll removes the given keys from both tiers.
func (t *Tiered) DeleteAll(keys ...string) error {
	perr := t.persistent.Delete(keys...)
	serr := t.session.Delete(keys...)
	if perr != nil {
		return perr
	}
	return serr
}

// Close closes both tiers.
func (t *Tiered) Close() error {
	perr := t.persistent.Close()
	serr := t.session.Close()
	if perr != nil {
		return perr
	}
	return serr
}

func (t *Tiered) store(scope Scope) Store {
	if scope == ScopePersistent {
		return t.persistent
	}
	return t.session
}
