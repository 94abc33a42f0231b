package auth

import "time"

// TokenRecord is the unit of authentication state: a bearer token pair
// plus the absolute expiry of the access token.
type TokenRecord struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is milliseconds since epoch. Derived from issue time plus
	// the server-reported TTL, never from the token content.
	ExpiresAt int64
}

// IsZero reports whether the record carries no access token, which is
// equivalent to "unauthenticated".
func (r TokenRecord) IsZero() bool {
	return r.AccessToken == ""
}

// NewTokenRecord builds a record from server-issued credentials,
// anchoring the expiry at now + expiresIn.
func NewTokenRecord(accessToken, refreshToken string, expiresIn time.Duration, now time.Time) TokenRecord {
	return TokenRecord{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(expiresIn).UnixMilli(),
	}
}

// Profile is the minimal user profile persisted alongside the tokens.
type Profile struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	CompanyID   string `json:"company_id"`
	CompanyCode string `json:"company_code"`
	IsVerified  bool   `json:"is_verified"`
	IsActive    bool   `json:"is_active"`
}
