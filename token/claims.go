package token

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-viaticos-session/internal/utils"
)

// Token types carried in the "type" claim
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ExpiryMargin is how long before "exp" an access token is already treated as expired,
// so a request never leaves with a token that dies in flight.
const ExpiryMargin = 60 * time.Second

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Claims is the payload the viáticos backend embeds in its access and refresh tokens.
//
// Claims are read WITHOUT signature verification. They drive client-side branching only
// (redirect to login, redirect to tenant selection, when to refresh). The backend
// verifies every token it receives and remains the only authorization boundary.
type Claims struct {
	UserID         string `json:"user_id"`
	TenantID       string `json:"tenant_id,omitempty"`
	Type           string `json:"type"`
	RawRoles       []any  `json:"roles,omitempty"`
	RawPermissions []any  `json:"permissions,omitempty"`
	jwtlib.RegisteredClaims
}

// Decode reads the claims of a JWT without verifying its signature.
// It never fails loudly: a malformed token, a token without three segments, or a payload
// missing user_id, type, iat or exp all return (nil, false).
func Decode(raw string) (*Claims, bool) {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, ".") != 2 {
		return nil, false
	}

	claims := &Claims{}
	// The header is not needed to read claims, so an unknown or missing alg is tolerated.
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil && !errors.Is(err, jwtlib.ErrTokenUnverifiable) {
		return nil, false
	}
	if !claims.wellFormed() {
		return nil, false
	}
	return claims, true
}

// IsExpired reports whether raw cannot be decoded or expires within ExpiryMargin.
func IsExpired(raw string) bool {
	claims, ok := Decode(raw)
	if !ok {
		return true
	}
	return claims.Expired(NowTimeFunc(), ExpiryMargin)
}

func (c *Claims) wellFormed() bool {
	return c.UserID != "" && c.Type != "" && c.IssuedAt != nil && c.ExpiresAt != nil
}

// Expired reports whether exp < now + margin.
func (c *Claims) Expired(now time.Time, margin time.Duration) bool {
	if c == nil || c.ExpiresAt == nil {
		return true
	}
	return c.ExpiresAt.Time.Before(now.Add(margin))
}

// Expiry returns the "exp" claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Lifetime returns the time left until "exp". It is negative for expired tokens.
func (c *Claims) Lifetime(now time.Time) time.Duration {
	return c.Expiry().Sub(now)
}

// HasTenant reports whether the session has selected a company.
func (c *Claims) HasTenant() bool {
	return c != nil && c.TenantID != ""
}

// Roles returns the string entries of the "roles" claim.
func (c *Claims) Roles() []string {
	return utils.ToStringSlice(c.RawRoles)
}

// Permissions returns the string entries of the "permissions" claim.
func (c *Claims) Permissions() []string {
	return utils.ToStringSlice(c.RawPermissions)
}
