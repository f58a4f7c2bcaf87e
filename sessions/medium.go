package sessions

import (
	"net/http"
	"time"
)

// Storage keys shared by every medium. The guard reads KeyAccessToken from the request cookies,
// so these names are part of the contract with the web front end.
const (
	KeyAccessToken  = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyUserProfile  = "user_data"
)

// Keys lists every key a session occupies in a medium.
var Keys = []string{KeyAccessToken, KeyRefreshToken, KeyUserProfile}

// Medium is one place a session can live. A Store writes to two of them: a client-only
// medium and a guard-readable one.
type Medium interface {
	// Get returns the stored value and whether it exists and is non-empty.
	Get(key string) (string, bool)
	// Set stores value. maxAge <= 0 means the medium's own default lifetime.
	Set(key, value string, maxAge time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// CookieOptions are the attributes applied to session cookies.
type CookieOptions struct {
	Path     string
	Domain   string
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
}

// DefaultCookieOptions mirrors what the browser front end writes: path "/", SameSite=Lax,
// readable by client code.
func DefaultCookieOptions() CookieOptions {
	return CookieOptions{
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
}

func (o CookieOptions) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		Secure:   o.Secure,
		HttpOnly: o.HttpOnly,
		SameSite: o.SameSite,
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge / time.Second)
		if c.MaxAge == 0 {
			c.MaxAge = 1
		}
	}
	return c
}

func (o CookieOptions) expired(name string) *http.Cookie {
	c := o.cookie(name, "", 0)
	c.MaxAge = -1
	return c
}
