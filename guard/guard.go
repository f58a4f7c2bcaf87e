// Package guard gates navigation to protected pages before any page handler runs.
//
// The guard reads the access token from the request cookie only and decodes it without
// verifying the signature. It is a navigation convenience: the backend verifies every token
// it receives and remains the authorization boundary.
package guard

import (
	"net/url"
	"strings"

	"github.com/jrsteele09/go-viaticos-session/apiclient"
	"github.com/jrsteele09/go-viaticos-session/internal/config"
	"github.com/jrsteele09/go-viaticos-session/token"
)

type Action string

const (
	Continue Action = "continue"
	Redirect Action = "redirect"
)

// ReasonTenantRequired labels redirects to tenant selection. It never reaches the login page.
const ReasonTenantRequired = "tenant_required"

// Decision is the outcome of evaluating one navigation.
type Decision struct {
	Action       Action
	Location     string
	ClearSession bool
	Reason       string
}

// Config holds the route tables the guard evaluates against. Prefixes match with
// strings.HasPrefix, so "/dashboard" also covers "/dashboard/settings".
type Config struct {
	ProtectedPrefixes []string
	TenantPrefixes    []string
	AuthPrefixes      []string
	LoginRoute        string
	TenantSelectRoute string
}

// NewConfig reads the route tables from the application config.
func NewConfig(routes config.RouteConfig) Config {
	return Config{
		ProtectedPrefixes: routes.GetProtectedPrefixes(),
		TenantPrefixes:    routes.GetTenantPrefixes(),
		AuthPrefixes:      routes.GetAuthPrefixes(),
		LoginRoute:        routes.GetLoginRoute(),
		TenantSelectRoute: routes.GetTenantSelectRoute(),
	}
}

func DefaultConfig() Config {
	return NewConfig(config.Routes{})
}

// Evaluate decides what to do with a navigation to path. rawToken is the access token cookie
// value and present reports whether the cookie was sent. Evaluate never fails: anything it
// cannot read is treated as no session.
func (c Config) Evaluate(path, rawToken string, present bool) Decision {
	present = present && rawToken != ""
	protected := matchesAny(path, c.ProtectedPrefixes)

	if !present {
		if protected {
			return c.toLogin(path, apiclient.ReasonNoToken, false)
		}
		return Decision{Action: Continue}
	}

	claims, ok := token.Decode(rawToken)
	if !ok || claims.Expired(token.NowTimeFunc(), 0) {
		// Staying put on auth pages prevents a redirect loop.
		if matchesAny(path, c.AuthPrefixes) {
			return Decision{Action: Continue}
		}
		return c.toLogin(path, apiclient.ReasonSessionExpired, true)
	}

	if matchesAny(path, c.TenantPrefixes) && !claims.HasTenant() {
		return Decision{Action: Redirect, Location: c.TenantSelectRoute, Reason: ReasonTenantRequired}
	}

	return Decision{Action: Continue}
}

func (c Config) toLogin(from string, reason apiclient.RedirectReason, clear bool) Decision {
	query := url.Values{}
	query.Set("from", from)
	query.Set("reason", string(reason))
	return Decision{
		Action:       Redirect,
		Location:     c.LoginRoute + "?" + query.Encode(),
		ClearSession: clear,
		Reason:       string(reason),
	}
}

func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
