package config

type RouteConfig interface {
	GetProtectedPrefixes() []string
	GetTenantPrefixes() []string
	GetAuthPrefixes() []string
	GetLoginRoute() string
	GetTenantSelectRoute() string
}

type Routes struct{}

var _ RouteConfig = Routes{}

// GetProtectedPrefixes lists the route prefixes that require a session.
func (Routes) GetProtectedPrefixes() []string {
	return []string{"/dashboard", "/expenses", "/reports", "/settings"}
}

// GetTenantPrefixes lists the route prefixes that additionally require a tenant claim.
func (Routes) GetTenantPrefixes() []string {
	return []string{"/dashboard", "/expenses", "/reports"}
}

// GetAuthPrefixes lists the auth-flow pages. An invalid session never redirects away from them.
func (Routes) GetAuthPrefixes() []string {
	return []string{
		"/auth/login",
		"/auth/register",
		"/auth/forgot-password",
		"/auth/reset-password",
		"/auth/verify-email",
	}
}

func (Routes) GetLoginRoute() string {
	return "/auth/login"
}

func (Routes) GetTenantSelectRoute() string {
	return "/tenant/select"
}
