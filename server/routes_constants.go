package server

import "github.com/jrsteele09/go-viaticos-session/tenants"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Health and metrics
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// Auth Routes - Login & Logout
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Auth Routes - Account
	RouteAuthRegister           = "/auth/register"
	RouteAuthVerifyEmail        = "/auth/verify-email"
	RouteAuthForgotPassword     = "/auth/forgot-password"
	RouteAuthResetPassword      = "/auth/reset-password"
	RouteAuthResetPasswordCheck = "/auth/reset-password/validate"
	RouteAuthResetPasswordSend  = "/auth/reset-password/resend"

	// Tenant Routes
	RouteTenantStatus = "/tenant/status"
	RouteTenantCreate = tenants.PageTenantCreate
	RouteTenantSelect = tenants.PageTenantSelect
	RouteTenantPick   = "/tenant/select/{id}"

	// Pages
	RouteDashboard = tenants.PageDashboard
	RouteExpenses  = "/expenses"
	RouteReports   = "/reports"
	RouteSettings  = "/settings"

	// Backend pass-through for client code
	RouteAPIProxy = "/api/{path...}"
)
