package apimodel

import "net/url"

// Backend endpoint paths, relative to the API base URL.
const (
	RouteAuthLogin              = "/auth/login"
	RouteAuthRefresh            = "/auth/refresh"
	RouteAuthRegister           = "/auth/register"
	RouteAuthVerifyEmail        = "/auth/verify-email"
	RouteAuthForgotPassword     = "/auth/forgot-password"
	RouteAuthResetPassword      = "/auth/reset-password"
	RouteAuthResetPasswordCheck = "/auth/reset-password/validate"
	RouteAuthResetPasswordSend  = "/auth/reset-password/resend"

	RouteTenantStatus = "/tenant/status"
	RouteTenantCreate = "/tenant/create"
	routeTenantSelect = "/tenant/select/"

	RouteExpenses = "/expenses"
)

// RouteTenantSelect returns the selection endpoint for tenantID.
func RouteTenantSelect(tenantID string) string {
	return routeTenantSelect + url.PathEscape(tenantID)
}
