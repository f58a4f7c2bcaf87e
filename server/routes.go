package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteAuthLogin, ChainMiddleware(s.LoginPageHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Account
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthVerifyEmail, ChainMiddleware(s.VerifyEmailHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthResetPassword, ChainMiddleware(s.ResetPasswordHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthResetPasswordCheck, ChainMiddleware(s.ValidateResetTokenHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthResetPasswordSend, ChainMiddleware(s.ResendResetEmailHandler(), s.HTMLMiddleWare()...))

	// Tenants
	s.RegisterRouteHandler("GET "+RouteTenantStatus, ChainMiddleware(s.TenantStatusHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteTenantSelect, ChainMiddleware(s.TenantSelectPageHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteTenantCreate, ChainMiddleware(s.TenantCreatePageHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteTenantCreate, ChainMiddleware(s.TenantCreateHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteTenantPick, ChainMiddleware(s.TenantSelectHandler(), s.HTMLMiddleWare()...))

	// Guarded pages
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.PageHandler(RouteDashboard), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteExpenses, ChainMiddleware(s.ExpensesPageHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteReports, ChainMiddleware(s.PageHandler(RouteReports), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSettings, ChainMiddleware(s.PageHandler(RouteSettings), s.PageMiddleware()...))

	// Client-side calls to the backend
	s.RegisterRouteHandler(RouteAPIProxy, ChainMiddleware(s.APIProxyHandler(), s.APIMiddleware()...))
}
