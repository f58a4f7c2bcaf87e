// Package server is the web front end of the viáticos app. It renders page models, forwards
// the account and tenant flows to the REST backend, and keeps the session in cookies so the
// route guard can read it on every navigation.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-viaticos-session/apiclient"
	"github.com/jrsteele09/go-viaticos-session/guard"
	"github.com/jrsteele09/go-viaticos-session/internal/config"
	"github.com/jrsteele09/go-viaticos-session/sessions"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	guard      *guard.Guard
	cookies    sessions.CookieOptions
	apiBaseURL string
	httpClient *http.Client
	refreshes  *apiclient.RefreshGroup
}

type Option func(*Server)

// WithAPIBaseURL overrides the backend URL from the configuration.
func WithAPIBaseURL(baseURL string) Option {
	return func(s *Server) {
		s.apiBaseURL = baseURL
	}
}

// WithHTTPClient sets the client used for backend calls. Its transport is shared by every
// request the server handles.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Server) {
		if httpClient != nil {
			s.httpClient = httpClient
		}
	}
}

func New(config config.Config, opts ...Option) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("[Server New] config is required")
	}

	cookies := sessions.DefaultCookieOptions()
	cookies.Secure = config.GetCookieSecure()

	s := &Server{
		env:        config.GetEnv(),
		mux:        http.NewServeMux(),
		config:     config,
		guard:      guard.New(guard.NewConfig(config), cookies),
		cookies:    cookies,
		apiBaseURL: config.GetAPIBaseURL(),
		httpClient: &http.Client{},
		refreshes:  apiclient.NewRefreshGroup(apiclient.DefaultRotationGrace),
	}
	for _, opt := range opts {
		opt(s)
	}

	if config.GetBreakerEnabled() {
		httpClient := *s.httpClient
		httpClient.Transport = apiclient.NewBreakerTransport(httpClient.Transport, apiclient.DefaultBreakerConfig())
		s.httpClient = &httpClient
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
}

func colouredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
