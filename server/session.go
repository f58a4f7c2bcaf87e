package server

import (
	"net/http"

	"github.com/jrsteele09/go-viaticos-session/apiclient"
	"github.com/jrsteele09/go-viaticos-session/auth"
	"github.com/jrsteele09/go-viaticos-session/sessions"
	"github.com/jrsteele09/go-viaticos-session/tenants"
	"github.com/pkg/errors"
)

// requestSession is the session as seen by one request. Reads fall through the empty memory
// medium to the request cookies; writes go out as Set-Cookie headers, so they must happen
// before the handler writes the response.
type requestSession struct {
	store   *sessions.Store
	client  *apiclient.Client
	auth    *auth.Service
	tenants *tenants.Service
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*requestSession, error) {
	store := sessions.NewStore(
		sessions.NewMemoryMedium(),
		sessions.NewHTTPCookieMedium(w, r, s.cookies),
		sessions.WithDefaultMaxAge(s.config.GetDefaultCookieMaxAge()),
	)
	client := apiclient.New(s.apiBaseURL, store,
		apiclient.WithHTTPClient(s.httpClient),
		apiclient.WithTimeout(s.config.GetRequestTimeout()),
		apiclient.WithRefreshGroup(s.refreshes),
	)

	authService, err := auth.NewService(client)
	if err != nil {
		return nil, errors.Wrap(err, "[session] auth service")
	}
	tenantService, err := tenants.NewService(client)
	if err != nil {
		return nil, errors.Wrap(err, "[session] tenant service")
	}
	return &requestSession{store: store, client: client, auth: authService, tenants: tenantService}, nil
}

// sessionHandler builds the request session before calling handle.
func (s *Server) sessionHandler(handle func(http.ResponseWriter, *http.Request, *requestSession)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.session(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		handle(w, r, sess)
	}
}
