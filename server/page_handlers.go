package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-viaticos-session/apiclient"
	"github.com/jrsteele09/go-viaticos-session/apimodel"
	"github.com/jrsteele09/go-viaticos-session/sessions"
	"github.com/rs/zerolog/log"
)

// sessionSummary is the model every guarded page renders from.
type sessionSummary struct {
	Page        string                `json:"page"`
	User        *sessions.UserProfile `json:"user,omitempty"`
	TenantID    string                `json:"tenant_id,omitempty"`
	Roles       []string              `json:"roles,omitempty"`
	Permissions []string              `json:"permissions,omitempty"`
	ExpiresAt   time.Time             `json:"expires_at"`
}

type expensesPage struct {
	sessionSummary
	Expenses json.RawMessage `json:"expenses"`
}

func summarise(page string, sess *requestSession) sessionSummary {
	summary := sessionSummary{Page: page}
	summary.User, _ = sess.auth.CurrentUser()
	if claims, ok := sess.store.Claims(); ok {
		summary.TenantID = claims.TenantID
		summary.Roles = claims.Roles()
		summary.Permissions = claims.Permissions()
		summary.ExpiresAt = claims.Expiry()
	}
	return summary
}

// PageHandler renders a guarded page from the session alone.
func (s *Server) PageHandler(page string) http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		writeOK(w, "", summarise(page, sess))
	})
}

// ExpensesPageHandler loads the tenant's expenses through the authenticated client, so an
// expiring token is refreshed and the new cookies go out with the page.
func (s *Server) ExpensesPageHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		var resp apimodel.Response[json.RawMessage]
		if err := sess.client.Get(r.Context(), apimodel.RouteExpenses, &resp); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeOK(w, "", expensesPage{sessionSummary: summarise(RouteExpenses, sess), Expenses: resp.Data})
	})
}

// APIProxyHandler forwards client-side calls to the backend with the session's bearer token.
// The backend's JSON is passed through unchanged.
func (s *Server) APIProxyHandler() http.HandlerFunc {
	return s.sessionHandler(func(w http.ResponseWriter, r *http.Request, sess *requestSession) {
		path := "/" + strings.TrimPrefix(r.PathValue("path"), "/")
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}

		var body any
		if r.Body != nil {
			data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				s.writeError(w, r, errMalformedBody)
				return
			}
			if len(data) > 0 {
				if !json.Valid(data) {
					s.writeError(w, r, errMalformedBody)
					return
				}
				body = json.RawMessage(data)
			}
		}

		req := apiclient.Request{Method: r.Method, Path: path, Body: body}
		if requestID := r.Header.Get(apiclient.RequestIDHeader); requestID != "" {
			req.Header = http.Header{apiclient.RequestIDHeader: []string{requestID}}
		}

		var out json.RawMessage
		if err := sess.client.Do(r.Context(), req, &out); err != nil {
			s.writeError(w, r, err)
			return
		}
		if len(out) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(out); err != nil {
			log.Err(err).Str("path", path).Msg("failed to write proxied response")
		}
	})
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
