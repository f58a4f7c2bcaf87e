package guard

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-viaticos-session/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var decisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "guard_decisions_total",
		Help: "Route guard decisions by action and reason",
	},
	[]string{"action", "reason"},
)

func init() {
	prometheus.MustRegister(decisionsTotal)
}

var (
	skippedPrefixes = []string{"/api/", "/static/", "/_next/static", "/_next/image", "/favicon.ico", "/icon-mv"}
	skippedSuffixes = []string{".svg", ".png", ".jpg"}
)

// Guard applies a Config to incoming requests.
type Guard struct {
	config  Config
	cookies sessions.CookieOptions
}

// New creates a guard. cookies must match the options the session cookies were written with,
// otherwise the browser keeps them when the guard clears the session.
func New(cfg Config, cookies sessions.CookieOptions) *Guard {
	return &Guard{config: cfg, cookies: cookies}
}

// Middleware runs the guard before next.
func (g *Guard) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if skipped(path) {
			next(w, r)
			return
		}

		cookies := sessions.NewHTTPCookieMedium(w, r, g.cookies)
		rawToken, present := cookies.Get(sessions.KeyAccessToken)

		decision := g.config.Evaluate(path, rawToken, present)
		decisionsTotal.WithLabelValues(string(decision.Action), decision.Reason).Inc()

		if decision.Action == Continue {
			next(w, r)
			return
		}

		if decision.ClearSession {
			sessions.NewStore(nil, cookies).Clear()
		}
		log.Debug().Str("path", path).Str("location", decision.Location).Str("reason", decision.Reason).Msg("guard redirect")
		http.Redirect(w, r, decision.Location, http.StatusSeeOther)
	}
}

func skipped(path string) bool {
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	for _, suffix := range skippedSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}
