package apiclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/go-viaticos-session/apimodel"
	viaticoserrors "github.com/jrsteele09/go-viaticos-session/internal/errors"
	"github.com/jrsteele09/go-viaticos-session/sessions"
	"github.com/jrsteele09/go-viaticos-session/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// DefaultRotationGrace is how long a rotated refresh token still resolves to its replacement.
const DefaultRotationGrace = 30 * time.Second

// TokenState is where the session's access token is in its lifecycle.
type TokenState string

const (
	StateValid      TokenState = "VALID"
	StateExpiring   TokenState = "EXPIRING"
	StateRefreshing TokenState = "REFRESHING"
	StateInvalid    TokenState = "INVALID"
)

// State reports the current token state. A cleared or undecodable session is INVALID.
func (c *Client) State() TokenState {
	if c.refreshing.Load() > 0 {
		return StateRefreshing
	}
	accessToken, ok := c.store.AccessToken()
	if !ok {
		return StateInvalid
	}
	if _, ok := token.Decode(accessToken); !ok {
		return StateInvalid
	}
	if token.IsExpired(accessToken) {
		return StateExpiring
	}
	return StateValid
}

// refresh exchanges the refresh token for a new pair. stale is the access token the caller
// found unusable; a caller that finds it already replaced in the store reuses the stored token.
func (c *Client) refresh(ctx context.Context, stale string) (*oauth2.Token, error) {
	if current, ok := c.store.AccessToken(); ok && current != stale && !token.IsExpired(current) {
		refreshTotal.WithLabelValues(refreshReused).Inc()
		refreshToken, _ := c.store.RefreshToken()
		return sessions.NewToken(current, refreshToken), nil
	}
	refreshToken, ok := c.store.RefreshToken()
	if !ok {
		return nil, c.refreshFailed(viaticoserrors.ErrNoRefreshToken)
	}

	c.refreshing.Add(1)
	defer c.refreshing.Add(-1)

	tok, err := c.refreshGroup.do(ctx, refreshToken, c.exchange)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &TransportError{Op: "refresh", Err: ctx.Err()}
		}
		return nil, c.refreshFailed(err)
	}
	c.store.SetTokens(tok.AccessToken, tok.RefreshToken)
	return tok, nil
}

// exchange posts refreshToken to the backend and returns the pair it issues.
func (c *Client) exchange(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	resp, err := c.send(ctx, Request{
		Method:   http.MethodPost,
		Path:     apimodel.RouteAuthRefresh,
		Body:     apimodel.RefreshRequest{RefreshToken: refreshToken},
		SkipAuth: true,
	}, nil)
	if err != nil {
		return nil, err
	}

	var body apimodel.Response[apimodel.RefreshData]
	if err := decodeResponse(resp, &body); err != nil {
		return nil, err
	}
	if body.Data.AccessToken == "" {
		return nil, viaticoserrors.ErrInvalidRefreshResponse
	}

	next := body.Data.RefreshToken
	if next == "" {
		next = refreshToken
	}
	log.Debug().Msg("apiclient: token refreshed")
	return sessions.NewToken(body.Data.AccessToken, next), nil
}

func (c *Client) refreshFailed(cause error) error {
	refreshTotal.WithLabelValues(refreshFailure).Inc()
	log.Err(cause).Msg("apiclient: token refresh failed, ending session")
	return c.endSession(ReasonSessionExpired, cause)
}

// RefreshGroup runs at most one refresh per refresh token at a time and shares the result
// with every client waiting on it. Once a refresh rotates a token, a client still presenting
// the old token within the grace period gets the pair that replaced it instead of sending a
// refresh the backend would reject.
type RefreshGroup struct {
	flight singleflight.Group
	grace  time.Duration

	mu      sync.Mutex
	rotated map[string]rotation
}

type rotation struct {
	token *oauth2.Token
	at    time.Time
}

func NewRefreshGroup(grace time.Duration) *RefreshGroup {
	return &RefreshGroup{grace: grace, rotated: make(map[string]rotation)}
}

func (g *RefreshGroup) do(ctx context.Context, refreshToken string, exchange func(context.Context, string) (*oauth2.Token, error)) (*oauth2.Token, error) {
	if tok, ok := g.replacement(refreshToken); ok {
		return tok, nil
	}

	ch := g.flight.DoChan(refreshToken, func() (any, error) {
		if tok, ok := g.replacement(refreshToken); ok {
			return tok, nil
		}
		// The shared call outlives any one caller's cancellation.
		tok, err := exchange(context.WithoutCancel(ctx), refreshToken)
		if err != nil {
			return nil, err
		}
		refreshTotal.WithLabelValues(refreshSuccess).Inc()
		g.remember(refreshToken, tok)
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		tok := *res.Val.(*oauth2.Token)
		return &tok, nil
	}
}

// replacement returns the unexpired pair that replaced refreshToken within the grace period.
func (g *RefreshGroup) replacement(refreshToken string) (*oauth2.Token, bool) {
	g.mu.Lock()
	r, ok := g.rotated[refreshToken]
	g.mu.Unlock()

	if !ok || time.Since(r.at) > g.grace || token.IsExpired(r.token.AccessToken) {
		return nil, false
	}
	refreshTotal.WithLabelValues(refreshReused).Inc()
	tok := *r.token
	return &tok, true
}

func (g *RefreshGroup) remember(refreshToken string, tok *oauth2.Token) {
	if g.grace <= 0 || tok.RefreshToken == refreshToken {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	for key, r := range g.rotated {
		if now.Sub(r.at) > g.grace {
			delete(g.rotated, key)
		}
	}
	g.rotated[refreshToken] = rotation{token: tok, at: now}
}

// TokenSource exposes the refresh-aware getter to code that speaks oauth2.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSource{ctx: ctx, client: c}
}

type tokenSource struct {
	ctx    context.Context
	client *Client
}

func (s tokenSource) Token() (*oauth2.Token, error) {
	return s.client.validToken(s.ctx)
}
