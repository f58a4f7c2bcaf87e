// Package apiclient is the authenticated request client for the viáticos REST backend.
//
// Every call reads its bearer token from a sessions.Store. Tokens inside the expiry margin
// are refreshed before the call, a 401 forces one refresh and one retry, and concurrent
// callers share a single refresh call. When the session cannot continue the store is
// cleared, the Redirector is told why, and the call returns a *RedirectError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-viaticos-session/apimodel"
	viaticoserrors "github.com/jrsteele09/go-viaticos-session/internal/errors"
	"github.com/jrsteele09/go-viaticos-session/sessions"
	"github.com/jrsteele09/go-viaticos-session/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	DefaultTimeout  = 30 * time.Second
	RequestIDHeader = "X-Request-ID"
)

// Redirector sends the user to the login entry point. Implementations must not block.
type Redirector interface {
	Redirect(reason RedirectReason)
}

// RedirectFunc adapts a function to Redirector.
type RedirectFunc func(reason RedirectReason)

func (f RedirectFunc) Redirect(reason RedirectReason) {
	f(reason)
}

// Client issues authenticated calls on behalf of one session.
type Client struct {
	baseURL    string
	store      *sessions.Store
	httpClient *http.Client
	timeout    time.Duration
	breaker    *BreakerConfig
	redirector Redirector

	refreshGroup *RefreshGroup
	refreshing   atomic.Int32

	fetchMu  sync.Mutex
	inflight map[string]*fetchCall
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout bounds every outbound call, refreshes included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithRedirector(r Redirector) Option {
	return func(c *Client) {
		c.redirector = r
	}
}

// WithRefreshGroup shares refreshes with other clients of the same session, such as the
// per-request clients of a web server.
func WithRefreshGroup(g *RefreshGroup) Option {
	return func(c *Client) {
		if g != nil {
			c.refreshGroup = g
		}
	}
}

// WithCircuitBreaker puts a circuit breaker in front of the backend. While it is open calls
// fail fast with a *TransportError wrapping ErrCircuitOpen.
func WithCircuitBreaker(cfg BreakerConfig) Option {
	return func(c *Client) {
		c.breaker = &cfg
	}
}

// New creates a client for the backend at baseURL that reads and writes tokens through store.
func New(baseURL string, store *sessions.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      store,
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		inflight:   make(map[string]*fetchCall),
	}
	c.refreshGroup = NewRefreshGroup(DefaultRotationGrace)
	for _, opt := range opts {
		opt(c)
	}

	httpClient := *c.httpClient
	httpClient.Timeout = c.timeout
	if c.breaker != nil {
		httpClient.Transport = NewBreakerTransport(httpClient.Transport, *c.breaker)
	}
	c.httpClient = &httpClient
	return c
}

// Store returns the session store the client reads tokens from.
func (c *Client) Store() *sessions.Store {
	return c.store
}

// Request describes one backend call. Path is joined to the base URL unless it is absolute.
type Request struct {
	Method   string
	Path     string
	Body     any
	Header   http.Header
	SkipAuth bool
}

type RequestOption func(*Request)

// SkipAuth sends the request without a bearer token and without the refresh flow.
func SkipAuth() RequestOption {
	return func(r *Request) {
		r.SkipAuth = true
	}
}

// WithHeader sets a request header, overriding the defaults.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = make(http.Header)
		}
		r.Header.Set(key, value)
	}
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, newRequest(http.MethodGet, path, nil, opts), out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, newRequest(http.MethodPost, path, body, opts), out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, newRequest(http.MethodPut, path, body, opts), out)
}

func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, newRequest(http.MethodDelete, path, nil, opts), out)
}

func newRequest(method, path string, body any, opts []RequestOption) Request {
	req := Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// Do sends req and decodes a successful JSON response into out (which may be nil).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	var tok *oauth2.Token
	if !req.SkipAuth {
		var err error
		if tok, err = c.validToken(ctx); err != nil {
			return err
		}
	}

	resp, err := c.send(ctx, req, tok)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.SkipAuth {
		discard(resp)
		log.Debug().Str("path", req.Path).Msg("apiclient: 401 received, refreshing token")

		if tok, err = c.refresh(ctx, tok.AccessToken); err != nil {
			return err
		}
		if resp, err = c.send(ctx, req, tok); err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			discard(resp)
			log.Warn().Str("path", req.Path).Msg("apiclient: 401 after refresh, ending session")
			return c.endSession(ReasonUnauthorized, viaticoserrors.ErrUnauthorized)
		}
	}

	return decodeResponse(resp, out)
}

// validToken is the refresh-aware token getter.
func (c *Client) validToken(ctx context.Context) (*oauth2.Token, error) {
	accessToken, ok := c.store.AccessToken()
	if !ok {
		c.redirect(ReasonNoToken)
		return nil, &RedirectError{Reason: ReasonNoToken}
	}
	if !token.IsExpired(accessToken) {
		refreshToken, _ := c.store.RefreshToken()
		return sessions.NewToken(accessToken, refreshToken), nil
	}
	return c.refresh(ctx, accessToken)
}

func (c *Client) send(ctx context.Context, req Request, tok *oauth2.Token) (*http.Response, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, viaticoserrors.Wrapf(viaticoserrors.ErrInvalidRequest, "encode %s %s body: %v", req.Method, req.Path, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req.Path), body)
	if err != nil {
		return nil, viaticoserrors.Wrapf(viaticoserrors.ErrInvalidRequest, "build %s %s: %v", req.Method, req.Path, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for key, values := range req.Header {
		httpReq.Header[http.CanonicalHeaderKey(key)] = values
	}
	if tok != nil {
		tok.SetAuthHeader(httpReq)
	}
	if httpReq.Header.Get(RequestIDHeader) == "" {
		httpReq.Header.Set(RequestIDHeader, uuid.New().String())
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		requestsTotal.WithLabelValues(req.Method, statusClass(0)).Inc()
		log.Err(err).Str("method", req.Method).Str("path", req.Path).Msg("apiclient: request failed")
		return nil, &TransportError{Op: req.Method + " " + req.Path, Err: err}
	}
	requestsTotal.WithLabelValues(req.Method, statusClass(resp.StatusCode)).Inc()
	return resp, nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// endSession clears the store, tells the redirector and returns the error that unwinds the call.
func (c *Client) endSession(reason RedirectReason, cause error) error {
	c.store.Clear()
	c.redirect(reason)
	return &RedirectError{Reason: reason, Err: cause}
}

func (c *Client) redirect(reason RedirectReason) {
	if c.redirector != nil {
		c.redirector.Redirect(reason)
	}
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return viaticoserrors.Wrapf(viaticoserrors.ErrMalformedResponse, "decode response: %v", err)
	}
	return nil
}

func parseAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{Status: status, Code: "UNKNOWN_ERROR"}

	var envelope apimodel.ErrorResponse
	if len(data) > 0 && json.Unmarshal(data, &envelope) == nil {
		apiErr.Message = envelope.Message
		apiErr.Fields = envelope.Data
		if envelope.Error != "" {
			apiErr.Code = envelope.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("HTTP %d", status)
	}
	return apiErr
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
