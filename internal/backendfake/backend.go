package backendfake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-viaticos-session/apimodel"
	"github.com/jrsteele09/go-viaticos-session/sessions"
	"github.com/jrsteele09/go-viaticos-session/token"
)

const (
	DefaultSecret = "backendfake-secret"
	DefaultIssuer = "misviaticos-api"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Backend is an in-process stand-in for the viáticos REST API. It signs real HS256 tokens,
// verifies bearer tokens on protected routes and counts refresh calls.
type Backend struct {
	Server *httptest.Server
	mux    *http.ServeMux

	secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// RefreshDelay holds every refresh response, widening the window in which concurrent
	// callers can pile up behind one refresh.
	RefreshDelay time.Duration

	refreshCalls  atomic.Int32
	resourceCalls atomic.Int32

	mu            sync.Mutex
	users         map[string]*user // email -> user
	tenants       map[string]apimodel.Tenant
	refreshTokens map[string]refreshRecord
	revoked       map[string]struct{} // access tokens rejected before exp
	rejectRefresh bool
}

type user struct {
	password  string
	profile   sessions.UserProfile
	tenantIDs []string
}

type refreshRecord struct {
	userID   string
	tenantID string
	expires  time.Time
}

// New starts a fake backend. Call Close when done.
func New() *Backend {
	b := &Backend{
		mux:           http.NewServeMux(),
		secret:        []byte(DefaultSecret),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		users:         make(map[string]*user),
		tenants:       make(map[string]apimodel.Tenant),
		refreshTokens: make(map[string]refreshRecord),
		revoked:       make(map[string]struct{}),
	}
	b.routes()
	b.Server = httptest.NewServer(b.mux)
	return b
}

// URL is the API base URL of the fake.
func (b *Backend) URL() string {
	return b.Server.URL
}

func (b *Backend) Close() {
	b.Server.Close()
}

// Handle registers an extra route, e.g. a resource with scripted responses.
func (b *Backend) Handle(pattern string, handler http.HandlerFunc) {
	b.mux.HandleFunc(pattern, handler)
}

// RefreshCalls is the number of POST /auth/refresh requests received.
func (b *Backend) RefreshCalls() int {
	return int(b.refreshCalls.Load())
}

// ResourceCalls is the number of requests received by the built-in resource routes.
func (b *Backend) ResourceCalls() int {
	return int(b.resourceCalls.Load())
}

// AddUser registers a user who can log in. tenantIDs must already exist.
func (b *Backend) AddUser(profile sessions.UserProfile, password string, tenantIDs ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	b.users[strings.ToLower(profile.Email)] = &user{password: password, profile: profile, tenantIDs: tenantIDs}
}

// AddTenant registers a tenant.
func (b *Backend) AddTenant(tenant apimodel.Tenant) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tenant.Status == "" {
		tenant.Status = "active"
	}
	b.tenants[tenant.ID] = tenant
}

// RevokeAccessToken makes the backend answer 401 to raw even though it has not expired.
func (b *Backend) RevokeAccessToken(raw string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[raw] = struct{}{}
}

// RejectRefresh makes every refresh call answer 401, as for a revoked refresh token.
func (b *Backend) RejectRefresh(reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectRefresh = reject
}

// AccessToken mints an access token signed by this backend.
func (b *Backend) AccessToken(userID, tenantID string, exp time.Time) string {
	return MintToken(b.secret, TokenSpec{UserID: userID, TenantID: tenantID, Type: token.TypeAccess, Expires: exp})
}

// IssuePair mints and registers a token pair for userID.
func (b *Backend) IssuePair(userID, tenantID string) (access, refresh string) {
	now := NowTimeFunc()
	access = b.AccessToken(userID, tenantID, now.Add(b.AccessTTL))
	refresh = MintToken(b.secret, TokenSpec{UserID: userID, TenantID: tenantID, Type: token.TypeRefresh, Expires: now.Add(b.RefreshTTL)})

	b.mu.Lock()
	b.refreshTokens[refresh] = refreshRecord{userID: userID, tenantID: tenantID, expires: now.Add(b.RefreshTTL)}
	b.mu.Unlock()
	return access, refresh
}

// TokenSpec describes a token to mint.
type TokenSpec struct {
	UserID   string
	TenantID string
	Type     string
	IssuedAt time.Time
	Expires  time.Time
	Roles    []string
}

// MintToken signs an HS256 token with the claims the viáticos backend emits.
func MintToken(secret []byte, ts TokenSpec) string {
	iat := ts.IssuedAt
	if iat.IsZero() {
		iat = NowTimeFunc()
	}
	if ts.Type == "" {
		ts.Type = token.TypeAccess
	}
	claims := jwtlib.MapClaims{
		"user_id": ts.UserID,
		"type":    ts.Type,
		"iat":     iat.Unix(),
		"exp":     ts.Expires.Unix(),
		"iss":     DefaultIssuer,
		"jti":     uuid.New().String(),
	}
	if ts.TenantID != "" {
		claims["tenant_id"] = ts.TenantID
	}
	if len(ts.Roles) > 0 {
		claims["roles"] = ts.Roles
	}
	raw, err := NewHMACSigner(secret).Sign(claims)
	if err != nil {
		panic("backendfake: failed to sign token: " + err.Error())
	}
	return raw
}

// Mint signs a token with DefaultSecret.
func Mint(ts TokenSpec) string {
	return MintToken([]byte(DefaultSecret), ts)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK[T any](w http.ResponseWriter, status int, message string, data T) {
	writeJSON(w, status, apimodel.Response[T]{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string, fields ...apimodel.FieldError) {
	writeJSON(w, status, apimodel.ErrorResponse{Success: false, Message: message, Error: code, Data: fields})
}
