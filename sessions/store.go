package sessions

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jrsteele09/go-viaticos-session/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultMaxAge is the guard-readable lifetime used when the access token expiry cannot be read.
const DefaultMaxAge = 7 * 24 * time.Hour

// Store is the single source of truth for one user's session. It writes every value to a
// client-only medium and to a guard-readable medium, and reads the client-only medium first.
//
// Store never returns errors: a value that cannot be read or decoded is reported as absent,
// and callers treat absence as the normal unauthenticated path.
type Store struct {
	mu            sync.RWMutex
	primary       Medium
	fallback      Medium
	defaultMaxAge time.Duration
}

type StoreOption func(*Store)

// WithDefaultMaxAge overrides DefaultMaxAge.
func WithDefaultMaxAge(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.defaultMaxAge = d
		}
	}
}

// NewStore composes the client-only medium (primary) and the guard-readable medium (fallback).
func NewStore(primary, fallback Medium, opts ...StoreOption) *Store {
	s := &Store{
		primary:       primary,
		fallback:      fallback,
		defaultMaxAge: DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTokens replaces the token pair in both mediums. The guard-readable copy lives until the
// access token's "exp", or DefaultMaxAge when that cannot be read.
func (s *Store) SetTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxAge := s.maxAgeFor(accessToken)
	s.write(KeyAccessToken, accessToken, maxAge)
	s.write(KeyRefreshToken, refreshToken, maxAge)
}

// AccessToken returns the stored access token.
func (s *Store) AccessToken() (string, bool) {
	return s.read(KeyAccessToken)
}

// RefreshToken returns the stored refresh token.
func (s *Store) RefreshToken() (string, bool) {
	return s.read(KeyRefreshToken)
}

// SetUserProfile caches profile in both mediums.
func (s *Store) SetUserProfile(profile UserProfile) {
	data, err := json.Marshal(profile)
	if err != nil {
		log.Err(err).Msg("sessions: failed to encode user profile")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accessToken, _ := s.readLocked(KeyAccessToken)
	s.write(KeyUserProfile, string(data), s.maxAgeFor(accessToken))
}

// UserProfile returns the cached profile. Missing or malformed data reports false.
func (s *Store) UserProfile() (*UserProfile, bool) {
	data, ok := s.read(KeyUserProfile)
	if !ok {
		return nil, false
	}
	var profile UserProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil || profile.ID == "" {
		return nil, false
	}
	return &profile, true
}

// Clear removes the token pair and the profile from both mediums. It is safe on an empty store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range Keys {
		for _, m := range s.mediums() {
			if err := m.Delete(key); err != nil {
				log.Err(err).Str("key", key).Msg("sessions: failed to delete value")
			}
		}
	}
}

// Claims decodes the current access token without verifying it.
func (s *Store) Claims() (*token.Claims, bool) {
	accessToken, ok := s.AccessToken()
	if !ok {
		return nil, false
	}
	return token.Decode(accessToken)
}

// HasTenantClaim reports whether the current access token carries a tenant.
func (s *Store) HasTenantClaim() bool {
	claims, ok := s.Claims()
	return ok && claims.HasTenant()
}

// TenantClaim returns the tenant of the current access token.
func (s *Store) TenantClaim() (string, bool) {
	claims, ok := s.Claims()
	if !ok || !claims.HasTenant() {
		return "", false
	}
	return claims.TenantID, true
}

// IsAuthenticated reports whether an access token exists and is outside the expiry margin.
func (s *Store) IsAuthenticated() bool {
	accessToken, ok := s.AccessToken()
	if !ok {
		return false
	}
	return !token.IsExpired(accessToken)
}

// Token returns the stored pair as an oauth2.Token, or nil without an access token.
func (s *Store) Token() *oauth2.Token {
	accessToken, ok := s.AccessToken()
	if !ok {
		return nil
	}
	refreshToken, _ := s.RefreshToken()
	return NewToken(accessToken, refreshToken)
}

// NewToken builds the bearer oauth2.Token for a pair, with Expiry taken from the access token.
func NewToken(accessToken, refreshToken string) *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		RefreshToken: refreshToken,
	}
	if claims, ok := token.Decode(accessToken); ok {
		t.Expiry = claims.Expiry()
	}
	return t
}

func (s *Store) maxAgeFor(accessToken string) time.Duration {
	claims, ok := token.Decode(accessToken)
	if !ok {
		return s.defaultMaxAge
	}
	if lifetime := claims.Lifetime(token.NowTimeFunc()); lifetime > 0 {
		return lifetime
	}
	return s.defaultMaxAge
}

func (s *Store) read(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readLocked(key)
}

func (s *Store) readLocked(key string) (string, bool) {
	for _, m := range s.mediums() {
		if value, ok := m.Get(key); ok {
			return value, true
		}
	}
	return "", false
}

func (s *Store) write(key, value string, maxAge time.Duration) {
	for _, m := range s.mediums() {
		if err := m.Set(key, value, maxAge); err != nil {
			log.Err(err).Str("key", key).Msg("sessions: failed to write value")
		}
	}
}

func (s *Store) mediums() []Medium {
	mediums := make([]Medium, 0, 2)
	for _, m := range []Medium{s.primary, s.fallback} {
		if m != nil {
			mediums = append(mediums, m)
		}
	}
	return mediums
}
