package sessions_test

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-viaticos-session/internal/backendfake"
	"github.com/jrsteele09/go-viaticos-session/sessions"
	"github.com/jrsteele09/go-viaticos-session/token"
	"github.com/stretchr/testify/require"
)

const testSiteURL = "http://app.misviaticos.test"

// testFixture holds a store and direct handles on both of its mediums
type testFixture struct {
	memory *sessions.MemoryMedium
	jar    *sessions.JarMedium
	store  *sessions.Store
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	cookies, err := cookiejar.New(nil)
	require.NoError(t, err)
	jar, err := sessions.NewJarMedium(cookies, testSiteURL, sessions.DefaultCookieOptions())
	require.NoError(t, err)

	memory := sessions.NewMemoryMedium()
	return &testFixture{
		memory: memory,
		jar:    jar,
		store:  sessions.NewStore(memory, jar),
	}
}

func validAccessToken(tenantID string) string {
	return backendfake.Mint(backendfake.TokenSpec{
		UserID:   "user-1",
		TenantID: tenantID,
		Expires:  time.Now().Add(time.Hour),
	})
}

func refreshTokenFor() string {
	return backendfake.Mint(backendfake.TokenSpec{
		UserID:  "user-1",
		Type:    token.TypeRefresh,
		Expires: time.Now().Add(7 * 24 * time.Hour),
	})
}

func TestStore_SetTokensRoundTrip(t *testing.T) {
	f := setupTestFixture(t)
	access, refresh := validAccessToken(""), refreshTokenFor()

	f.store.SetTokens(access, refresh)

	t.Run("primary read", func(t *testing.T) {
		got, ok := f.store.AccessToken()
		require.True(t, ok)
		require.Equal(t, access, got)
		got, ok = f.store.RefreshToken()
		require.True(t, ok)
		require.Equal(t, refresh, got)
	})

	t.Run("both mediums hold the pair", func(t *testing.T) {
		for _, m := range []sessions.Medium{f.memory, f.jar} {
			got, ok := m.Get(sessions.KeyAccessToken)
			require.True(t, ok)
			require.Equal(t, access, got)
			got, ok = m.Get(sessions.KeyRefreshToken)
			require.True(t, ok)
			require.Equal(t, refresh, got)
		}
	})

	t.Run("fallback read", func(t *testing.T) {
		require.NoError(t, f.memory.Delete(sessions.KeyAccessToken))
		require.NoError(t, f.memory.Delete(sessions.KeyRefreshToken))

		got, ok := f.store.AccessToken()
		require.True(t, ok)
		require.Equal(t, access, got)
		got, ok = f.store.RefreshToken()
		require.True(t, ok)
		require.Equal(t, refresh, got)
	})
}

func TestStore_Clear(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NotPanics(t, f.store.Clear)
		require.Zero(t, f.memory.Len())
		_, ok := f.store.AccessToken()
		require.False(t, ok)
	})

	t.Run("removes everything from both mediums", func(t *testing.T) {
		f := setupTestFixture(t)
		f.store.SetTokens(validAccessToken("t-1"), refreshTokenFor())
		f.store.SetUserProfile(sessions.UserProfile{ID: "user-1", Email: "ana@example.com"})

		f.store.Clear()
		f.store.Clear()

		require.Zero(t, f.memory.Len())
		for _, key := range sessions.Keys {
			_, ok := f.jar.Get(key)
			require.False(t, ok, key)
		}
		require.False(t, f.store.IsAuthenticated())
		_, ok := f.store.UserProfile()
		require.False(t, ok)
	})
}

func TestStore_UserProfile(t *testing.T) {
	t.Run("round trip through the cookie medium", func(t *testing.T) {
		f := setupTestFixture(t)
		f.store.SetTokens(validAccessToken(""), refreshTokenFor())
		profile := sessions.UserProfile{ID: "user-1", FullName: "Ana Pérez, CFO", Email: "ana@example.com", IsActive: true}

		f.store.SetUserProfile(profile)
		require.NoError(t, f.memory.Delete(sessions.KeyUserProfile))

		got, ok := f.store.UserProfile()
		require.True(t, ok)
		require.Equal(t, profile, *got)
		require.Equal(t, "Ana Pérez, CFO", got.DisplayName())
	})

	t.Run("malformed data", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.memory.Set(sessions.KeyUserProfile, "{not json", 0))

		got, ok := f.store.UserProfile()
		require.False(t, ok)
		require.Nil(t, got)
	})

	t.Run("missing", func(t *testing.T) {
		f := setupTestFixture(t)
		_, ok := f.store.UserProfile()
		require.False(t, ok)
	})
}

func TestStore_TenantClaim(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		f := setupTestFixture(t)
		require.False(t, f.store.HasTenantClaim())
		_, ok := f.store.TenantClaim()
		require.False(t, ok)
	})

	t.Run("fresh login without tenant", func(t *testing.T) {
		f := setupTestFixture(t)
		f.store.SetTokens(validAccessToken(""), refreshTokenFor())
		require.True(t, f.store.IsAuthenticated())
		require.False(t, f.store.HasTenantClaim())
	})

	t.Run("after tenant selection", func(t *testing.T) {
		f := setupTestFixture(t)
		f.store.SetTokens(validAccessToken("t-123"), refreshTokenFor())
		require.True(t, f.store.HasTenantClaim())
		tenantID, ok := f.store.TenantClaim()
		require.True(t, ok)
		require.Equal(t, "t-123", tenantID)
	})
}

func TestStore_MalformedToken(t *testing.T) {
	f := setupTestFixture(t)

	require.NotPanics(t, func() {
		f.store.SetTokens("not-a-jwt", "also-not-a-jwt")
	})

	got, ok := f.store.AccessToken()
	require.True(t, ok)
	require.Equal(t, "not-a-jwt", got)
	require.False(t, f.store.IsAuthenticated())
	require.False(t, f.store.HasTenantClaim())
	_, ok = f.store.Claims()
	require.False(t, ok)
}

func TestStore_ExpiredToken(t *testing.T) {
	f := setupTestFixture(t)
	expired := backendfake.Mint(backendfake.TokenSpec{UserID: "user-1", Expires: time.Now().Add(30 * time.Second)})

	f.store.SetTokens(expired, refreshTokenFor())

	require.False(t, f.store.IsAuthenticated())
	_, ok := f.store.AccessToken()
	require.True(t, ok)
}

func TestStore_Token(t *testing.T) {
	f := setupTestFixture(t)
	require.Nil(t, f.store.Token())

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := backendfake.Mint(backendfake.TokenSpec{UserID: "user-1", Expires: exp})
	refresh := refreshTokenFor()
	f.store.SetTokens(access, refresh)

	tok := f.store.Token()
	require.NotNil(t, tok)
	require.Equal(t, access, tok.AccessToken)
	require.Equal(t, refresh, tok.RefreshToken)
	require.Equal(t, "Bearer", tok.Type())
	require.True(t, tok.Expiry.Equal(exp))
}

func TestStore_CookieMaxAge(t *testing.T) {
	t.Run("matches the access token expiry", func(t *testing.T) {
		rec := httptest.NewRecorder()
		medium := sessions.NewHTTPCookieMedium(rec, httptest.NewRequest(http.MethodGet, "/", nil), sessions.DefaultCookieOptions())
		store := sessions.NewStore(sessions.NewMemoryMedium(), medium)

		store.SetTokens(backendfake.Mint(backendfake.TokenSpec{UserID: "user-1", Expires: time.Now().Add(time.Hour)}), refreshTokenFor())

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 2)
		for _, c := range cookies {
			require.InDelta(t, 3600, c.MaxAge, 5)
			require.Equal(t, "/", c.Path)
			require.Equal(t, http.SameSiteLaxMode, c.SameSite)
		}
	})

	t.Run("defaults to seven days when undecodable", func(t *testing.T) {
		rec := httptest.NewRecorder()
		medium := sessions.NewHTTPCookieMedium(rec, httptest.NewRequest(http.MethodGet, "/", nil), sessions.DefaultCookieOptions())
		store := sessions.NewStore(sessions.NewMemoryMedium(), medium)

		store.SetTokens("opaque", "opaque-refresh")

		for _, c := range rec.Result().Cookies() {
			require.Equal(t, int(sessions.DefaultMaxAge/time.Second), c.MaxAge)
		}
	})
}
