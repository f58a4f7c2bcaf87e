package token_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-viaticos-session/token"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func signToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func accessClaims(exp time.Time) jwtlib.MapClaims {
	return jwtlib.MapClaims{
		"user_id": "user-1",
		"type":    token.TypeAccess,
		"iat":     fixedNow.Add(-time.Minute).Unix(),
		"exp":     exp.Unix(),
		"iss":     "misviaticos",
	}
}

func withFixedNow(t *testing.T) {
	t.Helper()
	previous := token.NowTimeFunc
	token.NowTimeFunc = func() time.Time { return fixedNow }
	t.Cleanup(func() { token.NowTimeFunc = previous })
}

func TestDecode(t *testing.T) {
	t.Run("valid access token", func(t *testing.T) {
		claims := accessClaims(fixedNow.Add(time.Hour))
		claims["tenant_id"] = "t-123"
		claims["roles"] = []any{"admin", map[string]any{"id": 7}}
		claims["permissions"] = []string{"expenses:read"}

		c, ok := token.Decode(signToken(t, claims))
		require.True(t, ok)
		require.Equal(t, "user-1", c.UserID)
		require.Equal(t, "t-123", c.TenantID)
		require.Equal(t, token.TypeAccess, c.Type)
		require.Equal(t, "misviaticos", c.Issuer)
		require.Equal(t, fixedNow.Add(time.Hour).Unix(), c.Expiry().Unix())
		require.True(t, c.HasTenant())
		require.Equal(t, []string{"admin"}, c.Roles())
		require.Equal(t, []string{"expenses:read"}, c.Permissions())
	})

	t.Run("not a jwt", func(t *testing.T) {
		c, ok := token.Decode("not-a-jwt")
		require.False(t, ok)
		require.Nil(t, c)
	})

	t.Run("two segments", func(t *testing.T) {
		_, ok := token.Decode("aGVhZGVy.cGF5bG9hZA")
		require.False(t, ok)
	})

	t.Run("payload is not json", func(t *testing.T) {
		header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
		payload := base64.RawURLEncoding.EncodeToString([]byte(`not json`))
		_, ok := token.Decode(header + "." + payload + ".sig")
		require.False(t, ok)
	})

	t.Run("missing required claims", func(t *testing.T) {
		for _, missing := range []string{"user_id", "type", "iat", "exp"} {
			claims := accessClaims(fixedNow.Add(time.Hour))
			delete(claims, missing)
			_, ok := token.Decode(signToken(t, claims))
			require.False(t, ok, "decode should fail without %s", missing)
		}
	})

	t.Run("signature is not checked", func(t *testing.T) {
		raw := signToken(t, accessClaims(fixedNow.Add(time.Hour)))
		_, ok := token.Decode(raw[:len(raw)-4] + "AAAA")
		require.True(t, ok)
	})

	t.Run("header alg is ignored", func(t *testing.T) {
		payload, err := json.Marshal(accessClaims(fixedNow.Add(time.Hour)))
		require.NoError(t, err)
		body := base64.RawURLEncoding.EncodeToString(payload)

		for _, header := range []string{`{}`, `{"alg":"ES999"}`, `{"typ":"JWT"}`} {
			raw := base64.RawURLEncoding.EncodeToString([]byte(header)) + "." + body + ".sig"
			c, ok := token.Decode(raw)
			require.True(t, ok, "decode should accept header %s", header)
			require.Equal(t, "user-1", c.UserID)
		}
	})

	t.Run("empty tenant is no tenant", func(t *testing.T) {
		claims := accessClaims(fixedNow.Add(time.Hour))
		claims["tenant_id"] = ""
		c, ok := token.Decode(signToken(t, claims))
		require.True(t, ok)
		require.False(t, c.HasTenant())
	})
}

func TestIsExpired(t *testing.T) {
	withFixedNow(t)

	t.Run("inside the safety margin", func(t *testing.T) {
		require.True(t, token.IsExpired(signToken(t, accessClaims(fixedNow.Add(30*time.Second)))))
	})

	t.Run("outside the safety margin", func(t *testing.T) {
		require.False(t, token.IsExpired(signToken(t, accessClaims(fixedNow.Add(90*time.Second)))))
	})

	t.Run("already expired", func(t *testing.T) {
		require.True(t, token.IsExpired(signToken(t, accessClaims(fixedNow.Add(-time.Hour)))))
	})

	t.Run("undecodable", func(t *testing.T) {
		require.True(t, token.IsExpired("not-a-jwt"))
	})
}

func TestClaims_Lifetime(t *testing.T) {
	c, ok := token.Decode(signToken(t, accessClaims(fixedNow.Add(2*time.Hour))))
	require.True(t, ok)
	require.Equal(t, 2*time.Hour, c.Lifetime(fixedNow))
	require.False(t, c.Expired(fixedNow, 0))
	require.True(t, c.Expired(fixedNow.Add(3*time.Hour), 0))
}
