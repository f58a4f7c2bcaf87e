package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-viaticos-session/apimodel"
	"github.com/jrsteele09/go-viaticos-session/internal/backendfake"
	"github.com/jrsteele09/go-viaticos-session/internal/config"
	"github.com/jrsteele09/go-viaticos-session/server"
	"github.com/jrsteele09/go-viaticos-session/sessions"
	"github.com/stretchr/testify/require"
)

const (
	testUserID       = "user-1"
	testUserEmail    = "ana.perez@example.com"
	testUserPassword = "password123"
	testTenantID     = "t-123"
)

// testFixture holds all test dependencies
type testFixture struct {
	backend *backendfake.Backend
	server  *server.Server
	ts      *httptest.Server
	jar     *cookiejar.Jar
	client  *http.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("API_CIRCUIT_BREAKER", "false")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000")

	backend := backendfake.New()
	t.Cleanup(backend.Close)
	backend.AddTenant(apimodel.Tenant{ID: testTenantID, RUT: "76.123.456-7", BusinessName: "Empresa Demo"})
	backend.AddUser(sessions.UserProfile{ID: testUserID, FullName: "Ana Pérez", Email: testUserEmail}, testUserPassword, testTenantID)

	srv, err := server.New(config.New(), server.WithAPIBaseURL(backend.URL()))
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar:     jar,
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testFixture{backend: backend, server: srv, ts: ts, jar: jar, client: client}
}

func (f *testFixture) do(t *testing.T, method, path string, body io.Reader, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.ts.URL+path, body)
	require.NoError(t, err)
	for key, values := range header {
		req.Header[key] = values
	}
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *testFixture) get(t *testing.T, path string) *http.Response {
	return f.do(t, http.MethodGet, path, nil, nil)
}

func (f *testFixture) getJSON(t *testing.T, path string) *http.Response {
	return f.do(t, http.MethodGet, path, nil, http.Header{"Accept": {"application/json"}})
}

func (f *testFixture) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return f.do(t, http.MethodPost, path, strings.NewReader(string(data)), http.Header{
		"Content-Type": {"application/json"},
		"Accept":       {"application/json"},
	})
}

func (f *testFixture) login(t *testing.T) *http.Response {
	t.Helper()
	form := url.Values{"email": {testUserEmail}, "password": {testUserPassword}}
	return f.do(t, http.MethodPost, server.RouteAuthLogin, strings.NewReader(form.Encode()), http.Header{
		"Content-Type": {"application/x-www-form-urlencoded"},
	})
}

func (f *testFixture) selectTenant(t *testing.T) {
	t.Helper()
	resp := f.postJSON(t, "/tenant/select/"+testTenantID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (f *testFixture) cookie(t *testing.T, name string) (string, bool) {
	t.Helper()
	u, err := url.Parse(f.ts.URL)
	require.NoError(t, err)
	for _, c := range f.jar.Cookies(u) {
		if c.Name == name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

func (f *testFixture) setAccessCookie(t *testing.T, value string) {
	t.Helper()
	u, err := url.Parse(f.ts.URL)
	require.NoError(t, err)
	f.jar.SetCookies(u, []*http.Cookie{{Name: sessions.KeyAccessToken, Value: value, Path: "/"}})
}

func decodeData[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out apimodel.Response[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Data
}

func decodeError(t *testing.T, resp *http.Response) apimodel.ErrorResponse {
	t.Helper()
	var out apimodel.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type pageModel struct {
	Page     string `json:"page"`
	TenantID string `json:"tenant_id"`
	User     struct {
		ID string `json:"id"`
	} `json:"user"`
}

func TestLoginSelectTenantAndOpenDashboard(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.login(t)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/tenant/select", resp.Header.Get("Location"))
	_, ok := f.cookie(t, sessions.KeyAccessToken)
	require.True(t, ok)
	_, ok = f.cookie(t, sessions.KeyRefreshToken)
	require.True(t, ok)

	resp = f.get(t, "/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/tenant/select", resp.Header.Get("Location"))

	before, _ := f.cookie(t, sessions.KeyAccessToken)
	f.selectTenant(t)
	after, _ := f.cookie(t, sessions.KeyAccessToken)
	require.NotEqual(t, before, after)

	resp = f.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodeData[pageModel](t, resp)
	require.Equal(t, "/dashboard", page.Page)
	require.Equal(t, testTenantID, page.TenantID)
	require.Equal(t, testUserID, page.User.ID)
}

func TestLoginAsAPICaller(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("success", func(t *testing.T) {
		resp := f.postJSON(t, server.RouteAuthLogin, map[string]string{"email": testUserEmail, "password": testUserPassword})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		data := decodeData[struct {
			Next string `json:"next"`
		}](t, resp)
		require.Equal(t, "/tenant/select", data.Next)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := f.postJSON(t, server.RouteAuthLogin, map[string]string{"email": testUserEmail, "password": "nope"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		body := decodeError(t, resp)
		require.Equal(t, "INVALID_CREDENTIALS", body.Error)
		require.Equal(t, "Email o contraseña incorrectos", body.Message)
	})

	t.Run("missing email", func(t *testing.T) {
		resp := f.postJSON(t, server.RouteAuthLogin, map[string]string{"password": testUserPassword})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "VALIDATION_ERROR", decodeError(t, resp).Error)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, server.RouteAuthLogin, strings.NewReader("{"), http.Header{"Content-Type": {"application/json"}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGuardedPageWithoutSession(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.get(t, "/settings")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth/login", location.Path)
	require.Equal(t, "no_token", location.Query().Get("reason"))
	require.Equal(t, "/settings", location.Query().Get("from"))
}

func TestExpiringTokenIsRefreshedDuringPageLoad(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.selectTenant(t)

	expiring := f.backend.AccessToken(testUserID, testTenantID, time.Now().Add(30*time.Second))
	f.setAccessCookie(t, expiring)

	resp := f.getJSON(t, "/expenses")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, f.backend.RefreshCalls())

	refreshed, ok := f.cookie(t, sessions.KeyAccessToken)
	require.True(t, ok)
	require.NotEqual(t, expiring, refreshed)

	page := decodeData[struct {
		TenantID string          `json:"tenant_id"`
		Expenses json.RawMessage `json:"expenses"`
	}](t, resp)
	require.Equal(t, testTenantID, page.TenantID)
	require.Contains(t, string(page.Expenses), "exp-1")
}

func TestConcurrentRequestsShareOneRefresh(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.selectTenant(t)
	f.backend.RefreshDelay = 100 * time.Millisecond

	expiring := f.backend.AccessToken(testUserID, testTenantID, time.Now().Add(30*time.Second))
	f.setAccessCookie(t, expiring)
	staleRefresh, ok := f.cookie(t, sessions.KeyRefreshToken)
	require.True(t, ok)

	// Both requests leave with the same expiring pair, as a page load and an api call do.
	const requests = 2
	statuses := make([]int, requests)
	errs := make([]error, requests)
	var wg sync.WaitGroup
	for i := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodGet, f.ts.URL+"/api/expenses", nil)
			if err != nil {
				errs[i] = err
				return
			}
			req.Header.Set("Accept", "application/json")
			resp, err := f.client.Do(req)
			if err != nil {
				errs[i] = err
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			statuses[i] = resp.StatusCode
		}()
	}
	wg.Wait()

	for i := range requests {
		require.NoError(t, errs[i])
		require.Equal(t, http.StatusOK, statuses[i])
	}
	require.Equal(t, 1, f.backend.RefreshCalls())
	refreshed, ok := f.cookie(t, sessions.KeyAccessToken)
	require.True(t, ok)
	require.NotEqual(t, expiring, refreshed)

	t.Run("request still carrying the rotated pair", func(t *testing.T) {
		u, err := url.Parse(f.ts.URL)
		require.NoError(t, err)
		f.jar.SetCookies(u, []*http.Cookie{
			{Name: sessions.KeyAccessToken, Value: expiring, Path: "/"},
			{Name: sessions.KeyRefreshToken, Value: staleRefresh, Path: "/"},
		})

		resp := f.getJSON(t, "/api/expenses")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, 1, f.backend.RefreshCalls())
	})
}

func TestRejectedRefreshEndsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.selectTenant(t)
	f.backend.RejectRefresh(true)

	f.setAccessCookie(t, f.backend.AccessToken(testUserID, testTenantID, time.Now().Add(30*time.Second)))

	resp := f.get(t, "/expenses")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth/login", location.Path)
	require.Equal(t, "session_expired", location.Query().Get("reason"))

	for _, key := range sessions.Keys {
		_, ok := f.cookie(t, key)
		require.False(t, ok, key)
	}
}

func TestExpiredCookieIsClearedByGuard(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.selectTenant(t)
	f.setAccessCookie(t, f.backend.AccessToken(testUserID, testTenantID, time.Now().Add(-time.Minute)))

	resp := f.get(t, "/reports")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Location"), "reason=session_expired")
	require.Zero(t, f.backend.RefreshCalls())
	_, ok := f.cookie(t, sessions.KeyRefreshToken)
	require.False(t, ok)
}

func TestTenantEndpoints(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("status without session", func(t *testing.T) {
		resp := f.getJSON(t, server.RouteTenantStatus)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		data := decodeData[struct {
			Redirect string `json:"redirect"`
		}](t, resp)
		require.Contains(t, data.Redirect, "reason=no_token")
	})

	f.login(t)

	t.Run("status", func(t *testing.T) {
		resp := f.getJSON(t, server.RouteTenantStatus)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		status := decodeData[apimodel.TenantStatus](t, resp)
		require.True(t, status.HasTenants)
		require.Equal(t, 1, status.TenantCount)
	})

	t.Run("select a tenant the user does not belong to", func(t *testing.T) {
		f.backend.AddTenant(apimodel.Tenant{ID: "t-999", RUT: "1-9", BusinessName: "Otra"})
		resp := f.postJSON(t, "/tenant/select/t-999", nil)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("create requires a rut", func(t *testing.T) {
		resp := f.postJSON(t, server.RouteTenantCreate, apimodel.CreateTenantRequest{BusinessName: "Acme"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "El RUT es obligatorio", decodeError(t, resp).Message)
	})

	t.Run("create selects the new tenant", func(t *testing.T) {
		form := url.Values{"rut": {"77.777.777-7"}, "business_name": {"Acme SpA"}}
		resp := f.do(t, http.MethodPost, server.RouteTenantCreate, strings.NewReader(form.Encode()), http.Header{
			"Content-Type": {"application/x-www-form-urlencoded"},
		})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/dashboard", resp.Header.Get("Location"))

		resp = f.get(t, "/dashboard")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, decodeData[pageModel](t, resp).TenantID)
	})
}

func TestAPIProxy(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	resp := f.getJSON(t, "/api/expenses")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "TENANT_REQUIRED", decodeError(t, resp).Error)

	f.selectTenant(t)
	resp = f.getJSON(t, "/api/expenses")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "exp-1")

	t.Run("preflight", func(t *testing.T) {
		resp := f.do(t, http.MethodOptions, "/api/expenses", nil, http.Header{"Origin": {"http://localhost:3000"}})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	})
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	resp := f.do(t, http.MethodPost, server.RouteAuthLogout, nil, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/auth/login", resp.Header.Get("Location"))
	for _, key := range sessions.Keys {
		_, ok := f.cookie(t, key)
		require.False(t, ok, key)
	}
}

func TestAccountEndpoints(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.postJSON(t, server.RouteAuthRegister, apimodel.RegisterRequest{
		FullName:        "Luis Soto",
		Email:           "luis@example.com",
		Password:        "secret1",
		PasswordConfirm: "secret1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	registered := decodeData[apimodel.RegisterData](t, resp)
	require.Equal(t, "luis@example.com", registered.Email)
	require.Empty(t, registered.EmailToken)

	resp = f.postJSON(t, server.RouteAuthVerifyEmail, apimodel.VerifyEmailRequest{Token: "email-token"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.postJSON(t, server.RouteAuthForgotPassword, apimodel.ForgotPasswordRequest{Email: testUserEmail})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.postJSON(t, server.RouteAuthResetPasswordCheck, apimodel.ValidateResetTokenRequest{Token: "reset-token"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, decodeData[apimodel.ResetTokenStatus](t, resp).Valid)

	resp = f.postJSON(t, server.RouteAuthResetPassword, map[string]string{"token": "reset-token", "new_password": "new-secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.postJSON(t, server.RouteAuthResetPassword, map[string]string{"token": "reset-token"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginPageModel(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.get(t, "/auth/login?reason=session_expired&from=/expenses")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
	page := decodeData[struct {
		Reason        string `json:"reason"`
		Message       string `json:"message"`
		From          string `json:"from"`
		Authenticated bool   `json:"authenticated"`
	}](t, resp)
	require.Equal(t, "session_expired", page.Reason)
	require.NotEmpty(t, page.Message)
	require.Equal(t, "/expenses", page.From)
	require.False(t, page.Authenticated)
}

func TestHealthAndMetrics(t *testing.T) {
	f := setupTestFixture(t)
	f.get(t, "/dashboard")

	resp := f.get(t, server.RouteHealth)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.get(t, server.RouteMetrics)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "guard_decisions_total")
}

func TestRecoverMiddleware(t *testing.T) {
	f := setupTestFixture(t)
	handler := f.server.RecoverMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBackendUnreachable(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.Close()

	resp := f.postJSON(t, server.RouteAuthLogin, map[string]string{"email": testUserEmail, "password": testUserPassword})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Equal(t, "CONNECTION_ERROR", decodeError(t, resp).Error)
}

func TestMalformedBackendResponse(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.Handle("GET /garbled", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":tru`))
	})

	resp := f.getJSON(t, "/api/garbled")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Equal(t, "BAD_RESPONSE", decodeError(t, resp).Error)
}
