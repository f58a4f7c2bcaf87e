package backendfake

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-viaticos-session/apimodel"
	"github.com/jrsteele09/go-viaticos-session/token"
)

// Expense is the payload of the built-in GET /expenses resource.
type Expense struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Amount   int    `json:"amount"`
}

func (b *Backend) routes() {
	b.mux.HandleFunc("POST "+apimodel.RouteAuthLogin, b.login)
	b.mux.HandleFunc("POST "+apimodel.RouteAuthRefresh, b.refresh)
	b.mux.HandleFunc("POST "+apimodel.RouteAuthRegister, b.register)
	b.mux.HandleFunc("POST "+apimodel.RouteAuthVerifyEmail, b.acknowledge("email verified"))
	b.mux.HandleFunc("POST "+apimodel.RouteAuthForgotPassword, b.acknowledge("if the account exists an email was sent"))
	b.mux.HandleFunc("POST "+apimodel.RouteAuthResetPassword, b.acknowledge("password updated"))
	b.mux.HandleFunc("POST "+apimodel.RouteAuthResetPasswordSend, b.acknowledge("email resent"))
	b.mux.HandleFunc("POST "+apimodel.RouteAuthResetPasswordCheck, b.validateResetToken)

	b.mux.HandleFunc("GET "+apimodel.RouteTenantStatus, b.authenticated(b.tenantStatus))
	b.mux.HandleFunc("POST "+apimodel.RouteTenantCreate, b.authenticated(b.createTenant))
	b.mux.HandleFunc("POST /tenant/select/{id}", b.authenticated(b.selectTenant))

	b.mux.HandleFunc("GET "+apimodel.RouteExpenses, b.authenticated(b.expenses))
}

type principal struct {
	userID   string
	tenantID string
}

func (b *Backend) authenticated(next func(http.ResponseWriter, *http.Request, principal)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		b.mu.Lock()
		_, revoked := b.revoked[raw]
		b.mu.Unlock()
		if revoked {
			writeError(w, http.StatusUnauthorized, "TOKEN_REVOKED", "token revoked")
			return
		}

		claims, err := NewHMACSigner(b.secret).Verify(raw)
		if err != nil || claims.Type != token.TypeAccess {
			writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token")
			return
		}

		next(w, r, principal{userID: claims.UserID, tenantID: claims.TenantID})
	}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req apimodel.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	b.mu.Lock()
	u, ok := b.users[strings.ToLower(req.Email)]
	b.mu.Unlock()
	if !ok || u.password != req.Password {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
		return
	}

	access, refresh := b.IssuePair(u.profile.ID, "")
	writeOK(w, http.StatusOK, "login successful", apimodel.LoginData{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(b.AccessTTL / time.Second),
		TokenType:    "Bearer",
		User:         u.profile,
	})
}

func (b *Backend) refresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	if b.RefreshDelay > 0 {
		time.Sleep(b.RefreshDelay)
	}

	var req apimodel.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "refresh_token is required")
		return
	}

	b.mu.Lock()
	record, ok := b.refreshTokens[req.RefreshToken]
	reject := b.rejectRefresh
	if ok && !reject {
		delete(b.refreshTokens, req.RefreshToken)
	}
	b.mu.Unlock()

	if !ok || reject || record.expires.Before(NowTimeFunc()) {
		writeError(w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "invalid refresh token")
		return
	}

	access, refresh := b.IssuePair(record.userID, record.tenantID)
	writeOK(w, http.StatusOK, "token refreshed", apimodel.RefreshData{AccessToken: access, RefreshToken: refresh})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req apimodel.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	var fields []apimodel.FieldError
	if req.Email == "" {
		fields = append(fields, apimodel.FieldError{Field: "Email", Message: "is required"})
	}
	if req.Password == "" || req.Password != req.PasswordConfirm {
		fields = append(fields, apimodel.FieldError{Field: "PasswordConfirm", Message: "passwords do not match"})
	}
	if len(fields) > 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", fields...)
		return
	}

	data := apimodel.RegisterData{
		ID:                        uuid.New().String(),
		FullName:                  req.FullName,
		Email:                     req.Email,
		Phone:                     req.Phone,
		EmailToken:                uuid.New().String(),
		RequiresEmailVerification: true,
	}
	b.AddUser(apimodel.UserData{ID: data.ID, FullName: req.FullName, Email: req.Email, IsActive: true}, req.Password)
	writeOK(w, http.StatusCreated, "user registered", data)
}

func (b *Backend) acknowledge(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeOK[any](w, http.StatusOK, message, nil)
	}
}

func (b *Backend) validateResetToken(w http.ResponseWriter, r *http.Request) {
	var req apimodel.ValidateResetTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "token is required")
		return
	}
	writeOK(w, http.StatusOK, "token valid", apimodel.ResetTokenStatus{Valid: true})
}

func (b *Backend) tenantStatus(w http.ResponseWriter, r *http.Request, p principal) {
	tenants := b.tenantsOf(p.userID)
	writeOK(w, http.StatusOK, "tenant status", apimodel.TenantStatus{
		HasTenants:             len(tenants) > 0,
		Tenants:                tenants,
		RequiresTenantCreation: len(tenants) == 0,
		TenantCount:            len(tenants),
	})
}

func (b *Backend) createTenant(w http.ResponseWriter, r *http.Request, p principal) {
	var req apimodel.CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if req.RUT == "" || req.BusinessName == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed",
			apimodel.FieldError{Field: "RUT", Message: "is required"},
			apimodel.FieldError{Field: "BusinessName", Message: "is required"})
		return
	}

	tenant := apimodel.Tenant{
		ID:           uuid.New().String(),
		RUT:          req.RUT,
		BusinessName: req.BusinessName,
		Email:        req.Email,
		Status:       "active",
		CreatedBy:    p.userID,
	}
	b.AddTenant(tenant)

	b.mu.Lock()
	for _, u := range b.users {
		if u.profile.ID == p.userID {
			u.tenantIDs = append(u.tenantIDs, tenant.ID)
		}
	}
	b.mu.Unlock()

	writeOK(w, http.StatusCreated, "tenant created", tenant)
}

func (b *Backend) selectTenant(w http.ResponseWriter, r *http.Request, p principal) {
	tenantID := r.PathValue("id")

	var selected *apimodel.Tenant
	for _, t := range b.tenantsOf(p.userID) {
		if t.ID == tenantID {
			selected = &t
			break
		}
	}
	if selected == nil {
		writeError(w, http.StatusForbidden, "TENANT_FORBIDDEN", "user does not belong to tenant")
		return
	}

	profile, _ := b.profileOf(p.userID)
	access, refresh := b.IssuePair(p.userID, selected.ID)
	writeOK(w, http.StatusOK, "tenant selected", apimodel.SelectTenantData{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(b.AccessTTL / time.Second),
		User:         profile,
		Tenant: apimodel.SelectedTenant{
			ID:           selected.ID,
			RUT:          selected.RUT,
			BusinessName: selected.BusinessName,
			Status:       selected.Status,
		},
	})
}

func (b *Backend) expenses(w http.ResponseWriter, r *http.Request, p principal) {
	b.resourceCalls.Add(1)
	if p.tenantID == "" {
		writeError(w, http.StatusForbidden, "TENANT_REQUIRED", "select a company first")
		return
	}
	writeOK(w, http.StatusOK, "expenses", []Expense{{ID: "exp-1", TenantID: p.tenantID, Amount: 12500}})
}

func (b *Backend) tenantsOf(userID string) []apimodel.Tenant {
	b.mu.Lock()
	defer b.mu.Unlock()

	tenants := make([]apimodel.Tenant, 0)
	for _, u := range b.users {
		if u.profile.ID != userID {
			continue
		}
		for _, id := range u.tenantIDs {
			if t, ok := b.tenants[id]; ok {
				tenants = append(tenants, t)
			}
		}
	}
	return tenants
}

func (b *Backend) profileOf(userID string) (apimodel.UserData, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.profile.ID == userID {
			return u.profile, true
		}
	}
	return apimodel.UserData{}, false
}
