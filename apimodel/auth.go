package apimodel

import "github.com/jrsteele09/go-viaticos-session/sessions"

// UserData is the user record returned by login and tenant selection.
type UserData = sessions.UserProfile

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginData is returned by POST /auth/login.
type LoginData struct {
	// AccessToken is the short-lived JWT sent as "Authorization: Bearer <access_token>".
	// A fresh login carries no tenant_id claim until a tenant is selected.
	AccessToken string `json:"access_token"`

	// RefreshToken is exchanged at POST /auth/refresh for a new pair.
	RefreshToken string `json:"refresh_token"`

	// ExpiresIn is a hint in seconds. The "exp" claim of AccessToken is authoritative.
	ExpiresIn int `json:"expires_in"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	User UserData `json:"user"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshData is returned by POST /auth/refresh. The backend may rotate the refresh token;
// an empty RefreshToken means the previous one stays valid.
type RefreshData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// RegisterData is returned by POST /auth/register.
type RegisterData struct {
	ID                        string `json:"id"`
	FullName                  string `json:"full_name"`
	Email                     string `json:"email"`
	Phone                     string `json:"phone"`
	EmailToken                string `json:"email_token"`
	RequiresEmailVerification bool   `json:"requires_email_verification"`
}

// VerifyEmailRequest is the body of POST /auth/verify-email.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password and
// POST /auth/reset-password/resend.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ValidateResetTokenRequest is the body of POST /auth/reset-password/validate.
type ValidateResetTokenRequest struct {
	Token string `json:"token"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetTokenStatus is returned by POST /auth/reset-password/validate.
type ResetTokenStatus struct {
	Valid     bool   `json:"valid"`
	Email     string `json:"email,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}
