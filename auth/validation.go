package auth

import (
	"strings"

	"github.com/jrsteele09/go-viaticos-session/apimodel"
)

// Validator rejects requests the backend would reject anyway, before they leave the process.
// It is not a security control: the backend validates every request again.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateUserCredentials validates login credentials
func (v *Validator) ValidateUserCredentials(email, password string) error {
	if err := v.ValidateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return PasswordRequiredErr
	}
	return nil
}

func (v *Validator) ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return EmailRequiredErr
	}
	at := strings.Index(email, "@")
	if at < 1 || !strings.Contains(email[at:], ".") {
		return InvalidEmailErr
	}
	return nil
}

// ValidateRegistration checks the fields the register form requires.
func (v *Validator) ValidateRegistration(req apimodel.RegisterRequest) error {
	if err := v.ValidateUserCredentials(req.Email, req.Password); err != nil {
		return err
	}
	if req.Password != req.PasswordConfirm {
		return UserPasswordsDontMatchErr
	}
	return nil
}

func (v *Validator) ValidateToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return TokenRequiredErr
	}
	return nil
}

// sanitizeEmail trims and lowercases an email the way the backend stores it.
func sanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
