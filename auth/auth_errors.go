package auth

import "errors"

var (
	EmailRequiredErr          = errors.New("email is required")
	InvalidEmailErr           = errors.New("invalid email format")
	PasswordRequiredErr       = errors.New("password is required")
	UserPasswordsDontMatchErr = errors.New("user passwords not matched")
	TokenRequiredErr          = errors.New("token is required")
)
