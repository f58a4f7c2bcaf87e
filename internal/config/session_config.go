package config

import (
	"strings"
	"time"
)

type SessionConfig interface {
	GetDefaultCookieMaxAge() time.Duration
	GetCookieSecure() bool
}

type Session struct{}

var _ SessionConfig = Session{}

// GetDefaultCookieMaxAge is used when the access token expiry cannot be read.
func (Session) GetDefaultCookieMaxAge() time.Duration {
	d, err := time.ParseDuration(GetEnv(cookieMaxAgeEnvVar, "168h"))
	if err != nil || d <= 0 {
		return 7 * 24 * time.Hour // 7 days
	}
	return d
}

// GetCookieSecure marks session cookies Secure. Enable it behind HTTPS.
func (Session) GetCookieSecure() bool {
	return strings.EqualFold(GetEnv(cookieSecureEnvVar, "false"), "true")
}

const (
	cookieMaxAgeEnvVar = "COOKIE_MAX_AGE"
	cookieSecureEnvVar = "COOKIE_SECURE"
)
