package config

import (
	"strings"
	"time"
)

const (
	apiBaseURLEnvVar     = "API_BASE_URL"
	requestTimeoutEnvVar = "REQUEST_TIMEOUT"
	breakerEnvVar        = "API_CIRCUIT_BREAKER"
)

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL returns the viáticos REST backend root, without a trailing slash.
func (API) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLEnvVar, "http://localhost:8080/api/v1"), "/")
}

// GetRequestTimeout bounds every outbound call. A timeout surfaces as a connectivity error.
func (API) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(GetEnv(requestTimeoutEnvVar, "30s"))
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func (API) GetBreakerEnabled() bool {
	return strings.EqualFold(GetEnv(breakerEnvVar, "false"), "true")
}
