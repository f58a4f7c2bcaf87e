package apiclient

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	refreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_refresh_total",
			Help: "Token refresh attempts by outcome (success, reused, failure)",
		},
		[]string{"outcome"},
	)

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Outbound backend requests by method and status class",
		},
		[]string{"method", "status_class"},
	)

	circuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_circuit_breaker_state",
			Help: "Current state of the backend circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

func init() {
	prometheus.MustRegister(refreshTotal)
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(circuitBreakerState)
}

const (
	refreshSuccess = "success"
	refreshReused  = "reused"
	refreshFailure = "failure"
)

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
