package health

import (
	"net/url"

	"github.com/sony/gobreaker"
)

// Check names.
const (
	CheckUpstreamConfigured = "upstream_configured"
	CheckUpstreamBreaker    = "upstream_circuit_breaker"
)

// UpstreamConfiguredCheck reports unhealthy unless rawURL is an absolute
// http or https URL.
func UpstreamConfiguredCheck(rawURL string) CheckFunc {
	return func() Check {
		if rawURL == "" {
			return Check{Status: StatusUnhealthy, Message: "upstream url is not configured"}
		}
		u, err := url.Parse(rawURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Check{Status: StatusUnhealthy, Message: "upstream url is invalid"}
		}
		return Check{Status: StatusHealthy}
	}
}

// BreakerStateFunc reports the current circuit breaker state.
type BreakerStateFunc func() gobreaker.State

// CircuitBreakerCheck is unhealthy while the breaker is open and degraded
// while it is half-open.
func CircuitBreakerCheck(state BreakerStateFunc) CheckFunc {
	return func() Check {
		switch s := state(); s {
		case gobreaker.StateOpen:
			return Check{Status: StatusUnhealthy, Message: "circuit breaker " + s.String()}
		case gobreaker.StateHalfOpen:
			return Check{Status: StatusDegraded, Message: "circuit breaker " + s.String()}
		default:
			return Check{Status: StatusHealthy}
		}
	}
}
