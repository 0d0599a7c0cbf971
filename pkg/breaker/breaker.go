// Package breaker configures circuit breakers for external service calls.
package breaker

import (
	"time"

	"ambudispatch/pkg/logger"

	"github.com/sony/gobreaker"
)

// New creates a circuit breaker with settings tuned for the third-party
// providers this service calls. The name identifies the dependency.
func New(name string, log *logger.Logger) *gobreaker.CircuitBreaker {
	var timeout time.Duration

	switch name {
	case "GoogleMaps":
		timeout = 15 * time.Second
	case "TwilioSMS":
		timeout = 30 * time.Second
	default:
		timeout = 30 * time.Second
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}
