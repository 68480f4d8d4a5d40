package arr

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// breakerFailureThreshold is the number of consecutive API failures that
// opens an instance's circuit.
const breakerFailureThreshold = 5

// guard wraps every call to one instance with a circuit breaker and paces
// destructive calls with a rate limiter.
type guard struct {
	breaker *gobreaker.CircuitBreaker[interface{}]
	limiter *rate.Limiter
}

func newGuard(name string, requestDelay time.Duration, logger Logger) *guard {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker %s changed from %s to %s", name, from.String(), to.String())
		},
	}

	limit := rate.Inf
	if requestDelay > 0 {
		limit = rate.Every(requestDelay)
	}

	return &guard{
		breaker: gobreaker.NewCircuitBreaker[interface{}](settings),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// execute runs fn through the circuit breaker
func (g *guard) execute(fn func() (interface{}, error)) (interface{}, error) {
	return g.breaker.Execute(fn)
}

// paced waits for the limiter before running fn through the breaker
func (g *guard) paced(ctx context.Context, fn func() error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}
