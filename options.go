package watchdog

import (
	"time"

	"github.com/zoobzio/pipz"
)

// Option configures the dispatch pipeline of an Observer. Each option
// wraps handler invocation with middleware; the terminal stage calls the
// delivery's handler. Options apply to every handler the observer invokes.
//
// Instance configuration (timeout, clock, queue capacity, metrics) is
// handled via chainable methods on the Observer before calling Start().
type Option func(pipz.Chainable[*Delivery]) pipz.Chainable[*Delivery]

// buildPipeline wraps a terminal with pipeline options.
func buildPipeline(terminal pipz.Chainable[*Delivery], opts []Option) pipz.Chainable[*Delivery] {
	pipeline := terminal
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return pipeline
}

// WithRetry wraps handler invocation with retry logic. A failing handler
// is retried immediately up to maxAttempts times before the failure is
// recorded. For exponential backoff between retries, use WithBackoff.
func WithRetry(maxAttempts int) Option {
	return func(p pipz.Chainable[*Delivery]) pipz.Chainable[*Delivery] {
		return pipz.NewRetry("retry", p, maxAttempts)
	}
}

// WithBackoff wraps handler invocation with exponential backoff retry
// logic: baseDelay, 2*baseDelay, 4*baseDelay, and so on. Retries run on
// the consumer goroutine and delay subsequent deliveries.
func WithBackoff(maxAttempts int, baseDelay time.Duration) Option {
	return func(p pipz.Chainable[*Delivery]) pipz.Chainable[*Delivery] {
		return pipz.NewBackoff("backoff", p, maxAttempts, baseDelay)
	}
}

// WithTimeout bounds a single handler invocation. Handlers run on the sole
// consumer goroutine, so this caps how long one handler can stall delivery.
func WithTimeout(d time.Duration) Option {
	return func(p pipz.Chainable[*Delivery]) pipz.Chainable[*Delivery] {
		return pipz.NewTimeout("timeout", p, d)
	}
}

// WithErrorHandler adds error observation to the dispatch pipeline.
// Handler errors are passed to errorHandler for logging, metrics, or
// alerting, and still propagate to the observer's error history.
func WithErrorHandler(errorHandler pipz.Chainable[*pipz.Error[*Delivery]]) Option {
	return func(p pipz.Chainable[*Delivery]) pipz.Chainable[*Delivery] {
		return pipz.NewHandle("error-handler", p, errorHandler)
	}
}
