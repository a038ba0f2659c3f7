package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ZanzyTHEbar/rfm-dashboard/internal/dataset"
)

// BreakerConfig controls when a source is considered down
type BreakerConfig struct {
	ConsecutiveFailures uint32        `json:"consecutive_failures" yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `json:"open_timeout" yaml:"open_timeout"`
	HalfOpenRequests    uint32        `json:"half_open_requests" yaml:"half_open_requests"`
}

// DefaultBreakerConfig trips after three failed loads in a row
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 3,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// GuardedSource wraps a dataset.Source with a circuit breaker. A missing
// dataset counts as a success; only real failures trip the breaker
type GuardedSource struct {
	source  dataset.Source
	breaker *gobreaker.CircuitBreaker
}

type opened struct {
	rc   io.ReadCloser
	meta dataset.Meta
}

// NewGuardedSource creates a breaker named after the wrapped source
func NewGuardedSource(source dataset.Source, config BreakerConfig) *GuardedSource {
	if config.ConsecutiveFailures == 0 {
		config.ConsecutiveFailures = 3
	}

	settings := gobreaker.Settings{
		Name:        source.Name(),
		MaxRequests: config.HalfOpenRequests,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, dataset.ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Dataset source breaker changed state",
				"source", name,
				"from", from.String(),
				"to", to.String())
		},
	}

	return &GuardedSource{
		source:  source,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (g *GuardedSource) Name() string { return g.source.Name() }

// Open delegates to the wrapped source unless the breaker is open
func (g *GuardedSource) Open(ctx context.Context, kind dataset.Kind) (io.ReadCloser, dataset.Meta, error) {
	result, err := g.breaker.Execute(func() (interface{}, error) {
		rc, meta, err := g.source.Open(ctx, kind)
		if err != nil {
			return nil, err
		}
		return opened{rc: rc, meta: meta}, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, dataset.Meta{}, fmt.Errorf("%s temporarily unavailable: %w", g.Name(), err)
	}
	if err != nil {
		return nil, dataset.Meta{}, err
	}

	o := result.(opened)
	return o.rc, o.meta, nil
}

// State reports closed, half-open or open
func (g *GuardedSource) State() string {
	return g.breaker.State().String()
}

// Stats returns the breaker counters for the metrics endpoint
func (g *GuardedSource) Stats() map[string]interface{} {
	counts := g.breaker.Counts()
	return map[string]interface{}{
		"state":                g.State(),
		"requests":             counts.Requests,
		"total_failures":       counts.TotalFailures,
		"consecutive_failures": counts.ConsecutiveFailures,
	}
}
