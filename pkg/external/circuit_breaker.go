package external

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pharmguard-server/internal/domain"
)

// ResilientExplainer wraps a primary explanation provider with a circuit
// breaker, response caching, and a static fallback. Report assembly never
// fails because explanation generation failed: when the primary provider
// errors, times out, or the breaker is open, curated static text is served
// instead.
type ResilientExplainer struct {
	primary  Explainer
	fallback *StaticExplainer
	cache    *ExplanationCache // nil disables caching
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewResilientExplainer wraps the primary provider. A nil cache disables
// response caching; the fallback path works either way.
func NewResilientExplainer(primary Explainer, cache *ExplanationCache, timeout time.Duration, logger *logrus.Logger) *ResilientExplainer {
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        primary.Name(),
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Explanation provider circuit breaker state changed")
		},
	})

	return &ResilientExplainer{
		primary:  primary,
		fallback: NewStaticExplainer(),
		cache:    cache,
		breaker:  breaker,
		timeout:  timeout,
		logger:   logger,
	}
}

// Name identifies the wrapped provider.
func (r *ResilientExplainer) Name() string {
	return r.primary.Name()
}

// Explain generates an explanation with cache-first lookup and static
// fallback. Only a nil request is an error; provider failures degrade to
// fallback text.
func (r *ResilientExplainer) Explain(ctx context.Context, req *domain.ExplanationRequest) (*domain.Explanation, error) {
	if req == nil {
		return nil, fmt.Errorf("explanation request cannot be nil")
	}

	// Check cache first
	if r.cache != nil {
		if cached, found, err := r.cache.Get(ctx, req); err == nil && found {
			return cached, nil
		}
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.primary.Explain(callCtx, req)
	})

	if err != nil {
		fields := logrus.Fields{
			"provider": r.primary.Name(),
			"drug":     req.Drug,
			"gene":     req.Gene,
		}
		if err == gobreaker.ErrOpenState {
			r.logger.WithFields(fields).Warn("Explanation provider unavailable (circuit breaker open), serving static text")
		} else {
			fields["error"] = err.Error()
			r.logger.WithFields(fields).Warn("Explanation provider failed, serving static text")
		}
		return r.fallback.Explain(ctx, req)
	}

	explanation := result.(*domain.Explanation)

	// Cache only primary-provider successes; fallback text is regenerated
	// for free.
	if r.cache != nil {
		if cacheErr := r.cache.Set(ctx, req, explanation, 0); cacheErr != nil {
			// Log cache error but don't fail the request
			r.logger.WithFields(logrus.Fields{
				"provider": r.primary.Name(),
				"error":    cacheErr.Error(),
			}).Warn("Failed to cache explanation")
		}
	}

	return explanation, nil
}

// HealthCheck reports the provider as unavailable while the breaker is open.
func (r *ResilientExplainer) HealthCheck(ctx context.Context) error {
	if r.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("explanation provider %s unavailable (circuit breaker open)", r.primary.Name())
	}
	if r.cache != nil {
		if err := r.cache.Ping(ctx); err != nil {
			r.logger.WithField("error", err.Error()).Warn("Explanation cache unreachable")
		}
	}
	return nil
}

// BreakerState exposes the circuit breaker state for health reporting.
func (r *ResilientExplainer) BreakerState() gobreaker.State {
	return r.breaker.State()
}

// BreakerCounts exposes the circuit breaker counters for health reporting.
func (r *ResilientExplainer) BreakerCounts() gobreaker.Counts {
	return r.breaker.Counts()
}

// Close releases the cache connection and the primary provider's resources.
func (r *ResilientExplainer) Close() error {
	var firstErr error
	if closer, ok := r.primary.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			firstErr = err
		}
	}
	if r.cache != nil {
		if err := r.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
