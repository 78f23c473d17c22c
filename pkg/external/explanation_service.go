package external

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
)

// Service implements the domain.ExplanationService interface. It selects the
// configured provider, wraps it with resilience patterns, and exposes health
// details for the API's readiness reporting.
type Service struct {
	resilient *ResilientExplainer
	logger    *logrus.Logger
}

// NewService builds the explanation service from configuration. Provider
// selection: "gemini" requires an API key, "http" requires a base URL,
// "static" (or empty) runs fully offline. A configured but unreachable Redis
// cache downgrades to cacheless operation instead of failing startup.
func NewService(ctx context.Context, explainerConfig domain.ExplainerConfig, cacheConfig domain.CacheConfig, logger *logrus.Logger) (*Service, error) {
	primary, err := newPrimaryExplainer(ctx, explainerConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create explanation provider: %w", err)
	}

	var cache *ExplanationCache
	if cacheConfig.Enabled && cacheConfig.RedisURL != "" && primary.Name() != ProviderStatic {
		cache, err = NewExplanationCache(cacheConfig)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"provider": primary.Name(),
				"error":    err.Error(),
			}).Warn("Explanation cache unavailable, continuing without caching")
			cache = nil
		}
	}

	resilient := NewResilientExplainer(primary, cache, explainerConfig.Timeout, logger)

	logger.WithFields(logrus.Fields{
		"provider":      primary.Name(),
		"cache_enabled": cache != nil,
	}).Info("Explanation service initialized")

	return &Service{
		resilient: resilient,
		logger:    logger,
	}, nil
}

func newPrimaryExplainer(ctx context.Context, config domain.ExplainerConfig, logger *logrus.Logger) (Explainer, error) {
	switch config.Provider {
	case ProviderGemini:
		return NewGeminiExplainer(ctx, config, logger)
	case ProviderHTTP:
		return NewHTTPExplainer(config, logger)
	case ProviderStatic, "":
		return NewStaticExplainer(), nil
	default:
		return nil, fmt.Errorf("unknown explanation provider: %s", config.Provider)
	}
}

// Explain generates the clinical narrative for a drug-gene profile.
func (s *Service) Explain(ctx context.Context, req *domain.ExplanationRequest) (*domain.Explanation, error) {
	return s.resilient.Explain(ctx, req)
}

// HealthCheck reports whether the provider is currently usable.
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.resilient.HealthCheck(ctx)
}

// Health returns provider health details for status endpoints.
func (s *Service) Health(ctx context.Context) ProviderHealth {
	health := ProviderHealth{
		Provider:  s.resilient.Name(),
		Healthy:   true,
		LastCheck: time.Now().UTC(),
	}
	if err := s.resilient.HealthCheck(ctx); err != nil {
		health.Healthy = false
		health.Error = err.Error()
	}
	return health
}

// Provider names the active explanation backend.
func (s *Service) Provider() string {
	return s.resilient.Name()
}

// Close releases provider and cache resources.
func (s *Service) Close() error {
	return s.resilient.Close()
}
