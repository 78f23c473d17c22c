package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pharmguard-server/internal/domain"
)

const explainerUserAgent = "PharmGuard/1.0 (pharmacogenomic analysis service)"

// HTTPExplainer delegates explanation generation to a self-hosted HTTP
// endpoint, for deployments that run their own model behind an internal
// service instead of calling Gemini.
type HTTPExplainer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

// NewHTTPExplainer creates an explanation provider backed by an HTTP
// endpoint.
func NewHTTPExplainer(config domain.ExplainerConfig, logger *logrus.Logger) (*HTTPExplainer, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("http explainer requires a base URL")
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	rateLimit := config.RateLimit
	if rateLimit <= 0 {
		rateLimit = 10
	}

	return &HTTPExplainer{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		logger:  logger,
	}, nil
}

// Name identifies the provider in logs and health reports.
func (h *HTTPExplainer) Name() string {
	return ProviderHTTP
}

// Explain posts the profile to the configured endpoint and decodes the
// returned explanation.
func (h *HTTPExplainer) Explain(ctx context.Context, req *domain.ExplanationRequest) (*domain.Explanation, error) {
	if req == nil {
		return nil, fmt.Errorf("explanation request cannot be nil")
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode explanation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", explainerUserAgent)
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("explanation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("explanation endpoint not found: %s", h.baseURL)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("explanation endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var explanation domain.Explanation
	if err := json.NewDecoder(resp.Body).Decode(&explanation); err != nil {
		return nil, fmt.Errorf("failed to decode explanation response: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"provider": ProviderHTTP,
		"drug":     req.Drug,
		"gene":     req.Gene,
	}).Debug("Generated explanation")

	return &explanation, nil
}
