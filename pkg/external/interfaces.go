package external

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/pharmguard-server/internal/domain"
)

// Explainer is a single explanation provider. Providers turn a structured
// pharmacogenomic profile into narrative text; they do not decide fallback
// or caching, the resilient wrapper does.
type Explainer interface {
	Explain(ctx context.Context, req *domain.ExplanationRequest) (*domain.Explanation, error)
	Name() string
}

// Provider names accepted by the service configuration.
const (
	ProviderGemini = "gemini"
	ProviderHTTP   = "http"
	ProviderStatic = "static"
)

// ProviderHealth represents the health status of the explanation backend.
type ProviderHealth struct {
	Provider  string    `json:"provider"`
	Healthy   bool      `json:"healthy"`
	LastCheck time.Time `json:"last_check"`
	Error     string    `json:"error,omitempty"`
}

// RequestKey fingerprints the prompt-relevant fields of an explanation
// request. The in-process memo tier and the Redis response cache both key by
// this digest, so identical profiles share one identity across tiers.
func RequestKey(req *domain.ExplanationRequest) string {
	h := sha256.Sum256([]byte(strings.Join([]string{
		string(req.Gene),
		req.Diplotype,
		string(req.Phenotype),
		req.Drug,
		string(req.RiskLabel),
	}, "|")))
	return hex.EncodeToString(h[:])
}
