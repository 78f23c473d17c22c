package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
)

// ExplanationResolver memoizes explanation-service responses in process.
// Identical pharmacogenomic profiles produce identical prompts, so repeated
// analyses of the same profile should not re-invoke the backing service.
// The resolver itself satisfies domain.ExplanationService and is what the
// report assembler talks to.
type ExplanationResolver struct {
	service domain.ExplanationService

	memo     *lru.Cache
	memoTTL  time.Duration
	memoSize int

	// Limits concurrent backing-service calls during batch resolution.
	batchSemaphore chan struct{}
	maxConcurrency int

	logger  *logrus.Logger
	stats   *ResolverStats
	statsMu sync.RWMutex
}

// ResolverStats represents resolver performance statistics.
type ResolverStats struct {
	MemoHits     int64     `json:"memo_hits"`
	MemoMisses   int64     `json:"memo_misses"`
	ServiceCalls int64     `json:"service_calls"`
	Failures     int64     `json:"failures"`
	LastReset    time.Time `json:"last_reset"`
}

// ResolverConfig represents configuration for the explanation resolver.
type ResolverConfig struct {
	MemoTTL        time.Duration `json:"memo_ttl"`
	MemoSize       int           `json:"memo_size"`
	MaxConcurrency int           `json:"max_concurrency"`
}

// NewExplanationResolver creates a memoizing resolver in front of the given
// explanation service.
func NewExplanationResolver(config ResolverConfig, service domain.ExplanationService, logger *logrus.Logger) (*ExplanationResolver, error) {
	if config.MemoTTL == 0 {
		config.MemoTTL = 15 * time.Minute
	}
	if config.MemoSize == 0 {
		config.MemoSize = 512
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}

	memo, err := lru.New(config.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create explanation memo cache: %w", err)
	}

	return &ExplanationResolver{
		service:        service,
		memo:           memo,
		memoTTL:        config.MemoTTL,
		memoSize:       config.MemoSize,
		batchSemaphore: make(chan struct{}, config.MaxConcurrency),
		maxConcurrency: config.MaxConcurrency,
		logger:         logger,
		stats: &ResolverStats{
			LastReset: time.Now(),
		},
	}, nil
}

// Explain resolves one explanation, serving a memoized copy when the same
// profile was explained recently.
func (r *ExplanationResolver) Explain(ctx context.Context, req *domain.ExplanationRequest) (*domain.Explanation, error) {
	if req == nil {
		r.incrementStat("failures")
		return nil, fmt.Errorf("explanation request cannot be nil")
	}

	key := explanationKey(req)

	if explanation := r.getMemoized(key); explanation != nil {
		r.incrementStat("memo_hits")
		r.logger.WithFields(logrus.Fields{
			"drug": req.Drug,
			"gene": req.Gene,
		}).Debug("Explanation served from memo cache")
		return explanation, nil
	}
	r.incrementStat("memo_misses")

	r.incrementStat("service_calls")
	explanation, err := r.service.Explain(ctx, req)
	if err != nil {
		r.incrementStat("failures")
		return nil, fmt.Errorf("resolving explanation for %s: %w", req.Drug, err)
	}

	r.memoize(key, explanation)

	return explanation, nil
}

// BatchExplain resolves multiple requests concurrently with bounded
// parallelism. Results are keyed by drug name; failed drugs are absent from
// the result map rather than failing the batch.
func (r *ExplanationResolver) BatchExplain(ctx context.Context, reqs []*domain.ExplanationRequest) map[string]*domain.Explanation {
	results := make(map[string]*domain.Explanation, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, req := range reqs {
		wg.Add(1)
		go func(req *domain.ExplanationRequest) {
			defer wg.Done()

			select {
			case r.batchSemaphore <- struct{}{}:
				defer func() { <-r.batchSemaphore }()
			case <-ctx.Done():
				return
			}

			explanation, err := r.Explain(ctx, req)
			if err != nil {
				r.logger.WithError(err).WithField("drug", req.Drug).Warn("Batch explanation failed")
				return
			}

			mu.Lock()
			results[req.Drug] = explanation
			mu.Unlock()
		}(req)
	}

	wg.Wait()

	r.logger.WithFields(logrus.Fields{
		"batch_size": len(reqs),
		"resolved":   len(results),
	}).Debug("Completed batch explanation resolution")

	return results
}

// HealthCheck reports the health of the backing explanation service.
func (r *ExplanationResolver) HealthCheck(ctx context.Context) error {
	return r.service.HealthCheck(ctx)
}

// Stats returns resolver performance statistics.
func (r *ExplanationResolver) Stats() ResolverStats {
	r.statsMu.RLock()
	defer r.statsMu.RUnlock()
	return *r.stats
}

func (r *ExplanationResolver) getMemoized(key string) *domain.Explanation {
	if value, ok := r.memo.Get(key); ok {
		if entry, ok := value.(*memoEntry); ok && !entry.isExpired() {
			return entry.explanation
		}
		r.memo.Remove(key)
	}
	return nil
}

func (r *ExplanationResolver) memoize(key string, explanation *domain.Explanation) {
	r.memo.Add(key, &memoEntry{
		explanation: explanation,
		expiry:      time.Now().Add(r.memoTTL),
	})
}

func (r *ExplanationResolver) incrementStat(statName string) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	switch statName {
	case "memo_hits":
		r.stats.MemoHits++
	case "memo_misses":
		r.stats.MemoMisses++
	case "service_calls":
		r.stats.ServiceCalls++
	case "failures":
		r.stats.Failures++
	}
}

type memoEntry struct {
	explanation *domain.Explanation
	expiry      time.Time
}

func (e *memoEntry) isExpired() bool {
	return time.Now().After(e.expiry)
}

// explanationKey fingerprints the prompt-relevant fields of a request. The
// same key scheme is used by the distributed explanation cache, so the two
// tiers agree on identity.
func explanationKey(req *domain.ExplanationRequest) string {
	h := sha256.Sum256([]byte(strings.Join([]string{
		string(req.Gene),
		req.Diplotype,
		string(req.Phenotype),
		req.Drug,
		string(req.RiskLabel),
	}, "|")))
	return hex.EncodeToString(h[:])
}
