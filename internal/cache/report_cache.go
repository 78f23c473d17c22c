package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
)

const reportKeyPrefix = "pharmguard:report:"

// ReportCache is a two-tier cache for assembled analysis reports: an
// in-memory LRU for hot entries and an optional Redis tier shared across
// instances. Backend failures degrade to cache misses so a broken Redis
// never blocks analysis.
type ReportCache struct {
	memory *lru.Cache[string, *cachedReport]
	redis  *redis.Client // nil when Redis is not configured or unreachable

	ttl     time.Duration
	enabled bool

	stats   domain.CacheStats
	statsMu sync.RWMutex

	logger *logrus.Logger
}

// cachedReport wraps a stored report with expiry metadata. The memory tier
// honors ExpiresAt on read; the Redis tier additionally sets a key TTL.
type cachedReport struct {
	Report    *domain.AnalysisReport `json:"report"`
	CachedAt  time.Time              `json:"cached_at"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// NewReportCache creates the report cache. An unreachable Redis downgrades
// to memory-only operation with a warning instead of failing startup.
func NewReportCache(config domain.CacheConfig, logger *logrus.Logger) (*ReportCache, error) {
	size := config.MemorySize
	if size == 0 {
		size = 256
	}
	ttl := config.DefaultTTL
	if ttl == 0 {
		ttl = time.Hour
	}

	memory, err := lru.New[string, *cachedReport](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	rc := &ReportCache{
		memory:  memory,
		ttl:     ttl,
		enabled: config.Enabled,
		logger:  logger,
	}

	if config.Enabled && config.RedisURL != "" {
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		if config.PoolSize > 0 {
			opts.PoolSize = config.PoolSize
		}
		if config.PoolTimeout > 0 {
			opts.PoolTimeout = config.PoolTimeout
		}

		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.WithField("error", err.Error()).Warn("Report cache Redis unreachable, running memory-only")
			client.Close()
		} else {
			rc.redis = client
		}
	}

	logger.WithFields(logrus.Fields{
		"enabled":     rc.enabled,
		"memory_size": size,
		"redis":       rc.redis != nil,
		"ttl":         ttl.String(),
	}).Info("Report cache initialized")

	return rc, nil
}

// Key derives the cache key for an analysis request. The reference table
// checksum is part of the fingerprint so a data update invalidates every
// prior entry.
func Key(vcfContent, patientID, drug, referenceChecksum string) string {
	joined := strings.Join([]string{vcfContent, patientID, drug, referenceChecksum}, "|")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached report for the key, checking memory first and
// promoting Redis hits into the memory tier.
func (rc *ReportCache) Get(ctx context.Context, key string) (*domain.AnalysisReport, bool) {
	if !rc.enabled {
		return nil, false
	}

	if entry, ok := rc.memory.Get(key); ok {
		if time.Now().Before(entry.ExpiresAt) {
			rc.recordHit()
			return entry.Report, true
		}
		rc.memory.Remove(key)
	}

	if rc.redis != nil {
		data, err := rc.redis.Get(ctx, reportKeyPrefix+key).Bytes()
		if err == nil {
			var entry cachedReport
			if json.Unmarshal(data, &entry) == nil && time.Now().Before(entry.ExpiresAt) {
				rc.memory.Add(key, &entry)
				rc.recordHit()
				return entry.Report, true
			}
			rc.redis.Del(ctx, reportKeyPrefix+key)
		} else if err != redis.Nil {
			rc.logger.WithField("error", err.Error()).Warn("Report cache Redis read failed")
		}
	}

	rc.recordMiss()
	return nil, false
}

// Set stores a report in both tiers. Redis write failures are logged and
// swallowed.
func (rc *ReportCache) Set(ctx context.Context, key string, report *domain.AnalysisReport) error {
	if !rc.enabled || report == nil {
		return nil
	}

	entry := &cachedReport{
		Report:    report,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(rc.ttl),
	}

	rc.memory.Add(key, entry)

	if rc.redis != nil {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal cached report: %w", err)
		}
		if err := rc.redis.Set(ctx, reportKeyPrefix+key, data, rc.ttl).Err(); err != nil {
			rc.logger.WithField("error", err.Error()).Warn("Report cache Redis write failed")
		}
	}

	return nil
}

// Invalidate removes the entry from both tiers.
func (rc *ReportCache) Invalidate(ctx context.Context, key string) error {
	rc.memory.Remove(key)

	if rc.redis != nil {
		if err := rc.redis.Del(ctx, reportKeyPrefix+key).Err(); err != nil {
			return fmt.Errorf("failed to invalidate Redis entry: %w", err)
		}
	}

	return nil
}

// Stats returns hit/miss accounting and the current memory tier size.
func (rc *ReportCache) Stats() domain.CacheStats {
	rc.statsMu.RLock()
	defer rc.statsMu.RUnlock()

	stats := rc.stats
	stats.MemoryItems = rc.memory.Len()
	return stats
}

// Close releases the Redis connection.
func (rc *ReportCache) Close() error {
	if rc.redis != nil {
		return rc.redis.Close()
	}
	return nil
}

func (rc *ReportCache) recordHit() {
	rc.statsMu.Lock()
	rc.stats.Hits++
	rc.statsMu.Unlock()
}

func (rc *ReportCache) recordMiss() {
	rc.statsMu.Lock()
	rc.stats.Misses++
	rc.statsMu.Unlock()
}
