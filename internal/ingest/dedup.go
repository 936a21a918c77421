package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"kosh/internal/config"
	"kosh/internal/constants"
	"kosh/internal/logger"
	"kosh/pkg/circuitbreaker"
	"kosh/pkg/metrics"
)

// DedupRepository is the cache used to remember already-ingested messages.
type DedupRepository interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
}

type RedisDedupRepository struct {
	client *redis.Client
}

func NewDedupRepository(client *redis.Client) DedupRepository {
	return &RedisDedupRepository{client: client}
}

func (r *RedisDedupRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	success, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	return success, nil
}

type CircuitBreakerDedupRepository struct {
	repo DedupRepository
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerDedupRepository(repo DedupRepository, cfg config.CircuitBreakerConfig) *CircuitBreakerDedupRepository {
	if !cfg.Enabled {
		return &CircuitBreakerDedupRepository{
			repo: repo,
			cb:   nil,
		}
	}

	cbConfig := circuitbreaker.DefaultConfig("redis-dedup")
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool {
			if counts.Requests < uint32(cfg.MinRequests) {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		}
	}

	return &CircuitBreakerDedupRepository{
		repo: repo,
		cb:   circuitbreaker.NewWrapper(cbConfig),
	}
}

func (r *CircuitBreakerDedupRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if r.cb == nil {
		return r.repo.SetNX(ctx, key, value, ttl)
	}

	result, err := r.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return r.repo.SetNX(ctx, key, value, ttl)
	})

	r.cb.RecordRequest(err == nil)

	if err != nil {
		if r.cb.IsOpen() {
			return false, fmt.Errorf("circuit breaker is open for redis-dedup: %w", err)
		}
		return false, err
	}

	success, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("repository returned invalid result type")
	}

	return success, nil
}

// Deduplicator decides whether an inbound SMS was seen before. The signature
// covers sender, body and timestamp so the same alert delivered twice (device
// plus scan) collapses to a single transaction.
type Deduplicator struct {
	repo DedupRepository
	cfg  config.DedupConfig
	log  logger.Logger
}

func NewDeduplicator(repo DedupRepository, cfg config.DedupConfig, log logger.Logger) *Deduplicator {
	return &Deduplicator{
		repo: repo,
		cfg:  cfg,
		log:  log,
	}
}

// IsNew returns true if the message has not been ingested before. On Redis
// failure the configured fallback applies: "allow" treats the message as new,
// "deny" drops it.
func (d *Deduplicator) IsNew(ctx context.Context, sender, body string, timestamp int64) (bool, error) {
	key := constants.CacheKeyPrefixDedup + Signature(sender, body, timestamp)

	success, err := d.repo.SetNX(ctx, key, time.Now().Unix(), d.ttl())
	if err != nil {
		return d.handleRedisError(ctx, err)
	}

	if success {
		metrics.IncDedupCheck("unique")
	} else {
		metrics.IncDedupCheck("duplicate")
	}
	return success, nil
}

func (d *Deduplicator) ttl() time.Duration {
	seconds := d.cfg.TTLSeconds
	if seconds <= 0 {
		seconds = constants.DefaultDedupTTLSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (d *Deduplicator) handleRedisError(ctx context.Context, err error) (bool, error) {
	metrics.IncDedupCheck("error")

	if strings.ToLower(d.cfg.OnRedisError) == constants.FallbackDeny {
		metrics.FallbackUsageTotal.WithLabelValues("ingest", "deny_on_error", err.Error()).Inc()
		return false, fmt.Errorf("redis error during dedup check: %w", err)
	}

	metrics.FallbackUsageTotal.WithLabelValues("ingest", "allow_on_error", err.Error()).Inc()
	d.log.WarnwCtx(ctx, "Redis error during dedup check, treating message as new (fallback: allow)",
		"error", err,
	)
	return true, nil
}

// Signature computes the dedup key material for a message.
func Signature(sender, body string, timestamp int64) string {
	var builder strings.Builder
	builder.WriteString(sender)
	builder.WriteString("|")
	builder.WriteString(body)
	builder.WriteString("|")
	builder.WriteString(strconv.FormatInt(timestamp, 10))

	sum := sha256.Sum256([]byte(builder.String()))
	return hex.EncodeToString(sum[:])
}
