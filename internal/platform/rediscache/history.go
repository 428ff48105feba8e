// Package rediscache implements the step-history cache on Redis.
//
// Each cached range is stored as a JSON array under a key that carries the
// guardian's generation. Invalidation increments the generation counter, so
// older entries become unreachable at once and expire with their TTL.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/guardianes/internal/domain"
	"github.com/phrazzld/guardianes/internal/service"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL bounds how long a cached range survives without invalidation.
	DefaultTTL = 10 * time.Minute

	keyPrefix = "guardianes:history"
)

// HistoryCache implements service.HistoryCache.
type HistoryCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

var _ service.HistoryCache = (*HistoryCache)(nil)

// NewHistoryCache creates a HistoryCache. A non-positive ttl means DefaultTTL.
func NewHistoryCache(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) (*HistoryCache, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "history_cache")),
	}, nil
}

func rangeKey(guardianID domain.GuardianID, generation int64, from, to time.Time) string {
	return fmt.Sprintf("%s:%d:g%d:%s:%s", keyPrefix, guardianID, generation,
		from.Format(time.DateOnly), to.Format(time.DateOnly))
}

func generationKey(guardianID domain.GuardianID) string {
	return fmt.Sprintf("%s:%d:gen", keyPrefix, guardianID)
}

// Generation returns the guardian's current generation. A guardian that was
// never invalidated is at generation zero.
func (c *HistoryCache) Generation(ctx context.Context, guardianID domain.GuardianID) (int64, error) {
	generation, err := c.client.Get(ctx, generationKey(guardianID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read history generation: %w", err)
	}
	return generation, nil
}

// GetHistory returns the aggregates cached for the range under generation.
// The boolean is false on a miss.
func (c *HistoryCache) GetHistory(
	ctx context.Context,
	guardianID domain.GuardianID,
	generation int64,
	from, to time.Time,
) ([]domain.DailyStepAggregate, bool, error) {
	raw, err := c.client.Get(ctx, rangeKey(guardianID, generation, from, to)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read step history: %w", err)
	}

	var aggregates []domain.DailyStepAggregate
	if err := json.Unmarshal(raw, &aggregates); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next read.
		c.logger.WarnContext(ctx, "discarding undecodable history entry",
			slog.Int64("guardian_id", guardianID.Int64()),
			slog.String("error", err.Error()))
		return nil, false, nil
	}
	return aggregates, true, nil
}

// SetHistory stores the aggregates for the range under generation. An entry
// written under a generation that has since been invalidated is never read.
func (c *HistoryCache) SetHistory(
	ctx context.Context,
	guardianID domain.GuardianID,
	generation int64,
	from, to time.Time,
	aggregates []domain.DailyStepAggregate,
) error {
	if aggregates == nil {
		aggregates = []domain.DailyStepAggregate{}
	}
	raw, err := json.Marshal(aggregates)
	if err != nil {
		return fmt.Errorf("encode step history: %w", err)
	}

	if err := c.client.Set(ctx, rangeKey(guardianID, generation, from, to), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write step history: %w", err)
	}
	return nil
}

// Invalidate advances the guardian's generation. The counter carries no TTL
// so it never falls back to a generation that was already served.
func (c *HistoryCache) Invalidate(ctx context.Context, guardianID domain.GuardianID) error {
	generation, err := c.client.Incr(ctx, generationKey(guardianID)).Result()
	if err != nil {
		return fmt.Errorf("invalidate step history: %w", err)
	}
	c.logger.DebugContext(ctx, "step history invalidated",
		slog.Int64("guardian_id", guardianID.Int64()),
		slog.Int64("generation", generation))
	return nil
}
