package scoring

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"creditflow/internal/core/domain"
	"creditflow/internal/core/services"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "creditflow:score:"

// ScoreCache is the subset of redis commands the cache needs
type ScoreCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedOracle keeps scores in redis for ttl. Cache failures fall through
// to the wrapped oracle.
type CachedOracle struct {
	next  services.ScoreOracle
	cache ScoreCache
	ttl   time.Duration
	log   *slog.Logger
}

// NewCachedOracle wraps next with a redis cache
func NewCachedOracle(next services.ScoreOracle, cache ScoreCache, ttl time.Duration, log *slog.Logger) *CachedOracle {
	if log == nil {
		log = slog.Default()
	}
	return &CachedOracle{next: next, cache: cache, ttl: ttl, log: log}
}

func (o *CachedOracle) GetScore(ctx context.Context, identity string) (domain.CreditScore, error) {
	key := cacheKeyPrefix + identity

	cached, err := o.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		if v, convErr := strconv.Atoi(cached); convErr == nil {
			if score, scoreErr := domain.NewCreditScore(v); scoreErr == nil {
				return score, nil
			}
		}
		o.log.Warn("ignoring corrupt cached score", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		o.log.Warn("score cache read failed", "error", err)
	}

	score, err := o.next.GetScore(ctx, identity)
	if err != nil {
		return domain.CreditScore{}, err
	}

	if err := o.cache.Set(ctx, key, score.Value(), o.ttl).Err(); err != nil {
		o.log.Warn("score cache write failed", "error", err)
	}
	return score, nil
}

// NewRedisClient opens the score cache connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}
