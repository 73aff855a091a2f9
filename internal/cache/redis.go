package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/hcen-uy/exchange-hub/internal/model"
)

// RedisCache is the shared DecisionCache for horizontally scaled
// deployments. Every operation runs through a circuit breaker: when
// Redis is unhealthy, reads report a miss and writes/invalidations
// become no-ops, so the engine falls back to full evaluation instead
// of failing the request.
type RedisCache struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
	logger *zerolog.Logger
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
}

func NewRedisCache(cfg RedisConfig, logger *zerolog.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "decision-cache",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     15 * time.Second,
	})

	return &RedisCache{
		client: redis.NewClient(opts),
		cb:     cb,
		logger: logger,
	}, nil
}

// Ping verifies connectivity for readiness checks.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(ctx context.Context, patientCI, specialty, documentType string) (model.Decision, bool) {
	v, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.Get(ctx, decisionKey(patientCI, specialty, documentType)).Result()
	})
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("decision cache read failed, treating as miss")
		}
		return "", false
	}

	s, ok := v.(string)
	if !ok || (s != string(model.DecisionPermit) && s != string(model.DecisionDeny)) {
		return "", false
	}
	return model.Decision(s), true
}

func (c *RedisCache) Put(ctx context.Context, patientCI, specialty, documentType string, decision model.Decision, ttl time.Duration) {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, decisionKey(patientCI, specialty, documentType), string(decision), ttl).Err()
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("decision cache write failed")
	}
}

func (c *RedisCache) InvalidateAll(ctx context.Context, patientCI string) int {
	v, err := c.cb.Execute(func() (interface{}, error) {
		var deleted int
		iter := c.client.Scan(ctx, 0, patientPrefix(patientCI)+"*", 100).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
				return deleted, err
			}
			deleted++
		}
		return deleted, iter.Err()
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("patient_ci", patientCI).Msg("decision cache invalidation failed")
	}
	if n, ok := v.(int); ok {
		return n
	}
	return 0
}

func (c *RedisCache) InvalidateOne(ctx context.Context, patientCI, specialty, documentType string) bool {
	v, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.Del(ctx, decisionKey(patientCI, specialty, documentType)).Result()
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("decision cache invalidation failed")
		return false
	}
	n, ok := v.(int64)
	return ok && n > 0
}
