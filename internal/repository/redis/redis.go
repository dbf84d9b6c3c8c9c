package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rosterhq/oncall-api/internal/config"
	"github.com/rosterhq/oncall-api/internal/repository"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
	"github.com/rosterhq/oncall-api/pkg/metrics"
)

const listPageSize = 100

// Store implements repository.KVStore on a Redis client.
type Store struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewStore connects to Redis and verifies the connection.
func NewStore(cfg config.RedisConfig, m *metrics.Metrics) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, apperrors.Configuration("invalid redis URL", err)
	}

	opts.MaxRetries = cfg.MaxRetries
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, apperrors.Store("failed to connect to redis", err)
	}

	return &Store{client: client, metrics: m}, nil
}

func (s *Store) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.KVOperations.WithLabelValues(op, status).Inc()
	s.metrics.KVLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		s.observe("get", start, nil)
		return nil, false, nil
	}
	s.observe("get", start, err)
	if err != nil {
		return nil, false, apperrors.Store(fmt.Sprintf("get %s", key), err)
	}
	return value, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.client.Set(ctx, key, value, 0).Err()
	s.observe("put", start, err)
	if err != nil {
		return apperrors.Store(fmt.Sprintf("put %s", key), err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.client.Del(ctx, key).Err()
	s.observe("delete", start, err)
	if err != nil {
		return apperrors.Store(fmt.Sprintf("delete %s", key), err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string, cursor uint64) ([]string, uint64, bool, error) {
	start := time.Now()
	keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", listPageSize).Result()
	s.observe("list", start, err)
	if err != nil {
		return nil, 0, false, apperrors.Store(fmt.Sprintf("list %s", prefix), err)
	}
	return keys, next, next == 0, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ repository.KVStore = (*Store)(nil)
