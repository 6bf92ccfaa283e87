package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/distroflow/internal/config"
	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/engine"
)

// ReportCache memoizes engine outputs by the inputs that produced them.
type ReportCache interface {
	GetReport(ctx context.Context, filter domain.InventoryFilter, params engine.Params) (*domain.InventoryReport, bool, error)
	SetReport(ctx context.Context, filter domain.InventoryFilter, params engine.Params, report *domain.InventoryReport) error
	GetForecast(ctx context.Context, filter domain.ForecastFilter, params engine.Params) (*domain.SeriesForecast, bool, error)
	SetForecast(ctx context.Context, filter domain.ForecastFilter, params engine.Params, forecast *domain.SeriesForecast) error
	InvalidateAll(ctx context.Context) error
}

const (
	defaultCacheTTL = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

// NewReportCache connects to redis when caching is enabled and returns a
// noop cache otherwise.
func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(cfg.ReportTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &redisReportCache{client: client, ttl: ttl}, nil
}

// redisOptions prefers REDIS_URL and falls back to host, port and db.
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) GetReport(ctx context.Context, filter domain.InventoryFilter, params engine.Params) (*domain.InventoryReport, bool, error) {
	var report domain.InventoryReport
	ok, err := c.get(ctx, buildReportKey(filter, params), &report)
	if err != nil || !ok {
		return nil, false, err
	}
	return &report, true, nil
}

func (c *redisReportCache) SetReport(ctx context.Context, filter domain.InventoryFilter, params engine.Params, report *domain.InventoryReport) error {
	return c.set(ctx, buildReportKey(filter, params), report)
}

func (c *redisReportCache) GetForecast(ctx context.Context, filter domain.ForecastFilter, params engine.Params) (*domain.SeriesForecast, bool, error) {
	var forecast domain.SeriesForecast
	ok, err := c.get(ctx, buildForecastKey(filter, params), &forecast)
	if err != nil || !ok {
		return nil, false, err
	}
	return &forecast, true, nil
}

func (c *redisReportCache) SetForecast(ctx context.Context, filter domain.ForecastFilter, params engine.Params, forecast *domain.SeriesForecast) error {
	return c.set(ctx, buildForecastKey(filter, params), forecast)
}

// InvalidateAll drops every report and forecast entry, one scan page at a
// time.
func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	batch := make([]string, 0, scanBatchSize)
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis delete failed: %w", err)
		}
	}
	return nil
}

func (c *redisReportCache) get(ctx context.Context, key string, dst any) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func (c *redisReportCache) set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopReportCache) GetReport(ctx context.Context, filter domain.InventoryFilter, params engine.Params) (*domain.InventoryReport, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetReport(ctx context.Context, filter domain.InventoryFilter, params engine.Params, report *domain.InventoryReport) error {
	return nil
}

func (n *noopReportCache) GetForecast(ctx context.Context, filter domain.ForecastFilter, params engine.Params) (*domain.SeriesForecast, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetForecast(ctx context.Context, filter domain.ForecastFilter, params engine.Params, forecast *domain.SeriesForecast) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}
