package infra

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

type RedisConfig struct {
	Host       string        `default:"localhost"`
	Port       int           `default:"6379"`
	RetryDelay time.Duration `default:"1s"`
	MaxRetries int           `default:"3"`
}

func ParseRedisConfig() *RedisConfig {
	cfg := RedisConfig{}
	envconfig.MustProcess("VALUES_REDIS", &cfg)
	return &cfg
}

func (c *RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Cache holds two connections to the same Redis server. The general client
// serves reads, writes and subscriptions; the publisher is used only for
// PUBLISH so that a client in subscribe mode never blocks publishing.
type Cache struct {
	client     *redis.Client
	publisher  *redis.Client
	retryDelay time.Duration
	clock      clock.Clock
	log        *zap.Logger
}

type CacheOption func(*Cache)

func WithCacheClock(clk clock.Clock) CacheOption {
	return func(c *Cache) {
		c.clock = clk
	}
}

func NewCache(cfg *RedisConfig, secrets Secrets, logger *zap.Logger, opts ...CacheOption) *Cache {
	password := secrets.GetRedisPassword()

	c := &Cache{
		client:     redis.NewClient(redisOptions(cfg, password)),
		publisher:  redis.NewClient(redisOptions(cfg, password)),
		retryDelay: cfg.RetryDelay,
		clock:      clock.RealClock{},
		log:        logger.Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// redisOptions builds fresh options for each connection; go-redis normalizes
// the struct it is given, so options are never shared between clients.
// Reads and writes carry no deadline, a hung server hangs the caller.
func redisOptions(cfg *RedisConfig, password string) *redis.Options {
	return &redis.Options{
		Addr:            cfg.Addr(),
		Password:        password,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.RetryDelay,
		MaxRetryBackoff: cfg.RetryDelay,
		ReadTimeout:     -1,
		WriteTimeout:    -1,
	}
}

func (c *Cache) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	values, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}

	return values, nil
}

func (c *Cache) HashSet(ctx context.Context, key, field, value string) error {
	if err := c.client.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("hset %s %s: %w", key, field, err)
	}

	return nil
}

func (c *Cache) Publish(ctx context.Context, channel, message string) error {
	if err := c.publisher.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}

	return nil
}

func (c *Cache) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.client.Subscribe(ctx, channels...)
}

func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return err
	}

	return c.publisher.Ping(ctx).Err()
}

// KeepAlive pings both connections every retry delay until ctx is done and
// logs each change of connectivity. There is no attempt limit.
func (c *Cache) KeepAlive(ctx context.Context) {
	var connected *bool

	for {
		err := c.Ping(ctx)
		if ctx.Err() != nil {
			return
		}

		ok := err == nil
		if connected == nil || *connected != ok {
			if ok {
				c.log.Info("connected to cache")
			} else {
				c.log.Warn("lost cache connection", zap.Error(err), zap.Duration("retry_in", c.retryDelay))
			}
			connected = &ok
		}

		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(c.retryDelay):
		}
	}
}

func (c *Cache) Close() error {
	err := c.publisher.Close()
	if cerr := c.client.Close(); cerr != nil {
		return cerr
	}

	return err
}
