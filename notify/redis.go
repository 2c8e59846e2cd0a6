package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/snap-point/activity-engine/logger"
)

type Config struct {
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB,default=0"`
	Channel       string        `env:"REDIS_CHANNEL,default=activity-notifications"`
	PoolSize      int           `env:"NOTIFY_POOL_SIZE,default=2"`
	Timeout       time.Duration `env:"NOTIFY_TIMEOUT,default=3s"`
}

type redisNotifier struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisNotifier publishes notifications as JSON on a Redis pub/sub channel.
func NewRedisNotifier(ctx context.Context, cfg Config, log *logger.Logger) (Notifier, func() error, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = "activity-notifications"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisNotifier{
		log:     log.With("service", "RedisNotifier"),
		rdb:     rdb,
		channel: ch,
	}, rdb.Close, nil
}

func (n *redisNotifier) Notify(ctx context.Context, msg Notification) error {
	if n == nil || n.rdb == nil {
		return fmt.Errorf("redis notifier not initialized")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, n.channel, raw).Err()
}

// NewNotifier returns the Redis notifier when REDIS_ADDR is set and reachable, and a no-op
// notifier otherwise.
func NewNotifier(ctx context.Context, cfg Config, log *logger.Logger) (Notifier, func() error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		log.Info("notifications disabled: REDIS_ADDR not set")
		return NopNotifier{}, func() error { return nil }
	}
	n, closeFn, err := NewRedisNotifier(ctx, cfg, log)
	if err != nil {
		log.Warn("redis notifier unavailable, notifications disabled", "error", err)
		return NopNotifier{}, func() error { return nil }
	}
	return n, closeFn
}
