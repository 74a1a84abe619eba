// Пакет cache — клиент Redis для File Service.
// Тонкая passthrough-обёртка над go-redis: ключ-значение с TTL и счётчики.
// Redis здесь — внешний коллаборатор, а не собственный движок кэширования.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/animenative/file-service/internal/config"
)

// ErrNotFound — ключ отсутствует в Redis.
var ErrNotFound = errors.New("ключ не найден")

// Client — клиент Redis.
type Client struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// New создаёт клиент Redis из конфигурации.
// Соединение ленивое; доступность проверяется через Ping (readiness probe).
func New(cfg *config.Config, logger *slog.Logger) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &Client{
		rdb:    rdb,
		logger: logger.With(slog.String("component", "redis_client")),
	}
}

// Set записывает значение по ключу. ttl = 0 — без истечения.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

// Get возвращает значение по ключу или ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis GET %s: %w", key, err)
	}
	return val, nil
}

// Delete удаляет один или несколько ключей. Возвращает количество удалённых.
func (c *Client) Delete(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis DEL: %w", err)
	}
	return n, nil
}

// Exists проверяет существование ключа.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis EXISTS %s: %w", key, err)
	}
	return n > 0, nil
}

// Expire устанавливает TTL ключа.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis EXPIRE %s: %w", key, err)
	}
	return nil
}

// TTL возвращает остаток времени жизни ключа.
// -1 — ключ без TTL, -2 — ключ не существует (семантика Redis).
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis TTL %s: %w", key, err)
	}
	return d, nil
}

// Incr инкрементирует счётчик и возвращает новое значение.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis INCR %s: %w", key, err)
	}
	return n, nil
}

// CheckReady проверяет доступность Redis через ping.
// Реализует интерфейс handlers.ReadinessChecker.
func (c *Client) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return "fail", fmt.Sprintf("Redis недоступен: %v", err)
	}
	return "ok", "подключение активно"
}

// Close закрывает соединение с Redis.
func (c *Client) Close() error {
	return c.rdb.Close()
}
