// Package cache оборачивает Redis: JSON-кэш значений и распределённая блокировка
// запуска планировщика для нескольких реплик.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/subscription-notifier/internal/config"
)

// ErrLockNotHeld блокировка уже истекла или принадлежит другому владельцу.
var ErrLockNotHeld = errors.New("lock not held")

// releaseScript удаляет ключ, только если в нём лежит наш токен.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type Cache struct {
	DB *redis.Client
}

// Lock захваченная блокировка. Освобождается через Cache.Unlock.
type Lock struct {
	Key   string
	Token string
}

func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{DB: db}, nil
}

func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.DB.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	err = json.Unmarshal([]byte(val), result)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.DB.Set(ctx, key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.DB.Del(ctx, key).Err()
}

// TryLock пытается захватить блокировку key на ttl (SET NX).
// Возвращает false без ошибки, если блокировка уже занята.
func (c *Cache) TryLock(ctx context.Context, key string, ttl time.Duration) (*Lock, bool, error) {
	const op = "cache.TryLock"
	token := uuid.NewString()
	ok, err := c.DB.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{Key: key, Token: token}, true, nil
}

// Unlock освобождает блокировку, если она всё ещё принадлежит владельцу lock.
func (c *Cache) Unlock(ctx context.Context, lock *Lock) error {
	const op = "cache.Unlock"
	if lock == nil {
		return nil
	}
	deleted, err := releaseScript.Run(ctx, c.DB, []string{lock.Key}, lock.Token).Int64()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%s: %w", op, ErrLockNotHeld)
	}
	return nil
}

// Ping проверяет доступность Redis.
func (c *Cache) Ping(ctx context.Context) error {
	return c.DB.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.DB.Close()
}
