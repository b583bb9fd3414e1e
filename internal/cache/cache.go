// cache — опциональный Redis-кэш членства refresh-токенов в хранилище отзыва.
// Хранилище БД остаётся источником истины: промах кэша всегда проверяется по БД.
package cache

//go:generate mockgen -destination=../../mocks/mock_cache.go -package=mocks github.com/pribylovaa/go-career-advisor/internal/cache RefreshCache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/redis/go-redis/v9"
)

// State — ответ кэша о refresh-токене.
type State uint8

const (
	// StateUnknown — записи нет, нужно спросить БД.
	StateUnknown State = iota
	// StateActive — токен присутствует в хранилище отзыва.
	StateActive
	// StateRevoked — токен отозван (tombstone) или истёк.
	StateRevoked
)

// RefreshCache — контракт кэша refresh-токенов.
type RefreshCache interface {
	// Lookup возвращает состояние токена и владельца (для StateActive).
	Lookup(ctx context.Context, hash string) (State, uuid.UUID, error)
	// Remember кэширует активный токен до его ExpiresAt.
	Remember(ctx context.Context, token *models.RefreshToken) error
	// Forget записывает tombstone-ы для отозванных токенов.
	Forget(ctx context.Context, hashes ...string) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
	// tombTTL — время жизни tombstone, если у ключа ещё нет TTL.
	tombTTL time.Duration
	now     func() time.Time
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение. Пустой prefix заменяется на "career:rt:".
func NewRedisCache(ctx context.Context, redisURL, prefix string, tombTTL time.Duration) (RefreshCache, error) {
	const op = "cache.NewRedisCache"

	if prefix == "" {
		prefix = "career:rt:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return newRedisCache(rdb, prefix, tombTTL), nil
}

func newRedisCache(rdb *redis.Client, prefix string, tombTTL time.Duration) *redisCache {
	if tombTTL <= 0 {
		tombTTL = 24 * time.Hour
	}

	return &redisCache{rdb: rdb, prefix: prefix, tombTTL: tombTTL, now: time.Now}
}

func (c *redisCache) key(hash string) string { return c.prefix + hash }

// Храним как Redis Hash с полями: uid, rev (0/1), exp (unix).
func (c *redisCache) Lookup(ctx context.Context, hash string) (State, uuid.UUID, error) {
	m, err := c.rdb.HGetAll(ctx, c.key(hash)).Result()
	if err != nil {
		return StateUnknown, uuid.Nil, err
	}

	if len(m) == 0 {
		return StateUnknown, uuid.Nil, nil
	}

	if m["rev"] == "1" {
		return StateRevoked, uuid.Nil, nil
	}

	expUnix, err := strconv.ParseInt(m["exp"], 10, 64)
	if err != nil {
		return StateUnknown, uuid.Nil, err
	}

	if !c.now().Before(time.Unix(expUnix, 0)) {
		return StateRevoked, uuid.Nil, nil
	}

	uid, err := uuid.Parse(m["uid"])
	if err != nil {
		return StateUnknown, uuid.Nil, err
	}

	return StateActive, uid, nil
}

func (c *redisCache) Remember(ctx context.Context, token *models.RefreshToken) error {
	ttl := token.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}

	kv := map[string]string{
		"uid": token.UserID.String(),
		"rev": "0",
		"exp": strconv.FormatInt(token.ExpiresAt.Unix(), 10),
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key(token.Hash), kv)
	pipe.Expire(ctx, c.key(token.Hash), ttl)

	_, err := pipe.Exec(ctx)
	return err
}

// Forget сохраняет остаточный TTL существующих ключей; новым tombstone-ам
// выставляется tombTTL (ExpireNX не трогает уже заданный TTL).
func (c *redisCache) Forget(ctx context.Context, hashes ...string) error {
	if len(hashes) == 0 {
		return nil
	}

	pipe := c.rdb.TxPipeline()
	for _, h := range hashes {
		pipe.HSet(ctx, c.key(h), "rev", "1")
		pipe.ExpireNX(ctx, c.key(h), c.tombTTL)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) Close() error { return c.rdb.Close() }
