package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/go-redis/redis/v8"
)

// Redis guarda las curvas serializadas en JSON bajo un prefijo común.
type Redis struct {
	client *redis.Client
	prefix string
}

// RedisOptions configura la conexión.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis conecta y verifica la conexión con un PING.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("cache.NewRedis: ping %s: %w", opts.Addr, err)
	}
	return NewRedisClient(rdb, opts.Prefix), nil
}

// NewRedisClient envuelve un cliente existente (tests con redismock).
func NewRedisClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Get devuelve ok=false si la clave no existe (redis.Nil).
func (r *Redis) Get(ctx context.Context, key string) (domain.YieldCurveData, bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.YieldCurveData{}, false, nil
	}
	if err != nil {
		return domain.YieldCurveData{}, false, fmt.Errorf("cache.Redis.Get %s: %w", key, err)
	}

	var c domain.YieldCurveData
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.YieldCurveData{}, false, fmt.Errorf("cache.Redis.Get %s: decode: %w", key, err)
	}
	return c, true, nil
}

// Set guarda la curva con expiración ttl.
func (r *Redis) Set(ctx context.Context, key string, curve domain.YieldCurveData, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(curve)
	if err != nil {
		return fmt.Errorf("cache.Redis.Set %s: encode: %w", key, err)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache.Redis.Set %s: %w", key, err)
	}
	return nil
}

// Close cierra el pool de conexiones.
func (r *Redis) Close() error {
	return r.client.Close()
}
