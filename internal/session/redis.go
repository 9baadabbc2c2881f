package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "sheetload:session:"

// RedisOptions configures a RedisBackend.
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Expiry is the key TTL. It should exceed the session lifetime so that
	// reads in between still report ErrExpired.
	Expiry time.Duration
}

// RedisBackend stores sessions as JSON strings with a key TTL.
type RedisBackend struct {
	client *redis.Client
	expiry time.Duration
}

// NewRedisBackend connects to redis and verifies the connection.
func NewRedisBackend(ctx context.Context, opts RedisOptions) (*RedisBackend, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisBackend{client: client, expiry: opts.Expiry}, nil
}

func (r *RedisBackend) key(id string) string { return redisKeyPrefix + id }

func (r *RedisBackend) Save(ctx context.Context, s *Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(s.ID), data, r.expiry).Err(); err != nil {
		return fmt.Errorf("set session %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisBackend) Load(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return decode(data)
}

func (r *RedisBackend) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Sweep is a no-op; keys expire through their redis TTL.
func (r *RedisBackend) Sweep(context.Context, time.Time) (int, error) { return 0, nil }

func (r *RedisBackend) Close() error { return r.client.Close() }
