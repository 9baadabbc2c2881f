package session

import (
	"context"
	"fmt"
	"time"
)

// Backend kinds accepted by Open.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindRedis  = "redis"
)

// Options selects and configures a session backend.
type Options struct {
	Kind  string
	TTL   time.Duration
	Dir   string
	Redis RedisOptions
}

// Open builds a Store on the backend named by opts.Kind.
func Open(ctx context.Context, opts Options) (*Store, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	var (
		backend Backend
		err     error
	)
	switch opts.Kind {
	case KindMemory, "":
		backend = NewMemoryBackend()
	case KindFile:
		backend, err = NewFileBackend(opts.Dir)
	case KindRedis:
		ro := opts.Redis
		if ro.Expiry <= 0 {
			ro.Expiry = 2 * ttl
		}
		backend, err = NewRedisBackend(ctx, ro)
	default:
		return nil, fmt.Errorf("unknown session store %q", opts.Kind)
	}
	if err != nil {
		return nil, err
	}

	return NewStore(backend, ttl), nil
}
