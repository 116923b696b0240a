package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisFetcher reads a value stored under a single key
type RedisFetcher struct {
	Key      string
	Client   RedisClient
	MaxBytes int64
}

func (f *RedisFetcher) Fetch(ctx context.Context) ([]byte, error) {
	data, err := f.Client.Get(ctx, f.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis key %q not found", f.Key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", f.Key, err)
	}
	if f.MaxBytes > 0 && int64(len(data)) > f.MaxBytes {
		return nil, fmt.Errorf("redis key %q: %w of %d bytes", f.Key, ErrTooLarge, f.MaxBytes)
	}
	return data, nil
}
