// Package redis stores the cart in Redis.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"rocketshoes/pkg/cart"
)

// Storage persists the cart as a plain string key.
type Storage struct {
	client *redis.Client
}

// New wraps an existing client.
func New(client *redis.Client) *Storage {
	return &Storage{client: client}
}

// Dial connects to addr, which is either a redis:// URL or host:port.
func Dial(addr string) *Storage {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{
			Addr:         addr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}
	}
	return New(redis.NewClient(opts))
}

// Get returns the value stored under key.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrNoValue
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Set overwrites the value stored under key.
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// Ping reports whether Redis answers within five seconds.
func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *Storage) Close() error {
	return s.client.Close()
}
