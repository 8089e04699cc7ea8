package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"tunecrawl/internal/catalog"
)

// Redis stores the catalog as one JSON string under a single key.
type Redis struct {
	client *redis.Client
	key    string
	addr   string
}

// OpenRedis connects to the server at url and verifies it answers.
func OpenRedis(ctx context.Context, url, key string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return NewRedis(client, key), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key, addr: client.Options().Addr}
}

func (r *Redis) Load(ctx context.Context) (catalog.Catalog, bool, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return catalog.Catalog{}, false, nil
	}
	if err != nil {
		return catalog.Catalog{}, false, fmt.Errorf("get %s: %w", r.key, err)
	}
	var cat catalog.Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return catalog.Catalog{}, false, fmt.Errorf("decode %s: %w", r.key, err)
	}
	return cat, true, nil
}

func (r *Redis) Save(ctx context.Context, cat catalog.Catalog) error {
	data, err := json.Marshal(cat)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", r.key, err)
	}
	return nil
}

// Ping checks the server connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) Describe() string { return "redis:" + r.addr + "/" + r.key }
