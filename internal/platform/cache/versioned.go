package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Versioned caches JSON documents under keys suffixed with a namespace
// version. Bumping the version invalidates every key in the namespace at once.
type Versioned struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	group     singleflight.Group
}

// NewVersioned instantiates the cache helper. A nil client disables caching.
func NewVersioned(client *redis.Client, namespace string, ttl time.Duration) *Versioned {
	return &Versioned{client: client, namespace: namespace, ttl: ttl}
}

func (c *Versioned) versionKey() string {
	return c.namespace + ":version"
}

// Channel is the pub/sub channel that carries version bumps.
func (c *Versioned) Channel() string {
	return c.namespace + ".bump"
}

// Version returns the current namespace version, initialising when missing.
func (c *Versioned) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, c.versionKey(), 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, c.versionKey()).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Versioned) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(append([]string{c.namespaceOrDefault()}, parts...), ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", joined, ver), nil
}

func (c *Versioned) namespaceOrDefault() string {
	if c == nil || c.namespace == "" {
		return "cache"
	}
	return c.namespace
}

// FetchJSON loads a cached value or populates it using the loader. Concurrent
// misses on the same key share one loader call.
func (c *Versioned) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	raw, err, _ := c.group.Do(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return nil, err
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}

// Bump invalidates the namespace by incrementing its version and publishing
// the new value for other instances.
func (c *Versioned) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, c.versionKey()).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, c.Channel(), strconv.FormatInt(ver, 10)).Err()
}

// Listen applies version bumps published by other instances until ctx ends.
func (c *Versioned) Listen(ctx context.Context) error {
	if c == nil || c.client == nil {
		<-ctx.Done()
		return nil
	}
	pubsub := c.client.Subscribe(ctx, c.Channel())
	defer func() { _ = pubsub.Close() }()
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ver, err := strconv.ParseInt(msg.Payload, 10, 64)
			if err != nil {
				continue
			}
			current, err := c.Version(ctx)
			if err != nil {
				return err
			}
			if ver > current {
				if err := c.client.Set(ctx, c.versionKey(), ver, 0).Err(); err != nil {
					return err
				}
			}
		}
	}
}

func roundTrip(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
