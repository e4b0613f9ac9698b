// Package cache keeps a snapshot of the full product set so listings do not
// hit the record store on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inventory/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyProductGeneration counts invalidations of the product set.
	KeyProductGeneration = "inventory:products:gen"
	// KeyProductSnapshot prefixes the JSON encoded product set; the
	// generation it was read under is appended.
	KeyProductSnapshot = "inventory:products:all"
)

// Generation identifies one state of the product set between two
// invalidations.
type Generation int64

// NoGeneration is returned when the current generation is unknown. Snapshots
// offered under it are dropped.
const NoGeneration Generation = -1

// ProductCache stores the complete product set. Every product or stock
// change must call Invalidate after it is committed.
//
// A reader that misses takes the returned generation, loads the products and
// hands both to StoreProducts. If Invalidate ran in between, the snapshot is
// filed under a generation nobody reads any more.
type ProductCache interface {
	Products(ctx context.Context) ([]models.Product, Generation, bool)
	StoreProducts(ctx context.Context, gen Generation, products []models.Product)
	Invalidate(ctx context.Context)
}

// Noop is used when no cache is configured.
type Noop struct{}

func (Noop) Products(context.Context) ([]models.Product, Generation, bool) {
	return nil, NoGeneration, false
}
func (Noop) StoreProducts(context.Context, Generation, []models.Product) {}
func (Noop) Invalidate(context.Context)                                  {}

// Redis caches the product snapshot in Redis. Cache failures are reported
// through the error hook and otherwise ignored; the store stays the source of
// truth.
type Redis struct {
	rdb     *redis.Client
	ttl     time.Duration
	onError func(op string, err error)
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: 2 * time.Second, ReadTimeout: 2 * time.Second})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedis wraps rdb. onError may be nil.
func NewRedis(rdb *redis.Client, ttl time.Duration, onError func(op string, err error)) *Redis {
	if onError == nil {
		onError = func(string, error) {}
	}
	return &Redis{rdb: rdb, ttl: ttl, onError: onError}
}

func snapshotKey(gen Generation) string {
	return fmt.Sprintf("%s:%d", KeyProductSnapshot, gen)
}

func (c *Redis) generation(ctx context.Context) (Generation, error) {
	n, err := c.rdb.Get(ctx, KeyProductGeneration).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return Generation(n), err
}

func (c *Redis) Products(ctx context.Context) ([]models.Product, Generation, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.onError("get", err)
		return nil, NoGeneration, false
	}
	raw, err := c.rdb.Get(ctx, snapshotKey(gen)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.onError("get", err)
		}
		return nil, gen, false
	}
	var products []models.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		c.onError("decode", err)
		return nil, gen, false
	}
	return products, gen, true
}

func (c *Redis) StoreProducts(ctx context.Context, gen Generation, products []models.Product) {
	if gen == NoGeneration {
		return
	}
	raw, err := json.Marshal(products)
	if err != nil {
		c.onError("encode", err)
		return
	}
	if err := c.rdb.Set(ctx, snapshotKey(gen), raw, c.ttl).Err(); err != nil {
		c.onError("set", err)
	}
}

// Invalidate moves to the next generation and drops the snapshot of the
// previous one.
func (c *Redis) Invalidate(ctx context.Context) {
	next, err := c.rdb.Incr(ctx, KeyProductGeneration).Result()
	if err != nil {
		c.onError("incr", err)
		return
	}
	if err := c.rdb.Del(ctx, snapshotKey(Generation(next-1))).Err(); err != nil {
		c.onError("del", err)
	}
}
