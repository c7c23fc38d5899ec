package lookup

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"concierge-pipeline/utils"
)

const (
	cityKeyPrefix = "postal:city:"
	zipKeyPrefix  = "postal:zip:"
)

// Postal is the lookup contract shared by the client and its cache.
type Postal interface {
	CityByZip(ctx context.Context, zip string) (string, error)
	ZipByCity(ctx context.Context, city string) (int, error)
}

// PostalCache keeps successful postal answers in Redis so repeated runs do
// not hit the upstream API for the same zip or city. Misses are not cached
// and Redis errors fall through to the wrapped lookup.
type PostalCache struct {
	next   Postal
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *utils.Logger
}

func NewPostalCache(next Postal, rdb redis.Cmdable, ttl time.Duration, logger *utils.Logger) *PostalCache {
	return &PostalCache{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *PostalCache) CityByZip(ctx context.Context, zip string) (string, error) {
	key := cityKeyPrefix + strings.TrimSpace(zip)

	if city, ok := c.get(ctx, key); ok {
		return city, nil
	}

	city, err := c.next.CityByZip(ctx, zip)
	if err != nil {
		return "", err
	}
	c.set(ctx, key, city)
	return city, nil
}

func (c *PostalCache) ZipByCity(ctx context.Context, city string) (int, error) {
	key := zipKeyPrefix + strings.ToLower(strings.TrimSpace(city))

	if cached, ok := c.get(ctx, key); ok {
		if zip, err := strconv.Atoi(cached); err == nil {
			return zip, nil
		}
	}

	zip, err := c.next.ZipByCity(ctx, city)
	if err != nil {
		return 0, err
	}
	c.set(ctx, key, strconv.Itoa(zip))
	return zip, nil
}

func (c *PostalCache) get(ctx context.Context, key string) (string, bool) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("[postal-cache] GET %s failed: %v", key, err)
		}
		return "", false
	}
	return val, true
}

func (c *PostalCache) set(ctx context.Context, key, val string) {
	if err := c.rdb.Set(ctx, key, val, c.ttl).Err(); err != nil {
		c.logger.Warn("[postal-cache] SET %s failed: %v", key, err)
	}
}
