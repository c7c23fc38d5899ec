package lookup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPostal struct {
	mu        sync.Mutex
	cityCalls int
	zipCalls  int
}

func (c *countingPostal) CityByZip(_ context.Context, zip string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cityCalls++
	if zip == "75001" {
		return "Paris", nil
	}
	return "", ErrNotFound
}

func (c *countingPostal) ZipByCity(_ context.Context, city string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zipCalls++
	if city == "Lyon" || city == "LYON" {
		return 69001, nil
	}
	return 0, ErrNotFound
}

func newTestCache(t *testing.T) (*PostalCache, *countingPostal, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	next := &countingPostal{}
	return NewPostalCache(next, rdb, time.Hour, newTestLogger()), next, mr
}

func TestPostalCacheHitSkipsUpstream(t *testing.T) {
	cache, next, mr := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		city, err := cache.CityByZip(ctx, "75001")
		require.NoError(t, err)
		assert.Equal(t, "Paris", city)
	}
	assert.Equal(t, 1, next.cityCalls)

	stored, err := mr.Get("postal:city:75001")
	require.NoError(t, err)
	assert.Equal(t, "Paris", stored)
	assert.Equal(t, time.Hour, mr.TTL("postal:city:75001"))
}

func TestPostalCacheZipKeyIsCaseInsensitive(t *testing.T) {
	cache, next, _ := newTestCache(t)
	ctx := context.Background()

	zip, err := cache.ZipByCity(ctx, "Lyon")
	require.NoError(t, err)
	assert.Equal(t, 69001, zip)

	zip, err = cache.ZipByCity(ctx, "LYON")
	require.NoError(t, err)
	assert.Equal(t, 69001, zip)
	assert.Equal(t, 1, next.zipCalls)
}

func TestPostalCacheDoesNotStoreMisses(t *testing.T) {
	cache, next, mr := newTestCache(t)
	ctx := context.Background()

	_, err := cache.CityByZip(ctx, "99999")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = cache.CityByZip(ctx, "99999")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 2, next.cityCalls)
	assert.False(t, mr.Exists("postal:city:99999"))
}

func TestPostalCacheRedisDownFallsThrough(t *testing.T) {
	cache, next, mr := newTestCache(t)
	mr.Close()

	city, err := cache.CityByZip(context.Background(), "75001")
	require.NoError(t, err)
	assert.Equal(t, "Paris", city)
	assert.Equal(t, 1, next.cityCalls)
}
