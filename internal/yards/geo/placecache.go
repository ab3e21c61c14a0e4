package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/itsloashh/yards-app/internal/models"
)

const placesKey = "yards:places"

// RedisPlaceCache keeps reverse-geocoded places in a Redis GEO set so that a
// fix a few meters from a known point reuses its name.
type RedisPlaceCache struct {
	rdb          *redis.Client
	radiusMeters float64
	ttl          time.Duration
}

// NewRedisPlaceCache creates a cache; lookups match within radiusMeters.
func NewRedisPlaceCache(rdb *redis.Client, radiusMeters float64, ttl time.Duration) *RedisPlaceCache {
	if radiusMeters <= 0 {
		radiusMeters = 75
	}
	return &RedisPlaceCache{rdb: rdb, radiusMeters: radiusMeters, ttl: ttl}
}

func placeMember(c models.Coordinate) string {
	return fmt.Sprintf("place:%.5f:%.5f", c.Lat, c.Lng)
}

func placeDetailKey(member string) string {
	return "yards:" + member
}

// Lookup returns the nearest cached place within the configured radius.
func (c *RedisPlaceCache) Lookup(ctx context.Context, coord models.Coordinate) (Place, bool, error) {
	res, err := c.rdb.GeoSearchLocation(ctx, placesKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  coord.Lng,
			Latitude:   coord.Lat,
			Radius:     c.radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      1,
		},
		WithDist: true,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Place{}, false, nil
		}
		return Place{}, false, err
	}
	if len(res) == 0 {
		return Place{}, false, nil
	}

	member := res[0].Name
	raw, err := c.rdb.Get(ctx, placeDetailKey(member)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// detail expired, drop the dangling geo member
			_ = c.rdb.ZRem(ctx, placesKey, member).Err()
			return Place{}, false, nil
		}
		return Place{}, false, err
	}

	var p Place
	if err := json.Unmarshal(raw, &p); err != nil {
		return Place{}, false, fmt.Errorf("place cache: decode %s: %w", member, err)
	}
	return p, true, nil
}

// Store records p at coord.
func (c *RedisPlaceCache) Store(ctx context.Context, coord models.Coordinate, p Place) error {
	if coord.Lng < -180 || coord.Lng > 180 || coord.Lat < -85.05112878 || coord.Lat > 85.05112878 {
		return fmt.Errorf("place cache: coords out of range lat=%.6f lng=%.6f", coord.Lat, coord.Lng)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	member := placeMember(coord)

	pipe := c.rdb.TxPipeline()
	pipe.GeoAdd(ctx, placesKey, &redis.GeoLocation{
		Name:      member,
		Longitude: coord.Lng,
		Latitude:  coord.Lat,
	})
	pipe.Set(ctx, placeDetailKey(member), data, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}
