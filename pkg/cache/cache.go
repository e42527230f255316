// Package cache provides a Redis-based caching layer with JSON
// serialization. It backs the calendar-list cache, which shields the
// Google Calendar API from repeated list calls while keeping results
// fresh enough for the dashboard.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache provides a generic caching interface with JSON serialization.
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance wrapping a Redis client.
// The client should be configured with appropriate connection pool settings.
func NewCache(client *redis.Client) *Cache {
	return &Cache{
		client: client,
	}
}

// Get retrieves a value from cache and unmarshals it into the target.
// Returns ErrCacheMiss if the key doesn't exist.
//
// The target must be a pointer to the type you want to unmarshal into.
//
// Example:
//
//	var calendars []models.CalendarListItem
//	err := cache.Get(ctx, cache.CalendarsKey(userID), &calendars)
//	if err == cache.ErrCacheMiss {
//	    // Not cached, fetch from the Google Calendar API
//	} else if err != nil {
//	    // Other error
//	}
func (c *Cache) Get(ctx context.Context, key string, target interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		log.Error().Err(err).Str("key", key).Msg("Failed to get from cache")
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to unmarshal cached data")
		return fmt.Errorf("unmarshal error: %w", err)
	}

	return nil
}

// Set stores a value in cache with the specified TTL.
// The value is automatically marshaled to JSON.
//
// Example:
//
//	err := cache.Set(ctx, cache.CalendarsKey(userID), calendars, 5*time.Minute)
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to marshal data for cache")
		return fmt.Errorf("marshal error: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to set cache")
		return fmt.Errorf("cache set error: %w", err)
	}

	log.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached data")
	return nil
}

// Delete removes one or more keys from cache.
// This operation is atomic - either all keys are deleted or none are.
//
// Example:
//
//	cache.Delete(ctx, cache.CalendarsKey(userID))
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Error().Err(err).Strs("keys", keys).Msg("Failed to delete from cache")
		return fmt.Errorf("cache delete error: %w", err)
	}

	log.Debug().Strs("keys", keys).Msg("Deleted from cache")
	return nil
}

// GetOrSet implements the cache-aside pattern.
// It attempts to get from cache, and on miss, executes the loader function
// and caches the result. This is useful for expensive operations like
// upstream API calls.
//
// The loader function should return the data to cache. If the loader returns
// an error, nothing is cached and the error is returned.
//
// Example:
//
//	var calendars []models.CalendarListItem
//	err := cache.GetOrSet(ctx, cache.CalendarsKey(userID), 5*time.Minute, &calendars, func() (interface{}, error) {
//	    return gateway.fetchCalendarList(ctx, user)
//	})
func (c *Cache) GetOrSet(ctx context.Context, key string, ttl time.Duration, target interface{}, loader func() (interface{}, error)) error {
	// Try to get from cache first
	err := c.Get(ctx, key, target)
	if err == nil {
		log.Debug().Str("key", key).Msg("Cache hit")
		return nil
	}

	// If not a cache miss, return the error
	if err != ErrCacheMiss {
		return err
	}

	log.Debug().Str("key", key).Msg("Cache miss, loading data")

	// Load the data
	data, err := loader()
	if err != nil {
		return fmt.Errorf("loader error: %w", err)
	}

	// Cache the loaded data
	if err := c.Set(ctx, key, data, ttl); err != nil {
		// Log but don't fail - we have the data
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache loaded data")
	}

	// Marshal and unmarshal to populate target
	// This ensures type consistency
	bytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if err := json.Unmarshal(bytes, target); err != nil {
		return fmt.Errorf("unmarshal error: %w", err)
	}

	return nil
}
