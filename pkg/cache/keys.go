package cache

import "fmt"

// Key generation functions for cached entities. Centralizing key
// construction keeps invalidation in sync with population.

// CalendarsKey returns the cache key for a user's calendar list.
//
// Key pattern: "calendars:{userID}"
func CalendarsKey(userID string) string {
	return fmt.Sprintf("calendars:%s", userID)
}
