package analytics

import (
	"sort"
	"strings"

	"github.com/madigan/timely/internal/models"
)

// IsImportant reports whether any keyword appears as a case-insensitive
// substring of the event's title and description. An empty keyword list
// flags nothing.
func IsImportant(event *models.CalendarEvent, keywords []string) bool {
	if event == nil || len(keywords) == 0 {
		return false
	}

	text := strings.ToLower(event.Summary + " " + event.Description)
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// FilterImportant returns the events matching the keyword list, sorted
// ascending by start instant (events with no start information sort first),
// truncated to limit when limit > 0.
func FilterImportant(events []models.CalendarEvent, keywords []string, limit int) []models.CalendarEvent {
	important := make([]models.CalendarEvent, 0)
	for i := range events {
		if IsImportant(&events[i], keywords) {
			important = append(important, events[i])
		}
	}

	sort.SliceStable(important, func(i, j int) bool {
		return important[i].Start.Instant.Before(important[j].Start.Instant)
	})

	if limit > 0 && len(important) > limit {
		important = important[:limit]
	}
	return important
}
