// Package analytics implements event categorization and time-allocation
// analytics as pure functions over events and categories. Nothing in this
// package touches the network or the database, which keeps the core logic
// unit-testable in isolation.
package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/madigan/timely/internal/models"
)

// OtherColor is the color assigned to the synthetic "Other" bucket when
// grouping collapses the category tail.
const OtherColor = "#64748b"

// Categorize assigns an event to the first category whose keyword list
// contains a case-insensitive substring match against the event's title and
// description. Returns nil when no category matches; such events are
// excluded from all aggregates rather than collected into a fallback bucket.
func Categorize(event *models.CalendarEvent, categories []models.Category) *models.Category {
	text := strings.ToLower(event.Summary + " " + event.Description)

	for i := range categories {
		for _, keyword := range categories[i].Keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword != "" && strings.Contains(text, keyword) {
				return &categories[i]
			}
		}
	}
	return nil
}

// CalculateCategoryStats classifies each event and accumulates matched
// hours and event counts per category. Every category appears in the result
// map, including those with zero matches; filtering happens later in
// BuildAnalytics.
func CalculateCategoryStats(events []models.CalendarEvent, categories []models.Category) map[string]*models.CategoryStat {
	stats := make(map[string]*models.CategoryStat, len(categories))
	for i := range categories {
		stats[categories[i].ID] = &models.CategoryStat{Category: &categories[i]}
	}

	for i := range events {
		category := Categorize(&events[i], categories)
		if category == nil {
			continue
		}
		stat := stats[category.ID]
		stat.Hours += events[i].DurationHours()
		stat.Count++
	}

	return stats
}

// TotalHours sums matched hours across all category stats.
func TotalHours(stats map[string]*models.CategoryStat) float64 {
	var total float64
	for _, stat := range stats {
		total += stat.Hours
	}
	return total
}

// Percentage returns the rounded share of value against total, or 0 when
// total is not positive.
func Percentage(value, total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(value / total * 100))
}

// Score grades how close the actual share is to the target share.
// A target of zero is treated as automatically excellent; there is nothing
// to fall short of, and the guard avoids dividing by zero.
func Score(actual, target float64) models.PerformanceScore {
	if target == 0 {
		return models.ScoreExcellent
	}
	ratio := actual / target
	switch {
	case ratio >= 0.8:
		return models.ScoreExcellent
	case ratio >= 0.5:
		return models.ScoreWarning
	default:
		return models.ScorePoor
	}
}

// BuildAnalytics converts category stats into the analytics output:
// categories with zero matched events are dropped (not returned as zero
// rows), percentages are computed against total matched hours, and rows are
// sorted by hours descending.
func BuildAnalytics(stats map[string]*models.CategoryStat, totalHours float64) []models.CategoryAnalytics {
	rows := make([]models.CategoryAnalytics, 0, len(stats))
	for _, stat := range stats {
		if stat.Count == 0 {
			continue
		}
		percentage := Percentage(stat.Hours, totalHours)
		rows = append(rows, models.CategoryAnalytics{
			ID:         stat.Category.ID,
			Name:       stat.Category.Name,
			Color:      stat.Category.Color,
			Target:     stat.Category.Target,
			Percentage: percentage,
			EventCount: stat.Count,
			Hours:      stat.Hours,
			Score:      Score(float64(percentage), float64(stat.Category.Target)),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Hours > rows[j].Hours })
	return rows
}

// BuildReport runs the full pipeline over events and categories.
func BuildReport(events []models.CalendarEvent, categories []models.Category) *models.AnalyticsReport {
	stats := CalculateCategoryStats(events, categories)
	totalHours := TotalHours(stats)
	rows := BuildAnalytics(stats, totalHours)

	matched := 0
	for _, row := range rows {
		matched += row.EventCount
	}

	return &models.AnalyticsReport{
		Categories: rows,
		TotalHours: totalHours,
		EventCount: matched,
	}
}

// GroupCategoryResults collapses all categories past topN into a single
// synthetic "Other" bucket when the result count exceeds maxCategories.
// The Other bucket sums the dropped tail's hours and counts and recomputes
// its percentage against the grand total. Results at or under the maximum
// are returned unchanged.
func GroupCategoryResults(results []models.CategoryAnalytics, maxCategories, topN int) []models.CategoryAnalytics {
	if len(results) <= maxCategories {
		return results
	}

	top := results[:topN]
	tail := results[topN:]

	var otherHours, totalHours float64
	otherCount := 0
	for _, row := range tail {
		otherHours += row.Hours
		otherCount += row.EventCount
	}
	for _, row := range results {
		totalHours += row.Hours
	}

	other := models.CategoryAnalytics{
		ID:         "other",
		Name:       "Other",
		Color:      OtherColor,
		Percentage: Percentage(otherHours, totalHours),
		EventCount: otherCount,
		Hours:      otherHours,
		Score:      models.ScoreExcellent,
	}

	grouped := make([]models.CategoryAnalytics, 0, topN+1)
	grouped = append(grouped, top...)
	return append(grouped, other)
}

// FilterEventsByDateRange keeps events whose start date (date component
// only) falls within [start, end] inclusive. Events with no start
// information are dropped.
func FilterEventsByDateRange(events []models.CalendarEvent, start, end time.Time) []models.CalendarEvent {
	startDay := start.UTC().Truncate(24 * time.Hour)
	endDay := end.UTC().Truncate(24 * time.Hour)

	filtered := make([]models.CalendarEvent, 0, len(events))
	for _, event := range events {
		if event.Start.IsZero() {
			continue
		}
		day := event.Start.Instant.UTC().Truncate(24 * time.Hour)
		if !day.Before(startDay) && !day.After(endDay) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// EventsForDay keeps events starting on the given calendar day (UTC).
func EventsForDay(events []models.CalendarEvent, day time.Time) []models.CalendarEvent {
	target := day.UTC().Truncate(24 * time.Hour)

	filtered := make([]models.CalendarEvent, 0)
	for _, event := range events {
		if event.Start.IsZero() {
			continue
		}
		if event.Start.Instant.UTC().Truncate(24 * time.Hour).Equal(target) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}
