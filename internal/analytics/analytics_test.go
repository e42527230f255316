package analytics

import (
	"testing"
	"time"

	"github.com/madigan/timely/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timedEvent(summary string, start, end time.Time) models.CalendarEvent {
	return models.CalendarEvent{
		ID:      summary,
		Summary: summary,
		Start:   models.NewTimedEventTime(start),
		End:     models.NewTimedEventTime(end),
	}
}

func testCategories() []models.Category {
	return []models.Category{
		{ID: "work", Name: "Work", Color: "#3b82f6", Keywords: []string{"meeting", "standup"}, Target: 40},
		{ID: "personal", Name: "Personal", Color: "#10b981", Keywords: []string{"gym", "doctor"}, Target: 20},
	}
}

func TestCategorizeFirstMatchWins(t *testing.T) {
	categories := []models.Category{
		{ID: "a", Keywords: []string{"review"}},
		{ID: "b", Keywords: []string{"code review"}},
	}

	event := models.CalendarEvent{Summary: "Code Review with the team"}
	got := Categorize(&event, categories)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.ID, "first category in order wins even when a later one also matches")
}

func TestCategorizeIsCaseInsensitiveAndUsesDescription(t *testing.T) {
	categories := testCategories()

	byTitle := models.CalendarEvent{Summary: "Daily STANDUP"}
	require.NotNil(t, Categorize(&byTitle, categories))

	byDescription := models.CalendarEvent{Summary: "Morning block", Description: "Gym session with coach"}
	got := Categorize(&byDescription, categories)
	require.NotNil(t, got)
	assert.Equal(t, "personal", got.ID)

	unmatched := models.CalendarEvent{Summary: "Lunch"}
	assert.Nil(t, Categorize(&unmatched, categories))
}

func TestCalculateCategoryStats(t *testing.T) {
	base := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	events := []models.CalendarEvent{
		timedEvent("Daily standup meeting", base, base.Add(30*time.Minute)),
		timedEvent("Gym workout", base.Add(9*time.Hour), base.Add(10*time.Hour)),
		timedEvent("Doctor appointment", base.Add(29*time.Hour), base.Add(30*time.Hour)),
		timedEvent("Untracked lunch", base.Add(3*time.Hour), base.Add(4*time.Hour)),
	}

	stats := CalculateCategoryStats(events, testCategories())

	require.Contains(t, stats, "work")
	require.Contains(t, stats, "personal")
	assert.Equal(t, 1, stats["work"].Count)
	assert.InDelta(t, 0.5, stats["work"].Hours, 1e-9)
	assert.Equal(t, 2, stats["personal"].Count)
	assert.InDelta(t, 2.0, stats["personal"].Hours, 1e-9)
}

// The worked example from the product requirements: 30min work + 2x60min
// personal gives 2.5 tracked hours split 20/80.
func TestBuildReportExample(t *testing.T) {
	base := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	events := []models.CalendarEvent{
		timedEvent("meeting", base, base.Add(30*time.Minute)),
		timedEvent("gym", base.Add(2*time.Hour), base.Add(3*time.Hour)),
		timedEvent("doctor", base.Add(5*time.Hour), base.Add(6*time.Hour)),
	}

	report := BuildReport(events, testCategories())

	assert.InDelta(t, 2.5, report.TotalHours, 1e-9)
	assert.Equal(t, 3, report.EventCount)
	require.Len(t, report.Categories, 2)

	// Sorted by hours descending: personal first.
	assert.Equal(t, "personal", report.Categories[0].ID)
	assert.Equal(t, 80, report.Categories[0].Percentage)
	assert.Equal(t, 2, report.Categories[0].EventCount)
	assert.Equal(t, "work", report.Categories[1].ID)
	assert.Equal(t, 20, report.Categories[1].Percentage)
	assert.Equal(t, 1, report.Categories[1].EventCount)
}

func TestBuildAnalyticsDropsEmptyCategories(t *testing.T) {
	base := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	events := []models.CalendarEvent{
		timedEvent("standup", base, base.Add(time.Hour)),
	}

	report := BuildReport(events, testCategories())
	require.Len(t, report.Categories, 1)
	assert.Equal(t, "work", report.Categories[0].ID)
}

func TestBuildReportNoEvents(t *testing.T) {
	report := BuildReport(nil, testCategories())
	assert.Empty(t, report.Categories)
	assert.Zero(t, report.TotalHours)
	assert.Zero(t, report.EventCount)
}

func TestAllDayEventDuration(t *testing.T) {
	event := models.CalendarEvent{
		Summary: "meeting offsite",
		Start:   models.NewAllDayEventTime("2025-01-15"),
		End:     models.NewAllDayEventTime("2025-01-16"),
	}

	assert.InDelta(t, 24.0, event.DurationHours(), 1e-9)

	stats := CalculateCategoryStats([]models.CalendarEvent{event}, testCategories())
	assert.InDelta(t, 24.0, stats["work"].Hours, 1e-9)
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		actual float64
		target float64
		want   models.PerformanceScore
	}{
		{"zero target is excellent", 0, 0, models.ScoreExcellent},
		{"zero target with activity", 35, 0, models.ScoreExcellent},
		{"ratio exactly 0.8", 32, 40, models.ScoreExcellent},
		{"ratio above 0.8", 50, 40, models.ScoreExcellent},
		{"ratio exactly 0.5", 20, 40, models.ScoreWarning},
		{"ratio between 0.5 and 0.8", 25, 40, models.ScoreWarning},
		{"ratio below 0.5", 10, 40, models.ScorePoor},
		{"no activity against target", 0, 40, models.ScorePoor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.actual, tt.target))
		})
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 50, Percentage(1, 2))
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 0, Percentage(1, 0), "zero total yields zero, not a division error")
}

func groupedFixture(n int) []models.CategoryAnalytics {
	rows := make([]models.CategoryAnalytics, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, models.CategoryAnalytics{
			ID:         string(rune('a' + i)),
			Name:       "Category " + string(rune('A'+i)),
			Hours:      float64(10 - i),
			EventCount: i + 1,
			Percentage: 10,
		})
	}
	return rows
}

func TestGroupCategoryResultsUnchangedUnderLimit(t *testing.T) {
	rows := groupedFixture(4)
	got := GroupCategoryResults(rows, 4, 3)
	assert.Equal(t, rows, got)
}

func TestGroupCategoryResultsCollapsesTail(t *testing.T) {
	rows := groupedFixture(6) // hours 10,9,8,7,6,5 / counts 1..6

	got := GroupCategoryResults(rows, 4, 3)
	require.Len(t, got, 4, "topN + Other")

	other := got[3]
	assert.Equal(t, "other", other.ID)
	assert.Equal(t, "Other", other.Name)
	assert.Equal(t, OtherColor, other.Color)
	assert.InDelta(t, 18.0, other.Hours, 1e-9, "7+6+5")
	assert.Equal(t, 15, other.EventCount, "4+5+6")
	// 18 of 45 total hours
	assert.Equal(t, 40, other.Percentage)

	// Top categories pass through untouched.
	assert.Equal(t, rows[0], got[0])
	assert.Equal(t, rows[2], got[2])
}

func TestFilterEventsByDateRange(t *testing.T) {
	events := []models.CalendarEvent{
		timedEvent("inside", time.Date(2025, 1, 15, 23, 0, 0, 0, time.UTC), time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)),
		timedEvent("before", time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)),
		timedEvent("after", time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC), time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)),
		{ID: "no-start", Summary: "no-start"},
	}

	got := FilterEventsByDateRange(events,
		time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC))

	require.Len(t, got, 1)
	assert.Equal(t, "inside", got[0].ID)
}

func TestEventsForDay(t *testing.T) {
	events := []models.CalendarEvent{
		timedEvent("match", time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC), time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)),
		timedEvent("other-day", time.Date(2025, 1, 16, 9, 0, 0, 0, time.UTC), time.Date(2025, 1, 16, 10, 0, 0, 0, time.UTC)),
	}

	got := EventsForDay(events, time.Date(2025, 1, 15, 18, 30, 0, 0, time.UTC))
	require.Len(t, got, 1)
	assert.Equal(t, "match", got[0].ID)
}
