package analytics

import (
	"testing"
	"time"

	"github.com/madigan/timely/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsImportant(t *testing.T) {
	keywords := []string{"urgent", "Board"}

	tests := []struct {
		name  string
		event models.CalendarEvent
		want  bool
	}{
		{"keyword in title", models.CalendarEvent{Summary: "URGENT: server down"}, true},
		{"keyword in description", models.CalendarEvent{Summary: "Q3 review", Description: "board deck due"}, true},
		{"no match", models.CalendarEvent{Summary: "Coffee chat"}, false},
		{"empty event text", models.CalendarEvent{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsImportant(&tt.event, keywords))
		})
	}
}

func TestIsImportantEmptyKeywords(t *testing.T) {
	event := models.CalendarEvent{Summary: "urgent meeting"}
	assert.False(t, IsImportant(&event, nil))
	assert.False(t, IsImportant(&event, []string{}))
	assert.False(t, IsImportant(nil, []string{"urgent"}))
}

func TestFilterImportantSortsAndLimits(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 1, d, 9, 0, 0, 0, time.UTC) }
	events := []models.CalendarEvent{
		{ID: "late", Summary: "urgent retro", Start: models.NewTimedEventTime(day(20))},
		{ID: "skip", Summary: "ordinary lunch", Start: models.NewTimedEventTime(day(5))},
		{ID: "early", Summary: "urgent standup", Start: models.NewTimedEventTime(day(3))},
		{ID: "allday", Summary: "deadline", Start: models.NewAllDayEventTime("2025-01-10")},
		{ID: "no-start", Summary: "urgent but dateless"},
	}
	keywords := []string{"urgent", "deadline"}

	got := FilterImportant(events, keywords, 0)
	require.Len(t, got, 4)
	// Missing start sorts first (zero instant), then chronological.
	assert.Equal(t, []string{"no-start", "early", "allday", "late"},
		[]string{got[0].ID, got[1].ID, got[2].ID, got[3].ID})

	limited := FilterImportant(events, keywords, 2)
	require.Len(t, limited, 2)
	assert.Equal(t, "no-start", limited[0].ID)
	assert.Equal(t, "early", limited[1].ID)
}
