package models

// PerformanceScore grades how close a category's actual time share is to
// its configured target.
type PerformanceScore string

const (
	ScoreExcellent PerformanceScore = "excellent" // actual/target >= 0.8, or target == 0
	ScoreWarning   PerformanceScore = "warning"   // actual/target >= 0.5
	ScorePoor      PerformanceScore = "poor"
)

// CategoryStat accumulates matched hours and event counts for one category
// while events are being classified.
type CategoryStat struct {
	Category *Category
	Hours    float64
	Count    int
}

// CategoryAnalytics is one row of the analytics output: a category that
// matched at least one event, with its share of total tracked hours and a
// performance grade against its target. Categories with zero matched events
// never appear in the output.
type CategoryAnalytics struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Color      string           `json:"color"`
	Target     int              `json:"target"`
	Percentage int              `json:"percentage"` // rounded share of total hours
	EventCount int              `json:"event_count"`
	Hours      float64          `json:"hours"`
	Score      PerformanceScore `json:"score"`
}

// AnalyticsReport is the aggregate returned by the analytics endpoint.
type AnalyticsReport struct {
	Categories []CategoryAnalytics `json:"categories"`
	TotalHours float64             `json:"total_hours"`
	EventCount int                 `json:"event_count"`
}
