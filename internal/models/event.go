package models

import "time"

// EventTime is the start or end of a calendar event: either a timestamp for
// timed events or a bare YYYY-MM-DD date for all-day events, mirroring the
// Google Calendar wire shape. Exactly one of DateTime and Date is set.
//
// The comparable instant is resolved once at ingestion by the constructors
// below; consumers read Instant instead of re-parsing at every use.
type EventTime struct {
	DateTime *time.Time `json:"dateTime,omitempty"`
	Date     string     `json:"date,omitempty"`

	// Instant is the resolved point in time: the timestamp itself for timed
	// events, midnight UTC of the date for all-day events, and the zero time
	// when neither field was present upstream.
	Instant time.Time `json:"-"`
}

// NewTimedEventTime builds an EventTime for a timed event.
func NewTimedEventTime(t time.Time) EventTime {
	return EventTime{DateTime: &t, Instant: t}
}

// NewAllDayEventTime builds an EventTime for an all-day event from a
// YYYY-MM-DD date string. An unparseable date yields a zero Instant.
func NewAllDayEventTime(date string) EventTime {
	et := EventTime{Date: date}
	if t, err := time.Parse("2006-01-02", date); err == nil {
		et.Instant = t
	}
	return et
}

// IsZero reports whether no start/end information was present upstream.
func (e EventTime) IsZero() bool {
	return e.DateTime == nil && e.Date == ""
}

// AllDay reports whether this is a date-only boundary.
func (e EventTime) AllDay() bool {
	return e.DateTime == nil && e.Date != ""
}

// CalendarEvent is a single event fetched from the Google Calendar API.
// Events are never persisted; they flow from the gateway through the
// categorizer and filters straight into API responses.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
}

// DurationHours returns the event length in hours. All-day events use
// date-only boundaries, so a single-day event spans 24 hours. Events with
// missing boundaries contribute zero.
func (e *CalendarEvent) DurationHours() float64 {
	if e.Start.IsZero() || e.End.IsZero() {
		return 0
	}
	return e.End.Instant.Sub(e.Start.Instant).Hours()
}

// CalendarListItem describes one calendar from the user's calendar list.
type CalendarListItem struct {
	ID              string `json:"id"`
	Summary         string `json:"summary"`
	Primary         bool   `json:"primary"`
	BackgroundColor string `json:"backgroundColor"`
	Enabled         bool   `json:"isEnabled"`
}
