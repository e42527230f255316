package models

import "time"

// Category is a user-defined bucket used to classify calendar events for
// time-allocation reporting. Keywords are matched as case-insensitive
// substrings against event title and description; Target is the desired
// share of total tracked time in percent.
//
// Targets across a user's categories are independent and need not sum
// to 100.
type Category struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"-" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"` // "#RRGGBB"
	Keywords  []string  `json:"keywords" db:"keywords"`
	Target    int       `json:"target" db:"target"` // 0..100
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CategoryInput is the payload accepted by the create and update endpoints.
// Validation tags are enforced at the handler boundary.
type CategoryInput struct {
	Name     string   `json:"name" validate:"required,min=1,max=255"`
	Color    string   `json:"color" validate:"required,hexcolor6"`
	Keywords []string `json:"keywords"`
	Target   int      `json:"target" validate:"min=0,max=100"`
}

// ImportantEventSettings holds the per-user keyword list used to flag
// important events, with an enable switch and a display limit. One row
// exists per user, created lazily with defaults on first access.
type ImportantEventSettings struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Keywords     []string  `json:"keywords" db:"keywords"`
	Enabled      bool      `json:"enabled" db:"enabled"`
	DisplayLimit int       `json:"display_limit" db:"display_limit"` // 1..20
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ImportantEventSettingsInput is the payload accepted by the settings
// update endpoint.
type ImportantEventSettingsInput struct {
	Keywords     []string `json:"keywords"`
	Enabled      bool     `json:"enabled"`
	DisplayLimit int      `json:"display_limit" validate:"min=1,max=20"`
}
