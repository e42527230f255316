// Package models defines the core domain models for the application.
// These models represent the data structures used throughout the system
// for users, sessions, categories, calendar events, and analytics results.
//
// All models include JSON struct tags for serialization. Sensitive fields
// (encrypted OAuth tokens) are marked with `json:"-"` to prevent accidental
// exposure in API responses.
package models

import (
	"time"
)

// User represents a user account authenticated via Google OAuth.
// The primary key is the Google subject id, so a user is upserted on every
// successful OAuth callback rather than assigned a local identifier.
//
// AccessToken and RefreshToken hold ciphertext produced by the token cipher;
// plaintext tokens never touch the database. TokenExpiry is the access token
// expiry in unix milliseconds as reported by Google, and may be absent for
// freshly issued tokens.
//
// JSON example (tokens omitted):
//
//	{
//	  "id": "1234567890",
//	  "email": "user@example.com",
//	  "name": "Jane Doe",
//	  "picture": "https://lh3.googleusercontent.com/...",
//	  "created_at": "2025-01-15T10:30:00Z",
//	  "updated_at": "2025-01-20T14:45:00Z"
//	}
type User struct {
	ID           string    `json:"id" db:"id"`                 // Google account subject id
	AccessToken  string    `json:"-" db:"access_token"`        // Encrypted OAuth access token (NEVER exposed)
	RefreshToken string    `json:"-" db:"refresh_token"`       // Encrypted OAuth refresh token, may be empty
	TokenExpiry  *int64    `json:"-" db:"expiry_date"`         // Access token expiry, unix millis (nullable)
	Email        string    `json:"email" db:"email"`           // Email address from Google
	Name         string    `json:"name" db:"name"`             // Display name from Google profile
	Picture      string    `json:"picture" db:"picture"`       // Profile picture URL
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // First login timestamp
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // Last token/profile update
}

// Profile is the sanitized view of a User returned by the profile endpoint.
// Token material is structurally excluded rather than relying on json:"-".
type Profile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Profile returns the public view of the user.
func (u *User) Profile() *Profile {
	return &Profile{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Picture: u.Picture,
	}
}

// Session represents a server-side login session backed by a database row.
// The ID is an opaque random value stored in the session cookie; lookups
// treat expired rows identically to rows that never existed.
type Session struct {
	ID        string    `json:"id" db:"session_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"` // Fixed 30-day window from creation
}
