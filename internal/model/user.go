// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. Relationships between records
// are explicit foreign-key fields, never embedded object graphs.
package model

import "time"

// User represents a local account.
//
// A user is created either by local registration (username + password) or on
// the first successful OAuth sign-in, in which case Username and PasswordHash
// stay nil. Nullable columns are pointers so "not set" survives a round trip
// through the database instead of collapsing into an empty string.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Username     *string   `json:"username,omitempty"`
	PasswordHash *string   `json:"-"`
	Email        *string   `json:"email,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DisplayName returns the name shown in page headers.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Username != nil {
		return *u.Username
	}
	return "user"
}
