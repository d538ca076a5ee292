package models

import (
	"time"
)

// UserProfile is the users/{uid} document. Older profiles carry only some of the name fields.
type UserProfile struct {
	ID          string `json:"id,omitempty"`
	Username    string `json:"username,omitempty"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
}

// DisplayNameOrEmpty returns the first non-empty name field
func (u *UserProfile) DisplayNameOrEmpty() string {
	for _, n := range []string{u.Username, u.Name, u.DisplayName, u.FirstName} {
		if n != "" {
			return n
		}
	}
	return ""
}

// Interest marks a movie a user is interested in, at users/{uid}/interests/{movieId}
type Interest struct {
	MovieID     string    `json:"movieId"`
	Title       string    `json:"title"`
	PosterURL   string    `json:"posterUrl,omitempty"`
	ReleaseDate time.Time `json:"releaseDate"`
	AddedAt     time.Time `json:"addedAt"`
}

// InterestResult reports the marker state after a toggle
type InterestResult struct {
	MovieID    string `json:"movieId"`
	Interested bool   `json:"interested"`
}

// Promotion is a promotion inquiry
type Promotion struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
