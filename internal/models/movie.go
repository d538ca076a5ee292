package models

import (
	"time"
)

// Movie represents a movie. AvgRating and ReviewCount are the cached rating aggregate.
type Movie struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	PosterURL   string    `json:"posterUrl,omitempty"`
	Poster      string    `json:"poster,omitempty"`
	ReleaseDate time.Time `json:"releaseDate"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Industry    string    `json:"industry,omitempty"`
	Genre       []string  `json:"genre,omitempty"`
	AvgRating   float64   `json:"avgRating"`
	ReviewCount int       `json:"reviewCount"`
}

// MovieView is a movie as shown to one viewer
type MovieView struct {
	Movie
	HasRated     bool `json:"hasRated"`
	IsInterested bool `json:"isInterested"`
}

// Image returns the poster URL, falling back to the legacy field
func (m *Movie) Image() string {
	if m.PosterURL != "" {
		return m.PosterURL
	}
	return m.Poster
}

// SearchText returns the text matched by free-text search
func (m *Movie) SearchText() []string {
	return append([]string{m.Title}, m.Genre...)
}

// AddScore folds one new score into the cached aggregate
func (m *Movie) AddScore(score int) {
	total := m.AvgRating*float64(m.ReviewCount) + float64(score)
	m.ReviewCount++
	m.AvgRating = total / float64(m.ReviewCount)
}

// Score bounds
const (
	MinScore = 1
	MaxScore = 5
)

// Review is stored at reviews/{movieId}_{userId}
type Review struct {
	ID        string    `json:"id"`
	MovieID   string    `json:"movieId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	Score     int       `json:"score"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReviewRequest is the body of POST /v1/movies/:id/reviews
type ReviewRequest struct {
	Score int    `json:"score"`
	Text  string `json:"text"`
}

// ReviewResult returns the accepted review and the aggregate after it
type ReviewResult struct {
	Review      *Review `json:"review"`
	AvgRating   float64 `json:"avgRating"`
	ReviewCount int     `json:"reviewCount"`
}
