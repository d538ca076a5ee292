package models

import (
	"time"
)

// Article represents a news item. LikesCount and DislikesCount are cached
// totals of the reaction ledger, maintained by increment.
type Article struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary,omitempty"`
	Content       string     `json:"content,omitempty"`
	Category      string     `json:"category,omitempty"`
	ImageURL      string     `json:"imageUrl,omitempty"`
	Author        string     `json:"author,omitempty"`
	ScheduledAt   time.Time  `json:"scheduledAt"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	LikesCount    int        `json:"likesCount"`
	DislikesCount int        `json:"dislikesCount"`
}

// ArticleView is an article as shown to one viewer
type ArticleView struct {
	Article
	UserReaction ReactionType `json:"userReaction"`
}

// SearchText returns the text matched by free-text search
func (a *Article) SearchText() []string {
	return []string{a.Title, a.Summary, a.Category}
}

// Floor clamps the cached counters at zero for display. The stored values
// can go negative when a decrement races a stale counter.
func (a *Article) Floor() {
	if a.LikesCount < 0 {
		a.LikesCount = 0
	}
	if a.DislikesCount < 0 {
		a.DislikesCount = 0
	}
}

// ApplyReaction patches the counters for the transition previous -> next
func (a *Article) ApplyReaction(previous, next ReactionType) {
	a.LikesCount += previous.delta(ReactionLike, next)
	a.DislikesCount += previous.delta(ReactionDislike, next)
	a.Floor()
}
