package models

import (
	"time"
)

// Article types a comment can belong to
const (
	ArticleTypeNews  = "news"
	ArticleTypeMovie = "movie"
)

// Comment is stored twice with identical content: canonically at
// comments/{id} and as a mirror at users/{userId}/userComments/{id}.
// The text is written under both Comment and CommentText.
type Comment struct {
	CommentID   string     `json:"commentId"`
	Comment     string     `json:"comment"`
	CommentText string     `json:"commentText"`
	ArticleID   string     `json:"articleId"`
	ArticleType string     `json:"articleType"`
	UserID      string     `json:"userId"`
	UserName    string     `json:"userName,omitempty"`
	Username    string     `json:"username,omitempty"`
	Name        string     `json:"name,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	Approved    bool       `json:"approved"`
}

// Text returns the comment text, preferring the newer field
func (c *Comment) Text() string {
	if c.CommentText != "" {
		return c.CommentText
	}
	return c.Comment
}

// StoredName returns the display name saved on the comment, if any
func (c *Comment) StoredName() string {
	for _, n := range []string{c.UserName, c.Username, c.Name} {
		if n != "" {
			return n
		}
	}
	return ""
}

// CommentView is a comment with its resolved display name
type CommentView struct {
	ID          string     `json:"id"`
	ArticleID   string     `json:"articleId"`
	ArticleType string     `json:"articleType"`
	UserID      string     `json:"userId"`
	DisplayName string     `json:"displayName"`
	Text        string     `json:"text"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// CommentRequest is the body of comment create and edit calls
type CommentRequest struct {
	Text string `json:"text"`
}

// MaxCommentWords is the maximum allowed words in a comment
const MaxCommentWords = 500

// AnonymousName is shown when no display name can be resolved
const AnonymousName = "Anonymous"
