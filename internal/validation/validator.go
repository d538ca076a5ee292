package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/engagement-api/internal/models"
	"github.com/google/uuid"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	// ids become path segments, so they may not contain '/'
	idRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
)

// Field limits
const (
	MaxNameLength    = 100
	MaxMessageLength = 5000
	MaxReviewWords   = 1000
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidateID checks a client-supplied document id
func ValidateID(field, id string) []ValidationError {
	if id == "" {
		return []ValidationError{{Field: field, Message: field + " is required"}}
	}
	if !idRegex.MatchString(id) {
		return []ValidationError{{Field: field, Message: "invalid id format", Value: id}}
	}
	return nil
}

// ValidateCommentText validates comment text
func ValidateCommentText(text string) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(text) == "" {
		errors = append(errors, ValidationError{Field: "text", Message: "text is required"})
	} else {
		// Check word count (max 500 words)
		wordCount := len(strings.Fields(text))
		if wordCount > models.MaxCommentWords {
			errors = append(errors, ValidationError{
				Field:   "text",
				Message: fmt.Sprintf("text exceeds maximum of %d words (has %d)", models.MaxCommentWords, wordCount),
			})
		}
	}

	return errors
}

// ValidateArticleType validates the kind of item a comment is attached to
func ValidateArticleType(articleType string) []ValidationError {
	if articleType != models.ArticleTypeNews && articleType != models.ArticleTypeMovie {
		return []ValidationError{{
			Field:   "articleType",
			Message: "invalid article type, must be one of: news, movie",
			Value:   articleType,
		}}
	}
	return nil
}

// ValidateReaction validates a requested reaction
func ValidateReaction(reaction models.ReactionType) []ValidationError {
	if reaction == models.ReactionNone {
		return []ValidationError{{Field: "type", Message: "type is required"}}
	}
	if !models.ValidReactions[reaction] {
		return []ValidationError{{
			Field:   "type",
			Message: "invalid type, must be one of: like, dislike",
			Value:   string(reaction),
		}}
	}
	return nil
}

// ValidateReview validates a review submission
func ValidateReview(req *models.ReviewRequest) []ValidationError {
	var errors []ValidationError

	if req.Score < models.MinScore || req.Score > models.MaxScore {
		errors = append(errors, ValidationError{
			Field:   "score",
			Message: fmt.Sprintf("score must be between %d and %d", models.MinScore, models.MaxScore),
			Value:   req.Score,
		})
	}

	if wordCount := len(strings.Fields(req.Text)); wordCount > MaxReviewWords {
		errors = append(errors, ValidationError{
			Field:   "text",
			Message: fmt.Sprintf("text exceeds maximum of %d words (has %d)", MaxReviewWords, wordCount),
		})
	}

	return errors
}

// ValidatePromotion validates a promotion inquiry
func ValidatePromotion(p *models.Promotion) []ValidationError {
	var errors []ValidationError

	// Validate name
	if strings.TrimSpace(p.Name) == "" {
		errors = append(errors, ValidationError{Field: "name", Message: "name is required"})
	} else if len(p.Name) > MaxNameLength {
		errors = append(errors, ValidationError{Field: "name", Message: fmt.Sprintf("name exceeds %d characters", MaxNameLength)})
	}

	// Validate email
	if p.Email == "" {
		errors = append(errors, ValidationError{Field: "email", Message: "email is required"})
	} else if !emailRegex.MatchString(p.Email) {
		errors = append(errors, ValidationError{Field: "email", Message: "invalid email format", Value: p.Email})
	}

	if len(p.Company) > MaxNameLength {
		errors = append(errors, ValidationError{Field: "company", Message: fmt.Sprintf("company exceeds %d characters", MaxNameLength)})
	}

	// Validate message
	if strings.TrimSpace(p.Message) == "" {
		errors = append(errors, ValidationError{Field: "message", Message: "message is required"})
	} else if len(p.Message) > MaxMessageLength {
		errors = append(errors, ValidationError{Field: "message", Message: fmt.Sprintf("message exceeds %d characters", MaxMessageLength)})
	}

	return errors
}

// ValidateResource validates a reconciliation target
func ValidateResource(resource string) []ValidationError {
	if resource == "" {
		return []ValidationError{{Field: "resource", Message: "resource is required (reactions, ratings, comments, all)"}}
	}
	if !models.ValidResources[resource] {
		return []ValidationError{{
			Field:   "resource",
			Message: "resource must be one of: reactions, ratings, comments, all",
			Value:   resource,
		}}
	}
	return nil
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
