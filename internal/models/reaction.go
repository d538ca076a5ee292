package models

import "encoding/json"

// ReactionType is the state of a reaction ledger entry. The zero value is "no reaction".
type ReactionType string

const (
	ReactionNone    ReactionType = ""
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

// ValidReactions defines reaction types a user may set
var ValidReactions = map[ReactionType]bool{
	ReactionLike:    true,
	ReactionDislike: true,
}

// CounterField returns the article counter driven by r
func (r ReactionType) CounterField() string {
	switch r {
	case ReactionLike:
		return "likesCount"
	case ReactionDislike:
		return "dislikesCount"
	}
	return ""
}

// delta returns how the counter of kind changes when moving from r to next
func (r ReactionType) delta(kind, next ReactionType) int {
	d := 0
	if r == kind {
		d--
	}
	if next == kind {
		d++
	}
	return d
}

// MarshalJSON stores "no reaction" as null
func (r ReactionType) MarshalJSON() ([]byte, error) {
	if r == ReactionNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

func (r *ReactionType) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*r = ReactionNone
		return nil
	}
	*r = ReactionType(*s)
	return nil
}

// Reaction is a ledger entry at news/{articleId}/feedback/{userId}.
// Entries are never deleted; toggling off stores a null type.
type Reaction struct {
	Type ReactionType `json:"type"`
}

// ReactionRequest is the body of PUT /v1/news/:id/reaction
type ReactionRequest struct {
	Type ReactionType `json:"type"`
}

// ReactionResult is the outcome of a toggle: the new ledger state and the
// article as it looks after the intended writes.
type ReactionResult struct {
	Previous ReactionType `json:"previous"`
	Current  ReactionType `json:"current"`
	Article  *ArticleView `json:"article,omitempty"`
}
