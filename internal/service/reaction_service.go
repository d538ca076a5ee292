package service

import (
	"context"
	"fmt"

	"github.com/engagement-api/internal/metrics"
	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/policy"
	"github.com/engagement-api/internal/repository"
	"github.com/engagement-api/internal/session"
	"github.com/engagement-api/internal/validation"
	"github.com/rs/zerolog"
)

// reactionService is the concrete implementation of ReactionService
type reactionService struct {
	articles  repository.ArticleRepository
	reactions repository.ReactionRepository
	sessions  session.Provider
	log       zerolog.Logger
}

func newReactionService(repos *repository.Repositories, sessions session.Provider, log zerolog.Logger) *reactionService {
	return &reactionService{
		articles:  repos.Article,
		reactions: repos.Reaction,
		sessions:  sessions,
		log:       log.With().Str("service", "reaction").Logger(),
	}
}

// SetReaction toggles the caller's reaction on an article. Repeating the
// current reaction clears it; choosing the other one switches. The ledger
// entry is written first, then the counters in one increment. The two
// writes are independent, so a failed increment leaves the ledger ahead of
// the counters until reconciliation.
func (s *reactionService) SetReaction(ctx context.Context, articleID string, desired models.ReactionType) (*models.ReactionResult, error) {
	user := s.sessions.CurrentUser(ctx)
	if err := policy.RequireIdentity(user); err != nil {
		return nil, err
	}
	if err := invalid(validation.ValidateReaction(desired)); err != nil {
		return nil, err
	}

	article, err := s.articles.GetByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	if article == nil {
		return nil, notFound("article", articleID)
	}

	entry, err := s.reactions.Get(ctx, articleID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get reaction: %w", err)
	}
	previous := models.ReactionNone
	if entry != nil && models.ValidReactions[entry.Type] {
		previous = entry.Type
	}

	next := desired
	if desired == previous {
		next = models.ReactionNone
	}

	deltas := map[string]int{desired.CounterField(): 1}
	transition := "set"
	switch {
	case next == models.ReactionNone:
		deltas[desired.CounterField()] = -1
		transition = "clear"
	case previous != models.ReactionNone:
		deltas[previous.CounterField()] = -1
		transition = "switch"
	}

	if err := s.reactions.Set(ctx, articleID, user.ID, next); err != nil {
		s.log.Error().Err(err).
			Str("article_id", articleID).
			Str("user_id", user.ID).
			Msg("Failed to write reaction ledger")
		return nil, fmt.Errorf("write reaction: %w", err)
	}

	if err := s.articles.IncrementCounters(ctx, articleID, deltas); err != nil {
		metrics.IncConsistencyGap("reaction_counters")
		s.log.Error().Err(err).
			Bool("consistency_gap", true).
			Str("article_id", articleID).
			Str("user_id", user.ID).
			Str("previous", string(previous)).
			Str("current", string(next)).
			Msg("Reaction ledger written but counters not updated")
		return nil, fmt.Errorf("update reaction counters: %w: %v", ErrPartialWrite, err)
	}

	metrics.IncReaction(transition)
	s.log.Debug().
		Str("article_id", articleID).
		Str("user_id", user.ID).
		Str("transition", transition).
		Msg("Reaction updated")

	// The view reflects the intended post-state without re-reading the store
	view := &models.ArticleView{Article: *article, UserReaction: next}
	view.ApplyReaction(previous, next)

	return &models.ReactionResult{
		Previous: previous,
		Current:  next,
		Article:  view,
	}, nil
}

// GetArticle returns an article with the caller's reaction, if signed in
func (s *reactionService) GetArticle(ctx context.Context, articleID string) (*models.ArticleView, error) {
	article, err := s.articles.GetByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	if article == nil {
		return nil, notFound("article", articleID)
	}
	article.Floor()
	view := &models.ArticleView{Article: *article}

	if user := s.sessions.CurrentUser(ctx); user != nil {
		entry, err := s.reactions.Get(ctx, articleID, user.ID)
		if err != nil {
			// The article still renders without the viewer's state
			s.log.Warn().Err(err).Str("article_id", articleID).Msg("Failed to read viewer reaction")
		} else if entry != nil {
			view.UserReaction = entry.Type
		}
	}
	return view, nil
}
