package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/engagement-api/internal/metrics"
	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/policy"
	"github.com/engagement-api/internal/repository"
	"github.com/engagement-api/internal/session"
	"github.com/engagement-api/internal/validation"
	"github.com/rs/zerolog"
)

// ratingService is the concrete implementation of RatingService.
// The aggregate is updated incrementally from the cached avgRating and
// reviewCount; the reconciliation job recomputes it from the reviews.
type ratingService struct {
	movies   repository.MovieRepository
	reviews  repository.ReviewRepository
	sessions session.Provider
	log      zerolog.Logger
	now      func() time.Time
}

func newRatingService(repos *repository.Repositories, sessions session.Provider, log zerolog.Logger) *ratingService {
	return &ratingService{
		movies:   repos.Movie,
		reviews:  repos.Review,
		sessions: sessions,
		log:      log.With().Str("service", "rating").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SubmitReview records the caller's single review of a movie and folds its
// score into the movie's aggregate
func (s *ratingService) SubmitReview(ctx context.Context, movieID string, req *models.ReviewRequest) (*models.ReviewResult, error) {
	user := s.sessions.CurrentUser(ctx)
	if err := policy.RequireIdentity(user); err != nil {
		return nil, err
	}
	if err := invalid(validation.ValidateReview(req)); err != nil {
		return nil, err
	}

	movie, err := s.movies.GetByID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("get movie: %w", err)
	}
	if movie == nil {
		return nil, notFound("movie", movieID)
	}

	// Reviews written before ids were deterministic are only found by query
	exists, err := s.reviews.Exists(ctx, movieID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("check review: %w", err)
	}
	if exists {
		metrics.IncReview("duplicate")
		return nil, ErrAlreadyRated
	}

	review := &models.Review{
		MovieID:   movieID,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Score:     req.Score,
		Text:      req.Text,
		CreatedAt: s.now(),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.IncReview("duplicate")
			return nil, ErrAlreadyRated
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	movie.AddScore(req.Score)
	if err := s.movies.SetAggregate(ctx, movieID, movie.AvgRating, movie.ReviewCount); err != nil {
		metrics.IncConsistencyGap("rating_aggregate")
		s.log.Error().Err(err).
			Bool("consistency_gap", true).
			Str("movie_id", movieID).
			Str("review_id", review.ID).
			Msg("Review stored but rating aggregate not updated")
		return nil, fmt.Errorf("update rating aggregate: %w: %v", ErrPartialWrite, err)
	}

	metrics.IncReview("accepted")
	s.log.Info().
		Str("movie_id", movieID).
		Int("score", req.Score).
		Float64("avg_rating", movie.AvgRating).
		Int("review_count", movie.ReviewCount).
		Msg("Review accepted")

	return &models.ReviewResult{
		Review:      review,
		AvgRating:   movie.AvgRating,
		ReviewCount: movie.ReviewCount,
	}, nil
}
