package service

import (
	"context"
	"fmt"
	"time"

	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/policy"
	"github.com/engagement-api/internal/repository"
	"github.com/engagement-api/internal/session"
	"github.com/rs/zerolog"
)

// interestService is the concrete implementation of InterestService
type interestService struct {
	interests repository.InterestRepository
	movies    repository.MovieRepository
	sessions  session.Provider
	log       zerolog.Logger
	now       func() time.Time
}

func newInterestService(repos *repository.Repositories, sessions session.Provider, log zerolog.Logger) *interestService {
	return &interestService{
		interests: repos.Interest,
		movies:    repos.Movie,
		sessions:  sessions,
		log:       log.With().Str("service", "interest").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Toggle adds the movie to the caller's interests, or removes it if present
func (s *interestService) Toggle(ctx context.Context, movieID string) (*models.InterestResult, error) {
	user := s.sessions.CurrentUser(ctx)
	if err := policy.RequireIdentity(user); err != nil {
		return nil, err
	}

	existing, err := s.interests.Get(ctx, user.ID, movieID)
	if err != nil {
		return nil, fmt.Errorf("get interest: %w", err)
	}
	if existing != nil {
		if err := s.interests.Delete(ctx, user.ID, movieID); err != nil {
			return nil, fmt.Errorf("remove interest: %w", err)
		}
		return &models.InterestResult{MovieID: movieID, Interested: false}, nil
	}

	movie, err := s.movies.GetByID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("get movie: %w", err)
	}
	if movie == nil {
		return nil, notFound("movie", movieID)
	}

	interest := &models.Interest{
		MovieID:     movieID,
		Title:       movie.Title,
		PosterURL:   movie.Image(),
		ReleaseDate: movie.ReleaseDate,
		AddedAt:     s.now(),
	}
	if err := s.interests.Put(ctx, user.ID, interest); err != nil {
		return nil, fmt.Errorf("add interest: %w", err)
	}
	return &models.InterestResult{MovieID: movieID, Interested: true}, nil
}

// List returns the caller's interests
func (s *interestService) List(ctx context.Context) ([]*models.Interest, error) {
	user := s.sessions.CurrentUser(ctx)
	if err := policy.RequireIdentity(user); err != nil {
		return nil, err
	}
	return s.interests.ListByUser(ctx, user.ID)
}
