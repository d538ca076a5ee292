package service

import (
	"context"
	"fmt"
	"time"

	"github.com/engagement-api/internal/config"
	"github.com/engagement-api/internal/listing"
	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/repository"
	"github.com/engagement-api/internal/session"
	"github.com/rs/zerolog"
)

// listingService is the concrete implementation of ListingService.
// Search only filters the page being returned; the cursor and HasMore
// always describe the unfiltered listing.
type listingService struct {
	articles  repository.ArticleRepository
	movies    repository.MovieRepository
	reviews   repository.ReviewRepository
	interests repository.InterestRepository
	sessions  session.Provider
	cfg       config.ListingConfig
	log       zerolog.Logger
	now       func() time.Time
}

func newListingService(repos *repository.Repositories, sessions session.Provider, cfg config.ListingConfig, log zerolog.Logger) *listingService {
	return &listingService{
		articles:  repos.Article,
		movies:    repos.Movie,
		reviews:   repos.Review,
		interests: repos.Interest,
		sessions:  sessions,
		cfg:       cfg,
		log:       log.With().Str("service", "listing").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListNews returns one page of visible news
func (s *listingService) ListNews(ctx context.Context, q NewsQuery) (listing.Page[models.Article], error) {
	page, err := s.articles.List(ctx, repository.ArticleFilter{
		Category: q.Category,
		Now:      s.now(),
		Cursor:   q.Cursor,
		PageSize: s.cfg.NewsPageSize,
	})
	if err != nil {
		return page, fmt.Errorf("list news: %w", wrapCursorError(err))
	}
	for i := range page.Items {
		page.Items[i].Floor()
	}
	page.Items = listing.Search(page.Items, q.Search, func(a models.Article) []string { return a.SearchText() })
	return page, nil
}

// ListMovies returns one page of released movies with the viewer's flags
func (s *listingService) ListMovies(ctx context.Context, q MovieQuery) (listing.Page[models.MovieView], error) {
	page, err := s.movies.List(ctx, repository.MovieFilter{
		Industry: q.Industry,
		Now:      s.now(),
		Cursor:   q.Cursor,
		PageSize: s.cfg.MoviesPageSize,
	})
	if err != nil {
		return listing.Page[models.MovieView]{}, fmt.Errorf("list movies: %w", wrapCursorError(err))
	}

	var rated, interested map[string]bool
	if viewer := s.sessions.CurrentUser(ctx); viewer != nil && len(page.Items) > 0 {
		rated, interested = s.viewerFlags(ctx, viewer.ID)
	}

	items := listing.Search(page.Items, q.Search, func(m models.Movie) []string { return m.SearchText() })
	views := make([]models.MovieView, 0, len(items))
	for _, m := range items {
		views = append(views, models.MovieView{
			Movie:        m,
			HasRated:     rated[m.ID],
			IsInterested: interested[m.ID],
		})
	}

	return listing.Page[models.MovieView]{
		Items:      views,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}, nil
}

// viewerFlags loads the viewer's reviewed and interesting movies with one
// query each. Failures degrade to unset flags.
func (s *listingService) viewerFlags(ctx context.Context, userID string) (map[string]bool, map[string]bool) {
	rated, err := s.reviews.RatedMovieIDs(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load viewer reviews")
	}

	interested := make(map[string]bool)
	list, err := s.interests.ListByUser(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load viewer interests")
	}
	for _, i := range list {
		interested[i.MovieID] = true
	}
	return rated, interested
}
