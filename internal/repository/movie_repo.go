package repository

import (
	"context"
	"errors"
	"time"

	"github.com/engagement-api/internal/docstore"
	"github.com/engagement-api/internal/listing"
	"github.com/engagement-api/internal/models"
)

// movieRepo is the concrete implementation of MovieRepository
type movieRepo struct {
	store docstore.Store
	paths Paths
}

// NewMovieRepo creates a new movie repository
func NewMovieRepo(store docstore.Store, paths Paths) MovieRepository {
	return &movieRepo{store: store, paths: paths}
}

func setMovieID(m *models.Movie, id string) { m.ID = id }

// GetByID retrieves a movie by ID
func (r *movieRepo) GetByID(ctx context.Context, id string) (*models.Movie, error) {
	m, doc, err := getAs[models.Movie](ctx, r.store, r.paths.Movie(id))
	if err != nil || m == nil {
		return nil, err
	}
	m.ID = doc.ID
	return m, nil
}

// List returns released, visible movies, newest release first
func (r *movieRepo) List(ctx context.Context, f MovieFilter) (listing.Page[models.Movie], error) {
	q := docstore.Query{
		Where: []docstore.Predicate{
			docstore.Where("scheduledAt", docstore.OpLte, f.Now),
			docstore.Where("releaseDate", docstore.OpLte, f.Now),
		},
		OrderBy: docstore.OrderBy{Field: "releaseDate", Kind: docstore.KindTime, Desc: true},
	}
	if f.Industry != "" {
		q.Where = append(q.Where, docstore.Where("industry", docstore.OpEq, f.Industry))
	}
	return queryPage(ctx, r.store, r.paths.Movies(), q, f.Cursor, f.PageSize, setMovieID)
}

// SetAggregate overwrites the cached rating aggregate
func (r *movieRepo) SetAggregate(ctx context.Context, id string, avgRating float64, reviewCount int) error {
	return r.store.Update(ctx, r.paths.Movie(id), map[string]any{
		"avgRating":   avgRating,
		"reviewCount": reviewCount,
	})
}

// Scan pages through all movies in id order
func (r *movieRepo) Scan(ctx context.Context, cursor string, limit int) (listing.Page[models.Movie], error) {
	return queryPage(ctx, r.store, r.paths.Movies(), docstore.Query{}, cursor, limit, setMovieID)
}

// reviewRepo is the concrete implementation of ReviewRepository
type reviewRepo struct {
	store docstore.Store
	paths Paths
}

// NewReviewRepo creates a new review repository
func NewReviewRepo(store docstore.Store, paths Paths) ReviewRepository {
	return &reviewRepo{store: store, paths: paths}
}

// Create stores the review under {movieId}_{userId}
func (r *reviewRepo) Create(ctx context.Context, review *models.Review) error {
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	path := r.paths.Review(review.MovieID, review.UserID)
	_, review.ID, _ = docstore.Split(path)

	err := r.store.CreateWithID(ctx, path, review)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return ErrDuplicate
	}
	return err
}

// Exists reports whether userID reviewed movieID under any document id
func (r *reviewRepo) Exists(ctx context.Context, movieID, userID string) (bool, error) {
	docs, err := r.store.Query(ctx, r.paths.Reviews(), docstore.Query{
		Where: []docstore.Predicate{
			docstore.Where("movieId", docstore.OpEq, movieID),
			docstore.Where("userId", docstore.OpEq, userID),
		},
		Limit: 1,
	})
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// RatedMovieIDs returns the set of movies reviewed by userID
func (r *reviewRepo) RatedMovieIDs(ctx context.Context, userID string) (map[string]bool, error) {
	reviews, err := queryAll[models.Review](ctx, r.store, r.paths.Reviews(), docstore.Query{
		Where: []docstore.Predicate{docstore.Where("userId", docstore.OpEq, userID)},
	}, nil)
	if err != nil {
		return nil, err
	}
	rated := make(map[string]bool, len(reviews))
	for _, rv := range reviews {
		rated[rv.MovieID] = true
	}
	return rated, nil
}

// ListByMovie returns every review of a movie
func (r *reviewRepo) ListByMovie(ctx context.Context, movieID string) ([]*models.Review, error) {
	return queryAll(ctx, r.store, r.paths.Reviews(), docstore.Query{
		Where: []docstore.Predicate{docstore.Where("movieId", docstore.OpEq, movieID)},
	}, func(rv *models.Review, id string) { rv.ID = id })
}
