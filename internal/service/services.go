package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/engagement-api/internal/config"
	"github.com/engagement-api/internal/docstore"
	"github.com/engagement-api/internal/listing"
	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/policy"
	"github.com/engagement-api/internal/repository"
	"github.com/engagement-api/internal/session"
	"github.com/engagement-api/internal/validation"
	"github.com/rs/zerolog"
)

var (
	ErrNotAuthenticated = policy.ErrNotAuthenticated
	ErrNotAuthorized    = policy.ErrNotAuthorized
	ErrNotFound         = errors.New("not found")
	ErrAlreadyRated     = errors.New("movie already rated by this user")
	ErrInvalidInput     = errors.New("invalid input")
	// ErrPartialWrite means the first half of a dual write landed and the
	// second did not. The reconciliation job repairs the difference.
	ErrPartialWrite = errors.New("write only partially applied")
)

// InputError carries field-level validation failures. It matches ErrInvalidInput.
type InputError struct {
	Errors []validation.ValidationError
}

func (e *InputError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, v := range e.Errors {
		msgs = append(msgs, v.Message)
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(errs []validation.ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	return &InputError{Errors: errs}
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
}

// wrapCursorError maps a malformed cursor to ErrInvalidInput
func wrapCursorError(err error) error {
	if errors.Is(err, docstore.ErrInvalidQuery) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return err
}

// NewsQuery selects a page of news
type NewsQuery struct {
	Category string
	Cursor   string
	Search   string
}

// MovieQuery selects a page of movies
type MovieQuery struct {
	Industry string
	Cursor   string
	Search   string
}

// ReactionService defines the reaction ledger operations
type ReactionService interface {
	SetReaction(ctx context.Context, articleID string, desired models.ReactionType) (*models.ReactionResult, error)
	GetArticle(ctx context.Context, articleID string) (*models.ArticleView, error)
}

// CommentService defines the comment mirror protocol
type CommentService interface {
	Create(ctx context.Context, articleType, articleID, text string) (*models.CommentView, error)
	Edit(ctx context.Context, commentID, text string) (*models.CommentView, error)
	Delete(ctx context.Context, commentID string) error
	List(ctx context.Context, articleType, articleID string) ([]models.CommentView, error)
	ListMine(ctx context.Context) ([]models.CommentView, error)
}

// RatingService defines review submission and the rating aggregate rule
type RatingService interface {
	SubmitReview(ctx context.Context, movieID string, req *models.ReviewRequest) (*models.ReviewResult, error)
}

// ListingService defines paginated news and movie listings
type ListingService interface {
	ListNews(ctx context.Context, q NewsQuery) (listing.Page[models.Article], error)
	ListMovies(ctx context.Context, q MovieQuery) (listing.Page[models.MovieView], error)
}

// InterestService defines interest marker operations
type InterestService interface {
	Toggle(ctx context.Context, movieID string) (*models.InterestResult, error)
	List(ctx context.Context) ([]*models.Interest, error)
}

// PromotionService defines promotion inquiry intake
type PromotionService interface {
	Submit(ctx context.Context, p *models.Promotion) error
}

// ReconcileService defines the drift-repair job
type ReconcileService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	Enqueue(ctx context.Context, resource, trigger string) (*models.Job, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	// Run executes a job synchronously
	Run(ctx context.Context, job *models.Job) error
}

// Services holds all service interfaces
type Services struct {
	Reaction  ReactionService
	Comment   CommentService
	Rating    RatingService
	Listing   ListingService
	Interest  InterestService
	Promotion PromotionService
	Reconcile ReconcileService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, sessions session.Provider, cfg *config.Config, log zerolog.Logger) *Services {
	return &Services{
		Reaction:  newReactionService(repos, sessions, log),
		Comment:   newCommentService(repos, sessions, log),
		Rating:    newRatingService(repos, sessions, log),
		Listing:   newListingService(repos, sessions, cfg.Listing, log),
		Interest:  newInterestService(repos, sessions, log),
		Promotion: newPromotionService(repos, log),
		Reconcile: newReconcileService(repos, cfg.Reconcile, log),
	}
}
