package repository

import (
	"context"
	"errors"
	"time"

	"github.com/engagement-api/internal/docstore"
	"github.com/engagement-api/internal/listing"
	"github.com/engagement-api/internal/models"
)

// ErrDuplicate is returned when a record with the same key already exists
var ErrDuplicate = errors.New("record already exists")

// ArticleFilter selects visible news items
type ArticleFilter struct {
	Category string
	Now      time.Time
	Cursor   string
	PageSize int
}

// MovieFilter selects visible movies
type MovieFilter struct {
	Industry string
	Now      time.Time
	Cursor   string
	PageSize int
}

// ArticleRepository defines the interface for news item operations
type ArticleRepository interface {
	GetByID(ctx context.Context, id string) (*models.Article, error)
	List(ctx context.Context, f ArticleFilter) (listing.Page[models.Article], error)
	// IncrementCounters applies counter deltas in one atomic store call
	IncrementCounters(ctx context.Context, id string, deltas map[string]int) error
	SetCounters(ctx context.Context, id string, likes, dislikes int) error
	// Scan pages through every article by id
	Scan(ctx context.Context, cursor string, limit int) (listing.Page[models.Article], error)
}

// ReactionRepository defines the interface for reaction ledger operations
type ReactionRepository interface {
	// Get returns nil when the user never reacted
	Get(ctx context.Context, articleID, userID string) (*models.Reaction, error)
	Set(ctx context.Context, articleID, userID string, reaction models.ReactionType) error
	Count(ctx context.Context, articleID string) (likes, dislikes int, err error)
}

// CommentRepository defines the interface for canonical and mirrored comments
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	CreateMirror(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	GetMirror(ctx context.Context, userID, id string) (*models.Comment, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	UpdateMirror(ctx context.Context, userID, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
	DeleteMirror(ctx context.Context, userID, id string) error
	ListByArticle(ctx context.Context, articleID, articleType string) ([]*models.Comment, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Comment, error)
	Scan(ctx context.Context, cursor string, limit int) (listing.Page[models.Comment], error)
	// ScanMirrors pages through the mirrors of every user
	ScanMirrors(ctx context.Context, cursor string, limit int) (listing.Page[MirrorRef], error)
}

// MirrorRef locates one mirrored comment
type MirrorRef struct {
	UserID    string
	CommentID string
}

// MovieRepository defines the interface for movie operations
type MovieRepository interface {
	GetByID(ctx context.Context, id string) (*models.Movie, error)
	List(ctx context.Context, f MovieFilter) (listing.Page[models.Movie], error)
	SetAggregate(ctx context.Context, id string, avgRating float64, reviewCount int) error
	Scan(ctx context.Context, cursor string, limit int) (listing.Page[models.Movie], error)
}

// ReviewRepository defines the interface for review operations
type ReviewRepository interface {
	// Create fails with ErrDuplicate when the user already reviewed the movie
	Create(ctx context.Context, review *models.Review) error
	Exists(ctx context.Context, movieID, userID string) (bool, error)
	// RatedMovieIDs returns the ids of every movie userID reviewed, in one query
	RatedMovieIDs(ctx context.Context, userID string) (map[string]bool, error)
	ListByMovie(ctx context.Context, movieID string) ([]*models.Review, error)
}

// UserRepository defines the interface for user profile reads
type UserRepository interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// InterestRepository defines the interface for per-user interest markers
type InterestRepository interface {
	Get(ctx context.Context, userID, movieID string) (*models.Interest, error)
	Put(ctx context.Context, userID string, interest *models.Interest) error
	Delete(ctx context.Context, userID, movieID string) error
	ListByUser(ctx context.Context, userID string) ([]*models.Interest, error)
}

// PromotionRepository defines the interface for promotion inquiries
type PromotionRepository interface {
	Create(ctx context.Context, p *models.Promotion) error
}

// JobRepository defines the interface for reconciliation runs
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Update(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	GetPendingJobs(ctx context.Context) ([]*models.Job, error)
	MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article   ArticleRepository
	Reaction  ReactionRepository
	Comment   CommentRepository
	Movie     MovieRepository
	Review    ReviewRepository
	User      UserRepository
	Interest  InterestRepository
	Promotion PromotionRepository
	Job       JobRepository
	Paths     Paths
}

// New creates all repositories over the given store. Every path is prefixed with root.
func New(store docstore.Store, root string) *Repositories {
	p := Paths{Root: root}
	return &Repositories{
		Article:   NewArticleRepo(store, p),
		Reaction:  NewReactionRepo(store, p),
		Comment:   NewCommentRepo(store, p),
		Movie:     NewMovieRepo(store, p),
		Review:    NewReviewRepo(store, p),
		User:      NewUserRepo(store, p),
		Interest:  NewInterestRepo(store, p),
		Promotion: NewPromotionRepo(store, p),
		Job:       NewJobRepo(store, p),
		Paths:     p,
	}
}
