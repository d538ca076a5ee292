package repository

import (
	"context"

	"github.com/engagement-api/internal/docstore"
	"github.com/engagement-api/internal/listing"
	"github.com/engagement-api/internal/models"
)

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	store docstore.Store
	paths Paths
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(store docstore.Store, paths Paths) ArticleRepository {
	return &articleRepo{store: store, paths: paths}
}

func setArticleID(a *models.Article, id string) { a.ID = id }

// GetByID retrieves an article by ID
func (r *articleRepo) GetByID(ctx context.Context, id string) (*models.Article, error) {
	a, doc, err := getAs[models.Article](ctx, r.store, r.paths.Article(id))
	if err != nil || a == nil {
		return nil, err
	}
	a.ID = doc.ID
	return a, nil
}

// List returns visible articles, newest scheduled first
func (r *articleRepo) List(ctx context.Context, f ArticleFilter) (listing.Page[models.Article], error) {
	q := docstore.Query{
		Where:   []docstore.Predicate{docstore.Where("scheduledAt", docstore.OpLte, f.Now)},
		OrderBy: docstore.OrderBy{Field: "scheduledAt", Kind: docstore.KindTime, Desc: true},
	}
	if f.Category != "" {
		q.Where = append(q.Where, docstore.Where("category", docstore.OpEq, f.Category))
	}
	return queryPage(ctx, r.store, r.paths.News(), q, f.Cursor, f.PageSize, setArticleID)
}

// IncrementCounters adds deltas to likesCount/dislikesCount
func (r *articleRepo) IncrementCounters(ctx context.Context, id string, deltas map[string]int) error {
	fd := make(map[string]float64, len(deltas))
	for field, d := range deltas {
		if d != 0 {
			fd[field] = float64(d)
		}
	}
	if len(fd) == 0 {
		return nil
	}
	return r.store.Increment(ctx, r.paths.Article(id), fd)
}

// SetCounters overwrites both counters
func (r *articleRepo) SetCounters(ctx context.Context, id string, likes, dislikes int) error {
	return r.store.Update(ctx, r.paths.Article(id), map[string]any{
		"likesCount":    likes,
		"dislikesCount": dislikes,
	})
}

// Scan pages through all articles in id order
func (r *articleRepo) Scan(ctx context.Context, cursor string, limit int) (listing.Page[models.Article], error) {
	return queryPage(ctx, r.store, r.paths.News(), docstore.Query{}, cursor, limit, setArticleID)
}

// reactionRepo is the concrete implementation of ReactionRepository
type reactionRepo struct {
	store docstore.Store
	paths Paths
}

// NewReactionRepo creates a new reaction ledger repository
func NewReactionRepo(store docstore.Store, paths Paths) ReactionRepository {
	return &reactionRepo{store: store, paths: paths}
}

// Get returns the ledger entry of userID on articleID
func (r *reactionRepo) Get(ctx context.Context, articleID, userID string) (*models.Reaction, error) {
	reaction, _, err := getAs[models.Reaction](ctx, r.store, r.paths.Reaction(articleID, userID))
	return reaction, err
}

// Set overwrites the ledger entry; ReactionNone is stored as null
func (r *reactionRepo) Set(ctx context.Context, articleID, userID string, reaction models.ReactionType) error {
	return r.store.Upsert(ctx, r.paths.Reaction(articleID, userID), models.Reaction{Type: reaction}, false)
}

// Count tallies the ledger of an article
func (r *reactionRepo) Count(ctx context.Context, articleID string) (int, int, error) {
	count := func(t models.ReactionType) (int, error) {
		docs, err := r.store.Query(ctx, r.paths.Feedback(articleID), docstore.Query{
			Where: []docstore.Predicate{docstore.Where("type", docstore.OpEq, string(t))},
		})
		return len(docs), err
	}
	likes, err := count(models.ReactionLike)
	if err != nil {
		return 0, 0, err
	}
	dislikes, err := count(models.ReactionDislike)
	if err != nil {
		return 0, 0, err
	}
	return likes, dislikes, nil
}
