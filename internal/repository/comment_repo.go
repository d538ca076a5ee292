package repository

import (
	"context"
	"strings"

	"github.com/engagement-api/internal/docstore"
	"github.com/engagement-api/internal/listing"
	"github.com/engagement-api/internal/models"
)

// commentRepo is the concrete implementation of CommentRepository.
// Canonical records live at comments/{id}, mirrors at users/{uid}/userComments/{id}.
type commentRepo struct {
	store docstore.Store
	paths Paths
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(store docstore.Store, paths Paths) CommentRepository {
	return &commentRepo{store: store, paths: paths}
}

func setCommentID(c *models.Comment, id string) {
	if c.CommentID == "" {
		c.CommentID = id
	}
}

// Create writes the canonical record
func (r *commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	return r.store.CreateWithID(ctx, r.paths.Comment(comment.CommentID), comment)
}

// CreateMirror writes the author's copy
func (r *commentRepo) CreateMirror(ctx context.Context, comment *models.Comment) error {
	return r.store.Upsert(ctx, r.paths.UserComment(comment.UserID, comment.CommentID), comment, false)
}

// GetByID retrieves a canonical comment
func (r *commentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	c, doc, err := getAs[models.Comment](ctx, r.store, r.paths.Comment(id))
	if err != nil || c == nil {
		return nil, err
	}
	setCommentID(c, doc.ID)
	return c, nil
}

// GetMirror retrieves the author's copy of a comment
func (r *commentRepo) GetMirror(ctx context.Context, userID, id string) (*models.Comment, error) {
	c, doc, err := getAs[models.Comment](ctx, r.store, r.paths.UserComment(userID, id))
	if err != nil || c == nil {
		return nil, err
	}
	setCommentID(c, doc.ID)
	return c, nil
}

// Update merges fields into the canonical record; docstore.ErrNotFound if it is gone
func (r *commentRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	return r.store.Update(ctx, r.paths.Comment(id), fields)
}

// UpdateMirror merges fields into the author's copy
func (r *commentRepo) UpdateMirror(ctx context.Context, userID, id string, fields map[string]any) error {
	return r.store.Update(ctx, r.paths.UserComment(userID, id), fields)
}

func (r *commentRepo) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.paths.Comment(id))
}

func (r *commentRepo) DeleteMirror(ctx context.Context, userID, id string) error {
	return r.store.Delete(ctx, r.paths.UserComment(userID, id))
}

// ListByArticle returns the comments of an article, oldest first
func (r *commentRepo) ListByArticle(ctx context.Context, articleID, articleType string) ([]*models.Comment, error) {
	return queryAll(ctx, r.store, r.paths.Comments(), docstore.Query{
		Where: []docstore.Predicate{
			docstore.Where("articleId", docstore.OpEq, articleID),
			docstore.Where("articleType", docstore.OpEq, articleType),
		},
		OrderBy: docstore.OrderBy{Field: "createdAt", Kind: docstore.KindTime},
	}, setCommentID)
}

// ListByUser returns the mirrors of a user, newest first
func (r *commentRepo) ListByUser(ctx context.Context, userID string) ([]*models.Comment, error) {
	return queryAll(ctx, r.store, r.paths.UserComments(userID), docstore.Query{
		OrderBy: docstore.OrderBy{Field: "createdAt", Kind: docstore.KindTime, Desc: true},
	}, setCommentID)
}

// Scan pages through all canonical comments in id order
func (r *commentRepo) Scan(ctx context.Context, cursor string, limit int) (listing.Page[models.Comment], error) {
	return queryPage(ctx, r.store, r.paths.Comments(), docstore.Query{}, cursor, limit, setCommentID)
}

// ScanMirrors pages through every user's mirrored comments in id order.
// The owner is taken from the mirror's path, not its body.
func (r *commentRepo) ScanMirrors(ctx context.Context, cursor string, limit int) (listing.Page[MirrorRef], error) {
	run := func(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
		return r.store.QueryGroup(ctx, r.paths.Users(), userCommentsGroup, q)
	}
	return pageWith(ctx, run, docstore.Query{}, cursor, limit, func(doc *docstore.Document) (MirrorRef, error) {
		owner := strings.TrimSuffix(doc.Collection, "/"+userCommentsGroup)
		owner = owner[strings.LastIndex(owner, "/")+1:]
		return MirrorRef{UserID: owner, CommentID: doc.ID}, nil
	})
}
