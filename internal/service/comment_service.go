package service

import (
	"context"
	"fmt"
	"time"

	"github.com/engagement-api/internal/docstore"
	"github.com/engagement-api/internal/metrics"
	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/policy"
	"github.com/engagement-api/internal/repository"
	"github.com/engagement-api/internal/session"
	"github.com/engagement-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// commentService is the concrete implementation of CommentService.
// Every comment exists twice: the canonical record and the author's mirror.
// Each mutation writes the canonical record first and the mirror second.
type commentService struct {
	comments repository.CommentRepository
	articles repository.ArticleRepository
	movies   repository.MovieRepository
	users    repository.UserRepository
	sessions session.Provider
	log      zerolog.Logger
	now      func() time.Time
}

func newCommentService(repos *repository.Repositories, sessions session.Provider, log zerolog.Logger) *commentService {
	return &commentService{
		comments: repos.Comment,
		articles: repos.Article,
		movies:   repos.Movie,
		users:    repos.User,
		sessions: sessions,
		log:      log.With().Str("service", "comment").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// targetExists checks that the commented item exists
func (s *commentService) targetExists(ctx context.Context, articleType, articleID string) error {
	var exists bool
	switch articleType {
	case models.ArticleTypeMovie:
		m, err := s.movies.GetByID(ctx, articleID)
		if err != nil {
			return fmt.Errorf("get movie: %w", err)
		}
		exists = m != nil
	default:
		a, err := s.articles.GetByID(ctx, articleID)
		if err != nil {
			return fmt.Errorf("get article: %w", err)
		}
		exists = a != nil
	}
	if !exists {
		return notFound(articleType, articleID)
	}
	return nil
}

// Create writes a new comment and its mirror
func (s *commentService) Create(ctx context.Context, articleType, articleID, text string) (*models.CommentView, error) {
	user := s.sessions.CurrentUser(ctx)
	if err := policy.RequireIdentity(user); err != nil {
		return nil, err
	}
	errs := validation.ValidateArticleType(articleType)
	errs = append(errs, validation.ValidateCommentText(text)...)
	if err := invalid(errs); err != nil {
		return nil, err
	}
	if err := s.targetExists(ctx, articleType, articleID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		CommentID:   uuid.New().String(),
		Comment:     text,
		CommentText: text,
		ArticleID:   articleID,
		ArticleType: articleType,
		UserID:      user.ID,
		UserName:    s.snapshotName(ctx, user),
		CreatedAt:   s.now(),
		Approved:    true,
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		s.log.Error().Err(err).Str("article_id", articleID).Msg("Failed to create comment")
		return nil, fmt.Errorf("create comment: %w", err)
	}

	if err := s.comments.CreateMirror(ctx, comment); err != nil {
		s.gap(err, "comment_mirror_create", comment)
		return nil, fmt.Errorf("create comment mirror: %w: %v", ErrPartialWrite, err)
	}

	s.log.Info().
		Str("comment_id", comment.CommentID).
		Str("article_id", articleID).
		Str("article_type", articleType).
		Msg("Comment created")

	return s.view(comment, s.resolveName(ctx, comment, user)), nil
}

// Edit replaces the text of the caller's own comment on both records
func (s *commentService) Edit(ctx context.Context, commentID, text string) (*models.CommentView, error) {
	user := s.sessions.CurrentUser(ctx)
	if err := policy.RequireIdentity(user); err != nil {
		return nil, err
	}
	if err := invalid(validation.ValidateCommentText(text)); err != nil {
		return nil, err
	}

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	if comment == nil {
		return nil, notFound("comment", commentID)
	}
	if err := policy.RequireOwner(user, comment.UserID); err != nil {
		return nil, err
	}

	updatedAt := s.now()
	fields := map[string]any{
		"comment":     text,
		"commentText": text,
		"updatedAt":   updatedAt,
		"approved":    true,
	}

	// No version check: concurrent edits resolve last-write-wins
	if err := s.comments.Update(ctx, commentID, fields); err != nil {
		if docstore.IsNotFound(err) {
			return nil, notFound("comment", commentID)
		}
		return nil, fmt.Errorf("update comment: %w", err)
	}

	comment.Comment = text
	comment.CommentText = text
	comment.UpdatedAt = &updatedAt

	if err := s.comments.UpdateMirror(ctx, comment.UserID, commentID, fields); err != nil {
		s.gap(err, "comment_mirror_update", comment)
		return nil, fmt.Errorf("update comment mirror: %w: %v", ErrPartialWrite, err)
	}

	return s.view(comment, s.resolveName(ctx, comment, user)), nil
}

// Delete removes the caller's own comment and its mirror
func (s *commentService) Delete(ctx context.Context, commentID string) error {
	user := s.sessions.CurrentUser(ctx)
	if err := policy.RequireIdentity(user); err != nil {
		return err
	}

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("get comment: %w", err)
	}
	if comment == nil {
		return notFound("comment", commentID)
	}
	if err := policy.RequireOwner(user, comment.UserID); err != nil {
		return err
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if err := s.comments.DeleteMirror(ctx, comment.UserID, commentID); err != nil {
		s.gap(err, "comment_mirror_delete", comment)
		return fmt.Errorf("delete comment mirror: %w: %v", ErrPartialWrite, err)
	}

	s.log.Info().Str("comment_id", commentID).Msg("Comment deleted")
	return nil
}

// List returns the comments of an item, oldest first, with display names resolved
func (s *commentService) List(ctx context.Context, articleType, articleID string) ([]models.CommentView, error) {
	if err := invalid(validation.ValidateArticleType(articleType)); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByArticle(ctx, articleID, articleType)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	viewer := s.sessions.CurrentUser(ctx)
	views := make([]models.CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, *s.view(c, s.resolveName(ctx, c, viewer)))
	}
	return views, nil
}

// ListMine returns the caller's comments from their mirrors, newest first
func (s *commentService) ListMine(ctx context.Context) ([]models.CommentView, error) {
	user := s.sessions.CurrentUser(ctx)
	if err := policy.RequireIdentity(user); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list user comments: %w", err)
	}
	views := make([]models.CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, *s.view(c, s.resolveName(ctx, c, user)))
	}
	return views, nil
}

// resolveName picks a display name: the name stored on the comment, then the
// viewer's own name when the viewer wrote it, then the author's profile, then
// "Anonymous". A failed profile lookup only affects this comment.
func (s *commentService) resolveName(ctx context.Context, c *models.Comment, viewer *session.Identity) string {
	if name := c.StoredName(); name != "" {
		return name
	}
	if viewer != nil && viewer.ID == c.UserID && viewer.DisplayName != "" {
		return viewer.DisplayName
	}
	if c.UserID != "" {
		profile, err := s.users.GetProfile(ctx, c.UserID)
		if err != nil {
			s.log.Warn().Err(err).
				Str("comment_id", c.CommentID).
				Str("user_id", c.UserID).
				Msg("Failed to look up comment author")
		} else if profile != nil {
			if name := profile.DisplayNameOrEmpty(); name != "" {
				return name
			}
		}
	}
	return models.AnonymousName
}

// snapshotName is the name saved on a new comment
func (s *commentService) snapshotName(ctx context.Context, user *session.Identity) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	profile, err := s.users.GetProfile(ctx, user.ID)
	if err != nil || profile == nil {
		return ""
	}
	return profile.DisplayNameOrEmpty()
}

func (s *commentService) view(c *models.Comment, name string) *models.CommentView {
	return &models.CommentView{
		ID:          c.CommentID,
		ArticleID:   c.ArticleID,
		ArticleType: c.ArticleType,
		UserID:      c.UserID,
		DisplayName: name,
		Text:        c.Text(),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (s *commentService) gap(err error, operation string, c *models.Comment) {
	metrics.IncConsistencyGap(operation)
	s.log.Error().Err(err).
		Bool("consistency_gap", true).
		Str("operation", operation).
		Str("comment_id", c.CommentID).
		Str("user_id", c.UserID).
		Msg("Canonical comment written but mirror not updated")
}
