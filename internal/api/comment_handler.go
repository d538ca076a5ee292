package api

import (
	"net/http"

	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CommentHandler handles comment endpoints for news and movies
type CommentHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(services *service.Services, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		services: services,
		log:      log.With().Str("handler", "comment").Logger(),
	}
}

func (h *CommentHandler) ListForNews(c *gin.Context)  { h.list(c, models.ArticleTypeNews) }
func (h *CommentHandler) ListForMovie(c *gin.Context) { h.list(c, models.ArticleTypeMovie) }

func (h *CommentHandler) CreateForNews(c *gin.Context)  { h.create(c, models.ArticleTypeNews) }
func (h *CommentHandler) CreateForMovie(c *gin.Context) { h.create(c, models.ArticleTypeMovie) }

func (h *CommentHandler) list(c *gin.Context, articleType string) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	comments, err := h.services.Comment.List(c.Request.Context(), articleType, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *CommentHandler) create(c *gin.Context, articleType string) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.services.Comment.Create(c.Request.Context(), articleType, id, req.Text)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// Edit handles PATCH /v1/comments/:comment_id
func (h *CommentHandler) Edit(c *gin.Context) {
	id, ok := pathID(c, "comment_id")
	if !ok {
		return
	}
	var req models.CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.services.Comment.Edit(c.Request.Context(), id, req.Text)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// Delete handles DELETE /v1/comments/:comment_id
func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "comment_id")
	if !ok {
		return
	}
	if err := h.services.Comment.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
