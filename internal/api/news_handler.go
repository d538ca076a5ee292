package api

import (
	"net/http"

	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewsHandler handles news endpoints
type NewsHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewNewsHandler creates a new NewsHandler
func NewNewsHandler(services *service.Services, log zerolog.Logger) *NewsHandler {
	return &NewsHandler{
		services: services,
		log:      log.With().Str("handler", "news").Logger(),
	}
}

// List handles GET /v1/news
func (h *NewsHandler) List(c *gin.Context) {
	page, err := h.services.Listing.ListNews(c.Request.Context(), service.NewsQuery{
		Category: c.Query("category"),
		Cursor:   c.Query("cursor"),
		Search:   c.Query("q"),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /v1/news/:id
func (h *NewsHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	article, err := h.services.Reaction.GetArticle(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// SetReaction handles PUT /v1/news/:id/reaction
func (h *NewsHandler) SetReaction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.ReactionRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.services.Reaction.SetReaction(c.Request.Context(), id, req.Type)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
