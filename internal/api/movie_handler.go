package api

import (
	"net/http"

	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// MovieHandler handles movie, review and interest endpoints
type MovieHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewMovieHandler creates a new MovieHandler
func NewMovieHandler(services *service.Services, log zerolog.Logger) *MovieHandler {
	return &MovieHandler{
		services: services,
		log:      log.With().Str("handler", "movie").Logger(),
	}
}

// List handles GET /v1/movies
func (h *MovieHandler) List(c *gin.Context) {
	page, err := h.services.Listing.ListMovies(c.Request.Context(), service.MovieQuery{
		Industry: c.Query("industry"),
		Cursor:   c.Query("cursor"),
		Search:   c.Query("q"),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SubmitReview handles POST /v1/movies/:id/reviews
func (h *MovieHandler) SubmitReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.services.Rating.SubmitReview(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ToggleInterest handles PUT /v1/movies/:id/interest
func (h *MovieHandler) ToggleInterest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.services.Interest.Toggle(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
