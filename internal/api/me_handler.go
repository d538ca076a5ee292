package api

import (
	"net/http"

	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// MeHandler serves the caller's own data and promotion inquiries
type MeHandler struct {
	services *service.Services
	log      zerolog.Logger
}

func NewMeHandler(services *service.Services, log zerolog.Logger) *MeHandler {
	return &MeHandler{
		services: services,
		log:      log.With().Str("handler", "me").Logger(),
	}
}

// Interests handles GET /v1/me/interests
func (h *MeHandler) Interests(c *gin.Context) {
	interests, err := h.services.Interest.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interests": interests})
}

// Comments handles GET /v1/me/comments
func (h *MeHandler) Comments(c *gin.Context) {
	comments, err := h.services.Comment.ListMine(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// SubmitPromotion handles POST /v1/promotions
func (h *MeHandler) SubmitPromotion(c *gin.Context) {
	var p models.Promotion
	if !bindJSON(c, &p) {
		return
	}
	p.ID = ""
	if err := h.services.Promotion.Submit(c.Request.Context(), &p); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": p.ID, "status": "received"})
}
