package api

import (
	"net/http"

	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ReconcileHandler handles reconciliation job endpoints
type ReconcileHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewReconcileHandler creates a new ReconcileHandler
func NewReconcileHandler(services *service.Services, log zerolog.Logger) *ReconcileHandler {
	return &ReconcileHandler{
		services: services,
		log:      log.With().Str("handler", "reconcile").Logger(),
	}
}

// Create handles POST /v1/reconciliations. The job runs in the background;
// poll GET /v1/reconciliations/:job_id for its outcome.
func (h *ReconcileHandler) Create(c *gin.Context) {
	var req models.ReconcileRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Resource == "" {
		req.Resource = models.ResourceAll
	}
	job, err := h.services.Reconcile.Enqueue(c.Request.Context(), req.Resource, "api")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"job_id":     job.ID,
		"status":     job.Status,
		"status_url": "/v1/reconciliations/" + job.ID,
	})
}

// Get handles GET /v1/reconciliations/:job_id
func (h *ReconcileHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "job_id")
	if !ok {
		return
	}
	job, err := h.services.Reconcile.GetJob(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, job)
}
