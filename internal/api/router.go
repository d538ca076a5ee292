package api

import (
	"net/http"
	"time"

	"github.com/engagement-api/internal/config"
	"github.com/engagement-api/internal/idempotency"
	"github.com/engagement-api/internal/service"
	"github.com/engagement-api/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, idem idempotency.Store, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg.Server.CORSOrigin))
	router.Use(session.Middleware())

	limiter := NewRateLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	limit := rateLimitMiddleware(limiter)
	dedupe := idempotencyMiddleware(idem, log)
	mutating := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return []gin.HandlerFunc{limit, dedupe, h}
	}

	news := NewNewsHandler(services, log)
	movies := NewMovieHandler(services, log)
	comments := NewCommentHandler(services, log)
	me := NewMeHandler(services, log)
	reconcile := NewReconcileHandler(services, log)

	router.GET("/health", healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		n := v1.Group("/news")
		{
			n.GET("", news.List)
			n.GET("/:id", news.Get)
			n.PUT("/:id/reaction", mutating(news.SetReaction)...)
			n.GET("/:id/comments", comments.ListForNews)
			n.POST("/:id/comments", mutating(comments.CreateForNews)...)
		}

		m := v1.Group("/movies")
		{
			m.GET("", movies.List)
			m.POST("/:id/reviews", mutating(movies.SubmitReview)...)
			m.PUT("/:id/interest", mutating(movies.ToggleInterest)...)
			m.GET("/:id/comments", comments.ListForMovie)
			m.POST("/:id/comments", mutating(comments.CreateForMovie)...)
		}

		c := v1.Group("/comments")
		{
			c.PATCH("/:comment_id", mutating(comments.Edit)...)
			c.DELETE("/:comment_id", mutating(comments.Delete)...)
		}

		u := v1.Group("/me")
		{
			u.GET("/interests", me.Interests)
			u.GET("/comments", me.Comments)
		}

		v1.POST("/promotions", mutating(me.SubmitPromotion)...)

		r := v1.Group("/reconciliations", operatorMiddleware(cfg.Reconcile.Admins, log))
		{
			r.POST("", mutating(reconcile.Create)...)
			r.GET("/:job_id", reconcile.Get)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "engagement-api",
	})
}

func corsMiddleware(origin string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Idempotency-Key", session.HeaderUserID, session.HeaderUserName},
		ExposeHeaders: []string{"Idempotent-Replayed"},
		MaxAge:        12 * time.Hour,
	}
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{origin}
	}
	return cors.New(cfg)
}
