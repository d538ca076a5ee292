package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/engagement-api/internal/idempotency"
	"github.com/engagement-api/internal/metrics"
	"github.com/engagement-api/internal/policy"
	"github.com/engagement-api/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HeaderIdempotencyKey names the request header carrying the client's key
const HeaderIdempotencyKey = "Idempotency-Key"

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("path", c.Request.URL.Path).
					Msg("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		statusCode := c.Writer.Status()
		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		if user := session.FromContext(c.Request.Context()); user != nil {
			event = event.Str("user_id", user.ID)
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// RateLimiter hands out one token bucket per client
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func NewRateLimiter(rps rate.Limit, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// Limiter returns the bucket of client, creating it on first use
func (rl *RateLimiter) Limiter(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, ok := rl.visitors[client]
	if !ok {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.visitors[client] = limiter
	}
	return limiter
}

// rateLimitMiddleware limits signed-in users by id and everyone else by IP.
// A zero rate disables limiting.
func rateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter.rps <= 0 {
			c.Next()
			return
		}
		client := "ip:" + c.ClientIP()
		if user := session.FromContext(c.Request.Context()); user != nil {
			client = "user:" + user.ID
		}
		if !limiter.Limiter(client).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please wait"})
			return
		}
		c.Next()
	}
}

// captureWriter keeps a copy of the response body
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// idempotencyMiddleware answers a repeated Idempotency-Key with the stored
// response. Keys are scoped to the caller, method and path. Server errors
// release the key so the client can retry.
func idempotencyMiddleware(store idempotency.Store, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" || store == nil {
			c.Next()
			return
		}

		owner := "anonymous"
		if user := session.FromContext(c.Request.Context()); user != nil {
			owner = user.ID
		}
		scoped := owner + "|" + c.Request.Method + "|" + c.Request.URL.Path + "|" + key
		ctx := c.Request.Context()

		rec, err := store.Begin(ctx, scoped)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a request with this idempotency key is still in progress"})
			return
		case err != nil:
			// Without the store the request still runs, just not deduplicated
			log.Warn().Err(err).Msg("Idempotency store unavailable")
			c.Next()
			return
		case rec != nil:
			metrics.IdempotentReplays.Inc()
			c.Header("Idempotent-Replayed", "true")
			if rec.Status == http.StatusNoContent {
				c.AbortWithStatus(rec.Status)
				return
			}
			c.Data(rec.Status, "application/json; charset=utf-8", rec.Body)
			c.Abort()
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		// A partial write already changed state; replaying its response
		// is the only safe answer to a retry
		status := w.Status()
		if status >= http.StatusInternalServerError && !c.GetBool(partialWriteKey) {
			if err := store.Abort(ctx, scoped); err != nil {
				log.Warn().Err(err).Msg("Failed to release idempotency key")
			}
			return
		}
		body := w.body.Bytes()
		if len(body) == 0 {
			body = []byte("null")
		}
		if err := store.Complete(ctx, scoped, idempotency.Record{Status: status, Body: body}); err != nil {
			log.Warn().Err(err).Msg("Failed to store idempotent response")
		}
	}
}

// operatorMiddleware admits signed-in callers, and when admins is not empty
// only those user ids
func operatorMiddleware(admins []string, log zerolog.Logger) gin.HandlerFunc {
	allowed := make(map[string]bool, len(admins))
	for _, id := range admins {
		allowed[id] = true
	}
	return func(c *gin.Context) {
		user := session.FromContext(c.Request.Context())
		if err := policy.RequireIdentity(user); err != nil {
			respondError(c, log, err)
			c.Abort()
			return
		}
		if len(allowed) > 0 && !allowed[user.ID] {
			log.Warn().Str("user_id", user.ID).Str("path", c.Request.URL.Path).Msg("Operator route refused")
			respondError(c, log, policy.ErrNotAuthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
