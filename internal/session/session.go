// Package session carries the caller's identity through a request.
package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/engagement-api/internal/validation"
	"github.com/gin-gonic/gin"
)

// Headers set by the fronting auth proxy
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

// Identity is the signed-in user
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
}

// Provider yields the current user, or nil for an anonymous caller
type Provider interface {
	CurrentUser(ctx context.Context) *Identity
}

type ctxKey struct{}

// WithIdentity returns a context carrying id
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored in ctx, if any
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}

// ContextProvider reads the identity placed in the context by Middleware
type ContextProvider struct{}

func (ContextProvider) CurrentUser(ctx context.Context) *Identity {
	return FromContext(ctx)
}

// Middleware attaches the identity from the request headers to the request context.
// A request without X-User-ID is anonymous. A user id that cannot be used as a
// single path segment is rejected with 401.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID != "" {
			if errs := validation.ValidateID("userId", userID); len(errs) > 0 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   "invalid " + HeaderUserID + " header",
					"details": errs,
				})
				return
			}
			id := &Identity{
				ID:          userID,
				DisplayName: strings.TrimSpace(c.GetHeader(HeaderUserName)),
			}
			c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		}
		c.Next()
	}
}
