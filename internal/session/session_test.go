package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		userID   string
		userName string
		wantID   string
		wantName string
		wantNil  bool
	}{
		{name: "signed in", userID: "u1", userName: "Asha", wantID: "u1", wantName: "Asha"},
		{name: "no name", userID: " u2 ", wantID: "u2"},
		{name: "anonymous", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *Identity
			router := gin.New()
			router.Use(Middleware())
			router.GET("/", func(c *gin.Context) {
				got = ContextProvider{}.CurrentUser(c.Request.Context())
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest("GET", "/", nil)
			if tt.userID != "" {
				req.Header.Set(HeaderUserID, tt.userID)
			}
			if tt.userName != "" {
				req.Header.Set(HeaderUserName, tt.userName)
			}
			router.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantNil {
				if got != nil {
					t.Errorf("Expected anonymous, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Expected identity")
			}
			if got.ID != tt.wantID || got.DisplayName != tt.wantName {
				t.Errorf("Got %+v, want id=%s name=%s", got, tt.wantID, tt.wantName)
			}
		})
	}
}

func TestFromContext_Empty(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Error("Expected nil identity on empty context")
	}
}

func TestMiddleware_RejectsUnsafeUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, userID := range []string{"team/alice", "../u1", "u 1", "u1?x=1"} {
		t.Run(userID, func(t *testing.T) {
			reached := false
			router := gin.New()
			router.Use(Middleware())
			router.POST("/", func(c *gin.Context) {
				reached = true
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest("POST", "/", nil)
			req.Header.Set(HeaderUserID, userID)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", w.Code)
			}
			if reached {
				t.Error("Handler ran for an unsafe user id")
			}
		})
	}
}
