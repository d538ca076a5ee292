package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/engagement-api/internal/api"
	"github.com/engagement-api/internal/config"
	"github.com/engagement-api/internal/idempotency"
	"github.com/engagement-api/internal/listing"
	"github.com/engagement-api/internal/mocks"
	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/service"
	"github.com/engagement-api/internal/session"
	"github.com/engagement-api/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type testEnv struct {
	router    *gin.Engine
	idem      *idempotency.MemoryStore
	reaction  *mocks.MockReactionService
	comment   *mocks.MockCommentService
	rating    *mocks.MockRatingService
	listing   *mocks.MockListingService
	interest  *mocks.MockInterestService
	promotion *mocks.MockPromotionService
	reconcile *mocks.MockReconcileService
}

func setupTestRouter(rl config.RateLimitConfig) *testEnv {
	return setupTestRouterWith(&config.Config{
		Server:    config.ServerConfig{Port: "8080", CORSOrigin: "https://app.example"},
		RateLimit: rl,
	})
}

func setupTestRouterWith(cfg *config.Config) *testEnv {
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		idem:      idempotency.NewMemoryStore(time.Hour),
		reaction:  &mocks.MockReactionService{},
		comment:   &mocks.MockCommentService{},
		rating:    &mocks.MockRatingService{},
		listing:   &mocks.MockListingService{},
		interest:  mocks.NewMockInterestService(),
		promotion: &mocks.MockPromotionService{},
		reconcile: mocks.NewMockReconcileService(),
	}
	services := &service.Services{
		Reaction:  env.reaction,
		Comment:   env.comment,
		Rating:    env.rating,
		Listing:   env.listing,
		Interest:  env.interest,
		Promotion: env.promotion,
		Reconcile: env.reconcile,
	}
	env.router = api.NewRouter(services, env.idem, cfg, zerolog.Nop())
	return env
}

type request struct {
	method string
	path   string
	body   string
	user   string
	key    string
}

func (e *testEnv) do(r request) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if r.body != "" {
		body = bytes.NewReader([]byte(r.body))
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.user != "" {
		req.Header.Set(session.HeaderUserID, r.user)
		req.Header.Set(session.HeaderUserName, "Tester")
	}
	if r.key != "" {
		req.Header.Set(api.HeaderIdempotencyKey, r.key)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{})

	w := env.do(request{method: "GET", path: "/health"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	response := decode(t, w)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "engagement-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{})

	w := env.do(request{method: "GET", path: "/metrics"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("Expected Prometheus exposition format")
	}
}

func TestListNews_PassesQuery(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{})
	env.listing.News = listing.Page[models.Article]{
		Items:      []models.Article{{ID: "a1", Title: "Premiere"}},
		NextCursor: "next",
		HasMore:    true,
	}

	w := env.do(request{method: "GET", path: "/v1/news?category=hollywood&cursor=abc&q=prem"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	want := service.NewsQuery{Category: "hollywood", Cursor: "abc", Search: "prem"}
	if env.listing.LastNewsQuery != want {
		t.Errorf("Query = %+v, want %+v", env.listing.LastNewsQuery, want)
	}
	response := decode(t, w)
	if response["hasMore"] != true || response["nextCursor"] != "next" {
		t.Errorf("Unexpected page %v", response)
	}
	if items := response["items"].([]interface{}); len(items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(items))
	}
}

func TestGetNews_InvalidID(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{})

	w := env.do(request{method: "GET", path: "/v1/news/bad.id"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestSetReaction_UsesSessionHeaders(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{})
	env.reaction.SetReactionFunc = func(ctx context.Context, articleID string, desired models.ReactionType) (*models.ReactionResult, error) {
		user := session.FromContext(ctx)
		if user == nil {
			return nil, service.ErrNotAuthenticated
		}
		if user.ID != "u1" || user.DisplayName != "Tester" {
			return nil, fmt.Errorf("unexpected identity %+v", user)
		}
		return &models.ReactionResult{Current: desired}, nil
	}

	w := env.do(request{method: "PUT", path: "/v1/news/a1/reaction", body: `{"type":"like"}`})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Anonymous: expected 401, got %d", w.Code)
	}

	w = env.do(request{method: "PUT", path: "/v1/news/a1/reaction", body: `{"type":"like"}`, user: "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("Signed in: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if decode(t, w)["current"] != "like" {
		t.Errorf("Unexpected body %s", w.Body.String())
	}

	w = env.do(request{method: "PUT", path: "/v1/news/a1/reaction", body: `{"type":`, user: "u1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Malformed body: expected 400, got %d", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"already rated", service.ErrAlreadyRated, http.StatusConflict},
		{"not found", fmt.Errorf("movie m1: %w", service.ErrNotFound), http.StatusNotFound},
		{"not authorized", service.ErrNotAuthorized, http.StatusForbidden},
		{"not authenticated", service.ErrNotAuthenticated, http.StatusUnauthorized},
		{"partial write", fmt.Errorf("update: %w: boom", service.ErrPartialWrite), http.StatusBadGateway},
		{"input", &service.InputError{Errors: []validation.ValidationError{{Field: "score", Message: "score must be between 1 and 5"}}}, http.StatusBadRequest},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestRouter(config.RateLimitConfig{})
			env.rating.SubmitReviewFunc = func(ctx context.Context, movieID string, req *models.ReviewRequest) (*models.ReviewResult, error) {
				return nil, tt.err
			}
			w := env.do(request{method: "POST", path: "/v1/movies/m1/reviews", body: `{"score":9}`, user: "u1"})
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
			if _, ok := decode(t, w)["error"]; !ok {
				t.Errorf("Expected error body, got %s", w.Body.String())
			}
		})
	}
}

func TestInputErrorDetails(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{})
	env.comment.CreateFunc = func(ctx context.Context, articleType, articleID, text string) (*models.CommentView, error) {
		return nil, &service.InputError{Errors: validation.ValidateCommentText(text)}
	}

	w := env.do(request{method: "POST", path: "/v1/news/a1/comments", body: `{"text":"  "}`, user: "u1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	details, ok := decode(t, w)["details"].([]interface{})
	if !ok || len(details) != 1 {
		t.Errorf("Expected one detail, got %s", w.Body.String())
	}
}

func TestComments_RoutesByArticleType(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{})
	var gotType string
	env.comment.ListFunc = func(ctx context.Context, articleType, articleID string) ([]models.CommentView, error) {
		gotType = articleType
		return []models.CommentView{{ID: "c1", DisplayName: "Anonymous"}}, nil
	}

	w := env.do(request{method: "GET", path: "/v1/movies/m1/comments"})
	if w.Code != http.StatusOK || gotType != models.ArticleTypeMovie {
		t.Errorf("Expected movie comments, got %d/%q", w.Code, gotType)
	}

	w = env.do(request{method: "POST", path: "/v1/news/a1/comments", body: `{"text":"hello"}`, user: "u1"})
	if w.Code != http.StatusCreated {
		t.Errorf("Create: expected 201, got %d", w.Code)
	}
	if decode(t, w)["articleType"] != models.ArticleTypeNews {
		t.Errorf("Unexpected body %s", w.Body.String())
	}

	w = env.do(request{method: "DELETE", path: "/v1/comments/c1", user: "u1"})
	if w.Code != http.StatusNoContent {
		t.Errorf("Delete: expected 204, got %d", w.Code)
	}
}

func TestIdempotency_ReplaysResponse(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{})
	req := request{method: "PUT", path: "/v1/news/a1/reaction", body: `{"type":"like"}`, user: "u1", key: "k1"}

	first := env.do(req)
	second := env.do(req)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("Expected 200/200, got %d/%d", first.Code, second.Code)
	}
	if env.reaction.Calls != 1 {
		t.Errorf("Expected 1 service call, got %d", env.reaction.Calls)
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("Expected replay header")
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("Replay body differs: %s vs %s", first.Body.String(), second.Body.String())
	}

	// Keys are scoped per user
	req.user = "u2"
	env.do(req)
	if env.reaction.Calls != 2 {
		t.Errorf("Expected another user's key to execute, got %d calls", env.reaction.Calls)
	}
}

func TestIdempotency_InProgressAndServerErrors(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{})

	if _, err := env.idem.Begin(context.Background(), "u1|PUT|/v1/news/a1/reaction|busy"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	w := env.do(request{method: "PUT", path: "/v1/news/a1/reaction", body: `{"type":"like"}`, user: "u1", key: "busy"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 while in progress, got %d", w.Code)
	}

	fail := true
	env.reaction.SetReactionFunc = func(ctx context.Context, articleID string, desired models.ReactionType) (*models.ReactionResult, error) {
		if fail {
			return nil, errors.New("store down")
		}
		return &models.ReactionResult{Current: desired}, nil
	}
	req := request{method: "PUT", path: "/v1/news/a1/reaction", body: `{"type":"like"}`, user: "u1", key: "retry"}
	if w := env.do(req); w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}
	fail = false
	if w := env.do(req); w.Code != http.StatusOK {
		t.Errorf("Retry after server error should execute, got %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{RPS: 0.001, Burst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := env.do(request{method: "PUT", path: "/v1/movies/m1/interest", user: "u1"})
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected [200 200 429], got %v", codes)
	}

	// Reads are not limited
	if w := env.do(request{method: "GET", path: "/v1/me/interests", user: "u1"}); w.Code != http.StatusOK {
		t.Errorf("Expected read to pass, got %d", w.Code)
	}
	// Another client has its own bucket
	if w := env.do(request{method: "PUT", path: "/v1/movies/m1/interest", user: "u2"}); w.Code != http.StatusOK {
		t.Errorf("Expected other user to pass, got %d", w.Code)
	}
}

func TestPromotion_Submit(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{})

	w := env.do(request{method: "POST", path: "/v1/promotions", body: `{"name":"Ravi","email":"ravi@studio.example","message":"hi"}`})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	if len(env.promotion.Submitted) != 1 || env.promotion.Submitted[0].Email != "ravi@studio.example" {
		t.Errorf("Unexpected submissions %+v", env.promotion.Submitted)
	}
}

func TestReconciliation_Endpoints(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{})

	w := env.do(request{method: "POST", path: "/v1/reconciliations", body: `{"resource":"ratings"}`, user: "ops"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	response := decode(t, w)
	if response["job_id"] != "job-1" || response["status_url"] != "/v1/reconciliations/job-1" {
		t.Errorf("Unexpected body %v", response)
	}
	if env.reconcile.Jobs["job-1"].Resource != models.ResourceRatings {
		t.Errorf("Expected ratings job, got %+v", env.reconcile.Jobs["job-1"])
	}

	w = env.do(request{method: "GET", path: "/v1/reconciliations/job-1", user: "ops"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	w = env.do(request{method: "GET", path: "/v1/reconciliations/missing", user: "ops"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestReconciliation_RequiresOperator(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{})

	w := env.do(request{method: "POST", path: "/v1/reconciliations", body: `{"resource":"all"}`})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for anonymous caller, got %d", w.Code)
	}
	w = env.do(request{method: "GET", path: "/v1/reconciliations/job-1"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for anonymous status read, got %d", w.Code)
	}
	if len(env.reconcile.Jobs) != 0 {
		t.Errorf("No job should be queued, got %d", len(env.reconcile.Jobs))
	}

	restricted := setupTestRouterWith(&config.Config{
		Server:    config.ServerConfig{Port: "8080"},
		Reconcile: config.ReconcileConfig{Admins: []string{"ops"}},
	})
	w = restricted.do(request{method: "POST", path: "/v1/reconciliations", body: `{}`, user: "u1"})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a non-admin, got %d", w.Code)
	}
	w = restricted.do(request{method: "POST", path: "/v1/reconciliations", body: `{}`, user: "ops"})
	if w.Code != http.StatusAccepted {
		t.Errorf("Expected 202 for an admin, got %d", w.Code)
	}
	if len(restricted.reconcile.Jobs) != 1 {
		t.Errorf("Expected one queued job, got %d", len(restricted.reconcile.Jobs))
	}
}

func TestIdempotency_PartialWriteIsNotReRun(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{})
	env.reaction.SetReactionFunc = func(ctx context.Context, articleID string, desired models.ReactionType) (*models.ReactionResult, error) {
		return nil, fmt.Errorf("update counters: %w", service.ErrPartialWrite)
	}
	req := request{method: "PUT", path: "/v1/news/a1/reaction", body: `{"type":"like"}`, user: "u1", key: "toggle-1"}

	first := env.do(req)
	second := env.do(req)

	if first.Code != http.StatusBadGateway || second.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502/502, got %d/%d", first.Code, second.Code)
	}
	if env.reaction.Calls != 1 {
		t.Errorf("A retried partial write must not toggle again, got %d calls", env.reaction.Calls)
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("Expected the partial write response to be replayed")
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := setupTestRouter(config.RateLimitConfig{})

	req := httptest.NewRequest("OPTIONS", "/v1/news/a1/reaction", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("Unexpected allow origin %q", got)
	}
}
