package mocks

import (
	"context"
	"sync"

	"github.com/engagement-api/internal/listing"
	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/service"
)

// MockReactionService is a mock implementation of ReactionService
type MockReactionService struct {
	SetReactionFunc func(ctx context.Context, articleID string, desired models.ReactionType) (*models.ReactionResult, error)
	GetArticleFunc  func(ctx context.Context, articleID string) (*models.ArticleView, error)

	mu    sync.Mutex
	Calls int
}

var _ service.ReactionService = (*MockReactionService)(nil)

func (m *MockReactionService) SetReaction(ctx context.Context, articleID string, desired models.ReactionType) (*models.ReactionResult, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.SetReactionFunc != nil {
		return m.SetReactionFunc(ctx, articleID, desired)
	}
	return &models.ReactionResult{
		Current: desired,
		Article: &models.ArticleView{Article: models.Article{ID: articleID}, UserReaction: desired},
	}, nil
}

func (m *MockReactionService) GetArticle(ctx context.Context, articleID string) (*models.ArticleView, error) {
	if m.GetArticleFunc != nil {
		return m.GetArticleFunc(ctx, articleID)
	}
	return &models.ArticleView{Article: models.Article{ID: articleID}}, nil
}

// MockCommentService is a mock implementation of CommentService
type MockCommentService struct {
	CreateFunc   func(ctx context.Context, articleType, articleID, text string) (*models.CommentView, error)
	EditFunc     func(ctx context.Context, commentID, text string) (*models.CommentView, error)
	DeleteFunc   func(ctx context.Context, commentID string) error
	ListFunc     func(ctx context.Context, articleType, articleID string) ([]models.CommentView, error)
	ListMineFunc func(ctx context.Context) ([]models.CommentView, error)
}

var _ service.CommentService = (*MockCommentService)(nil)

func (m *MockCommentService) Create(ctx context.Context, articleType, articleID, text string) (*models.CommentView, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, articleType, articleID, text)
	}
	return &models.CommentView{ID: "c1", ArticleID: articleID, ArticleType: articleType, Text: text}, nil
}

func (m *MockCommentService) Edit(ctx context.Context, commentID, text string) (*models.CommentView, error) {
	if m.EditFunc != nil {
		return m.EditFunc(ctx, commentID, text)
	}
	return &models.CommentView{ID: commentID, Text: text}, nil
}

func (m *MockCommentService) Delete(ctx context.Context, commentID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, commentID)
	}
	return nil
}

func (m *MockCommentService) List(ctx context.Context, articleType, articleID string) ([]models.CommentView, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, articleType, articleID)
	}
	return []models.CommentView{}, nil
}

func (m *MockCommentService) ListMine(ctx context.Context) ([]models.CommentView, error) {
	if m.ListMineFunc != nil {
		return m.ListMineFunc(ctx)
	}
	return []models.CommentView{}, nil
}

// MockRatingService is a mock implementation of RatingService
type MockRatingService struct {
	SubmitReviewFunc func(ctx context.Context, movieID string, req *models.ReviewRequest) (*models.ReviewResult, error)
}

var _ service.RatingService = (*MockRatingService)(nil)

func (m *MockRatingService) SubmitReview(ctx context.Context, movieID string, req *models.ReviewRequest) (*models.ReviewResult, error) {
	if m.SubmitReviewFunc != nil {
		return m.SubmitReviewFunc(ctx, movieID, req)
	}
	return &models.ReviewResult{
		Review:      &models.Review{MovieID: movieID, Score: req.Score, Text: req.Text},
		AvgRating:   float64(req.Score),
		ReviewCount: 1,
	}, nil
}

// MockListingService is a mock implementation of ListingService
type MockListingService struct {
	News   listing.Page[models.Article]
	Movies listing.Page[models.MovieView]
	Err    error

	LastNewsQuery  service.NewsQuery
	LastMovieQuery service.MovieQuery
}

var _ service.ListingService = (*MockListingService)(nil)

func (m *MockListingService) ListNews(ctx context.Context, q service.NewsQuery) (listing.Page[models.Article], error) {
	m.LastNewsQuery = q
	return m.News, m.Err
}

func (m *MockListingService) ListMovies(ctx context.Context, q service.MovieQuery) (listing.Page[models.MovieView], error) {
	m.LastMovieQuery = q
	return m.Movies, m.Err
}

// MockInterestService is a mock implementation of InterestService
type MockInterestService struct {
	Markers map[string]bool
	Err     error
}

var _ service.InterestService = (*MockInterestService)(nil)

func NewMockInterestService() *MockInterestService {
	return &MockInterestService{Markers: make(map[string]bool)}
}

func (m *MockInterestService) Toggle(ctx context.Context, movieID string) (*models.InterestResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.Markers[movieID] = !m.Markers[movieID]
	return &models.InterestResult{MovieID: movieID, Interested: m.Markers[movieID]}, nil
}

func (m *MockInterestService) List(ctx context.Context) ([]*models.Interest, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*models.Interest, 0, len(m.Markers))
	for id, on := range m.Markers {
		if on {
			out = append(out, &models.Interest{MovieID: id})
		}
	}
	return out, nil
}

// MockPromotionService is a mock implementation of PromotionService
type MockPromotionService struct {
	Submitted []*models.Promotion
	Err       error
}

var _ service.PromotionService = (*MockPromotionService)(nil)

func (m *MockPromotionService) Submit(ctx context.Context, p *models.Promotion) error {
	if m.Err != nil {
		return m.Err
	}
	p.ID = "p1"
	m.Submitted = append(m.Submitted, p)
	return nil
}

// MockReconcileService is a mock implementation of ReconcileService
type MockReconcileService struct {
	Jobs       map[string]*models.Job
	EnqueueErr error
}

var _ service.ReconcileService = (*MockReconcileService)(nil)

func NewMockReconcileService() *MockReconcileService {
	return &MockReconcileService{Jobs: make(map[string]*models.Job)}
}

func (m *MockReconcileService) StartProcessor(ctx context.Context) {}

func (m *MockReconcileService) StopProcessor() {}

func (m *MockReconcileService) Enqueue(ctx context.Context, resource, trigger string) (*models.Job, error) {
	if m.EnqueueErr != nil {
		return nil, m.EnqueueErr
	}
	job := &models.Job{ID: "job-1", Resource: resource, Trigger: trigger, Status: models.JobStatusPending}
	m.Jobs[job.ID] = job
	return job, nil
}

func (m *MockReconcileService) GetJob(ctx context.Context, id string) (*models.Job, error) {
	job, ok := m.Jobs[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return job, nil
}

func (m *MockReconcileService) Run(ctx context.Context, job *models.Job) error {
	job.Status = models.JobStatusCompleted
	return nil
}
