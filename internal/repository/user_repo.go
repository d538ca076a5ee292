package repository

import (
	"context"
	"time"

	"github.com/engagement-api/internal/docstore"
	"github.com/engagement-api/internal/models"
)

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	store docstore.Store
	paths Paths
}

// NewUserRepo creates a new user repository
func NewUserRepo(store docstore.Store, paths Paths) UserRepository {
	return &userRepo{store: store, paths: paths}
}

// GetProfile retrieves users/{uid}; nil when the user has no profile
func (r *userRepo) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	p, _, err := getAs[models.UserProfile](ctx, r.store, r.paths.User(userID))
	if err != nil || p == nil {
		return nil, err
	}
	p.ID = userID
	return p, nil
}

// interestRepo is the concrete implementation of InterestRepository
type interestRepo struct {
	store docstore.Store
	paths Paths
}

// NewInterestRepo creates a new interest marker repository
func NewInterestRepo(store docstore.Store, paths Paths) InterestRepository {
	return &interestRepo{store: store, paths: paths}
}

func (r *interestRepo) Get(ctx context.Context, userID, movieID string) (*models.Interest, error) {
	i, _, err := getAs[models.Interest](ctx, r.store, r.paths.Interest(userID, movieID))
	return i, err
}

func (r *interestRepo) Put(ctx context.Context, userID string, interest *models.Interest) error {
	return r.store.Upsert(ctx, r.paths.Interest(userID, interest.MovieID), interest, false)
}

func (r *interestRepo) Delete(ctx context.Context, userID, movieID string) error {
	return r.store.Delete(ctx, r.paths.Interest(userID, movieID))
}

// ListByUser returns a user's interests, most recently added first
func (r *interestRepo) ListByUser(ctx context.Context, userID string) ([]*models.Interest, error) {
	return queryAll(ctx, r.store, r.paths.Interests(userID), docstore.Query{
		OrderBy: docstore.OrderBy{Field: "addedAt", Kind: docstore.KindTime, Desc: true},
	}, func(i *models.Interest, id string) {
		if i.MovieID == "" {
			i.MovieID = id
		}
	})
}

// promotionRepo is the concrete implementation of PromotionRepository
type promotionRepo struct {
	store docstore.Store
	paths Paths
}

// NewPromotionRepo creates a new promotion inquiry repository
func NewPromotionRepo(store docstore.Store, paths Paths) PromotionRepository {
	return &promotionRepo{store: store, paths: paths}
}

// Create stores the inquiry under a generated id
func (r *promotionRepo) Create(ctx context.Context, p *models.Promotion) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	id, err := r.store.Create(ctx, r.paths.Promotions(), p)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}
