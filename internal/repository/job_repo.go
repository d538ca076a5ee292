package repository

import (
	"context"
	"errors"
	"time"

	"github.com/engagement-api/internal/docstore"
	"github.com/engagement-api/internal/models"
)

// jobRepo is the concrete implementation of JobRepository
type jobRepo struct {
	store docstore.Store
	paths Paths
}

// NewJobRepo creates a new job repository
func NewJobRepo(store docstore.Store, paths Paths) JobRepository {
	return &jobRepo{store: store, paths: paths}
}

// Create inserts a new job
func (r *jobRepo) Create(ctx context.Context, job *models.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	return r.store.CreateWithID(ctx, r.paths.Job(job.ID), job)
}

// Update replaces a job
func (r *jobRepo) Update(ctx context.Context, job *models.Job) error {
	return r.store.Upsert(ctx, r.paths.Job(job.ID), job, false)
}

// GetByID retrieves a job by ID
func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.Job, error) {
	job, _, err := getAs[models.Job](ctx, r.store, r.paths.Job(id))
	return job, err
}

// GetPendingJobs retrieves all pending jobs, oldest first
func (r *jobRepo) GetPendingJobs(ctx context.Context) ([]*models.Job, error) {
	return queryAll[models.Job](ctx, r.store, r.paths.Jobs(), docstore.Query{
		Where:   []docstore.Predicate{docstore.Where("status", docstore.OpEq, string(models.JobStatusPending))},
		OrderBy: docstore.OrderBy{Field: "created_at", Kind: docstore.KindTime},
		Limit:   10,
	}, nil)
}

// MarkJobAsProcessing moves a pending job to processing.
// Returns false if the job was already picked up.
func (r *jobRepo) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	job, err := r.GetByID(ctx, jobID)
	if err != nil || job == nil {
		return false, err
	}
	if job.Status != models.JobStatusPending {
		return false, nil
	}
	now := time.Now().UTC()
	err = r.store.Update(ctx, r.paths.Job(jobID), map[string]any{
		"status":     models.JobStatusProcessing,
		"started_at": now,
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
