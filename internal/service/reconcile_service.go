package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/engagement-api/internal/config"
	"github.com/engagement-api/internal/listing"
	"github.com/engagement-api/internal/metrics"
	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/repository"
	"github.com/engagement-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	scanPageSize  = 100
	ratingEpsilon = 1e-6
)

// reconcileService is the concrete implementation of ReconcileService.
// It repairs the drift that partial writes leave behind: counters that
// disagree with the reaction ledger, rating aggregates that disagree with
// the reviews, and comment mirrors that are missing or stale.
type reconcileService struct {
	repos   *repository.Repositories
	cfg     config.ReconcileConfig
	log     zerolog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
	// sem bounds concurrently running jobs
	sem chan struct{}
}

func newReconcileService(repos *repository.Repositories, cfg config.ReconcileConfig, log zerolog.Logger) *reconcileService {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &reconcileService{
		repos: repos,
		cfg:   cfg,
		log:   log.With().Str("service", "reconcile").Logger(),
		sem:   make(chan struct{}, workers),
	}
}

// StartProcessor polls for pending jobs until ctx ends or StopProcessor is called.
// When scheduling is enabled it also enqueues a full run every Interval.
func (s *reconcileService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	poll := s.cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var schedule <-chan time.Time
	if s.cfg.Enabled && s.cfg.Interval > 0 {
		t := time.NewTicker(s.cfg.Interval)
		defer t.Stop()
		schedule = t.C
	}

	s.log.Info().
		Int("workers", cap(s.sem)).
		Bool("scheduled", schedule != nil).
		Dur("interval", s.cfg.Interval).
		Msg("Reconcile processor started")

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("Reconcile processor stopping")
			return
		case <-schedule:
			if _, err := s.Enqueue(s.ctx, models.ResourceAll, "schedule"); err != nil {
				s.log.Error().Err(err).Msg("Failed to enqueue scheduled reconciliation")
			}
		case <-ticker.C:
			s.processPendingJobs()
		}
	}
}

// StopProcessor cancels polling and waits for running jobs
func (s *reconcileService) StopProcessor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Reconcile processor stopped")
}

// Enqueue stores a pending job for the processor to pick up
func (s *reconcileService) Enqueue(ctx context.Context, resource, trigger string) (*models.Job, error) {
	if err := invalid(validation.ValidateResource(resource)); err != nil {
		return nil, err
	}
	job := &models.Job{
		ID:        uuid.New().String(),
		Resource:  resource,
		Status:    models.JobStatusPending,
		Trigger:   trigger,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repos.Job.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.log.Info().Str("job_id", job.ID).Str("resource", resource).Str("trigger", trigger).Msg("Reconciliation enqueued")
	return job, nil
}

// GetJob returns a job, or ErrNotFound
func (s *reconcileService) GetJob(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.repos.Job.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job == nil {
		return nil, notFound("job", id)
	}
	return job, nil
}

func (s *reconcileService) processPendingJobs() {
	jobs, err := s.repos.Job.GetPendingJobs(s.ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get pending jobs")
		return
	}

	for _, job := range jobs {
		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			return
		}

		marked, err := s.repos.Job.MarkJobAsProcessing(s.ctx, job.ID)
		if err != nil || !marked {
			<-s.sem
			continue
		}

		s.wg.Add(1)
		go func(j *models.Job) {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error().
						Interface("panic", r).
						Str("job_id", j.ID).
						Msg("Reconciliation panicked - recovered")
					j.Status = models.JobStatusFailed
					j.Error = fmt.Sprint(r)
					if err := s.repos.Job.Update(context.Background(), j); err != nil {
						s.log.Error().Err(err).Str("job_id", j.ID).Msg("Failed to mark job failed")
					}
				}
			}()
			if err := s.Run(s.ctx, j); err != nil {
				s.log.Error().Err(err).Str("job_id", j.ID).Msg("Reconciliation failed")
			}
		}(job)
	}
}

// run accumulates the outcome of one job
type run struct {
	job *models.Job
}

func (r *run) correct(task string, d models.Drift) {
	r.job.CorrectedCount++
	if len(r.job.Corrections) < models.MaxRecordedDrifts {
		r.job.Corrections = append(r.job.Corrections, d)
	}
	metrics.AddCorrections(task, 1)
}

// Run executes a job to completion and stores its final state
func (s *reconcileService) Run(ctx context.Context, job *models.Job) error {
	start := time.Now()
	startedAt := start.UTC()
	job.Status = models.JobStatusProcessing
	if job.StartedAt == nil {
		job.StartedAt = &startedAt
	}

	log := s.log.With().Str("job_id", job.ID).Str("resource", job.Resource).Logger()
	log.Info().Msg("Reconciliation started")

	r := &run{job: job}
	var err error
	for _, task := range tasksFor(job.Resource) {
		switch task {
		case models.ResourceReactions:
			err = s.reconcileReactions(ctx, r)
		case models.ResourceRatings:
			err = s.reconcileRatings(ctx, r)
		case models.ResourceComments:
			err = s.reconcileComments(ctx, r)
		}
		if err != nil {
			break
		}
	}

	elapsed := time.Since(start)
	completedAt := time.Now().UTC()
	job.CompletedAt = &completedAt
	job.DurationMs = elapsed.Milliseconds()
	job.Status = models.JobStatusCompleted
	if err != nil {
		job.Status = models.JobStatusFailed
		job.Error = err.Error()
	}
	metrics.ReconcileRunSeconds.Observe(elapsed.Seconds())

	// Store the outcome even when the run was cancelled
	if uerr := s.repos.Job.Update(context.WithoutCancel(ctx), job); uerr != nil {
		log.Error().Err(uerr).Msg("Failed to store job result")
		if err == nil {
			err = uerr
		}
	}

	log.Info().
		Str("status", string(job.Status)).
		Int("scanned", job.ScannedCount).
		Int("corrected", job.CorrectedCount).
		Int("failed", job.FailedCount).
		Int64("duration_ms", job.DurationMs).
		Msg("Reconciliation finished")
	return err
}

func tasksFor(resource string) []string {
	if resource == models.ResourceAll {
		return []string{models.ResourceReactions, models.ResourceRatings, models.ResourceComments}
	}
	return []string{resource}
}

// reconcileReactions resets each article's counters to the ledger's counts
func (s *reconcileService) reconcileReactions(ctx context.Context, r *run) error {
	fetch := func(ctx context.Context, cursor string) (listing.Page[models.Article], error) {
		return s.repos.Article.Scan(ctx, cursor, scanPageSize)
	}
	return listing.Walk(ctx, fetch, func(articles []models.Article) error {
		for _, a := range articles {
			r.job.ScannedCount++
			likes, dislikes, err := s.repos.Reaction.Count(ctx, a.ID)
			if err != nil {
				r.job.FailedCount++
				s.log.Warn().Err(err).Str("article_id", a.ID).Msg("Failed to count reactions")
				continue
			}
			if likes == a.LikesCount && dislikes == a.DislikesCount {
				continue
			}
			if err := s.repos.Article.SetCounters(ctx, a.ID, likes, dislikes); err != nil {
				r.job.FailedCount++
				s.log.Warn().Err(err).Str("article_id", a.ID).Msg("Failed to reset counters")
				continue
			}
			path := s.repos.Paths.Article(a.ID)
			if likes != a.LikesCount {
				r.correct(models.ResourceReactions, models.Drift{Path: path, Field: "likesCount", Was: a.LikesCount, Now: likes})
			}
			if dislikes != a.DislikesCount {
				r.correct(models.ResourceReactions, models.Drift{Path: path, Field: "dislikesCount", Was: a.DislikesCount, Now: dislikes})
			}
		}
		return nil
	})
}

// reconcileRatings recomputes each movie's aggregate from its reviews
func (s *reconcileService) reconcileRatings(ctx context.Context, r *run) error {
	fetch := func(ctx context.Context, cursor string) (listing.Page[models.Movie], error) {
		return s.repos.Movie.Scan(ctx, cursor, scanPageSize)
	}
	return listing.Walk(ctx, fetch, func(movies []models.Movie) error {
		for _, m := range movies {
			r.job.ScannedCount++
			reviews, err := s.repos.Review.ListByMovie(ctx, m.ID)
			if err != nil {
				r.job.FailedCount++
				s.log.Warn().Err(err).Str("movie_id", m.ID).Msg("Failed to list reviews")
				continue
			}
			avg, count := aggregate(reviews)
			if count == m.ReviewCount && math.Abs(avg-m.AvgRating) < ratingEpsilon {
				continue
			}
			if err := s.repos.Movie.SetAggregate(ctx, m.ID, avg, count); err != nil {
				r.job.FailedCount++
				s.log.Warn().Err(err).Str("movie_id", m.ID).Msg("Failed to reset rating aggregate")
				continue
			}
			path := s.repos.Paths.Movie(m.ID)
			if count != m.ReviewCount {
				r.correct(models.ResourceRatings, models.Drift{Path: path, Field: "reviewCount", Was: m.ReviewCount, Now: count})
			}
			if math.Abs(avg-m.AvgRating) >= ratingEpsilon {
				r.correct(models.ResourceRatings, models.Drift{Path: path, Field: "avgRating", Was: m.AvgRating, Now: avg})
			}
		}
		return nil
	})
}

// aggregate averages the scores of valid reviews
func aggregate(reviews []*models.Review) (float64, int) {
	var sum, count int
	for _, rv := range reviews {
		if rv.Score < models.MinScore || rv.Score > models.MaxScore {
			continue
		}
		sum += rv.Score
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return float64(sum) / float64(count), count
}

// reconcileComments makes the mirrors match the canonical records in both
// directions: missing or stale mirrors are rewritten, then mirrors without
// a canonical record are removed.
func (s *reconcileService) reconcileComments(ctx context.Context, r *run) error {
	if err := s.rewriteMirrors(ctx, r); err != nil {
		return err
	}
	return s.removeOrphanMirrors(ctx, r)
}

// rewriteMirrors rewrites mirrors that are missing or differ from the canonical record
func (s *reconcileService) rewriteMirrors(ctx context.Context, r *run) error {
	fetch := func(ctx context.Context, cursor string) (listing.Page[models.Comment], error) {
		return s.repos.Comment.Scan(ctx, cursor, scanPageSize)
	}
	return listing.Walk(ctx, fetch, func(comments []models.Comment) error {
		for i := range comments {
			c := &comments[i]
			r.job.ScannedCount++
			if c.UserID == "" {
				continue
			}
			mirror, err := s.repos.Comment.GetMirror(ctx, c.UserID, c.CommentID)
			if err != nil {
				r.job.FailedCount++
				s.log.Warn().Err(err).Str("comment_id", c.CommentID).Msg("Failed to read mirror")
				continue
			}
			field := mirrorDrift(c, mirror)
			if field == "" {
				continue
			}
			if err := s.repos.Comment.CreateMirror(ctx, c); err != nil {
				r.job.FailedCount++
				s.log.Warn().Err(err).Str("comment_id", c.CommentID).Msg("Failed to rewrite mirror")
				continue
			}
			var was any
			if mirror != nil {
				was = mirror.Text()
			}
			r.correct(models.ResourceComments, models.Drift{
				Path:  s.repos.Paths.UserComment(c.UserID, c.CommentID),
				Field: field,
				Was:   was,
				Now:   c.Text(),
			})
		}
		return nil
	})
}

// removeOrphanMirrors deletes mirrors whose canonical record is gone or
// belongs to another user
func (s *reconcileService) removeOrphanMirrors(ctx context.Context, r *run) error {
	fetch := func(ctx context.Context, cursor string) (listing.Page[repository.MirrorRef], error) {
		return s.repos.Comment.ScanMirrors(ctx, cursor, scanPageSize)
	}
	return listing.Walk(ctx, fetch, func(refs []repository.MirrorRef) error {
		for _, ref := range refs {
			r.job.ScannedCount++
			canonical, err := s.repos.Comment.GetByID(ctx, ref.CommentID)
			if err != nil {
				r.job.FailedCount++
				s.log.Warn().Err(err).Str("comment_id", ref.CommentID).Msg("Failed to read canonical comment")
				continue
			}
			if canonical != nil && canonical.UserID == ref.UserID {
				continue
			}
			if err := s.repos.Comment.DeleteMirror(ctx, ref.UserID, ref.CommentID); err != nil {
				r.job.FailedCount++
				s.log.Warn().Err(err).Str("comment_id", ref.CommentID).Msg("Failed to remove orphan mirror")
				continue
			}
			r.correct(models.ResourceComments, models.Drift{
				Path:  s.repos.Paths.UserComment(ref.UserID, ref.CommentID),
				Field: "orphan",
				Was:   "present",
				Now:   nil,
			})
		}
		return nil
	})
}

// mirrorDrift names the first field where the mirror disagrees, or "" if it matches
func mirrorDrift(canonical, mirror *models.Comment) string {
	switch {
	case mirror == nil:
		return "missing"
	case mirror.Text() != canonical.Text():
		return "comment"
	case mirror.ArticleID != canonical.ArticleID:
		return "articleId"
	case !sameTime(mirror.UpdatedAt, canonical.UpdatedAt):
		return "updatedAt"
	}
	return ""
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
