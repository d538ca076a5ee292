package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/engagement-api/internal/config"
	"github.com/engagement-api/internal/docstore"
	"github.com/engagement-api/internal/mocks"
	"github.com/engagement-api/internal/models"
	"github.com/engagement-api/internal/repository"
	"github.com/engagement-api/internal/service"
	"github.com/engagement-api/internal/session"
	"github.com/engagement-api/internal/validation"
	"github.com/rs/zerolog"
)

const root = "artifacts/bench"

func setup(b *testing.B, articles int) (*service.Services, *mocks.StaticSessions) {
	b.Helper()
	store := docstore.NewMemoryStore()
	paths := repository.Paths{Root: root}
	now := time.Now().UTC()
	for i := 0; i < articles; i++ {
		a := models.Article{
			Title:       fmt.Sprintf("Story %d", i),
			Category:    []string{"hollywood", "bollywood", "tollywood"}[i%3],
			ScheduledAt: now.Add(-time.Duration(i) * time.Minute),
		}
		if err := store.Upsert(context.Background(), paths.Article(fmt.Sprintf("a%05d", i)), a, false); err != nil {
			b.Fatalf("seed: %v", err)
		}
	}
	sessions := &mocks.StaticSessions{User: &session.Identity{ID: "bench-user"}}
	cfg := &config.Config{
		Listing:   config.ListingConfig{NewsPageSize: 12, MoviesPageSize: 20},
		Reconcile: config.ReconcileConfig{Workers: 1},
	}
	return service.NewServices(repository.New(store, root), sessions, cfg, zerolog.Nop()), sessions
}

// BenchmarkReactionToggle measures a full read-ledger, write-ledger, increment cycle
func BenchmarkReactionToggle(b *testing.B) {
	svc, _ := setup(b, 1)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := svc.Reaction.SetReaction(ctx, "a00000", models.ReactionLike); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkReactionToggleParallel spreads toggles across users of one article
func BenchmarkReactionToggleParallel(b *testing.B) {
	store := docstore.NewMemoryStore()
	paths := repository.Paths{Root: root}
	store.Upsert(context.Background(), paths.Article("hot"), models.Article{Title: "hot", ScheduledAt: time.Now()}, false)
	repos := repository.New(store, root)
	cfg := &config.Config{Listing: config.ListingConfig{NewsPageSize: 12}, Reconcile: config.ReconcileConfig{Workers: 1}}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			user := &session.Identity{ID: fmt.Sprintf("u%d", i%64)}
			svc := service.NewServices(repos, &mocks.StaticSessions{User: user}, cfg, zerolog.Nop())
			svc.Reaction.SetReaction(context.Background(), "hot", models.ReactionDislike)
			i++
		}
	})
}

// BenchmarkListNewsWalk pages through the whole news listing
func BenchmarkListNewsWalk(b *testing.B) {
	svc, _ := setup(b, 1000)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cursor := ""
		for {
			page, err := svc.Listing.ListNews(ctx, service.NewsQuery{Cursor: cursor})
			if err != nil {
				b.Fatal(err)
			}
			if !page.HasMore {
				break
			}
			cursor = page.NextCursor
		}
	}

	b.ReportMetric(float64(1000*b.N)/b.Elapsed().Seconds(), "items/sec")
}

// BenchmarkReconcileReactions measures a reactions pass over 1000 articles
func BenchmarkReconcileReactions(b *testing.B) {
	svc, _ := setup(b, 1000)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		job := &models.Job{ID: fmt.Sprintf("bench-%d", i), Resource: models.ResourceReactions}
		if err := svc.Reconcile.Run(ctx, job); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkValidation benchmarks comment validation
func BenchmarkValidation(b *testing.B) {
	text := strings.Repeat("word ", models.MaxCommentWords)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		validation.ValidateCommentText(text)
		validation.ValidateID("id", "movie_12345")
	}
}
