package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"wordloop-backend/internal/models"
	"wordloop-backend/internal/repository"
)

const sweepBatchSize = 200

type shortfallStore interface {
	ListShortfalls(ctx context.Context, floor, limit int) ([]repository.Shortfall, error)
}

type activeJobCounter interface {
	CountActive(ctx context.Context, userID uuid.UUID, jobType string) (int, error)
}

// Replenisher periodically tops up READY backlogs that fell under the floor
// without a completion to trigger it, e.g. after failed generation jobs.
type Replenisher struct {
	cron      *gocron.Scheduler
	articles  shortfallStore
	jobs      activeJobCounter
	scheduler ArticleScheduler
	interval  time.Duration
}

func NewReplenisher(articles shortfallStore, jobs activeJobCounter, scheduler ArticleScheduler, interval time.Duration) *Replenisher {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Replenisher{
		cron:      gocron.NewScheduler(time.UTC),
		articles:  articles,
		jobs:      jobs,
		scheduler: scheduler,
		interval:  interval,
	}
}

func (r *Replenisher) Start() error {
	_, err := r.cron.Every(r.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.interval)
		defer cancel()
		r.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	r.cron.StartAsync()
	return nil
}

func (r *Replenisher) Stop() {
	r.cron.Stop()
}

// Sweep schedules the missing articles for every short user and returns how many were requested.
func (r *Replenisher) Sweep(ctx context.Context) int {
	shortfalls, err := r.articles.ListShortfalls(ctx, ReadyFloor, sweepBatchSize)
	if err != nil {
		slog.Error("replenish sweep: failed to list shortfalls", "err", err)
		return 0
	}

	requested := 0
	for _, s := range shortfalls {
		active, err := r.jobs.CountActive(ctx, s.UserID, models.JobArticleGeneration)
		if err != nil {
			slog.Error("replenish sweep: failed to count jobs", "user_id", s.UserID, "err", err)
			continue
		}

		need := ReadyFloor - s.Ready - active
		if need <= 0 {
			continue
		}
		if err := r.scheduler.ScheduleArticles(ctx, s.UserID, need, "sweep"); err != nil {
			slog.Error("replenish sweep: failed to schedule", "user_id", s.UserID, "err", err)
			continue
		}
		requested += need
	}

	if requested > 0 {
		slog.Info("replenish sweep finished", "users", len(shortfalls), "requested", requested)
	}
	return requested
}
