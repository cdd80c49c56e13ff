package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"wordloop-backend/internal/models"
)

const QueueArticleGeneration = "queue:article-generation"

type jobCreator interface {
	Create(ctx context.Context, j *models.Job) error
}

// queuePusher is the part of *redis.Client the dispatcher needs.
type queuePusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Dispatcher turns article requests into persisted jobs on the generation queue.
type Dispatcher struct {
	jobs       jobCreator
	queue      queuePusher
	difficulty models.Difficulty
}

func NewDispatcher(jobs jobCreator, queue queuePusher) *Dispatcher {
	return &Dispatcher{jobs: jobs, queue: queue, difficulty: models.DifficultyIntermediate}
}

func (d *Dispatcher) ScheduleArticles(ctx context.Context, userID uuid.UUID, count int, reason string) error {
	for i := 0; i < count; i++ {
		if _, err := d.Enqueue(ctx, userID, d.difficulty, reason); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) Enqueue(ctx context.Context, userID uuid.UUID, difficulty models.Difficulty, reason string) (*models.Job, error) {
	cfg, err := json.Marshal(models.ArticleJobConfig{Difficulty: difficulty, Reason: reason})
	if err != nil {
		return nil, fmt.Errorf("marshal job config: %w", err)
	}

	job := &models.Job{
		UserID:     userID,
		Type:       models.JobArticleGeneration,
		ConfigJSON: cfg,
	}
	if err := d.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := push(ctx, d.queue, job); err != nil {
		return nil, err
	}

	slog.Info("article job queued", "job_id", job.ID, "user_id", userID, "reason", reason)
	return job, nil
}

func push(ctx context.Context, q queuePusher, job *models.Job) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.LPush(ctx, QueueArticleGeneration, string(jobBytes)).Err(); err != nil {
		return fmt.Errorf("push job %s: %w", job.ID, err)
	}
	return nil
}
