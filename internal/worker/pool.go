package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"wordloop-backend/internal/models"
	"wordloop-backend/internal/services"
)

const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"

	popTimeout = 5 * time.Second
	jobLockTTL = 10 * time.Minute
)

type articleGenerator interface {
	GenerateOne(ctx context.Context, userID uuid.UUID, difficulty models.Difficulty) (*models.Article, error)
}

type jobStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error
	SetReference(ctx context.Context, id uuid.UUID, ref uuid.UUID) error
}

type publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msgType string, payload any) error
}

// Pool drains the article generation queue with a fixed number of goroutines.
type Pool struct {
	redis       *redis.Client
	pipeline    articleGenerator
	jobs        jobStore
	notifier    publisher
	workerCount int

	// requeue puts a failed job back after its backoff.
	requeue func(job *models.Job, backoff time.Duration)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(redisClient *redis.Client, pipeline articleGenerator, jobs jobStore, notifier publisher, workerCount int) *Pool {
	p := &Pool{
		redis:       redisClient,
		pipeline:    pipeline,
		jobs:        jobs,
		notifier:    notifier,
		workerCount: workerCount,
	}
	p.requeue = p.requeueAfter
	return p
}

func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	slog.Info("started article workers", "count", p.workerCount)
}

// Stop cancels the workers and waits for in-flight jobs to return.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		if ctx.Err() != nil {
			slog.Info("worker shutting down", "worker", id)
			return
		}

		result, err := p.redis.BLPop(ctx, popTimeout, QueueArticleGeneration).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				slog.Warn("queue pop failed", "worker", id, "error", err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			slog.Error("failed to parse job", "worker", id, "error", err)
			continue
		}

		lockKey := "job_lock:" + job.ID.String()
		locked, err := p.redis.SetNX(ctx, lockKey, "1", jobLockTTL).Result()
		if err != nil || !locked {
			continue
		}

		slog.Info("processing job", "worker", id, "job_id", job.ID, "type", job.Type)
		p.process(ctx, &job)

		p.redis.Del(context.WithoutCancel(ctx), lockKey)
	}
}

func (p *Pool) process(ctx context.Context, job *models.Job) {
	if job.Type != models.JobArticleGeneration {
		p.fail(ctx, job, fmt.Errorf("unknown job type: %s", job.Type))
		return
	}

	p.jobs.UpdateStatus(ctx, job.ID, JobProcessing)
	p.notifier.Publish(ctx, job.UserID, "status_update", models.StatusUpdate{
		JobID:    job.ID,
		Step:     1,
		StepName: "Writing article",
	})

	var cfg models.ArticleJobConfig
	if len(job.ConfigJSON) > 0 {
		if err := json.Unmarshal(job.ConfigJSON, &cfg); err != nil {
			p.fail(ctx, job, fmt.Errorf("bad job config: %w", err))
			return
		}
	}
	difficulty, ok := models.ParseDifficulty(string(cfg.Difficulty))
	if !ok {
		difficulty = models.DifficultyIntermediate
	}

	article, err := p.pipeline.GenerateOne(ctx, job.UserID, difficulty)
	if err != nil {
		if services.IsKind(err, services.KindInsufficientWords) {
			p.fail(ctx, job, err)
			return
		}
		p.retryOrFail(ctx, job, err)
		return
	}

	p.succeed(ctx, job, article)
}

func (p *Pool) succeed(ctx context.Context, job *models.Job, article *models.Article) {
	if err := p.jobs.SetReference(ctx, job.ID, article.ID); err != nil {
		slog.Warn("failed to link article to job", "job_id", job.ID, "article_id", article.ID, "error", err)
	}
	p.jobs.UpdateStatus(ctx, job.ID, JobCompleted)

	p.notifier.Publish(ctx, job.UserID, "article_ready", models.ArticleReadyEvent{
		JobID:     job.ID,
		ArticleID: article.ID,
		Title:     article.Title,
	})

	slog.Info("job completed", "job_id", job.ID, "article_id", article.ID)
}

func (p *Pool) retryOrFail(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	maxRetries := job.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if job.RetryCount >= maxRetries {
		p.fail(ctx, job, err)
		return
	}

	errMsg := err.Error()
	slog.Warn("job failed, retrying", "job_id", job.ID, "attempt", job.RetryCount, "error", errMsg)
	p.jobs.UpdateStatus(ctx, job.ID, JobPending)
	p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

	p.requeue(job, time.Duration(1<<uint(job.RetryCount))*time.Second)
}

func (p *Pool) fail(ctx context.Context, job *models.Job, err error) {
	errMsg := err.Error()
	code := "JOB_FAILED"
	if services.IsKind(err, services.KindInsufficientWords) {
		code = "INSUFFICIENT_WORDS"
		slog.Debug("skipping job, not enough studied words", "job_id", job.ID, "user_id", job.UserID)
	} else {
		slog.Error("job failed permanently", "job_id", job.ID, "user_id", job.UserID, "error", errMsg)
	}
	p.jobs.UpdateStatus(ctx, job.ID, JobFailed)
	p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

	p.notifier.Publish(ctx, job.UserID, "error", models.ErrorEvent{
		JobID:        job.ID,
		ErrorCode:    code,
		ErrorMessage: errMsg,
	})
}

func (p *Pool) requeueAfter(job *models.Job, backoff time.Duration) {
	snapshot := *job
	time.AfterFunc(backoff, func() {
		if err := push(context.Background(), p.redis, &snapshot); err != nil {
			slog.Error("failed to requeue job", "job_id", snapshot.ID, "error", err)
		}
	})
}
