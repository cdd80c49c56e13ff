package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"wordloop-backend/internal/models"
)

type JobRepo struct {
	db Querier
}

func NewJobRepo(db Querier) *JobRepo {
	return &JobRepo{db: db}
}

func (r *JobRepo) Create(ctx context.Context, j *models.Job) error {
	j.ID = uuid.New()
	j.Status = "pending"
	j.RetryCount = 0
	j.MaxRetries = 3

	configBytes := []byte(j.ConfigJSON)
	if len(configBytes) == 0 {
		configBytes = []byte("{}")
	}

	query := `INSERT INTO jobs (id, user_id, type, reference_id, config_json, status, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	err := querier(ctx, r.db).QueryRow(ctx, query,
		j.ID, j.UserID, j.Type, j.ReferenceID, configBytes, j.Status, j.RetryCount,
	).Scan(&j.CreatedAt)
	return mapError(err, "job", j.ID)
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j := &models.Job{MaxRetries: 3}
	query := `SELECT id, user_id, type, reference_id, config_json, status, retry_count, error_message, created_at, completed_at
		FROM jobs WHERE id = $1`

	err := querier(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&j.ID, &j.UserID, &j.Type, &j.ReferenceID, &j.ConfigJSON, &j.Status,
		&j.RetryCount, &j.ErrorMessage, &j.CreatedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, mapError(err, "job", id)
	}
	return j, nil
}

func (r *JobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if status == "completed" || status == "failed" {
		_, err := querier(ctx, r.db).Exec(ctx,
			"UPDATE jobs SET status = $1, completed_at = $2 WHERE id = $3", status, time.Now(), id)
		return err
	}
	_, err := querier(ctx, r.db).Exec(ctx, "UPDATE jobs SET status = $1 WHERE id = $2", status, id)
	return err
}

func (r *JobRepo) UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error {
	_, err := querier(ctx, r.db).Exec(ctx,
		"UPDATE jobs SET error_message = $1, retry_count = $2 WHERE id = $3",
		errMsg, retryCount, id,
	)
	return err
}

// SetReference records the article a finished job produced.
func (r *JobRepo) SetReference(ctx context.Context, id uuid.UUID, ref uuid.UUID) error {
	_, err := querier(ctx, r.db).Exec(ctx, "UPDATE jobs SET reference_id = $1 WHERE id = $2", ref, id)
	return err
}

// CountActive counts the user's jobs of jobType that are queued or running.
func (r *JobRepo) CountActive(ctx context.Context, userID uuid.UUID, jobType string) (int, error) {
	var n int
	err := querier(ctx, r.db).QueryRow(ctx,
		"SELECT COUNT(*) FROM jobs WHERE user_id = $1 AND type = $2 AND status IN ('pending', 'processing')",
		userID, jobType,
	).Scan(&n)
	return n, err
}
