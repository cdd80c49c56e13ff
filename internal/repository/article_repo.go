package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"wordloop-backend/internal/models"
)

const articleColumns = "id, user_id, title, content, difficulty, word_bank, status, created_at, completed_at"

type ArticleRepo struct {
	db Querier
}

func NewArticleRepo(db Querier) *ArticleRepo {
	return &ArticleRepo{db: db}
}

// Shortfall is an unlocked user whose READY queue is below the floor.
type Shortfall struct {
	UserID uuid.UUID
	Ready  int
}

func scanArticle(row pgx.Row) (*models.Article, error) {
	a := &models.Article{}
	var bank []byte
	err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.Body, &a.Difficulty, &bank, &a.Status, &a.CreatedAt, &a.CompletedAt)
	if err != nil {
		return nil, err
	}
	a.WordBank = models.ParseWordBank(bank)
	return a, nil
}

func (r *ArticleRepo) Create(ctx context.Context, a *models.Article) error {
	a.ID = uuid.New()
	a.Status = models.ArticleReady
	if a.Difficulty == "" {
		a.Difficulty = models.DifficultyIntermediate
	}

	query := `INSERT INTO user_articles (id, user_id, title, content, difficulty, word_bank, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	err := querier(ctx, r.db).QueryRow(ctx, query,
		a.ID, a.UserID, a.Title, a.Body, a.Difficulty, a.WordBank.JSON(), a.Status,
	).Scan(&a.CreatedAt)
	return mapError(err, "article", a.ID)
}

func (r *ArticleRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Article, error) {
	a, err := scanArticle(querier(ctx, r.db).QueryRow(ctx,
		"SELECT "+articleColumns+" FROM user_articles WHERE id = $1", id))
	if err != nil {
		return nil, mapError(err, "article", id)
	}
	return a, nil
}

// OldestReady returns the user's first READY article in creation order.
func (r *ArticleRepo) OldestReady(ctx context.Context, userID uuid.UUID) (*models.Article, error) {
	a, err := scanArticle(querier(ctx, r.db).QueryRow(ctx,
		"SELECT "+articleColumns+" FROM user_articles WHERE user_id = $1 AND status = 'READY' ORDER BY created_at ASC, id ASC LIMIT 1",
		userID))
	if err != nil {
		return nil, mapError(err, "ready article for user", userID)
	}
	return a, nil
}

func (r *ArticleRepo) CountReady(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := querier(ctx, r.db).QueryRow(ctx,
		"SELECT COUNT(*) FROM user_articles WHERE user_id = $1 AND status = 'READY'", userID,
	).Scan(&n)
	return n, err
}

// MarkCompleted moves a READY article to COMPLETED. It returns false when the
// article was not READY, so a second completion changes nothing.
func (r *ArticleRepo) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	var completedAt time.Time
	err := querier(ctx, r.db).QueryRow(ctx,
		"UPDATE user_articles SET status = 'COMPLETED', completed_at = $1 WHERE id = $2 AND status = 'READY' RETURNING completed_at",
		at, id,
	).Scan(&completedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(err, "article", id)
	}
	return true, nil
}

func (r *ArticleRepo) UpdateWordBank(ctx context.Context, id uuid.UUID, bank models.WordBank) error {
	_, err := querier(ctx, r.db).Exec(ctx, "UPDATE user_articles SET word_bank = $1 WHERE id = $2", bank.JSON(), id)
	return mapError(err, "article", id)
}

func (r *ArticleRepo) ListShortfalls(ctx context.Context, floor, limit int) ([]Shortfall, error) {
	rows, err := querier(ctx, r.db).Query(ctx, `
		SELECT u.id, COALESCE(a.ready, 0)
		FROM users u
		LEFT JOIN (
			SELECT user_id, COUNT(*) AS ready FROM user_articles WHERE status = 'READY' GROUP BY user_id
		) a ON a.user_id = u.id
		WHERE u.articles_unlocked AND COALESCE(a.ready, 0) < $1
		ORDER BY u.id
		LIMIT $2`, floor, limit)
	if err != nil {
		return nil, fmt.Errorf("query shortfalls: %w", err)
	}
	defer rows.Close()

	var out []Shortfall
	for rows.Next() {
		var s Shortfall
		if err := rows.Scan(&s.UserID, &s.Ready); err != nil {
			return nil, fmt.Errorf("scan shortfall: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
