package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"wordloop-backend/internal/models"
)

type TemplateRepo struct {
	db Querier
}

func NewTemplateRepo(db Querier) *TemplateRepo {
	return &TemplateRepo{db: db}
}

// Random picks one template uniformly at random.
func (r *TemplateRepo) Random(ctx context.Context) (*models.ArticleTemplate, error) {
	t := &models.ArticleTemplate{}
	var bank []byte
	err := querier(ctx, r.db).QueryRow(ctx,
		"SELECT id, title, content, word_bank, difficulty, created_at FROM article_templates ORDER BY random() LIMIT 1",
	).Scan(&t.ID, &t.Title, &t.Body, &bank, &t.Difficulty, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err, "template", "random")
	}
	t.WordBank = models.ParseWordBank(bank)
	return t, nil
}

func (r *TemplateRepo) BulkInsert(ctx context.Context, templates []models.ArticleTemplate) (int64, error) {
	rows := make([][]any, 0, len(templates))
	for _, t := range templates {
		difficulty := t.Difficulty
		if difficulty == "" {
			difficulty = models.DifficultyIntermediate
		}
		rows = append(rows, []any{t.Title, t.Body, t.WordBank.JSON(), string(difficulty)})
	}

	return querier(ctx, r.db).CopyFrom(ctx,
		pgx.Identifier{"article_templates"},
		[]string{"title", "content", "word_bank", "difficulty"},
		pgx.CopyFromRows(rows),
	)
}

func (r *TemplateRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := querier(ctx, r.db).QueryRow(ctx, "SELECT COUNT(*) FROM article_templates").Scan(&n)
	return n, err
}
