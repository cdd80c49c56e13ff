package repository

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"wordloop-backend/internal/models"
)

var wordColumns = []string{
	"id", "word", "phonetic", "meaning", "part_of_speech", "example_sentence",
	"example_translation", "distortion", "phrases_json", "frequency", "created_at",
}

type WordRepo struct {
	db Querier
}

func NewWordRepo(db Querier) *WordRepo {
	return &WordRepo{db: db}
}

func scanWord(row pgx.Row) (*models.Word, error) {
	w := &models.Word{}
	err := row.Scan(
		&w.ID, &w.Headword, &w.Phonetic, &w.Meaning, &w.PartOfSpeech, &w.ExampleSentence,
		&w.ExampleTranslation, &w.Distortion, &w.PhrasesJSON, &w.Frequency, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *WordRepo) GetByID(ctx context.Context, id int64) (*models.Word, error) {
	query, args, err := psql.Select(wordColumns...).From("words").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	w, err := scanWord(querier(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "word", id)
	}
	return w, nil
}

// GetByIDs returns the words that exist among ids, in no particular order.
func (r *WordRepo) GetByIDs(ctx context.Context, ids []int64) ([]models.Word, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := psql.Select(wordColumns...).From("words").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, err
	}
	return r.list(ctx, query, args...)
}

// FindUnseenForUser returns catalog words the user has no mastery record for,
// most frequent first.
func (r *WordRepo) FindUnseenForUser(ctx context.Context, userID uuid.UUID, excludeIDs []int64, limit int) ([]models.Word, error) {
	if limit <= 0 {
		return nil, nil
	}

	q := psql.Select(wordColumns...).From("words").
		Where(sq.Expr("NOT EXISTS (SELECT 1 FROM user_word_mastery m WHERE m.user_id = ? AND m.word_id = words.id)", userID)).
		OrderBy("frequency DESC", "id ASC").
		Limit(uint64(limit))
	if len(excludeIDs) > 0 {
		q = q.Where(sq.NotEq{"id": excludeIDs})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return r.list(ctx, query, args...)
}

func (r *WordRepo) list(ctx context.Context, query string, args ...any) ([]models.Word, error) {
	rows, err := querier(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	var words []models.Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		words = append(words, *w)
	}
	return words, rows.Err()
}

func (r *WordRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := querier(ctx, r.db).QueryRow(ctx, "SELECT COUNT(*) FROM words").Scan(&n)
	return n, err
}

// BulkInsert copies words into the catalog and returns the number of rows written.
func (r *WordRepo) BulkInsert(ctx context.Context, words []models.Word) (int64, error) {
	rows := make([][]any, 0, len(words))
	for _, w := range words {
		phrases := w.PhrasesJSON
		if len(phrases) == 0 || !json.Valid(phrases) {
			phrases = json.RawMessage("[]")
		}
		rows = append(rows, []any{
			w.Headword, w.Phonetic, w.Meaning, w.PartOfSpeech, w.ExampleSentence,
			w.ExampleTranslation, w.Distortion, []byte(phrases), w.Frequency,
		})
	}

	return querier(ctx, r.db).CopyFrom(ctx,
		pgx.Identifier{"words"},
		[]string{"word", "phonetic", "meaning", "part_of_speech", "example_sentence",
			"example_translation", "distortion", "phrases_json", "frequency"},
		pgx.CopyFromRows(rows),
	)
}

// DeleteAll empties the catalog together with every mastery record pointing at it.
func (r *WordRepo) DeleteAll(ctx context.Context) error {
	_, err := querier(ctx, r.db).Exec(ctx, "TRUNCATE words RESTART IDENTITY CASCADE")
	return err
}
