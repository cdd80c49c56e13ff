package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"wordloop-backend/internal/models"
)

var masteryColumns = []string{
	"user_id", "word_id", "mastery_score", "status", "queue_position", "learn_count",
	"correct_count", "wrong_count", "first_learned_at", "last_reviewed_at", "last_contact_at", "next_review_at",
}

type MasteryRepo struct {
	db Querier
}

func NewMasteryRepo(db Querier) *MasteryRepo {
	return &MasteryRepo{db: db}
}

// WeakWord is a mastery record joined with the catalog fields article generation needs.
type WeakWord struct {
	WordID         int64
	Headword       string
	Meaning        string
	Score          int
	LastReviewedAt *time.Time
}

func scanMastery(row pgx.Row) (*models.MasteryRecord, error) {
	m := &models.MasteryRecord{}
	err := row.Scan(
		&m.UserID, &m.WordID, &m.Score, &m.Status, &m.QueuePosition, &m.LearnCount,
		&m.CorrectCount, &m.WrongCount, &m.FirstLearnedAt, &m.LastReviewedAt, &m.LastContactAt, &m.NextReviewAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MasteryRepo) Get(ctx context.Context, userID uuid.UUID, wordID int64) (*models.MasteryRecord, error) {
	query, args, err := psql.Select(masteryColumns...).From("user_word_mastery").
		Where(sq.Eq{"user_id": userID, "word_id": wordID}).ToSql()
	if err != nil {
		return nil, err
	}

	m, err := scanMastery(querier(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "mastery", wordID)
	}
	return m, nil
}

func (r *MasteryRepo) Upsert(ctx context.Context, m *models.MasteryRecord) error {
	query := `
		INSERT INTO user_word_mastery (user_id, word_id, mastery_score, status, queue_position, learn_count,
			correct_count, wrong_count, first_learned_at, last_reviewed_at, last_contact_at, next_review_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, word_id) DO UPDATE SET
			mastery_score = EXCLUDED.mastery_score,
			status = EXCLUDED.status,
			queue_position = EXCLUDED.queue_position,
			learn_count = EXCLUDED.learn_count,
			correct_count = EXCLUDED.correct_count,
			wrong_count = EXCLUDED.wrong_count,
			last_reviewed_at = EXCLUDED.last_reviewed_at,
			last_contact_at = EXCLUDED.last_contact_at,
			next_review_at = EXCLUDED.next_review_at`

	_, err := querier(ctx, r.db).Exec(ctx, query,
		m.UserID, m.WordID, m.Score, m.Status, m.QueuePosition, m.LearnCount,
		m.CorrectCount, m.WrongCount, m.FirstLearnedAt, m.LastReviewedAt, m.LastContactAt, m.NextReviewAt,
	)
	return mapError(err, "mastery", m.WordID)
}

// ListLearning returns the user's LEARNING records, most due first.
func (r *MasteryRepo) ListLearning(ctx context.Context, userID uuid.UUID, excludeIDs []int64, limit int) ([]models.MasteryRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	q := psql.Select(masteryColumns...).From("user_word_mastery").
		Where(sq.Eq{"user_id": userID, "status": models.MasteryLearning}).
		OrderBy("queue_position ASC", "word_id ASC").
		Limit(uint64(limit))
	if len(excludeIDs) > 0 {
		q = q.Where(sq.NotEq{"word_id": excludeIDs})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := querier(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query learning records: %w", err)
	}
	defer rows.Close()

	var out []models.MasteryRecord
	for rows.Next() {
		m, err := scanMastery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *MasteryRepo) TouchContact(ctx context.Context, userID uuid.UUID, wordIDs []int64, at time.Time) error {
	if len(wordIDs) == 0 {
		return nil
	}
	_, err := querier(ctx, r.db).Exec(ctx,
		"UPDATE user_word_mastery SET last_contact_at = $1 WHERE user_id = $2 AND word_id = ANY($3)",
		at, userID, wordIDs,
	)
	return err
}

// ListWeakest returns up to n of the user's words with the lowest scores,
// least recently reviewed first among equals. Headwords are distinct
// case-insensitively; of a duplicated headword only its weakest record counts.
func (r *MasteryRepo) ListWeakest(ctx context.Context, userID uuid.UUID, n int) ([]WeakWord, error) {
	distinct := sq.Select("DISTINCT ON (LOWER(w.word)) m.word_id", "w.word", "w.meaning", "m.mastery_score", "m.last_reviewed_at").
		From("user_word_mastery m").
		Join("words w ON w.id = m.word_id").
		Where(sq.Eq{"m.user_id": userID}).
		OrderBy("LOWER(w.word)", "m.mastery_score ASC", "m.last_reviewed_at ASC NULLS FIRST", "m.word_id ASC")

	query, args, err := psql.Select("word_id", "word", "meaning", "mastery_score", "last_reviewed_at").
		FromSelect(distinct, "weak").
		OrderBy("mastery_score ASC", "last_reviewed_at ASC NULLS FIRST", "word_id ASC").
		Limit(uint64(n)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := querier(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query weakest words: %w", err)
	}
	defer rows.Close()

	var out []WeakWord
	for rows.Next() {
		var w WeakWord
		if err := rows.Scan(&w.WordID, &w.Headword, &w.Meaning, &w.Score, &w.LastReviewedAt); err != nil {
			return nil, fmt.Errorf("scan weak word: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// CountByUser counts the user's records, optionally only those scoring below scoreLessThan.
func (r *MasteryRepo) CountByUser(ctx context.Context, userID uuid.UUID, scoreLessThan *int) (int, error) {
	q := psql.Select("COUNT(*)").From("user_word_mastery").Where(sq.Eq{"user_id": userID})
	if scoreLessThan != nil {
		q = q.Where(sq.Lt{"mastery_score": *scoreLessThan})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}

	var n int
	err = querier(ctx, r.db).QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

// SetScore overwrites only the score; status and queue position are left alone.
func (r *MasteryRepo) SetScore(ctx context.Context, userID uuid.UUID, wordID int64, score int) error {
	tag, err := querier(ctx, r.db).Exec(ctx,
		"UPDATE user_word_mastery SET mastery_score = $1, last_contact_at = NOW() WHERE user_id = $2 AND word_id = $3",
		score, userID, wordID,
	)
	if err != nil {
		return mapError(err, "mastery", wordID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mastery %d: %w", wordID, ErrNotFound)
	}
	return nil
}

// Bucket counts for the vocabulary overview. Mastered words are counted by status,
// the rest are split at learningFloor.
func (r *MasteryRepo) CountBuckets(ctx context.Context, userID uuid.UUID, learningFloor int) (models.VocabularyStats, error) {
	var s models.VocabularyStats
	err := querier(ctx, r.db).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'MASTERED'),
			COUNT(*) FILTER (WHERE status <> 'MASTERED' AND mastery_score >= $2),
			COUNT(*) FILTER (WHERE status <> 'MASTERED' AND mastery_score < $2)
		FROM user_word_mastery WHERE user_id = $1`,
		userID, learningFloor,
	).Scan(&s.TotalWords, &s.MasteredWords, &s.LearningWords, &s.WeakWords)
	return s, err
}

// Page lists the user's words sorted by score ascending, with the total row count.
func (r *MasteryRepo) Page(ctx context.Context, userID uuid.UUID, page, size int) ([]models.VocabularyItem, int, error) {
	total, err := r.CountByUser(ctx, userID, nil)
	if err != nil {
		return nil, 0, err
	}

	query, args, err := psql.Select(
		"w.id", "w.word", "w.phonetic", "w.meaning", "w.example_sentence",
		"m.mastery_score", "m.correct_count", "m.wrong_count", "m.last_reviewed_at", "m.status",
	).
		From("user_word_mastery m").
		Join("words w ON w.id = m.word_id").
		Where(sq.Eq{"m.user_id": userID}).
		OrderBy("m.mastery_score ASC", "m.word_id ASC").
		Limit(uint64(size)).
		Offset(uint64(page * size)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := querier(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query vocabulary: %w", err)
	}
	defer rows.Close()

	items := []models.VocabularyItem{}
	for rows.Next() {
		var it models.VocabularyItem
		if err := rows.Scan(
			&it.ID, &it.Word, &it.Phonetic, &it.Meaning, &it.ExampleSentence,
			&it.MasteryScore, &it.CorrectCount, &it.WrongCount, &it.LastReviewedAt, &it.Status,
		); err != nil {
			return nil, 0, fmt.Errorf("scan vocabulary: %w", err)
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}
