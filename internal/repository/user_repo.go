package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"wordloop-backend/internal/models"
)

const userColumns = `id, email, password_hash, nickname, coins, gems, streak_days, last_checkin_date,
	total_checkin_days, total_words_learned, words_mastered, articles_unlocked, created_at, last_login_at`

type UserRepo struct {
	db Querier
}

func NewUserRepo(db Querier) *UserRepo {
	return &UserRepo{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Nickname, &u.Coins, &u.Gems, &u.StreakDays, &u.LastCheckinDate,
		&u.TotalCheckinDays, &u.TotalWordsLearned, &u.WordsMastered, &u.ArticlesUnlocked, &u.CreatedAt, &u.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, nickname)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	user.ID = uuid.New()

	err := querier(ctx, r.db).QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Nickname,
	).Scan(&user.CreatedAt)
	return mapError(err, "user", user.Email)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(querier(ctx, r.db).QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email))
	if err != nil {
		return nil, mapError(err, "user", email)
	}
	return u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(querier(ctx, r.db).QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		return nil, mapError(err, "user", id)
	}
	return u, nil
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := querier(ctx, r.db).Exec(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}

func (r *UserRepo) GetLearningState(ctx context.Context, userID uuid.UUID) (*models.LearningState, error) {
	s := &models.LearningState{UserID: userID}
	err := querier(ctx, r.db).QueryRow(ctx, `
		SELECT learning_index, recent_word_ids, total_words_learned, words_mastered, articles_unlocked
		FROM users WHERE id = $1`, userID,
	).Scan(&s.LearningIndex, &s.RecentWordIDs, &s.TotalWordsLearned, &s.WordsMastered, &s.ArticlesUnlocked)
	if err != nil {
		return nil, mapError(err, "user", userID)
	}
	return s, nil
}

// SaveLearningState writes the scheduler-owned counters. The unlock flag is
// only ever changed through TryUnlockArticles.
func (r *UserRepo) SaveLearningState(ctx context.Context, s *models.LearningState) error {
	recent := s.RecentWordIDs
	if recent == nil {
		recent = []int64{}
	}

	tag, err := querier(ctx, r.db).Exec(ctx, `
		UPDATE users SET learning_index = $1, recent_word_ids = $2, total_words_learned = $3, words_mastered = $4
		WHERE id = $5`,
		s.LearningIndex, recent, s.TotalWordsLearned, s.WordsMastered, s.UserID,
	)
	if err != nil {
		return mapError(err, "user", s.UserID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "user", s.UserID)
	}
	return nil
}

// TryUnlockArticles flips the unlock flag if the user has learned at least
// threshold words. It reports true only to the caller that performed the flip.
func (r *UserRepo) TryUnlockArticles(ctx context.Context, userID uuid.UUID, threshold int) (bool, error) {
	var id uuid.UUID
	err := querier(ctx, r.db).QueryRow(ctx, `
		UPDATE users SET articles_unlocked = TRUE
		WHERE id = $1 AND NOT articles_unlocked AND total_words_learned >= $2
		RETURNING id`,
		userID, threshold,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(err, "user", userID)
	}
	return true, nil
}

func (r *UserRepo) ApplyCheckIn(ctx context.Context, u *models.User) error {
	_, err := querier(ctx, r.db).Exec(ctx, `
		UPDATE users SET coins = $1, gems = $2, streak_days = $3, last_checkin_date = $4, total_checkin_days = $5
		WHERE id = $6`,
		u.Coins, u.Gems, u.StreakDays, u.LastCheckinDate, u.TotalCheckinDays, u.ID,
	)
	return mapError(err, "user", u.ID)
}

// ExpWeights are the per-unit experience values used for ranking.
type ExpWeights struct {
	Learned  int
	Mastered int
	CheckIn  int
}

// RankByExp returns how many users have strictly more experience than exp, and the user total.
func (r *UserRepo) RankByExp(ctx context.Context, exp int, w ExpWeights) (ahead int, total int, err error) {
	err = querier(ctx, r.db).QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE total_words_learned * $2 + words_mastered * $3 + total_checkin_days * $4 > $1),
			COUNT(*)
		FROM users`,
		exp, w.Learned, w.Mastered, w.CheckIn,
	).Scan(&ahead, &total)
	return ahead, total, err
}
