package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wordloop-backend/internal/models"
	"wordloop-backend/internal/repository"
)

const (
	CheckInCoins     = 10
	StreakGemEvery   = 7
	StreakGemsReward = 1
)

var expWeights = repository.ExpWeights{Learned: 10, Mastered: 20, CheckIn: 5}

type statsUserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ApplyCheckIn(ctx context.Context, u *models.User) error
	RankByExp(ctx context.Context, exp int, w repository.ExpWeights) (ahead int, total int, err error)
}

// StatsService keeps the check-in and ranking counters.
type StatsService struct {
	users  statsUserStore
	locker UserLocker
	now    func() time.Time
}

func NewStatsService(users statsUserStore, locker UserLocker) *StatsService {
	return &StatsService{users: users, locker: locker, now: time.Now}
}

func (s *StatsService) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, wrapError(KindNotFound, "User not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (s *StatsService) CheckIn(ctx context.Context, userID uuid.UUID) (*models.CheckInResult, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := utcDate(s.now())
	if u.LastCheckinDate != nil {
		gap := daysBetween(utcDate(*u.LastCheckinDate), today)
		switch {
		case gap == 0:
			return nil, newError(KindConflict, "Already checked in today")
		case gap == 1:
			u.StreakDays++
		default:
			u.StreakDays = 1
		}
	} else {
		u.StreakDays = 1
	}

	gems := 0
	if u.StreakDays%StreakGemEvery == 0 {
		gems = StreakGemsReward
	}

	u.LastCheckinDate = &today
	u.TotalCheckinDays++
	u.Coins += CheckInCoins
	u.Gems += gems

	if err := s.users.ApplyCheckIn(ctx, u); err != nil {
		return nil, fmt.Errorf("save check-in: %w", err)
	}

	return &models.CheckInResult{
		StreakDays:       u.StreakDays,
		TotalCheckinDays: u.TotalCheckinDays,
		CoinsReward:      CheckInCoins,
		GemsReward:       gems,
		Coins:            u.Coins,
		Gems:             u.Gems,
		Message:          "Checked in",
	}, nil
}

func (s *StatsService) Stats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	checkedIn := u.LastCheckinDate != nil && daysBetween(utcDate(*u.LastCheckinDate), utcDate(s.now())) == 0
	return &models.UserStats{
		StreakDays:        u.StreakDays,
		HasCheckedInToday: checkedIn,
		Coins:             u.Coins,
		Gems:              u.Gems,
		TotalWordsLearned: u.TotalWordsLearned,
		WordsMastered:     u.WordsMastered,
		TotalCheckinDays:  u.TotalCheckinDays,
	}, nil
}

func (s *StatsService) Leaderboard(ctx context.Context, userID uuid.UUID) (*models.Leaderboard, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	exp := Experience(u)
	ahead, total, err := s.users.RankByExp(ctx, exp, expWeights)
	if err != nil {
		return nil, fmt.Errorf("rank users: %w", err)
	}
	return &models.Leaderboard{Rank: ahead + 1, Exp: exp, TotalUsers: total}, nil
}

func Experience(u *models.User) int {
	return u.TotalWordsLearned*expWeights.Learned +
		u.WordsMastered*expWeights.Mastered +
		u.TotalCheckinDays*expWeights.CheckIn
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
