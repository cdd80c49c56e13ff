package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"wordloop-backend/internal/repository"
)

type stubShortfalls struct {
	rows []repository.Shortfall
	err  error
}

func (s stubShortfalls) ListShortfalls(context.Context, int, int) ([]repository.Shortfall, error) {
	return s.rows, s.err
}

type stubActiveJobs map[uuid.UUID]int

func (s stubActiveJobs) CountActive(_ context.Context, userID uuid.UUID, _ string) (int, error) {
	return s[userID], nil
}

func TestReplenisherSweep(t *testing.T) {
	empty, short, busy := uuid.New(), uuid.New(), uuid.New()
	sched := &recordingScheduler{}
	r := NewReplenisher(
		stubShortfalls{rows: []repository.Shortfall{{UserID: empty}, {UserID: short, Ready: 1}, {UserID: busy}}},
		stubActiveJobs{busy: 2, short: 0},
		sched,
		time.Hour,
	)

	assert.Equal(t, 3, r.Sweep(context.Background()))
	assert.Equal(t, []scheduleCall{
		{empty, 2, "sweep"},
		{short, 1, "sweep"},
	}, sched.Calls())
}

func TestReplenisherSweep_Failures(t *testing.T) {
	sched := &recordingScheduler{}
	r := NewReplenisher(stubShortfalls{err: assert.AnError}, stubActiveJobs{}, sched, 0)
	assert.Zero(t, r.Sweep(context.Background()))
	assert.Equal(t, 15*time.Minute, r.interval)

	sched.err = assert.AnError
	r = NewReplenisher(stubShortfalls{rows: []repository.Shortfall{{UserID: uuid.New()}}}, stubActiveJobs{}, sched, time.Minute)
	assert.Zero(t, r.Sweep(context.Background()), "failed schedules are not counted")
	assert.Len(t, sched.Calls(), 1)
}
