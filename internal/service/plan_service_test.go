package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/ai"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/cache"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/model"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/planner"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/repository"
)

var dbSeq int

func newTestService(t *testing.T) (*PlanService, *repository.EventRepository, *model.User) {
	t.Helper()

	dbSeq++
	dsn := fmt.Sprintf("file:plansvc%d?mode=memory&cache=shared", dbSeq)
	db, err := repository.NewDB(dsn)
	require.NoError(t, err)

	user := &model.User{TelegramID: 42, FirstName: "Quốc"}
	require.NoError(t, db.Create(user).Error)

	taskRepo := repository.NewTaskRepository(db)
	eventRepo := repository.NewEventRepository(db)
	suggestionRepo := repository.NewSuggestionRepository(db)

	suggester := ai.NewSuggester(nil, planner.New(nil), nil)
	svc := NewPlanService(taskRepo, eventRepo, suggestionRepo, suggester,
		cache.NewMemoryCache(), 5*time.Minute, nil)
	return svc, eventRepo, user
}

func seedTask(t *testing.T, svc *PlanService, user *model.User, title string, priority int) *model.Task {
	t.Helper()
	task := &model.Task{
		UserID:           user.ID,
		Title:            title,
		EstimatedMinutes: 45,
		Priority:         priority,
		SuitableTime:     model.SuitableMorning,
	}
	require.NoError(t, svc.taskRepo.Create(context.Background(), task))
	return task
}

func TestSuggestScheduleSimulated(t *testing.T) {
	svc, _, user := newTestService(t)
	seedTask(t, svc, user, "tập gym", 3)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	outcome, err := svc.SuggestSchedule(context.Background(), user,
		"tập gym 6h sáng mỗi ngày", start, start.AddDate(0, 0, 6), planner.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, outcome.BatchID)
	require.True(t, outcome.Result.Simulated)
	require.Len(t, outcome.Result.Suggestions, 7)
}

func TestSuggestScheduleNoTasks(t *testing.T) {
	svc, _, user := newTestService(t)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	outcome, err := svc.SuggestSchedule(context.Background(), user,
		"gì đó", start, start.AddDate(0, 0, 2), planner.Options{})
	require.NoError(t, err)
	require.Empty(t, outcome.BatchID)
	require.Empty(t, outcome.Result.Suggestions)
}

func TestConfirmCreatesEvents(t *testing.T) {
	svc, eventRepo, user := newTestService(t)
	seedTask(t, svc, user, "tập gym", 3)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	outcome, err := svc.SuggestSchedule(context.Background(), user,
		"tập gym 6h sáng mỗi ngày", start, start.AddDate(0, 0, 6), planner.Options{})
	require.NoError(t, err)

	created, err := svc.Confirm(context.Background(), user, outcome.BatchID)
	require.NoError(t, err)
	require.Equal(t, 7, created)

	events, err := eventRepo.ListBetween(context.Background(), user.ID, start, start.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, events, 7)
	require.Equal(t, model.EventSourceAI, events[0].Source)

	// A confirmed batch cannot be confirmed again.
	_, err = svc.Confirm(context.Background(), user, outcome.BatchID)
	require.ErrorIs(t, err, ErrBatchNotFound)
}

func TestConfirmUnknownBatch(t *testing.T) {
	svc, _, user := newTestService(t)
	_, err := svc.Confirm(context.Background(), user, "no-such-batch")
	require.ErrorIs(t, err, ErrBatchNotFound)
}

func TestSuggestScheduleAvoidsExistingEvents(t *testing.T) {
	svc, eventRepo, user := newTestService(t)
	seedTask(t, svc, user, "viết báo cáo", 4)

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)
	require.NoError(t, eventRepo.CreateBatch(context.Background(), []model.Event{{
		UserID:    user.ID,
		Title:     "họp",
		StartTime: day.Add(9 * time.Hour),
		EndTime:   day.Add(10 * time.Hour),
	}}))

	outcome, err := svc.SuggestSchedule(context.Background(), user,
		"", day, day, planner.Options{AvoidConflict: true})
	require.NoError(t, err)
	require.Len(t, outcome.Result.Suggestions, 1)
	// Morning anchor is taken, the slot moved to the next one.
	require.Equal(t, 13, outcome.Result.Suggestions[0].SuggestedTime.Hour())
}
