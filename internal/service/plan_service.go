package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/ai"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/cache"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/model"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/planner"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/repository"
)

var (
	// ErrBatchNotFound means the batch id has no pending rows for the user.
	ErrBatchNotFound = errors.New("suggestion batch not found")
	// ErrDuplicateConfirm means an identical confirmation arrived inside
	// the idempotency window and was suppressed.
	ErrDuplicateConfirm = errors.New("duplicate confirmation suppressed")
)

// SuggestOutcome couples a suggestion result with the persisted batch id the
// caller needs for confirmation. BatchID is empty when nothing was suggested.
type SuggestOutcome struct {
	BatchID string     `json:"batch_id,omitempty"`
	Result  *ai.Result `json:"result"`
}

// PlanService assembles scheduling input from the stores, runs the
// suggestion pipeline and owns confirmation of the outcome.
type PlanService struct {
	taskRepo       *repository.TaskRepository
	eventRepo      *repository.EventRepository
	suggestionRepo *repository.SuggestionRepository
	suggester      *ai.Suggester
	idem           cache.IdempotencyCache
	idemWindow     time.Duration
	log            *zap.SugaredLogger
}

func NewPlanService(
	taskRepo *repository.TaskRepository,
	eventRepo *repository.EventRepository,
	suggestionRepo *repository.SuggestionRepository,
	suggester *ai.Suggester,
	idem cache.IdempotencyCache,
	idemWindow time.Duration,
	log *zap.SugaredLogger,
) *PlanService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &PlanService{
		taskRepo:       taskRepo,
		eventRepo:      eventRepo,
		suggestionRepo: suggestionRepo,
		suggester:      suggester,
		idem:           idem,
		idemWindow:     idemWindow,
		log:            log,
	}
}

// SuggestSchedule runs the whole pipeline for one user instruction and
// persists the resulting batch as pending suggestions.
func (s *PlanService) SuggestSchedule(ctx context.Context, user *model.User, instruction string, start, end time.Time, opts planner.Options) (*SuggestOutcome, error) {
	tasks, err := s.taskRepo.ListSchedulable(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	if len(tasks) == 0 {
		return &SuggestOutcome{Result: &ai.Result{Simulated: true, Summary: "Bạn chưa có việc nào cần xếp lịch."}}, nil
	}

	var occupied []planner.OccupiedInterval
	if opts.AvoidConflict {
		events, err := s.eventRepo.ListBetween(ctx, user.ID, start, end.AddDate(0, 0, 1))
		if err != nil {
			return nil, fmt.Errorf("load events: %w", err)
		}
		for _, ev := range events {
			occupied = append(occupied, planner.OccupiedInterval{Start: ev.StartTime, End: ev.EndTime})
		}
	}

	result, err := s.suggester.Suggest(ctx, ai.Request{
		Instruction: instruction,
		Items:       toWorkItems(tasks),
		Range:       planner.DateRange{Start: start, End: end},
		Occupied:    occupied,
		Options:     opts,
	})
	if err != nil {
		return nil, err
	}

	outcome := &SuggestOutcome{Result: result}
	if len(result.Suggestions) == 0 {
		return outcome, nil
	}

	outcome.BatchID = uuid.NewString()
	rows := make([]model.Suggestion, 0, len(result.Suggestions))
	for _, sg := range result.Suggestions {
		rows = append(rows, model.Suggestion{
			UserID:          user.ID,
			BatchID:         outcome.BatchID,
			TaskID:          sg.TaskID,
			Title:           sg.Title,
			SuggestedAt:     sg.SuggestedTime,
			DurationMinutes: sg.DurationMinutes,
			Reason:          sg.Reason,
			Color:           sg.Color,
			IsRecurring:     sg.IsRecurring,
			HasConflict:     sg.HasConflict,
			Status:          model.SuggestionPending,
		})
	}
	if err := s.suggestionRepo.CreateBatch(ctx, rows); err != nil {
		return nil, err
	}

	s.log.Infow("suggestion batch created",
		"user", user.ID, "batch", outcome.BatchID,
		"slots", len(rows), "simulated", result.Simulated)
	return outcome, nil
}

// Confirm turns a pending suggestion batch into calendar events. An
// identical confirmation inside the idempotency window is suppressed.
func (s *PlanService) Confirm(ctx context.Context, user *model.User, batchID string) (int, error) {
	rows, err := s.suggestionRepo.FindBatch(ctx, user.ID, batchID)
	if err != nil {
		return 0, fmt.Errorf("load batch: %w", err)
	}
	if len(rows) == 0 {
		return 0, ErrBatchNotFound
	}

	ok, err := s.idem.Acquire(ctx, confirmKey(user.ID, rows), s.idemWindow)
	if err != nil {
		return 0, fmt.Errorf("idempotency check: %w", err)
	}
	if !ok {
		s.log.Warnw("duplicate confirmation suppressed", "user", user.ID, "batch", batchID)
		return 0, ErrDuplicateConfirm
	}

	events := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		taskID := row.TaskID
		events = append(events, model.Event{
			UserID:      user.ID,
			TaskID:      &taskID,
			Title:       row.Title,
			StartTime:   row.SuggestedAt,
			EndTime:     row.SuggestedAt.Add(time.Duration(row.DurationMinutes) * time.Minute),
			Color:       row.Color,
			Source:      model.EventSourceAI,
			IsRecurring: row.IsRecurring,
		})
	}
	if err := s.eventRepo.CreateBatch(ctx, events); err != nil {
		return 0, err
	}
	if err := s.suggestionRepo.MarkConfirmed(ctx, user.ID, batchID); err != nil {
		return 0, err
	}

	s.log.Infow("suggestion batch confirmed", "user", user.ID, "batch", batchID, "events", len(events))
	return len(events), nil
}

// UpcomingEvents lists the user's events for the next given number of days.
func (s *PlanService) UpcomingEvents(ctx context.Context, user *model.User, days int) ([]model.Event, error) {
	now := time.Now().In(user.Location())
	return s.eventRepo.ListBetween(ctx, user.ID, now, now.AddDate(0, 0, days))
}

// PurgeStaleSuggestions removes pending batches older than ttl.
func (s *PlanService) PurgeStaleSuggestions(ctx context.Context, ttl time.Duration) error {
	removed, err := s.suggestionRepo.DeleteStalePending(ctx, time.Now().Add(-ttl))
	if err != nil {
		return err
	}
	if removed > 0 {
		s.log.Infow("purged stale suggestion batches", "rows", removed)
	}
	return nil
}

// confirmKey identifies a confirmation by user and item set, so re-sending
// the same suggestion set within the window is a no-op.
func confirmKey(userID uint, rows []model.Suggestion) string {
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, fmt.Sprintf("%d@%d", row.TaskID, row.SuggestedAt.Unix()))
	}
	sort.Strings(parts)
	return fmt.Sprintf("confirm:%d:%s", userID, strings.Join(parts, ","))
}

func toWorkItems(tasks []model.Task) []planner.WorkItem {
	items := make([]planner.WorkItem, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, planner.WorkItem{
			ID:               task.ID,
			Title:            task.Title,
			EstimatedMinutes: task.EstimatedMinutes,
			Priority:         task.Priority,
			SuitableTime:     suitableTimeOf(task.SuitableTime),
			Color:            task.Color,
		})
	}
	return items
}

func suitableTimeOf(code int) planner.TimeOfDay {
	switch code {
	case model.SuitableMorning:
		return planner.TimeMorning
	case model.SuitableNoon:
		return planner.TimeNoon
	case model.SuitableAfternoon:
		return planner.TimeAfternoon
	case model.SuitableEvening:
		return planner.TimeEvening
	default:
		return planner.TimeAnytime
	}
}
