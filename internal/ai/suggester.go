package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/planner"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/recurrence"
)

// Suggestion is one proposed slot in a response.
type Suggestion struct {
	TaskID          uint      `json:"task_id"`
	Title           string    `json:"title"`
	SuggestedTime   time.Time `json:"suggested_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Reason          string    `json:"reason"`
	Color           string    `json:"color"`
	IsRecurring     bool      `json:"is_recurring"`
	HasConflict     bool      `json:"has_conflict"`
}

// Statistics summarizes a suggestion run.
type Statistics struct {
	TotalTasks       int `json:"total_tasks"`
	ScheduledSlots   int `json:"scheduled_slots"`
	RecurringSlots   int `json:"recurring_slots"`
	ConflictWarnings int `json:"conflict_warnings"`
}

// Result is the suggestion payload handed to callers. Simulated marks
// results produced without the text-generation service.
type Result struct {
	Suggestions []Suggestion `json:"suggestions"`
	Summary     string       `json:"summary"`
	Statistics  Statistics   `json:"statistics"`
	Simulated   bool         `json:"simulated"`
}

// Request carries everything one suggestion run needs.
type Request struct {
	Instruction string
	Items       []planner.WorkItem
	Range       planner.DateRange
	Occupied    []planner.OccupiedInterval
	Options     planner.Options
}

// Suggester runs the extract→schedule pipeline and optionally refines the
// outcome through the text-generation service. A nil client means pure
// simulation mode; so does any AI failure after the retry budget.
type Suggester struct {
	chat    llms.Model
	planner *planner.Planner
	log     *zap.SugaredLogger

	maxAttempts int
	backoffBase time.Duration
}

func NewSuggester(client *Client, pl *planner.Planner, log *zap.SugaredLogger) *Suggester {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Suggester{
		planner:     pl,
		log:         log,
		maxAttempts: 3,
		backoffBase: time.Second,
	}
	if client != nil {
		s.chat = client.Chat
	}
	return s
}

// Suggest produces a suggestion set for the request. Hard failures (bad date
// range) are returned as errors; AI unavailability is not a failure, it
// degrades to simulation.
func (s *Suggester) Suggest(ctx context.Context, req Request) (*Result, error) {
	patterns := recurrence.ExtractPatterns(req.Instruction)
	slots, err := s.planner.Schedule(req.Items, req.Range, req.Occupied, patterns, req.Options)
	if err != nil {
		return nil, err
	}

	if s.chat == nil {
		return s.simulate(req, slots), nil
	}

	result, err := s.generate(ctx, req, slots)
	if err != nil {
		s.log.Warnw("ai suggestion failed, falling back to simulation", "error", err)
		return s.simulate(req, slots), nil
	}
	return result, nil
}

// generate asks the model to refine the locally computed slots, retrying
// with exponential backoff before giving up.
func (s *Suggester) generate(ctx context.Context, req Request, slots []planner.Slot) (*Result, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(buildPayload(req, slots))},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := s.backoffBase << (attempt - 2)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		response, err := s.chat.GenerateContent(ctx, messages, llms.WithTemperature(0.4))
		if err != nil {
			lastErr = err
			s.log.Warnw("ai call failed", "attempt", attempt, "error", err)
			continue
		}

		result, err := parseResult(response)
		if err != nil {
			lastErr = err
			s.log.Warnw("ai reply rejected", "attempt", attempt, "error", err)
			continue
		}
		return result, nil
	}
	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, lastErr)
}

func parseResult(response *llms.ContentResponse) (*Result, error) {
	if response == nil || len(response.Choices) == 0 {
		return nil, fmt.Errorf("empty model response")
	}
	var result Result
	if err := json.Unmarshal([]byte(response.Choices[0].Content), &result); err != nil {
		return nil, fmt.Errorf("decode model reply: %w", err)
	}
	if len(result.Suggestions) == 0 {
		return nil, fmt.Errorf("model reply has no suggestions")
	}
	return &result, nil
}

// simulate builds the response directly from the scheduler output.
func (s *Suggester) simulate(req Request, slots []planner.Slot) *Result {
	result := &Result{
		Suggestions: make([]Suggestion, 0, len(slots)),
		Simulated:   true,
	}
	for _, slot := range slots {
		result.Suggestions = append(result.Suggestions, Suggestion{
			TaskID:          slot.ItemID,
			Title:           slot.Title,
			SuggestedTime:   slot.ScheduledAt,
			DurationMinutes: slot.DurationMinutes,
			Reason:          slot.Reason,
			Color:           slot.Color,
			IsRecurring:     slot.IsRecurringInstance,
			HasConflict:     slot.HasConflict,
		})
		result.Statistics.ScheduledSlots++
		if slot.IsRecurringInstance {
			result.Statistics.RecurringSlots++
		}
		if slot.HasConflict {
			result.Statistics.ConflictWarnings++
		}
	}
	result.Statistics.TotalTasks = len(req.Items)

	switch {
	case len(slots) == 0:
		result.Summary = "Không có việc nào cần xếp lịch trong khoảng thời gian này."
	case result.Statistics.RecurringSlots > 0:
		result.Summary = fmt.Sprintf("Đã tạo %d lịch lặp lại theo yêu cầu của bạn.", len(slots))
	default:
		result.Summary = fmt.Sprintf("Đã xếp %d việc vào các khung giờ trống trong %d ngày.",
			len(slots), daySpan(req.Range))
	}
	return result
}

func daySpan(rng planner.DateRange) int {
	days := int(rng.End.Sub(rng.Start).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

const systemPrompt = `Bạn là trợ lý xếp lịch cá nhân. Người dùng gửi cho bạn danh sách công việc,
các khoảng thời gian đã bận và một bản xếp lịch sơ bộ do hệ thống tính sẵn.

Nhiệm vụ của bạn:
1. Giữ nguyên task_id, suggested_time và duration_minutes của bản sơ bộ trừ khi
   chúng trùng với khoảng thời gian bận — khi đó hãy dời sang giờ trống gần nhất.
2. Viết lại reason cho tự nhiên, ngắn gọn, bằng tiếng Việt.
3. Viết một câu summary tổng kết lịch.
4. Chỉ trả lời bằng một JSON object duy nhất, không thêm văn bản nào khác.

Cấu trúc trả lời:
{
  "suggestions": [
    {
      "task_id": 1,
      "title": "Tập gym",
      "suggested_time": "2025-06-02T06:00:00+07:00",
      "duration_minutes": 45,
      "reason": "Buổi sáng sớm phù hợp để tập luyện",
      "color": "#3498db",
      "is_recurring": true,
      "has_conflict": false
    }
  ],
  "summary": "Một câu tổng kết",
  "statistics": {
    "total_tasks": 3,
    "scheduled_slots": 5,
    "recurring_slots": 5,
    "conflict_warnings": 0
  }
}

Ghi chú:
- suggested_time theo định dạng RFC3339.
- suggestions không được rỗng.`

func buildPayload(req Request, slots []planner.Slot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Yêu cầu của người dùng: %q\n", req.Instruction)
	fmt.Fprintf(&sb, "Khoảng thời gian: %s đến %s\n\n",
		req.Range.Start.Format("2006-01-02"), req.Range.End.Format("2006-01-02"))

	sb.WriteString("Công việc cần xếp:\n")
	for _, item := range req.Items {
		fmt.Fprintf(&sb, "- [%d] %s (ước tính %d phút, ưu tiên %d, khung giờ hợp: %s)\n",
			item.ID, item.Title, item.EstimatedMinutes, item.Priority, item.SuitableTime)
	}

	if len(req.Occupied) > 0 {
		sb.WriteString("\nThời gian đã bận:\n")
		for _, o := range req.Occupied {
			fmt.Fprintf(&sb, "- %s đến %s\n",
				o.Start.Format("2006-01-02 15:04"), o.End.Format("2006-01-02 15:04"))
		}
	}

	sb.WriteString("\nBản xếp lịch sơ bộ:\n")
	for _, slot := range slots {
		fmt.Fprintf(&sb, "- task %d lúc %s, %d phút (lặp lại: %t, trùng lịch: %t)\n",
			slot.ItemID, slot.ScheduledAt.Format(time.RFC3339), slot.DurationMinutes,
			slot.IsRecurringInstance, slot.HasConflict)
	}

	return sb.String()
}
