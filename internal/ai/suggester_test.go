package ai

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/planner"
)

// stubModel replays canned replies, one per call.
type stubModel struct {
	replies []string
	errs    []error
	calls   int
}

func (s *stubModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	reply := ""
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply}},
	}, nil
}

func (s *stubModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func suggestRequest() Request {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	return Request{
		Instruction: "tập gym 6h sáng mỗi ngày",
		Items: []planner.WorkItem{
			{ID: 1, Title: "tập gym", EstimatedMinutes: 45, Priority: 3, SuitableTime: planner.TimeMorning},
		},
		Range: planner.DateRange{Start: start, End: start.AddDate(0, 0, 6)},
	}
}

func newTestSuggester(model llms.Model) *Suggester {
	s := NewSuggester(nil, planner.New(nil), nil)
	s.chat = model
	s.backoffBase = 0
	return s
}

func TestSuggestSimulationWithoutClient(t *testing.T) {
	s := NewSuggester(nil, planner.New(nil), nil)

	result, err := s.Suggest(context.Background(), suggestRequest())
	require.NoError(t, err)
	require.True(t, result.Simulated)
	require.Len(t, result.Suggestions, 7) // daily pattern across seven days
	require.Equal(t, 7, result.Statistics.RecurringSlots)
	require.NotEmpty(t, result.Summary)
}

func TestSuggestUsesModelReply(t *testing.T) {
	reply := `{
		"suggestions": [
			{"task_id": 1, "title": "Tập gym", "suggested_time": "2025-06-02T06:00:00+07:00",
			 "duration_minutes": 45, "reason": "Sáng sớm mát mẻ", "is_recurring": true}
		],
		"summary": "Lịch tập đều đặn mỗi sáng.",
		"statistics": {"total_tasks": 1, "scheduled_slots": 7, "recurring_slots": 7}
	}`
	s := newTestSuggester(&stubModel{replies: []string{reply}})

	result, err := s.Suggest(context.Background(), suggestRequest())
	require.NoError(t, err)
	require.False(t, result.Simulated)
	require.Len(t, result.Suggestions, 1)
	require.Equal(t, "Lịch tập đều đặn mỗi sáng.", result.Summary)
}

func TestSuggestRetriesThenSucceeds(t *testing.T) {
	reply := `{"suggestions": [{"task_id": 1, "title": "x", "suggested_time": "2025-06-02T06:00:00Z", "duration_minutes": 45}], "summary": "ok", "statistics": {}}`
	model := &stubModel{
		errs:    []error{fmt.Errorf("boom"), fmt.Errorf("boom")},
		replies: []string{"", "", reply},
	}
	s := newTestSuggester(model)

	result, err := s.Suggest(context.Background(), suggestRequest())
	require.NoError(t, err)
	require.False(t, result.Simulated)
	require.Equal(t, 3, model.calls)
}

func TestSuggestFallsBackOnBadJSON(t *testing.T) {
	model := &stubModel{replies: []string{"not json", "not json", "not json"}}
	s := newTestSuggester(model)

	result, err := s.Suggest(context.Background(), suggestRequest())
	require.NoError(t, err)
	require.True(t, result.Simulated)
	require.Equal(t, 3, model.calls) // full retry budget spent first
}

func TestSuggestFallsBackOnEmptySuggestions(t *testing.T) {
	reply := `{"suggestions": [], "summary": "nothing"}`
	model := &stubModel{replies: []string{reply, reply, reply}}
	s := newTestSuggester(model)

	result, err := s.Suggest(context.Background(), suggestRequest())
	require.NoError(t, err)
	require.True(t, result.Simulated)
}

func TestSuggestPropagatesInvalidRange(t *testing.T) {
	req := suggestRequest()
	req.Range.End = req.Range.Start.AddDate(0, 0, -1)

	s := NewSuggester(nil, planner.New(nil), nil)
	_, err := s.Suggest(context.Background(), req)
	require.ErrorIs(t, err, planner.ErrInvalidDateRange)
}
