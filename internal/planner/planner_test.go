package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/recurrence"
)

// 2025-06-01 is a Sunday.
func testRange(days int) DateRange {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	return DateRange{Start: start, End: start.AddDate(0, 0, days-1)}
}

func testItems() []WorkItem {
	return []WorkItem{
		{ID: 1, Title: "tập gym", EstimatedMinutes: 45, Priority: 2, SuitableTime: TimeMorning},
		{ID: 2, Title: "học tiếng Anh", EstimatedMinutes: 90, Priority: 4, SuitableTime: TimeEvening},
		{ID: 3, Title: "dọn nhà", Priority: 1, SuitableTime: TimeAnytime},
	}
}

func TestModeACoversMatchingWeekdays(t *testing.T) {
	pattern := recurrence.Pattern{
		Frequency:   recurrence.FrequencyDaily,
		DaysOfWeek:  []int{2, 3, 4, 5, 6}, // Mon..Fri
		TimeWindows: []recurrence.TimeWindow{{StartHour: 6}},
		SourceText:  "tập gym 6h sáng từ t2 đến t6",
	}

	slots, err := New(nil).Schedule(testItems(), testRange(7), nil, []recurrence.Pattern{pattern}, Options{})
	require.NoError(t, err)
	require.Len(t, slots, 5)

	for i, slot := range slots {
		require.True(t, slot.IsRecurringInstance)
		require.Equal(t, uint(1), slot.ItemID) // "tập gym" appears in the source text
		require.Equal(t, 6, slot.ScheduledAt.Hour())
		// Monday through Friday, one slot each.
		require.Equal(t, time.Weekday(i+1), slot.ScheduledAt.Weekday())
	}
}

func TestModeAWindowDuration(t *testing.T) {
	pattern := recurrence.Pattern{
		Frequency:  recurrence.FrequencyWeekly,
		DaysOfWeek: []int{2},
		TimeWindows: []recurrence.TimeWindow{
			{StartHour: 18, EndHour: 21, HasEnd: true},
			{StartHour: 7, StartMinute: 30, EndHour: 7, EndMinute: 45, HasEnd: true}, // below the floor
			{StartHour: 12},
		},
		SourceText: "học tiếng anh",
	}

	slots, err := New(nil).Schedule(testItems(), testRange(7), nil, []recurrence.Pattern{pattern}, Options{})
	require.NoError(t, err)
	require.Len(t, slots, 3)
	require.Equal(t, 180, slots[0].DurationMinutes)
	require.Equal(t, 30, slots[1].DurationMinutes) // clamped up to the minimum
	require.Equal(t, 90, slots[2].DurationMinutes) // item estimate for endless windows
	for _, slot := range slots {
		require.Equal(t, uint(2), slot.ItemID)
	}
}

func TestModeABindsFirstItemWhenNoTitleMatches(t *testing.T) {
	pattern := recurrence.Pattern{
		Frequency:   recurrence.FrequencyDaily,
		DaysOfWeek:  []int{1, 2, 3, 4, 5, 6, 7},
		TimeWindows: []recurrence.TimeWindow{{StartHour: 8}},
		SourceText:  "việc gì đó 8h sáng mỗi ngày",
	}

	slots, err := New(nil).Schedule(testItems(), testRange(1), nil, []recurrence.Pattern{pattern}, Options{})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, uint(1), slots[0].ItemID)
}

func TestModeBSchedulesEveryItemOnce(t *testing.T) {
	items := testItems()
	slots, err := New(nil).Schedule(items, testRange(3), nil, nil, Options{})
	require.NoError(t, err)
	require.Len(t, slots, len(items))

	seen := make(map[uint]int)
	for _, slot := range slots {
		seen[slot.ItemID]++
		require.False(t, slot.IsRecurringInstance)
		require.NotEmpty(t, slot.Reason)
	}
	for _, item := range items {
		require.Equal(t, 1, seen[item.ID])
	}
}

func TestModeBPriorityOrdering(t *testing.T) {
	items := []WorkItem{
		{ID: 1, Title: "việc nhỏ", Priority: 1, SuitableTime: TimeMorning},
		{ID: 2, Title: "việc gấp", Priority: 4, SuitableTime: TimeMorning},
	}

	slots, err := New(nil).Schedule(items, testRange(7), nil, nil, Options{ConsiderPriority: true})
	require.NoError(t, err)
	require.Len(t, slots, 2)

	// The priority-4 item is placed first, so it lands on an earlier day.
	require.Equal(t, uint(2), slots[0].ItemID)
	require.True(t, slots[0].ScheduledAt.Before(slots[1].ScheduledAt))
}

func TestModeBAnchorsFollowPreference(t *testing.T) {
	items := []WorkItem{
		{ID: 1, Title: "a", SuitableTime: TimeMorning},
		{ID: 2, Title: "b", SuitableTime: TimeNoon},
		{ID: 3, Title: "c", SuitableTime: TimeAfternoon},
		{ID: 4, Title: "d", SuitableTime: TimeEvening},
	}

	slots, err := New(nil).Schedule(items, testRange(1), nil, nil, Options{})
	require.NoError(t, err)

	hours := map[uint]int{}
	for _, slot := range slots {
		hours[slot.ItemID] = slot.ScheduledAt.Hour()
	}
	require.Equal(t, map[uint]int{1: 9, 2: 13, 3: 16, 4: 19}, hours)
}

func TestModeBAnytimeRoundRobin(t *testing.T) {
	items := make([]WorkItem, 4)
	for i := range items {
		items[i] = WorkItem{ID: uint(i + 1), Title: "x", SuitableTime: TimeAnytime}
	}

	slots, err := New(nil).Schedule(items, testRange(1), nil, nil, Options{})
	require.NoError(t, err)
	require.Len(t, slots, 4)
	require.Equal(t, []int{9, 13, 16, 19}, []int{
		slots[0].ScheduledAt.Hour(), slots[1].ScheduledAt.Hour(),
		slots[2].ScheduledAt.Hour(), slots[3].ScheduledAt.Hour(),
	})
}

func TestModeBConflictShiftsOnce(t *testing.T) {
	rng := testRange(1)
	busy := []OccupiedInterval{{
		Start: time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local),
		End:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local),
	}}
	items := []WorkItem{{ID: 1, Title: "tập gym", EstimatedMinutes: 60, SuitableTime: TimeMorning}}

	slots, err := New(nil).Schedule(items, rng, busy, nil, Options{AvoidConflict: true})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, 13, slots[0].ScheduledAt.Hour())
	require.False(t, slots[0].HasConflict)
}

func TestModeBResidualConflictIsFlagged(t *testing.T) {
	rng := testRange(1)
	// Both the morning anchor and the noon anchor are taken.
	busy := []OccupiedInterval{
		{Start: time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local), End: time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local)},
		{Start: time.Date(2025, 6, 1, 13, 0, 0, 0, time.Local), End: time.Date(2025, 6, 1, 14, 0, 0, 0, time.Local)},
	}
	items := []WorkItem{{ID: 1, Title: "tập gym", EstimatedMinutes: 60, SuitableTime: TimeMorning}}

	slots, err := New(nil).Schedule(items, rng, busy, nil, Options{AvoidConflict: true})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, 13, slots[0].ScheduledAt.Hour())
	require.True(t, slots[0].HasConflict)
}

func TestModeBConflictOptionIdempotentWithoutOccupied(t *testing.T) {
	items := testItems()
	with, err := New(nil).Schedule(items, testRange(3), nil, nil, Options{AvoidConflict: true})
	require.NoError(t, err)
	without, err := New(nil).Schedule(items, testRange(3), nil, nil, Options{})
	require.NoError(t, err)
	require.Equal(t, without, with)
}

func TestModeBSpreadNeverExceedsAWeek(t *testing.T) {
	items := make([]WorkItem, 10)
	for i := range items {
		items[i] = WorkItem{ID: uint(i + 1), Title: "x", SuitableTime: TimeMorning}
	}

	slots, err := New(nil).Schedule(items, testRange(30), nil, nil, Options{})
	require.NoError(t, err)

	last := time.Date(2025, 6, 7, 23, 59, 0, 0, time.Local)
	for _, slot := range slots {
		require.True(t, slot.ScheduledAt.Before(last))
	}
}

func TestDefaults(t *testing.T) {
	items := []WorkItem{{ID: 1, Title: "x", Priority: 4, SuitableTime: TimeMorning}}
	slots, err := New(nil).Schedule(items, testRange(1), nil, nil, Options{})
	require.NoError(t, err)
	require.Equal(t, 60, slots[0].DurationMinutes)
	require.Equal(t, "#e74c3c", slots[0].Color)
}

func TestInvalidDateRange(t *testing.T) {
	rng := testRange(1)
	rng.End = rng.Start.AddDate(0, 0, -1)
	_, err := New(nil).Schedule(testItems(), rng, nil, nil, Options{})
	require.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestEmptyItems(t *testing.T) {
	slots, err := New(nil).Schedule(nil, testRange(3), nil, nil, Options{})
	require.NoError(t, err)
	require.Empty(t, slots)
}
