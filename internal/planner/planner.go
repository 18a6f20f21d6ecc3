package planner

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/recurrence"
)

// ErrInvalidDateRange is returned when the range end precedes its start.
// Callers must distinguish it from an empty result: empty means "nothing to
// suggest", this error means "cannot compute".
var ErrInvalidDateRange = errors.New("date range end is before start")

const (
	defaultDurationMinutes = 60
	minSlotMinutes         = 30
	maxSpreadDays          = 7
)

// TimeOfDay is the time-of-day preference carried by a work item.
type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"
	TimeNoon      TimeOfDay = "noon"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
	TimeAnytime   TimeOfDay = "anytime"
)

// WorkItem is one unit of work to place. Inputs are never mutated.
type WorkItem struct {
	ID               uint
	Title            string
	EstimatedMinutes int
	Priority         int // 1..4, higher is more urgent
	SuitableTime     TimeOfDay
	Color            string
}

// OccupiedInterval is an existing commitment the scheduler must not overlap
// when conflict avoidance is requested.
type OccupiedInterval struct {
	Start time.Time
	End   time.Time
}

// DateRange is the inclusive day span to schedule into.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Options toggle scheduling behaviors.
type Options struct {
	AvoidConflict    bool
	ConsiderPriority bool
	BalanceWorkload  bool
}

// Slot is one concrete placement of a work item.
type Slot struct {
	ItemID              uint
	Title               string
	ScheduledAt         time.Time
	DurationMinutes     int
	Reason              string
	Color               string
	IsRecurringInstance bool
	// HasConflict marks a slot that still overlaps an existing interval
	// after the single-step mitigation. The slot is kept, not dropped.
	HasConflict bool
}

type anchor struct {
	hour   int
	suits  TimeOfDay
	reason string
}

// The four fixed daily anchors used for greedy placement.
var anchors = [4]anchor{
	{9, TimeMorning, "buổi sáng là lúc tỉnh táo nhất"},
	{13, TimeNoon, "buổi trưa phù hợp với việc nhẹ"},
	{16, TimeAfternoon, "cuối buổi chiều còn trống"},
	{19, TimeEvening, "buổi tối yên tĩnh, dễ tập trung"},
}

// Planner places work items into concrete calendar slots. It is a pure
// computation over its inputs and safe for concurrent use.
type Planner struct {
	log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Planner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Planner{log: log}
}

// Schedule produces slots for the given items. When patterns are present and
// expand to at least one slot, the expansion wins; otherwise items are
// placed greedily into the daily anchors. Empty items yield an empty result,
// not an error.
func (p *Planner) Schedule(items []WorkItem, rng DateRange, occupied []OccupiedInterval, patterns []recurrence.Pattern, opts Options) ([]Slot, error) {
	if rng.End.Before(rng.Start) {
		return nil, fmt.Errorf("schedule %s..%s: %w",
			rng.Start.Format("2006-01-02"), rng.End.Format("2006-01-02"), ErrInvalidDateRange)
	}
	if len(items) == 0 {
		return nil, nil
	}

	if len(patterns) > 0 {
		slots := p.expandPatterns(items, rng, patterns)
		if len(slots) > 0 {
			return slots, nil
		}
	}

	return p.placeGreedy(items, rng, occupied, opts), nil
}

// expandPatterns is Mode A: every pattern becomes one slot per matching day
// per time window across the range.
func (p *Planner) expandPatterns(items []WorkItem, rng DateRange, patterns []recurrence.Pattern) []Slot {
	var slots []Slot
	for _, pattern := range patterns {
		item := p.bindItem(items, pattern)
		start := dateOf(rng.Start)
		end := dateOf(rng.End)

		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			if !pattern.ContainsDay(weekday(day)) {
				continue
			}
			for _, w := range pattern.TimeWindows {
				slots = append(slots, Slot{
					ItemID:              item.ID,
					Title:               item.Title,
					ScheduledAt:         at(day, w.StartHour, w.StartMinute),
					DurationMinutes:     windowDuration(w, item),
					Reason:              fmt.Sprintf("Lặp lại theo yêu cầu: %q", pattern.SourceText),
					Color:               itemColor(item),
					IsRecurringInstance: true,
				})
			}
		}
	}
	return slots
}

// bindItem picks the item a pattern refers to: first title found inside the
// instruction text, else the first item. The fallback is a documented
// heuristic, so it is logged rather than reported as an error.
func (p *Planner) bindItem(items []WorkItem, pattern recurrence.Pattern) WorkItem {
	source := strings.ToLower(pattern.SourceText)
	for _, item := range items {
		title := strings.ToLower(strings.TrimSpace(item.Title))
		if title != "" && strings.Contains(source, title) {
			return item
		}
	}
	p.log.Warnw("no item title found in instruction, binding pattern to first item",
		"item_id", items[0].ID, "source", pattern.SourceText)
	return items[0]
}

// placeGreedy is Mode B: spread items across at most a week of days and drop
// each into the anchor matching its time-of-day preference.
func (p *Planner) placeGreedy(items []WorkItem, rng DateRange, occupied []OccupiedInterval, opts Options) []Slot {
	numDays := spreadDays(rng)

	// The priority sort runs regardless of the ConsiderPriority flag; the
	// flag is accepted for API compatibility.
	_ = opts.ConsiderPriority
	ordered := make([]WorkItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	start := dateOf(rng.Start)
	slots := make([]Slot, 0, len(ordered))

	for i, item := range ordered {
		day := start.AddDate(0, 0, i%numDays)
		anchorIdx := anchorFor(item.SuitableTime, i)

		candidate := at(day, anchors[anchorIdx].hour, 0)
		duration := itemDuration(item)

		conflicted := false
		if opts.AvoidConflict && len(occupied) > 0 && overlapsAny(candidate, duration, occupied) {
			// Single-step mitigation: move to the next anchor once and
			// accept whatever remains.
			anchorIdx = (anchorIdx + 1) % len(anchors)
			candidate = at(day, anchors[anchorIdx].hour, 0)
			conflicted = overlapsAny(candidate, duration, occupied)
		}

		slots = append(slots, Slot{
			ItemID:          item.ID,
			Title:           item.Title,
			ScheduledAt:     candidate,
			DurationMinutes: duration,
			Reason:          greedyReason(item, anchors[anchorIdx]),
			Color:           itemColor(item),
			HasConflict:     conflicted,
		})
		if conflicted {
			p.log.Infow("slot still overlaps an existing event after shift",
				"item_id", item.ID, "at", candidate)
		}
	}
	return slots
}

func spreadDays(rng DateRange) int {
	raw := int(math.Ceil(rng.End.Sub(rng.Start).Hours() / 24))
	if raw < 1 {
		return 1
	}
	if raw > maxSpreadDays {
		return maxSpreadDays
	}
	return raw
}

func anchorFor(pref TimeOfDay, i int) int {
	for idx, a := range anchors {
		if a.suits == pref {
			return idx
		}
	}
	return i % len(anchors)
}

func overlapsAny(start time.Time, durationMinutes int, occupied []OccupiedInterval) bool {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	for _, o := range occupied {
		if start.Before(o.End) && end.After(o.Start) {
			return true
		}
	}
	return false
}

func windowDuration(w recurrence.TimeWindow, item WorkItem) int {
	if !w.HasEnd {
		return itemDuration(item)
	}
	d := w.EndMinutes() - w.StartMinutes()
	if d < minSlotMinutes {
		return minSlotMinutes
	}
	return d
}

func itemDuration(item WorkItem) int {
	if item.EstimatedMinutes <= 0 {
		return defaultDurationMinutes
	}
	return item.EstimatedMinutes
}

// itemColor falls back to a priority-derived display color.
func itemColor(item WorkItem) string {
	if item.Color != "" {
		return item.Color
	}
	switch item.Priority {
	case 4:
		return "#e74c3c"
	case 3:
		return "#f39c12"
	case 2:
		return "#3498db"
	default:
		return "#95a5a6"
	}
}

func greedyReason(item WorkItem, a anchor) string {
	if item.Priority >= 3 {
		return fmt.Sprintf("Việc ưu tiên cao, xếp sớm vào %02d:00 vì %s", a.hour, a.reason)
	}
	return fmt.Sprintf("Xếp vào %02d:00 vì %s", a.hour, a.reason)
}

// weekday maps Go's Sunday=0 convention to this system's Sunday=1..Saturday=7.
func weekday(t time.Time) int {
	return int(t.Weekday()) + 1
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
