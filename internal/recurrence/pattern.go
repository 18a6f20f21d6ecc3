package recurrence

// Frequency tells how often a pattern repeats.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// TimeWindow is a clock-time interval within a day. When HasEnd is false the
// window is a point in time and the duration comes from the matched task.
type TimeWindow struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
	HasEnd      bool
}

// StartMinutes returns the start as minutes since midnight.
func (w TimeWindow) StartMinutes() int {
	return w.StartHour*60 + w.StartMinute
}

// EndMinutes returns the end as minutes since midnight; 0 when HasEnd is false.
func (w TimeWindow) EndMinutes() int {
	if !w.HasEnd {
		return 0
	}
	return w.EndHour*60 + w.EndMinute
}

// Pattern is one structured recurrence rule extracted from an instruction.
// DaysOfWeek uses Sunday=1..Saturday=7 and is sorted ascending; both
// DaysOfWeek and TimeWindows are always non-empty on a constructed Pattern.
type Pattern struct {
	Frequency   Frequency
	DaysOfWeek  []int
	TimeWindows []TimeWindow
	SourceText  string
}

// ContainsDay reports whether day (Sunday=1..Saturday=7) is in the pattern.
func (p Pattern) ContainsDay(day int) bool {
	for _, d := range p.DaysOfWeek {
		if d == day {
			return true
		}
	}
	return false
}
