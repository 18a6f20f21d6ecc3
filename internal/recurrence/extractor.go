package recurrence

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Instruction text mixes Vietnamese and English freely ("6h sáng hằng ngày
// từ T2 đến T6"), so every keyword table below carries both languages, plus
// the common unaccented spellings.

var dailyRe = regexp.MustCompile(
	`mỗi ngày|moi ngay|hằng ngày|hàng ngày|hang ngay|every ?day|daily|` +
		`trong tuần|trong tuan|các ngày|cac ngay|ngày nào cũng|` +
		`(?:(?:từ|tu)\s+)?(?:thứ\s*[2-7]|t[2-7])\s*(?:đến|den|-|–)\s*(?:thứ\s*[2-7]|t[2-7])\b`)

var weeklyRe = regexp.MustCompile(
	`mỗi tuần|moi tuan|hằng tuần|hàng tuần|hang tuan|every ?week|weekly|lặp lại|lap lai`)

// timeRe captures hour, optional :minute, a unit marker, and an optional
// "đến"/"-" range with a second hour[:minute]. Longer unit alternatives come
// first so "giờ" is not eaten as a bare "g".
var timeRe = regexp.MustCompile(
	`(\d{1,2})(?::(\d{1,2}))?\s*(?:giờ|gio|sáng|trưa|chiều|tối|am|pm|h|g)` +
		`(?:\s*(?:đến|den|-|–)\s*(\d{1,2})(?::(\d{1,2}))?\s*(?:giờ|gio|am|pm|h|g)?)?`)

// afternoonRe marks context that turns an ambiguous low hour into PM.
var afternoonRe = regexp.MustCompile(
	`chiều|chieu|tối|toi|đêm|dem|pm|afternoon|evening|night|tonight`)

// dayPatterns maps day-of-week tokens to the Sunday=1..Saturday=7 numbering.
// Order is fixed; every entry is tested against the whole text. The English
// "thu" abbreviation is deliberately absent: it collides with the unaccented
// Vietnamese "thứ".
var dayPatterns = []struct {
	re  *regexp.Regexp
	day int
}{
	{regexp.MustCompile(`chủ nhật|chu nhat|\bcn\b|sunday|\bsun\b`), 1},
	{regexp.MustCompile(`thứ\s*2|thứ hai|thu\s*2|thu hai|\bt2\b|monday|\bmon\b`), 2},
	{regexp.MustCompile(`thứ\s*3|thứ ba|thu\s*3|thu ba|\bt3\b|tuesday|\btue\b`), 3},
	{regexp.MustCompile(`thứ\s*4|thứ tư|thu\s*4|thu tu\b|\bt4\b|wednesday|\bwed\b`), 4},
	{regexp.MustCompile(`thứ\s*5|thứ năm|thu\s*5|thu nam|\bt5\b|thursday`), 5},
	{regexp.MustCompile(`thứ\s*6|thứ sáu|thu\s*6|thu sau|\bt6\b|friday|\bfri\b`), 6},
	{regexp.MustCompile(`thứ\s*7|thứ bảy|thu\s*7|thu bay|\bt7\b|saturday|\bsat\b`), 7},
}

const (
	contextBefore = 30
	contextAfter  = 50
)

// ExtractPatterns parses a free-form scheduling instruction into recurrence
// patterns. It is a pure function: it never fails, and empty or unparseable
// input yields an empty slice. The current grammar produces at most one
// pattern per instruction.
func ExtractPatterns(text string) []Pattern {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	lower := strings.ToLower(trimmed)

	isDaily := dailyRe.MatchString(lower)
	isWeekly := weeklyRe.MatchString(lower)

	windows := extractTimeWindows(lower)
	matched := extractDays(lower)
	days := resolveDays(isDaily, isWeekly, matched)

	if len(windows) == 0 || len(days) == 0 {
		return nil
	}

	freq := FrequencyWeekly
	if isDaily {
		freq = FrequencyDaily
	}

	return []Pattern{{
		Frequency:   freq,
		DaysOfWeek:  days,
		TimeWindows: windows,
		SourceText:  trimmed,
	}}
}

func extractTimeWindows(lower string) []TimeWindow {
	var windows []TimeWindow
	seen := make(map[string]bool)

	for _, m := range timeRe.FindAllStringSubmatchIndex(lower, -1) {
		w, ok := parseWindow(lower, m)
		if !ok {
			continue
		}

		// A clock digit alone cannot tell 6:00 from 18:00; nearby words can.
		if afternoonContext(lower, m[0], m[1]) {
			if w.StartHour < 12 {
				w.StartHour += 12
			}
			if w.HasEnd && w.EndHour < 12 {
				w.EndHour += 12
			}
		}

		key := windowKey(w)
		if seen[key] {
			continue
		}
		seen[key] = true
		windows = append(windows, w)
	}
	return windows
}

func parseWindow(lower string, m []int) (TimeWindow, bool) {
	var w TimeWindow
	w.StartHour = submatchInt(lower, m, 1)
	w.StartMinute = submatchInt(lower, m, 2)
	if w.StartHour < 0 || w.StartHour > 23 || w.StartMinute < 0 || w.StartMinute > 59 {
		return w, false
	}
	if m[6] >= 0 {
		w.HasEnd = true
		w.EndHour = submatchInt(lower, m, 3)
		w.EndMinute = submatchInt(lower, m, 4)
		if w.EndHour < 0 || w.EndHour > 23 || w.EndMinute < 0 || w.EndMinute > 59 {
			return w, false
		}
	}
	return w, true
}

// submatchInt reads capture group n as an int; an absent group is 0.
func submatchInt(s string, m []int, n int) int {
	lo, hi := m[2*n], m[2*n+1]
	if lo < 0 {
		return 0
	}
	v, err := strconv.Atoi(s[lo:hi])
	if err != nil {
		return -1
	}
	return v
}

func afternoonContext(lower string, start, end int) bool {
	lo := start - contextBefore
	if lo < 0 {
		lo = 0
	}
	hi := end + contextAfter
	if hi > len(lower) {
		hi = len(lower)
	}
	return afternoonRe.MatchString(lower[lo:hi])
}

func windowKey(w TimeWindow) string {
	if !w.HasEnd {
		return fmt.Sprintf("%02d:%02d-end", w.StartHour, w.StartMinute)
	}
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.StartHour, w.StartMinute, w.EndHour, w.EndMinute)
}

func extractDays(lower string) []int {
	var days []int
	for _, entry := range dayPatterns {
		if entry.re.MatchString(lower) {
			days = append(days, entry.day)
		}
	}
	return days
}

func allDays() []int {
	return []int{1, 2, 3, 4, 5, 6, 7}
}

// resolveDays applies the day-set priority rules: an "every day" phrase with
// no explicit day tokens means all seven days; explicit tokens win when
// present; a weekly phrase with no recognizable day also falls back to all
// seven rather than dropping the instruction.
func resolveDays(isDaily, isWeekly bool, matched []int) []int {
	switch {
	case isDaily && len(matched) == 0:
		return allDays()
	case isDaily:
		return sortedDays(matched)
	default:
		if len(matched) == 0 && isWeekly {
			return allDays()
		}
		return sortedDays(matched)
	}
}

func sortedDays(days []int) []int {
	out := make([]int, len(days))
	copy(out, days)
	sort.Ints(out)
	return out
}
