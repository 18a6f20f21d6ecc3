package recurrence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractDailyAllDays(t *testing.T) {
	patterns := ExtractPatterns("tập gym 6h sáng mỗi ngày")
	require.Len(t, patterns, 1)

	p := patterns[0]
	require.Equal(t, FrequencyDaily, p.Frequency)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, p.DaysOfWeek)
	require.Len(t, p.TimeWindows, 1)
	require.Equal(t, 6, p.TimeWindows[0].StartHour)
	require.Equal(t, 0, p.TimeWindows[0].StartMinute)
	require.False(t, p.TimeWindows[0].HasEnd)
}

func TestExtractExplicitDaysWithRange(t *testing.T) {
	patterns := ExtractPatterns("học từ 18h đến 21h vào T2 và T7")
	require.Len(t, patterns, 1)

	p := patterns[0]
	require.Equal(t, FrequencyWeekly, p.Frequency)
	require.Equal(t, []int{2, 7}, p.DaysOfWeek)
	require.Len(t, p.TimeWindows, 1)

	w := p.TimeWindows[0]
	require.Equal(t, 18, w.StartHour)
	require.True(t, w.HasEnd)
	require.Equal(t, 21, w.EndHour)
	require.Equal(t, 180, w.EndMinutes()-w.StartMinutes())
}

func TestExtractNoDayNoFrequency(t *testing.T) {
	// Time alone, without a day token or a daily/weekly phrase, is not a
	// recurring commitment.
	require.Empty(t, ExtractPatterns("làm báo cáo lúc 10h"))
}

func TestExtractAfternoonInference(t *testing.T) {
	patterns := ExtractPatterns("chạy bộ 6h chiều hằng ngày")
	require.Len(t, patterns, 1)
	require.Equal(t, 18, patterns[0].TimeWindows[0].StartHour)
}

func TestExtractAfternoonInferenceUpgradesEndHour(t *testing.T) {
	patterns := ExtractPatterns("đọc sách từ 2h đến 4h chiều mỗi ngày")
	require.Len(t, patterns, 1)

	w := patterns[0].TimeWindows[0]
	require.Equal(t, 14, w.StartHour)
	require.Equal(t, 16, w.EndHour)
}

func TestExtractNeverDowngradesExplicitHour(t *testing.T) {
	patterns := ExtractPatterns("thiền 18h tối hằng ngày")
	require.Len(t, patterns, 1)
	require.Equal(t, 18, patterns[0].TimeWindows[0].StartHour)
}

func TestExtractDeduplicatesRepeatedTimes(t *testing.T) {
	patterns := ExtractPatterns("uống thuốc 8h sáng mỗi ngày, nhớ là 8h sáng")
	require.Len(t, patterns, 1)
	require.Len(t, patterns[0].TimeWindows, 1)
}

func TestExtractWeekdayRangeIsDaily(t *testing.T) {
	patterns := ExtractPatterns("họp 9h sáng từ T2 đến T6")
	require.Len(t, patterns, 1)
	require.Equal(t, FrequencyDaily, patterns[0].Frequency)
	// Tokens are matched individually; the range itself only drives the
	// frequency classification.
	require.Equal(t, []int{2, 6}, patterns[0].DaysOfWeek)
}

func TestExtractWeeklyWithoutDayFallsBackToAllDays(t *testing.T) {
	patterns := ExtractPatterns("tưới cây 7h sáng mỗi tuần")
	require.Len(t, patterns, 1)
	require.Equal(t, FrequencyWeekly, patterns[0].Frequency)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, patterns[0].DaysOfWeek)
}

func TestExtractEnglishInput(t *testing.T) {
	patterns := ExtractPatterns("gym at 7am every day")
	require.Len(t, patterns, 1)
	require.Equal(t, FrequencyDaily, patterns[0].Frequency)
	require.Equal(t, 7, patterns[0].TimeWindows[0].StartHour)
}

func TestExtractMinutes(t *testing.T) {
	patterns := ExtractPatterns("học tiếng Anh 19:30h vào thứ 3 và thứ 5")
	require.Len(t, patterns, 1)

	w := patterns[0].TimeWindows[0]
	require.Equal(t, 19, w.StartHour)
	require.Equal(t, 30, w.StartMinute)
	require.Equal(t, []int{3, 5}, patterns[0].DaysOfWeek)
}

func TestExtractEmptyInput(t *testing.T) {
	require.Empty(t, ExtractPatterns(""))
	require.Empty(t, ExtractPatterns("   "))
	require.Empty(t, ExtractPatterns("dọn nhà cuối kỳ"))
}

func TestExtractDeterministic(t *testing.T) {
	const text = "tập gym 6h sáng mỗi ngày từ T2 đến T6"
	first := ExtractPatterns(text)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, ExtractPatterns(text))
	}
}
