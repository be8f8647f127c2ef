package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
)

func TestTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"9.30", "09:30", true},
		{"9:30", "09:30", true},
		{"18.45", "18:45", true},
		{"9時30分", "09:30", true},
		{"0930", "09:30", true},
		{"出勤 18:45", "18:45", true},
		{"９：３０", "09:30", true},
		{"12.345", "12:34", true},
		{"25.00", "", false},
		{"23.60", "", false},
		{"2530", "", false},
		{"abc", "", false},
		{"   ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := Time(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTimeRulePrecedence(t *testing.T) {
	// dot form wins over colon form regardless of position
	got, ok := Time("9:30 8.15")
	require.True(t, ok)
	assert.Equal(t, "08:15", got)

	// separator form wins over bare digits
	got, ok = Time("1745 9.30")
	require.True(t, ok)
	assert.Equal(t, "09:30", got)

	// out-of-range dot match falls through to the colon rule
	got, ok = Time("24.00 18:30")
	require.True(t, ok)
	assert.Equal(t, "18:30", got)
}

func TestTimePtr(t *testing.T) {
	assert.Nil(t, TimePtr("nope"))
	require.NotNil(t, TimePtr("7:05"))
	assert.Equal(t, "07:05", *TimePtr("7:05"))
}

func TestDate(t *testing.T) {
	now := time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024/01/05", "2024-01-05", true},
		{"2024-1-5", "2024-01-05", true},
		{"1/5/2024", "2024-01-05", true},
		{"9/30", "2026-09-30", true},
		{"2025生 9/30", "2025-09-30", true},
		{"2024年1月5日", "2024-01-05", true},
		{"２０２４／０１／０５", "2024-01-05", true},
		{"hello", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := Date(tc.in, now)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWorkHours(t *testing.T) {
	h, ok := WorkHours("09:00", "18:00", "01:00")
	require.True(t, ok)
	assert.Equal(t, 8.0, h)

	h, ok = WorkHours("22:00", "06:00", "00:00")
	require.True(t, ok)
	assert.Equal(t, 8.0, h)

	h, ok = WorkHours("08:00", "23:30", "00:00")
	require.True(t, ok)
	assert.Equal(t, 15.5, h)

	h, ok = WorkHours("09:00", "09:20", "00:00")
	require.True(t, ok)
	assert.Equal(t, 0.33, h)

	_, ok = WorkHours("9h", "18:00", "00:00")
	assert.False(t, ok)
}

func TestElapsedMinutesCrossesMidnight(t *testing.T) {
	m, ok := ElapsedMinutes("23:00", "01:00")
	require.True(t, ok)
	assert.Equal(t, 120.0, m)
}

func TestBuildDate(t *testing.T) {
	now := time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC)

	_, ok := BuildDate(entity.AttendanceRecord{}, now)
	assert.False(t, ok)

	got, ok := BuildDate(entity.AttendanceRecord{Day: entity.Ptr(5)}, now)
	require.True(t, ok)
	assert.Equal(t, "2026-10-05", got)

	got, _ = BuildDate(entity.AttendanceRecord{Day: entity.Ptr(5), Year: entity.Ptr(2024), Month: entity.Ptr(2)}, now)
	assert.Equal(t, "2024-02-05", got)

	got, _ = BuildDate(entity.AttendanceRecord{Day: entity.Ptr(5), Date: entity.Ptr("2023-03-03")}, now)
	assert.Equal(t, "2023-03-03", got)
}
