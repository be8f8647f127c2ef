package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
)

func fixedClock() time.Time {
	return time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
}

func rec(day int, start, end string) entity.AttendanceRecord {
	r := entity.AttendanceRecord{Day: entity.Ptr(day)}
	if start != "" {
		r.StartTime = entity.Ptr(start)
	}
	if end != "" {
		r.EndTime = entity.Ptr(end)
	}
	r.Status = entity.DeriveStatus(false, r.StartTime, r.EndTime)
	return r
}

func TestValidateRecordValid(t *testing.T) {
	v := New(WithClock(fixedClock))

	ok, errs := v.ValidateRecord(rec(3, "09:00", "18:00"))
	assert.True(t, ok)
	assert.Empty(t, errs)

	// times are optional
	ok, errs = v.ValidateRecord(rec(4, "", ""))
	assert.True(t, ok)
	assert.Empty(t, errs)

	ok, _ = v.ValidateRecord(rec(5, "09:00", ""))
	assert.True(t, ok, "a partial record is internally consistent")
}

func TestValidateRecordOvernight(t *testing.T) {
	v := New(WithClock(fixedClock))
	ok, errs := v.ValidateRecord(rec(3, "23:00", "01:00"))
	assert.True(t, ok)
	assert.Empty(t, errs)
}

func TestValidateRecordLongShift(t *testing.T) {
	v := New(WithClock(fixedClock))

	ok, errs := v.ValidateRecord(rec(3, "07:00", "23:30"))
	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "abnormally long shift: 16.5 hours", errs[0])
	for _, e := range errs {
		assert.NotContains(t, e, "exceeds 24 hours")
	}

	// 15.5 hours stays under the 16 hour threshold
	ok, errs = v.ValidateRecord(rec(3, "08:00", "23:30"))
	assert.True(t, ok)
	assert.Empty(t, errs)
}

func TestValidateRecordReportsEveryProblem(t *testing.T) {
	v := New(WithClock(fixedClock))

	// February 2026 has 28 days: both the calendar check and the bad time fire
	r := rec(30, "9h", "18:00")
	ok, errs := v.ValidateRecord(r)
	assert.False(t, ok)
	assert.Equal(t, []string{
		"invalid date: 2026-02-30",
		"invalid start time format: 9h",
	}, errs)

	r = rec(40, "25:00", "18:61")
	_, errs = v.ValidateRecord(r)
	assert.Equal(t, []string{
		"day out of range: 40",
		"invalid date: 2026-02-40",
		"invalid start time format: 25:00",
		"invalid end time format: 18:61",
	}, errs)
}

func TestValidateRecordMissingDay(t *testing.T) {
	v := New(WithClock(fixedClock))
	ok, errs := v.ValidateRecord(entity.AttendanceRecord{Status: entity.StatusOff})
	assert.False(t, ok)
	assert.Equal(t, []string{"day is not set"}, errs)
}

func TestValidateRecordUsesExplicitYearMonth(t *testing.T) {
	v := New(WithClock(fixedClock))
	r := rec(29, "09:00", "18:00")
	r.Year = entity.Ptr(2024)
	r.Month = entity.Ptr(2)
	ok, _ := v.ValidateRecord(r)
	assert.True(t, ok, "2024 is a leap year")

	r.Year = entity.Ptr(2025)
	ok, errs := v.ValidateRecord(r)
	assert.False(t, ok)
	assert.Equal(t, []string{"invalid date: 2025-02-29"}, errs)
}

func TestValidateRecordsPartitions(t *testing.T) {
	v := New(WithClock(fixedClock))
	in := []entity.AttendanceRecord{
		rec(1, "09:00", "18:00"),
		rec(2, "bad", ""),
		rec(3, "", ""),
		rec(31, "09:00", "18:00"),
		rec(5, "06:00", "23:00"),
	}
	res := v.ValidateRecords(in)

	assert.Equal(t, entity.ValidationSummary{Total: 5, Valid: 2, Invalid: 3}, res.Summary)
	assert.Equal(t, res.Summary.Total, res.Summary.Valid+res.Summary.Invalid)
	assert.Equal(t, []entity.AttendanceRecord{in[0], in[2]}, res.ValidRecords)

	require.Len(t, res.InvalidRecords, 3)
	assert.Equal(t, []int{1, 3, 4}, []int{res.InvalidRecords[0].Index, res.InvalidRecords[1].Index, res.InvalidRecords[2].Index})
	assert.Equal(t, in[3], res.InvalidRecords[1].Record)
	assert.Equal(t, []string{"invalid date: 2026-02-31"}, res.InvalidRecords[1].Errors)
}

func TestValidateRecordsDoesNotMutate(t *testing.T) {
	in := []entity.AttendanceRecord{rec(2, "bad", "")}
	before := *in[0].StartTime
	_ = New(WithClock(fixedClock)).ValidateRecords(in)
	assert.Equal(t, before, *in[0].StartTime)
	assert.Equal(t, entity.StatusPartial, in[0].Status)
}

func TestValidateRecordsEmpty(t *testing.T) {
	res := ValidateRecords(nil)
	assert.NotNil(t, res.ValidRecords)
	assert.NotNil(t, res.InvalidRecords)
	assert.Equal(t, entity.ValidationSummary{}, res.Summary)
}

func TestWithRules(t *testing.T) {
	v := New(WithClock(fixedClock), WithRules(DayRule))
	ok, errs := v.ValidateRecord(rec(30, "bad", ""))
	assert.True(t, ok, "only the day rule runs")
	assert.Empty(t, errs)
}

func TestCheckMissing(t *testing.T) {
	in := []entity.AttendanceRecord{
		rec(1, "09:00", "18:00"),
		rec(2, "09:00", ""),
		rec(3, "", ""),
		{Status: entity.StatusPresent},
	}
	got := CheckMissing(in)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, []string{"end_time"}, got[0].MissingFields)
	assert.Equal(t, 3, got[1].Index)
	assert.Equal(t, []string{"day", "start_time", "end_time"}, got[1].MissingFields)
}
