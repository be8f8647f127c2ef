package validate

import (
	"fmt"
	"time"

	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
	"github.com/joseph-ayodele/attendance-tracker/internal/normalize"
)

const (
	maxElapsedMinutes = 24 * 60
	maxShiftHours     = 16.0
	noBreak           = "00:00"
)

// DayRule requires a day in [1,31].
func DayRule(rec entity.AttendanceRecord, _ time.Time) []string {
	if rec.Day == nil {
		return []string{"day is not set"}
	}
	if d := *rec.Day; d < 1 || d > 31 {
		return []string{fmt.Sprintf("day out of range: %d", d)}
	}
	return nil
}

// DateRule requires the composed date to exist on the calendar (no 2024-02-30).
func DateRule(rec entity.AttendanceRecord, now time.Time) []string {
	date, ok := normalize.BuildDate(rec, now)
	if !ok {
		return nil
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return []string{fmt.Sprintf("invalid date: %s", date)}
	}
	return nil
}

// StartTimeRule re-checks an already normalized start time.
func StartTimeRule(rec entity.AttendanceRecord, _ time.Time) []string {
	return clockRule("start", rec.StartTime)
}

// EndTimeRule re-checks an already normalized end time.
func EndTimeRule(rec entity.AttendanceRecord, _ time.Time) []string {
	return clockRule("end", rec.EndTime)
}

func clockRule(which string, v *string) []string {
	if !present(v) {
		return nil
	}
	if _, err := time.Parse(normalize.ClockLayout, *v); err != nil {
		return []string{fmt.Sprintf("invalid %s time format: %s", which, *v)}
	}
	return nil
}

// DurationRule checks the span between two valid times. An end earlier than the start
// crosses midnight. The raw-minute checks and the worked-hours check are independent.
func DurationRule(rec entity.AttendanceRecord, _ time.Time) []string {
	if !present(rec.StartTime) || !present(rec.EndTime) {
		return nil
	}
	minutes, ok := normalize.ElapsedMinutes(*rec.StartTime, *rec.EndTime)
	if !ok {
		// already reported by the format rules
		return nil
	}

	var errs []string
	if minutes < 0 {
		errs = append(errs, "end time is before start time")
	}
	if minutes > maxElapsedMinutes {
		errs = append(errs, fmt.Sprintf("working time exceeds 24 hours: %.1f hours", minutes/60))
	}

	if hours, ok := normalize.WorkHours(*rec.StartTime, *rec.EndTime, noBreak); ok {
		if hours < 0 {
			errs = append(errs, "end time is before start time")
		} else if hours > maxShiftHours {
			errs = append(errs, fmt.Sprintf("abnormally long shift: %.1f hours", hours))
		}
	}
	return errs
}

func present(v *string) bool {
	return v != nil && *v != ""
}
