package normalize

import (
	"fmt"
	"math"
	"time"

	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
)

// ClockLayout is the canonical HH:MM layout.
const ClockLayout = "15:04"

// ElapsedMinutes returns end-start in minutes; an end earlier than start crosses midnight.
func ElapsedMinutes(start, end string) (float64, bool) {
	s, err := time.Parse(ClockLayout, start)
	if err != nil {
		return 0, false
	}
	e, err := time.Parse(ClockLayout, end)
	if err != nil {
		return 0, false
	}
	if e.Before(s) {
		e = e.Add(24 * time.Hour)
	}
	return e.Sub(s).Minutes(), true
}

// WorkHours returns the worked hours between start and end minus brk, rounded to 2 decimals.
func WorkHours(start, end, brk string) (float64, bool) {
	minutes, ok := ElapsedMinutes(start, end)
	if !ok {
		return 0, false
	}
	b, err := time.Parse(ClockLayout, brk)
	if err != nil {
		return 0, false
	}
	breakMinutes := float64(b.Hour()*60 + b.Minute())
	hours := (minutes - breakMinutes) / 60
	return math.Round(hours*100) / 100, true
}

// BuildDate composes YYYY-MM-DD for a record. An explicit Date wins; otherwise year and
// month default to now's. The result is not calendar-checked.
func BuildDate(rec entity.AttendanceRecord, now time.Time) (string, bool) {
	if rec.Date != nil && *rec.Date != "" {
		return *rec.Date, true
	}
	if rec.Day == nil {
		return "", false
	}
	year, month := now.Year(), int(now.Month())
	if rec.Year != nil {
		year = *rec.Year
	}
	if rec.Month != nil {
		month = *rec.Month
	}
	return fmt.Sprintf("%d-%02d-%02d", year, month, *rec.Day), true
}
