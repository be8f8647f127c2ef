package entity

import "time"

// Status is the derived attendance state of a day.
type Status string

const (
	StatusPresent Status = "present"
	StatusPartial Status = "partial"
	StatusOff     Status = "off"
)

// Weekday is one glyph of the Japanese weekday alphabet.
type Weekday string

const (
	Monday    Weekday = "月"
	Tuesday   Weekday = "火"
	Wednesday Weekday = "水"
	Thursday  Weekday = "木"
	Friday    Weekday = "金"
	Saturday  Weekday = "土"
	Sunday    Weekday = "日"
)

// Weekdays lists the alphabet in calendar order starting Monday.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// WeekdayOf maps a calendar weekday to its glyph.
func WeekdayOf(d time.Weekday) Weekday {
	// time.Weekday counts from Sunday
	return Weekdays[(int(d)+6)%7]
}

// IsWeekday reports whether r is a glyph of the weekday alphabet.
func IsWeekday(r rune) bool {
	for _, w := range Weekdays {
		if string(r) == string(w) {
			return true
		}
	}
	return false
}

// AttendanceRecord represents one day of attendance for data transfer between layers.
// Absent values are nil pointers and serialize as JSON null.
type AttendanceRecord struct {
	Day            *int     `json:"day"`
	Weekday        *Weekday `json:"weekday"`
	StartTime      *string  `json:"start_time"`
	EndTime        *string  `json:"end_time"`
	Status         Status   `json:"status"`
	MissingWeekday bool     `json:"missing_weekday"`
	MissingDay     bool     `json:"missing_day"`

	// Set by spreadsheet import or by the caller before form replay.
	Date      *string `json:"date,omitempty"`
	Year      *int    `json:"year,omitempty"`
	Month     *int    `json:"month,omitempty"`
	BreakTime *string `json:"break_time,omitempty"`
}

// DeriveStatus computes the status of a day from the absence flag and its two times.
func DeriveStatus(absent bool, start, end *string) Status {
	switch {
	case absent || (start == nil && end == nil):
		return StatusOff
	case start != nil && end != nil:
		return StatusPresent
	default:
		return StatusPartial
	}
}

// DayValue returns the day or 0 when absent.
func (r AttendanceRecord) DayValue() int {
	if r.Day == nil {
		return 0
	}
	return *r.Day
}

// InvalidRecord wraps a record that failed validation with its index in the input.
type InvalidRecord struct {
	Index  int              `json:"index"`
	Record AttendanceRecord `json:"record"`
	Errors []string         `json:"errors"`
}

// ValidationSummary counts; Total == Valid + Invalid.
type ValidationSummary struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// ValidationResult partitions a record batch.
type ValidationResult struct {
	ValidRecords   []AttendanceRecord `json:"valid_records"`
	InvalidRecords []InvalidRecord    `json:"invalid_records"`
	Summary        ValidationSummary  `json:"summary"`
}

// MissingData lists the recommended fields a record lacks.
type MissingData struct {
	Index         int              `json:"index"`
	Record        AttendanceRecord `json:"record"`
	MissingFields []string         `json:"missing_fields"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
