// Package validate enforces temporal and structural invariants on attendance records.
// It classifies and annotates; records are never modified.
package validate

import (
	"time"

	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
)

// Rule inspects one record and returns every problem it finds.
type Rule func(rec entity.AttendanceRecord, now time.Time) []string

// DefaultRules run in this order; all of them run for every record.
var DefaultRules = []Rule{
	DayRule,
	DateRule,
	StartTimeRule,
	EndTimeRule,
	DurationRule,
}

// Validator applies rules to records. The clock supplies the year and month for
// records that carry only a day.
type Validator struct {
	now   func() time.Time
	rules []Rule
}

type Option func(*Validator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithRules replaces the rule set.
func WithRules(rules ...Rule) Option {
	return func(v *Validator) {
		v.rules = rules
	}
}

func New(opts ...Option) *Validator {
	v := &Validator{now: time.Now, rules: DefaultRules}
	for _, o := range opts {
		o(v)
	}
	return v
}

// ValidateRecord reports whether rec is valid and lists all errors found.
func (v *Validator) ValidateRecord(rec entity.AttendanceRecord) (bool, []string) {
	now := v.now()
	errs := []string{}
	for _, rule := range v.rules {
		errs = append(errs, rule(rec, now)...)
	}
	return len(errs) == 0, errs
}

// ValidateRecords partitions records into valid and invalid, preserving input order.
// Invalid entries keep their index in recs.
func (v *Validator) ValidateRecords(recs []entity.AttendanceRecord) entity.ValidationResult {
	res := entity.ValidationResult{
		ValidRecords:   []entity.AttendanceRecord{},
		InvalidRecords: []entity.InvalidRecord{},
	}
	for i, rec := range recs {
		ok, errs := v.ValidateRecord(rec)
		if ok {
			res.ValidRecords = append(res.ValidRecords, rec)
			continue
		}
		res.InvalidRecords = append(res.InvalidRecords, entity.InvalidRecord{Index: i, Record: rec, Errors: errs})
	}
	res.Summary = entity.ValidationSummary{
		Total:   len(recs),
		Valid:   len(res.ValidRecords),
		Invalid: len(res.InvalidRecords),
	}
	return res
}

var std = New()

// ValidateRecord validates rec against the current date.
func ValidateRecord(rec entity.AttendanceRecord) (bool, []string) {
	return std.ValidateRecord(rec)
}

// ValidateRecords validates recs against the current date.
func ValidateRecords(recs []entity.AttendanceRecord) entity.ValidationResult {
	return std.ValidateRecords(recs)
}
