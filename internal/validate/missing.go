package validate

import "github.com/joseph-ayodele/attendance-tracker/internal/entity"

// CheckMissing lists records lacking recommended data: a day always, and both times
// unless the day is off. These are gaps for a reviewer, not validation errors.
func CheckMissing(recs []entity.AttendanceRecord) []entity.MissingData {
	out := []entity.MissingData{}
	for i, rec := range recs {
		var fields []string
		if rec.Day == nil {
			fields = append(fields, "day")
		}
		if rec.Status != entity.StatusOff {
			if !present(rec.StartTime) {
				fields = append(fields, "start_time")
			}
			if !present(rec.EndTime) {
				fields = append(fields, "end_time")
			}
		}
		if len(fields) > 0 {
			out = append(out, entity.MissingData{Index: i, Record: rec, MissingFields: fields})
		}
	}
	return out
}
