// Package records reads and writes the records JSON files people edit between
// extraction and submission.
package records

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
	"github.com/joseph-ayodele/attendance-tracker/internal/normalize"
)

// Decode sanitizes hand edits, checks the document against the records schema and
// decodes it. The returned notes list the fields Sanitize rewrote.
func Decode(data []byte) ([]entity.AttendanceRecord, []string, error) {
	clean, notes, err := Sanitize(data)
	if err != nil {
		return nil, nil, common.NewAppError("RECORDS_JSON", "malformed records file", errors.Join(common.ErrInvalidInput, err))
	}
	schema, err := recordsSchema()
	if err != nil {
		return nil, nil, err
	}
	if err := validateWith(schema, clean); err != nil {
		return nil, notes, common.NewAppError("RECORDS_SCHEMA", err.Error(), common.ErrValidation)
	}
	var recs []entity.AttendanceRecord
	if err := json.Unmarshal(clean, &recs); err != nil {
		return nil, notes, common.NewAppError("RECORDS_JSON", "decode records", errors.Join(common.ErrInvalidInput, err))
	}
	if recs == nil {
		recs = []entity.AttendanceRecord{}
	}
	return recs, notes, nil
}

// Read decodes records from r.
func Read(r io.Reader) ([]entity.AttendanceRecord, []string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return Decode(data)
}

// Load decodes the records file at path.
func Load(path string) ([]entity.AttendanceRecord, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, common.WrapError(err, "read records")
	}
	return Decode(data)
}

// Write encodes recs as indented JSON. Absent values are written as null.
func Write(w io.Writer, recs []entity.AttendanceRecord) error {
	if recs == nil {
		recs = []entity.AttendanceRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(recs)
}

// Save writes recs to path.
func Save(path string, recs []entity.AttendanceRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return common.WrapError(err, "create records file")
	}
	if err := Write(f, recs); err != nil {
		_ = f.Close()
		return common.WrapError(err, "write records")
	}
	return f.Close()
}

// Sanitize normalizes what people type when editing a records file: blank strings
// become null, dotted or fullwidth times become HH:MM, and a missing status is
// derived from the times. Values that cannot be normalized are left for the
// validator to report.
func Sanitize(doc []byte) ([]byte, []string, error) {
	var items []map[string]any
	if err := json.Unmarshal(doc, &items); err != nil {
		return nil, nil, err
	}

	var changed []string
	for i, m := range items {
		for _, k := range []string{"start_time", "end_time", "break_time", "date"} {
			s, ok := m[k].(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			switch {
			case s == "":
				m[k] = nil
				changed = append(changed, field(i, k))
			case k == "date":
				m[k] = s
			default:
				if t, ok := normalize.Time(s); ok && t != s {
					m[k] = t
					changed = append(changed, field(i, k))
				}
			}
		}
		if _, ok := m["status"]; !ok {
			start, _ := m["start_time"].(string)
			end, _ := m["end_time"].(string)
			m["status"] = string(entity.DeriveStatus(false, optional(start), optional(end)))
			changed = append(changed, field(i, "status"))
		}
	}

	out, err := json.Marshal(items)
	if err != nil {
		return nil, nil, err
	}
	return out, changed, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func field(i int, k string) string {
	return "[" + strconv.Itoa(i) + "]." + k
}
