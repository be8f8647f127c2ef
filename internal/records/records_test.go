package records

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
)

func TestWriteEmitsNulls(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []entity.AttendanceRecord{{
		Day:            entity.Ptr(2),
		Status:         entity.StatusOff,
		MissingWeekday: true,
		MissingDay:     true,
	}}))
	out := buf.String()
	assert.Contains(t, out, `"weekday": null`)
	assert.Contains(t, out, `"start_time": null`)
	assert.NotContains(t, out, `"date"`, "optional import fields are omitted")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	in := []entity.AttendanceRecord{
		{Day: entity.Ptr(25), Weekday: entity.Ptr(entity.Thursday), StartTime: entity.Ptr("09:30"), EndTime: entity.Ptr("17:30"), Status: entity.StatusPresent},
		{Day: entity.Ptr(26), Status: entity.StatusOff, MissingWeekday: true, MissingDay: true},
	}
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, Save(path, in))

	out, notes, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.Equal(t, in, out)
}

func TestDecodeSanitizesEdits(t *testing.T) {
	doc := `[
	  {"day": 3, "weekday": "水", "start_time": " 9.00 ", "end_time": "１８：００", "missing_weekday": false, "missing_day": false},
	  {"day": 4, "weekday": null, "start_time": "", "end_time": null, "status": "off", "missing_weekday": true, "missing_day": false}
	]`
	recs, notes, err := Decode([]byte(doc))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "09:00", *recs[0].StartTime)
	assert.Equal(t, "18:00", *recs[0].EndTime)
	assert.Equal(t, entity.StatusPresent, recs[0].Status, "status derived when omitted")
	assert.Nil(t, recs[1].StartTime)
	assert.ElementsMatch(t, []string{"[0].start_time", "[0].end_time", "[0].status", "[1].start_time"}, notes)
}

func TestDecodeKeepsUnparsableTimesForTheValidator(t *testing.T) {
	recs, _, err := Decode([]byte(`[{"day": 5, "start_time": "9h", "status": "partial"}]`))
	require.NoError(t, err)
	assert.Equal(t, "9h", *recs[0].StartTime)
}

func TestDecodeRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"unknown field":  `[{"day": 1, "status": "off", "overtime": 2}]`,
		"bad status":     `[{"day": 1, "status": "sick"}]`,
		"bad weekday":    `[{"day": 1, "status": "off", "weekday": "X"}]`,
		"day as string":  `[{"day": "1", "status": "off"}]`,
		"missing day":    `[{"status": "off"}]`,
		"bad date shape": `[{"day": 1, "status": "off", "date": "1/2/2024"}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	_, _, err := Decode([]byte(`{"day": 1}`))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := map[string]any{"type": "object", "required": []any{"a"}}
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"a": 1}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{}`)))
}
