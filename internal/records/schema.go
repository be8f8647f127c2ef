package records

import "github.com/joseph-ayodele/attendance-tracker/internal/entity"

// BuildRecordsJSONSchema returns the JSON-Schema (draft 2020-12 subset) of a records
// file as a generic map. It checks shape only; value rules belong to the validator.
func BuildRecordsJSONSchema() map[string]any {
	weekdays := make([]any, 0, len(entity.Weekdays)+1)
	for _, w := range entity.Weekdays {
		weekdays = append(weekdays, string(w))
	}
	weekdays = append(weekdays, nil)

	props := map[string]any{
		"day":             nullable("integer"),
		"weekday":         map[string]any{"enum": weekdays},
		"start_time":      nullable("string"),
		"end_time":        nullable("string"),
		"status":          map[string]any{"enum": []any{string(entity.StatusPresent), string(entity.StatusPartial), string(entity.StatusOff)}},
		"missing_weekday": map[string]any{"type": "boolean"},
		"missing_day":     map[string]any{"type": "boolean"},
		"date":            map[string]any{"type": []any{"string", "null"}, "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"year":            map[string]any{"type": []any{"integer", "null"}, "minimum": 1900, "maximum": 9999},
		"month":           map[string]any{"type": []any{"integer", "null"}, "minimum": 1, "maximum": 12},
		"break_time":      nullable("string"),
	}

	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           props,
			"required":             []any{"day", "status"},
		},
	}
}

func nullable(typ string) map[string]any {
	return map[string]any{"type": []any{typ, "null"}}
}
