package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/attendance-tracker/internal/app"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
	"github.com/joseph-ayodele/attendance-tracker/internal/records"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// useJSON is true when --json was given or stdout is not a terminal.
func useJSON(cmd *cobra.Command) bool {
	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		return f.Value.String() == "true"
	}
	return !isTerminal(cmd.OutOrStdout())
}

// loadInput returns records from an edited records.json or by extracting a document.
func loadInput(ctx context.Context, cc *commandContext, path string) ([]entity.AttendanceRecord, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		recs, notes, err := records.Load(path)
		if err != nil {
			return nil, err
		}
		for _, n := range notes {
			cc.logger.Info("records.sanitized", "field", n)
		}
		return recs, nil
	}
	res, err := app.NewProcessor(cc.config, cc.logger, nil, nil).ExtractFile(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		cc.logger.Warn("extract.warning", "warning", w)
	}
	return res.Records, nil
}

func orDash(p *string) string {
	if p == nil || *p == "" {
		return "-"
	}
	return *p
}

func dayString(r entity.AttendanceRecord) string {
	if r.Day == nil {
		return "-"
	}
	return strconv.Itoa(*r.Day)
}

func weekdayString(r entity.AttendanceRecord) string {
	if r.Weekday == nil {
		return "-"
	}
	return string(*r.Weekday)
}

func recordRows(recs []entity.AttendanceRecord, errs map[int][]string) [][]string {
	rows := make([][]string, 0, len(recs))
	for i, r := range recs {
		rows = append(rows, []string{
			strconv.Itoa(i),
			dayString(r),
			weekdayString(r),
			orDash(r.StartTime),
			orDash(r.EndTime),
			string(r.Status),
			strings.Join(errs[i], "; "),
		})
	}
	return rows
}

var recordHeaders = []string{"#", "Day", "Weekday", "Start", "End", "Status", "Errors"}
var recordAligns = []columnAlignment{alignRight, alignRight}

func errorsByIndex(res entity.ValidationResult) map[int][]string {
	out := make(map[int][]string, len(res.InvalidRecords))
	for _, inv := range res.InvalidRecords {
		out[inv.Index] = inv.Errors
	}
	return out
}

func summaryLine(res entity.ValidationResult) string {
	return fmt.Sprintf("total %d, valid %d, invalid %d", res.Summary.Total, res.Summary.Valid, res.Summary.Invalid)
}
