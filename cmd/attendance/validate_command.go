package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/attendance-tracker/internal/app"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
	"github.com/joseph-ayodele/attendance-tracker/internal/validate"
)

var errNoValidRecords = errors.New("no valid records")

type validateOutput struct {
	Validation entity.ValidationResult `json:"validation"`
	Missing    []entity.MissingData    `json:"missing"`
}

func newValidateCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <records.json|file>",
		Short: "Check records and report every problem per record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			recs, err := loadInput(ctx, cc, args[0])
			if err != nil {
				return err
			}
			out := validateOutput{
				Validation: app.Validator(cc.config).ValidateRecords(recs),
				Missing:    validate.CheckMissing(recs),
			}
			if err := printValidation(cmd, recs, out); err != nil {
				return err
			}
			if out.Validation.Summary.Valid == 0 {
				return common.NewAppError("VALIDATION_FAILED", args[0], errors.Join(errNoValidRecords, common.ErrValidation))
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON even on a terminal")
	return cmd
}

func printValidation(cmd *cobra.Command, recs []entity.AttendanceRecord, out validateOutput) error {
	if useJSON(cmd) {
		return writeJSON(cmd, out)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, renderTable(recordHeaders, recordRows(recs, errorsByIndex(out.Validation)), recordAligns))
	fmt.Fprintln(w, summaryLine(out.Validation))
	for _, m := range out.Missing {
		fmt.Fprintf(w, "record %d missing %v\n", m.Index, m.MissingFields)
	}
	return nil
}
