package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/attendance-tracker/internal/app"
	"github.com/joseph-ayodele/attendance-tracker/internal/export"
)

func newExportCommand(cc *commandContext) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <records.json|file>",
		Short: "Write records and their validation errors to an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			recs, err := loadInput(ctx, cc, args[0])
			if err != nil {
				return err
			}
			res := app.Validator(cc.config).ValidateRecords(recs)
			svc := export.NewService(nil, app.Clock(cc.config), cc.logger)
			data, err := svc.RecordsXLSX(export.RowsFromValidation(recs, res))
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			cc.logger.Info("export.xlsx.ok", "path", out, "records", len(recs), "invalid", res.Summary.Invalid)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "attendance.xlsx", "Output workbook path")
	return cmd
}
