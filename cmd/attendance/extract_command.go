package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/attendance-tracker/internal/app"
	"github.com/joseph-ayodele/attendance-tracker/internal/records"
)

func newExtractCommand(cc *commandContext) *cobra.Command {
	var out string
	var persist bool
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Reconstruct per-day records from a PDF, image or spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			var store *app.Store
			if persist {
				s, err := app.OpenStore(ctx, cc.config.Database, cc.logger)
				if err != nil {
					return err
				}
				defer s.Close()
				store = s
			}
			p := app.NewProcessor(cc.config, cc.logger, store, nil)

			run := p.ExtractFile
			if persist {
				run = p.ProcessFile
			}
			res, err := run(ctx, args[0])
			if err != nil {
				return err
			}

			if out != "" {
				if err := records.Save(out, res.Records); err != nil {
					return err
				}
				cc.logger.Info("extract.saved", "path", out, "records", len(res.Records))
			}
			if useJSON(cmd) {
				return writeJSON(cmd, res)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, renderTable(recordHeaders, recordRows(res.Records, errorsByIndex(res.Validation)), recordAligns))
			fmt.Fprintf(w, "%s: %d page(s) via %s; %s\n", args[0], res.Pages, res.Method, summaryLine(res.Validation))
			if res.JobID != uuid.Nil {
				fmt.Fprintf(w, "job %s\n", res.JobID)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the records to this JSON file for editing")
	cmd.Flags().BoolVar(&persist, "persist", false, "Record the run as an import job in the database")
	cmd.Flags().Bool("json", false, "Print JSON even on a terminal")
	return cmd
}
