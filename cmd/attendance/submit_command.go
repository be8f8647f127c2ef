package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/attendance-tracker/internal/app"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
	"github.com/joseph-ayodele/attendance-tracker/internal/formfill"
	"github.com/joseph-ayodele/attendance-tracker/internal/validate"
)

type submitOptions struct {
	validateOnly bool
	headless     bool
	url          string
	profile      string
	job          string
}

func newSubmitCommand(cc *commandContext) *cobra.Command {
	var opts submitOptions
	cmd := &cobra.Command{
		Use:   "submit [records.json|file]",
		Short: "Validate records and enter the valid ones into the web attendance form",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && opts.job == "" {
				return errors.New("submit needs a file or --job")
			}
			form := cc.config.Form
			if cmd.Flags().Changed("headless") {
				form.Headless = opts.headless
			}
			if opts.url != "" {
				form.BaseURL = opts.url
			}
			if opts.profile != "" {
				form.ProfileDir = opts.profile
			}
			if !opts.validateOnly {
				if err := common.NewFieldValidator().
					Field("form.contract_id", form.ContractID, common.Required).
					Field("form.login_id", form.LoginID, common.Required).
					Field("form.password", form.Password, common.Required).
					Err(); err != nil {
					return err
				}
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			var store *app.Store
			var jobID uuid.UUID
			var recs []entity.AttendanceRecord
			if opts.job != "" {
				id, err := uuid.Parse(opts.job)
				if err != nil {
					return common.NewAppError("INVALID_ARGUMENT", "--job must be a UUID", common.ErrInvalidInput)
				}
				jobID = id
				store, err = app.OpenStore(ctx, cc.config.Database, cc.logger)
				if err != nil {
					return err
				}
				defer store.Close()
				if recs, err = jobRecords(ctx, store, id); err != nil {
					return err
				}
			} else {
				var err error
				if recs, err = loadInput(ctx, cc, args[0]); err != nil {
					return err
				}
			}

			out := validateOutput{
				Validation: app.Validator(cc.config).ValidateRecords(recs),
				Missing:    validate.CheckMissing(recs),
			}
			if err := printValidation(cmd, recs, out); err != nil {
				return err
			}
			if out.Validation.Summary.Valid == 0 {
				return common.NewAppError("VALIDATION_FAILED", "nothing to submit", errors.Join(errNoValidRecords, common.ErrValidation))
			}
			if opts.validateOnly {
				return nil
			}

			driver, err := formfill.LaunchRod(ctx, form)
			if err != nil {
				return err
			}
			client := formfill.NewClient(form, driver, cc.logger,
				formfill.WithClock(app.Clock(cc.config)),
				formfill.WithValidator(app.Validator(cc.config)),
			)
			if err := client.Login(ctx); err != nil {
				cc.logger.Error("submit.login.failed", "error", err)
				// a visible browser stays open so the login can be checked by hand
				if form.Headless {
					_ = client.Close()
				}
				return err
			}
			defer client.Close()

			res, err := client.Submit(ctx, recs)
			if err != nil {
				return err
			}
			if store != nil && len(res.Failed) == 0 {
				if err := store.Jobs.MarkSubmitted(ctx, jobID); err != nil {
					return err
				}
			}
			return printSubmit(cmd, res)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.validateOnly, "validate-only", false, "Stop after validation")
	f.BoolVar(&opts.headless, "headless", true, "Run the browser without a window")
	f.StringVarP(&opts.url, "url", "u", "", "Attendance entry page URL (overrides form.base_url)")
	f.StringVar(&opts.profile, "profile", "", "Browser profile directory to reuse a logged-in session")
	f.StringVar(&opts.job, "job", "", "Submit the stored records of this import job")
	f.Bool("json", false, "Print JSON even on a terminal")
	return cmd
}

func jobRecords(ctx context.Context, store *app.Store, id uuid.UUID) ([]entity.AttendanceRecord, error) {
	if _, err := store.Jobs.Get(ctx, id); err != nil {
		return nil, err
	}
	stored, err := store.Records.ListRecords(ctx, id)
	if err != nil {
		return nil, err
	}
	recs := make([]entity.AttendanceRecord, len(stored))
	for i, s := range stored {
		recs[i] = s.Record
	}
	return recs, nil
}

func printSubmit(cmd *cobra.Command, res formfill.Result) error {
	if useJSON(cmd) {
		return writeJSON(cmd, res)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "submitted %d of %d (skipped %d)\n", len(res.Success), res.Total, res.Skipped)
	if len(res.Failed) > 0 {
		rows := make([][]string, 0, len(res.Failed))
		for _, f := range res.Failed {
			rows = append(rows, []string{f.Date, f.Reason})
		}
		fmt.Fprintln(w, renderTable([]string{"Date", "Reason"}, rows, nil))
	}
	return nil
}
