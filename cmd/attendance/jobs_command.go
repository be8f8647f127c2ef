package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/attendance-tracker/internal/app"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
	"github.com/joseph-ayodele/attendance-tracker/internal/repository"
)

func newJobsCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect stored import jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().Bool("json", false, "Print JSON even on a terminal")
	cmd.AddCommand(newJobsListCommand(cc), newJobsShowCommand(cc))
	return cmd
}

func newJobsListCommand(cc *commandContext) *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent import jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStore(cmd.Context(), cc.config.Database, cc.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.Jobs.List(cmd.Context(), repository.JobFilter{Status: status, Limit: limit})
			if err != nil {
				return err
			}
			if useJSON(cmd) {
				return writeJSON(cmd, jobs)
			}
			rows := make([][]string, 0, len(jobs))
			for _, j := range jobs {
				rows = append(rows, jobRow(j))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "File", "Format", "Status", "Pages", "Started"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only jobs with this status")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum jobs to list")
	return cmd
}

func jobRow(j entity.ImportJob) []string {
	return []string{j.ID.String(), j.Filename, j.Format, j.Status, strconv.Itoa(j.Pages), j.StartedAt.Local().Format(time.DateTime)}
}

func newJobsShowCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job and its stored records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return common.NewAppError("INVALID_ARGUMENT", "job id must be a UUID", common.ErrInvalidInput)
			}
			store, err := app.OpenStore(cmd.Context(), cc.config.Database, cc.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.Jobs.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			stored, err := store.Records.ListRecords(cmd.Context(), id)
			if err != nil {
				return err
			}
			if useJSON(cmd) {
				return writeJSON(cmd, map[string]any{"job": job, "records": stored})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, renderTable([]string{"ID", "File", "Format", "Status", "Pages", "Started"}, [][]string{jobRow(*job)}, nil))
			if job.ErrorMessage != nil {
				fmt.Fprintf(w, "error: %s\n", *job.ErrorMessage)
			}
			recs := make([]entity.AttendanceRecord, len(stored))
			errs := make(map[int][]string, len(stored))
			for i, s := range stored {
				recs[i] = s.Record
				if len(s.Errors) > 0 {
					errs[i] = s.Errors
				}
			}
			fmt.Fprintln(w, renderTable(recordHeaders, recordRows(recs, errs), recordAligns))
			return nil
		},
	}
}
