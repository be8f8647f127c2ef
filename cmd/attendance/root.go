package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/logging"
)

type commandContext struct {
	configFlag *string
	levelFlag  *string
	yearFlag   *int
	monthFlag  *int

	configOnce sync.Once
	config     *common.Config
	configErr  error
	logger     *slog.Logger
}

func (c *commandContext) ensureConfig() (*common.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := common.LoadConfig(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if *c.yearFlag > 0 {
			cfg.Calendar.Year = *c.yearFlag
		}
		if *c.monthFlag > 0 {
			cfg.Calendar.Month = *c.monthFlag
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		level := cfg.Logging.Level
		if *c.levelFlag != "" {
			level = *c.levelFlag
		}
		c.logger = logging.New(logging.Config{Level: level, Format: cfg.Logging.Format, Bare: true}, os.Stderr)
		slog.SetDefault(c.logger)
		c.config = cfg
	})
	return c.config, c.configErr
}

func newRootCommand() *cobra.Command {
	var configFlag, levelFlag string
	var yearFlag, monthFlag int
	ctx := &commandContext{configFlag: &configFlag, levelFlag: &levelFlag, yearFlag: &yearFlag, monthFlag: &monthFlag}

	rootCmd := &cobra.Command{
		Use:           "attendance",
		Short:         "Rebuild, check and submit monthly attendance from scanned timesheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFlag, "config", "c", "attendance.toml", "Configuration file path (.toml or .yaml)")
	pf.StringVar(&levelFlag, "log-level", "", "Override the configured log level")
	pf.IntVar(&yearFlag, "year", 0, "Calendar year for day-only records (default: current)")
	pf.IntVar(&monthFlag, "month", 0, "Calendar month for day-only records (default: current)")

	rootCmd.AddCommand(newExtractCommand(ctx))
	rootCmd.AddCommand(newValidateCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newSubmitCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))
	return rootCmd
}

// signalContext cancels on Ctrl-C so a long OCR or browser run stops cleanly.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
