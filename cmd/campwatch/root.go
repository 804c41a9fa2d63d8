package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bgricker/campwatch/internal/config"
)

// app carries state shared by subcommands of one invocation.
type app struct {
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Default(), logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:               "campwatch",
		Short:             "Campwatch follows campaign executions of a Chutney backend",
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	persistent := cmd.PersistentFlags()
	persistent.String("config", "", "config file (defaults to "+config.FileName+" in the working directory or a parent)")
	persistent.String("url", "", "backend base url")
	persistent.String("token", "", "bearer token sent to the backend")
	persistent.Duration("poll-interval", 0, "refresh interval while an execution is running")
	persistent.Duration("request-timeout", 0, "timeout of a single backend call")
	persistent.StringArray("only-scenario", nil, "include only matching scenarios")
	persistent.StringArray("skip-scenario", nil, "exclude matching scenarios")
	persistent.String("sort", "", "outline sort key (title|status|scenarioId), prefix with - to reverse")
	persistent.BoolP("verbose", "v", false, "log backend calls and polling ticks")
	persistent.String("format", "pretty", "output format (pretty|json)")

	cmd.AddCommand(newShowCmd(a))
	cmd.AddCommand(newWatchCmd(a))
	cmd.AddCommand(newExecuteCmd(a))
	cmd.AddCommand(newStopCmd(a))
	cmd.AddCommand(newReplayCmd(a))
	cmd.AddCommand(newExportCmd(a))

	return cmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if cfg.Verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}
