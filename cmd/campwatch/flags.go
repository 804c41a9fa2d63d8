package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bgricker/campwatch/internal/config"
	"github.com/bgricker/campwatch/internal/discovery"
)

func gatherFlags(cmd *cobra.Command) (config.FlagValues, error) {
	flags := cmd.Flags()
	var values config.FlagValues

	for _, f := range []struct {
		name  string
		point *config.StringFlag
	}{
		{"url", &values.BaseURL},
		{"token", &values.Token},
		{"format", &values.Format},
		{"sort", &values.Sort},
		{"env", &values.Environment},
	} {
		if flags.Lookup(f.name) == nil || !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetString(f.name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", f.name, err)
		}
		*f.point = config.StringFlag{Value: v, Set: true}
	}

	if flags.Changed("poll-interval") {
		v, err := flags.GetDuration("poll-interval")
		if err != nil {
			return values, fmt.Errorf("parse --poll-interval: %w", err)
		}
		values.PollInterval = config.DurationFlag{Value: v, Set: true}
	}

	if flags.Changed("request-timeout") {
		v, err := flags.GetDuration("request-timeout")
		if err != nil {
			return values, fmt.Errorf("parse --request-timeout: %w", err)
		}
		values.RequestTimeout = config.DurationFlag{Value: v, Set: true}
	}

	if flags.Changed("only-scenario") {
		v, err := flags.GetStringArray("only-scenario")
		if err != nil {
			return values, fmt.Errorf("parse --only-scenario: %w", err)
		}
		values.OnlyScenarios = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("skip-scenario") {
		v, err := flags.GetStringArray("skip-scenario")
		if err != nil {
			return values, fmt.Errorf("parse --skip-scenario: %w", err)
		}
		values.SkipScenarios = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("verbose") {
		v, err := flags.GetBool("verbose")
		if err != nil {
			return values, fmt.Errorf("parse --verbose: %w", err)
		}
		values.Verbose = config.BoolFlag{Value: v, Set: true}
	}

	return values, nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("determine working directory: %w", err)
	}

	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("parse --config: %w", err)
	}

	cfg := config.Default()
	path, err := discovery.ConfigFile(dir, config.FileName, explicit)
	switch {
	case errors.Is(err, discovery.ErrNoConfig):
	case err != nil:
		return config.Config{}, err
	default:
		if cfg, err = config.LoadFile(path); err != nil {
			return config.Config{}, err
		}
	}

	flags, err := gatherFlags(cmd)
	if err != nil {
		return config.Config{}, err
	}
	config.ApplyFlags(&cfg, flags)

	return cfg, nil
}
