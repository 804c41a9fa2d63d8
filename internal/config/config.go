package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bgricker/campwatch/internal/poller"
)

// FileName is the config file looked up in the working directory and its parents.
const FileName = ".campwatch.yml"

// Config captures CLI options sourced from config files or flags.
type Config struct {
	BaseURL        string   `yaml:"base_url"`
	Token          string   `yaml:"token"`
	PollInterval   Duration `yaml:"poll_interval"`
	RequestTimeout Duration `yaml:"request_timeout"`
	Environment    string   `yaml:"environment"`

	OnlyScenarios []string `yaml:"only_scenario"`
	SkipScenarios []string `yaml:"skip_scenario"`

	Verbose bool   `yaml:"verbose"`
	Format  string `yaml:"format"`
	Sort    string `yaml:"sort"`
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// UnmarshalYAML parses values such as "2s" or "500ms".
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

const (
	// FormatPretty renders human readable output.
	FormatPretty = "pretty"
	// FormatJSON renders machine readable output.
	FormatJSON = "json"

	// DefaultBaseURL points at a local backend.
	DefaultBaseURL = "http://localhost:8080"
	// DefaultRequestTimeout bounds a single backend call.
	DefaultRequestTimeout = 30 * time.Second
)

// Default returns the baseline configuration used when no flags or config file specify values.
func Default() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		PollInterval:   Duration(poller.DefaultInterval),
		RequestTimeout: Duration(DefaultRequestTimeout),
		Format:         FormatPretty,
	}
}

// LoadFile reads the config file at path and merges it over Default.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg = merge(cfg, fileCfg)
	return cfg, nil
}

func merge(base, override Config) Config {
	out := base

	if override.BaseURL != "" {
		out.BaseURL = override.BaseURL
	}
	if override.Token != "" {
		out.Token = override.Token
	}
	if override.PollInterval != 0 {
		out.PollInterval = override.PollInterval
	}
	if override.RequestTimeout != 0 {
		out.RequestTimeout = override.RequestTimeout
	}
	if override.Environment != "" {
		out.Environment = override.Environment
	}
	if len(override.OnlyScenarios) > 0 {
		out.OnlyScenarios = append([]string{}, override.OnlyScenarios...)
	}
	if len(override.SkipScenarios) > 0 {
		out.SkipScenarios = append([]string{}, override.SkipScenarios...)
	}
	if override.Format != "" {
		out.Format = override.Format
	}
	if override.Sort != "" {
		out.Sort = override.Sort
	}
	if override.Verbose {
		out.Verbose = true
	}

	return out
}

// Validate rejects out of bound intervals and unknown formats.
func (c Config) Validate() error {
	if err := poller.ValidateInterval(c.PollInterval.Std()); err != nil {
		return fmt.Errorf("poll_interval: %w", err)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout: must not be negative, got %s", c.RequestTimeout.Std())
	}
	switch c.Format {
	case FormatPretty, FormatJSON:
	default:
		return fmt.Errorf("format: unsupported value %q (want %s or %s)", c.Format, FormatPretty, FormatJSON)
	}
	if c.BaseURL == "" {
		return errors.New("base_url: must not be empty")
	}
	return nil
}

// ApplyFlags mutates cfg by applying values from CLI flags when they are present.
func ApplyFlags(cfg *Config, flags FlagValues) {
	if flags.BaseURL.Set {
		cfg.BaseURL = flags.BaseURL.Value
	}
	if flags.Token.Set {
		cfg.Token = flags.Token.Value
	}
	if flags.PollInterval.Set {
		cfg.PollInterval = Duration(flags.PollInterval.Value)
	}
	if flags.RequestTimeout.Set {
		cfg.RequestTimeout = Duration(flags.RequestTimeout.Value)
	}
	if flags.Environment.Set {
		cfg.Environment = flags.Environment.Value
	}
	if len(flags.OnlyScenarios.Values) > 0 {
		cfg.OnlyScenarios = append([]string{}, flags.OnlyScenarios.Values...)
	}
	if len(flags.SkipScenarios.Values) > 0 {
		cfg.SkipScenarios = append([]string{}, flags.SkipScenarios.Values...)
	}
	if flags.Format.Set {
		cfg.Format = flags.Format.Value
	}
	if flags.Sort.Set {
		cfg.Sort = flags.Sort.Value
	}
	if flags.Verbose.Set {
		cfg.Verbose = flags.Verbose.Value
	}
}

// FlagValues captures CLI flag state with knowledge of whether each flag was set explicitly.
type FlagValues struct {
	BaseURL        StringFlag
	Token          StringFlag
	PollInterval   DurationFlag
	RequestTimeout DurationFlag
	Environment    StringFlag
	OnlyScenarios  SliceFlag
	SkipScenarios  SliceFlag
	Format         StringFlag
	Sort           StringFlag
	Verbose        BoolFlag
}

// StringFlag represents a string flag and whether it was set.
type StringFlag struct {
	Value string
	Set   bool
}

// SliceFlag represents a slice flag and whether it captured values via CLI.
type SliceFlag struct {
	Values []string
}

// BoolFlag represents a bool flag and whether it was set.
type BoolFlag struct {
	Value bool
	Set   bool
}

// DurationFlag represents a duration flag and whether it was set.
type DurationFlag struct {
	Value time.Duration
	Set   bool
}
