package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bgricker/campwatch/internal/backend"
	"github.com/bgricker/campwatch/internal/config"
	"github.com/bgricker/campwatch/internal/filter"
	"github.com/bgricker/campwatch/internal/monitor"
	"github.com/bgricker/campwatch/internal/output"
	"github.com/bgricker/campwatch/internal/report"
)

func parseCampaignID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid campaign id %q", raw)
	}
	return id, nil
}

func (a *app) newClient() (*backend.Client, error) {
	return backend.NewClient(backend.ClientOptions{
		BaseURL: a.cfg.BaseURL,
		Token:   a.cfg.Token,
		Timeout: a.cfg.RequestTimeout.Std(),
		Logger:  a.logger.Named("backend"),
	})
}

// environment returns the configured environment, or the backend's only one.
func (a *app) environment(ctx context.Context) (string, error) {
	if a.cfg.Environment != "" {
		return a.cfg.Environment, nil
	}
	client, err := a.newClient()
	if err != nil {
		return "", err
	}
	names, err := client.ListEnvironments(ctx)
	if err != nil {
		return "", fmt.Errorf("an environment is required: %w", err)
	}
	switch len(names) {
	case 1:
		a.logger.Info("using the only environment", zap.String("environment", names[0]))
		return names[0], nil
	case 0:
		return "", errors.New("an environment is required (--env or environment in " + config.FileName + ")")
	default:
		return "", fmt.Errorf("an environment is required, choose one of: %s", strings.Join(names, ", "))
	}
}

func (a *app) newMonitor(onChange func(monitor.View)) (*monitor.Monitor, error) {
	client, err := a.newClient()
	if err != nil {
		return nil, err
	}
	set, err := filter.NewSet(a.cfg.OnlyScenarios, a.cfg.SkipScenarios)
	if err != nil {
		return nil, err
	}
	return monitor.New(monitor.Options{
		Service:  client,
		Interval: a.cfg.PollInterval.Std(),
		Logger:   a.logger.Named("monitor"),
		Filter:   set,
		OnChange: onChange,
	})
}

// load fetches the campaign and applies the configured outline order.
func (a *app) load(ctx context.Context, m *monitor.Monitor, req monitor.LoadRequest) error {
	if err := m.Load(ctx, req); err != nil {
		return err
	}
	return applySort(a.cfg.Sort, m.SortOutlinesBy)
}

// applySort requests key once, or twice for a descending "-key".
func applySort(order string, sortBy func(report.SortKey) error) error {
	if order == "" {
		return nil
	}
	key := report.SortKey(strings.TrimPrefix(order, "-"))
	if err := sortBy(key); err != nil {
		return err
	}
	if strings.HasPrefix(order, "-") {
		return sortBy(key)
	}
	return nil
}

// viewPrinter renders views, skipping ones identical to the previous render.
// Cycle counters alone do not trigger a render.
type viewPrinter struct {
	format string
	out    io.Writer

	mu   sync.Mutex
	last *monitor.View
}

func newViewPrinter(cfg config.Config, out io.Writer) *viewPrinter {
	return &viewPrinter{format: cfg.Format, out: out}
}

func (p *viewPrinter) print(v monitor.View) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != nil && cmp.Equal(*p.last, v, cmpopts.IgnoreFields(monitor.View{}, "Cycle")) {
		return nil
	}
	p.last = &v
	return renderView(p.format, p.out, v)
}

func renderView(format string, out io.Writer, v monitor.View) error {
	switch strings.ToLower(format) {
	case config.FormatPretty:
		return output.NewPretty(out).RenderView(v)
	case config.FormatJSON:
		return output.NewJSON(out).Render(v)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// actionError turns an error recorded by a background action into a command error.
func actionError(v monitor.View) error {
	if v.Error == "" {
		return nil
	}
	return errors.New(v.Error)
}

func addExecutionFlag(cmd *cobra.Command) {
	cmd.Flags().Int64("execution", 0, "execution id to select (defaults to the latest)")
}

func loadRequest(cmd *cobra.Command, campaignID int64) (monitor.LoadRequest, error) {
	execution, err := cmd.Flags().GetInt64("execution")
	if err != nil {
		return monitor.LoadRequest{}, fmt.Errorf("parse --execution: %w", err)
	}
	return monitor.LoadRequest{CampaignID: campaignID, ExecutionID: execution, SelectLast: true}, nil
}
