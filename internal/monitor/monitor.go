// Package monitor observes the execution reports of a campaign.
//
// A Monitor loads a campaign and its report history, keeps a selected
// report and a last complete baseline, and refreshes the history through a
// poller.Controller while a run is in progress. Operator actions (execute,
// stop, replay failed) are issued asynchronously; their errors are recorded
// in the view rather than returned.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bgricker/campwatch/internal/backend"
	"github.com/bgricker/campwatch/internal/export"
	"github.com/bgricker/campwatch/internal/filter"
	"github.com/bgricker/campwatch/internal/poller"
	"github.com/bgricker/campwatch/internal/report"
)

var (
	// ErrInvalidSelection is returned when an execution id is not in the report history.
	ErrInvalidSelection = errors.New("execution not in report history")
	// ErrNoCampaign is returned by operations that need a loaded campaign.
	ErrNoCampaign = errors.New("no campaign loaded")
	// ErrNoSelection is returned by operations that need a selected report.
	ErrNoSelection = errors.New("no execution report selected")
)

// Options configure a Monitor.
type Options struct {
	Service  backend.Service
	Interval time.Duration
	Logger   *zap.Logger
	Filter   filter.Set
	// OnChange receives a fresh view after every state change. It must not
	// call back into the Monitor synchronously.
	OnChange func(View)
	// After overrides the poller timer source.
	After func(d time.Duration) <-chan time.Time
}

// LoadRequest selects the campaign to load and the report to display.
type LoadRequest struct {
	CampaignID int64
	// ExecutionID selects a specific report when non-zero.
	ExecutionID int64
	// SelectLast selects the most recent report.
	SelectLast bool
}

// Monitor holds the view state of one campaign.
type Monitor struct {
	svc      backend.Service
	logger   *zap.Logger
	filter   filter.Set
	onChange func(View)
	poller   *poller.Controller

	base    context.Context
	stop    context.CancelFunc
	actions sync.WaitGroup

	// cycleMu keeps a Load's cancel and generation bump from interleaving
	// with a cycle start checked against an older generation.
	cycleMu sync.Mutex

	mu            sync.Mutex
	loadGen       uint64
	campaign      *report.Campaign
	scenarios     []report.ScenarioIndex
	ordered       []report.ScenarioIndex
	scenarioOrder report.Ordering
	selected      report.Selection
	outlines      []report.ScenarioOutline
	outlineOrder  report.Ordering
	last          report.Selection
	running       bool
	inFlight      int
	stopRequested bool
	lastErr       string
	warning       string
}

// New creates a Monitor with no campaign loaded.
func New(opts Options) (*Monitor, error) {
	if opts.Service == nil {
		return nil, errors.New("monitor: service is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m := &Monitor{
		svc:      opts.Service,
		logger:   opts.Logger,
		filter:   opts.Filter,
		onChange: opts.OnChange,
	}
	p, err := poller.New(poller.Options{
		Interval: opts.Interval,
		Logger:   opts.Logger.Named("poller"),
		OnError:  m.pollFailed,
		After:    opts.After,
	})
	if err != nil {
		return nil, err
	}
	m.poller = p
	m.base, m.stop = context.WithCancel(context.Background())
	return m, nil
}

// Load fetches a campaign with its history and scenarios, replacing the
// current view. Polling starts when a report is still running.
func (m *Monitor) Load(ctx context.Context, req LoadRequest) error {
	m.cycleMu.Lock()
	m.poller.Cancel()
	m.mu.Lock()
	m.loadGen++
	gen := m.loadGen
	m.mu.Unlock()
	m.cycleMu.Unlock()

	logger := m.logger.With(zap.Int64("campaign", req.CampaignID))

	var (
		campaign     report.Campaign
		scenarios    []report.ScenarioIndex
		scenariosErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		campaign, err = m.svc.FetchCampaign(ctx, req.CampaignID)
		return err
	})
	g.Go(func() error {
		scenarios, scenariosErr = m.svc.FetchScenarios(ctx, req.CampaignID)
		return nil
	})
	err := g.Wait()

	m.mu.Lock()
	if gen != m.loadGen {
		m.mu.Unlock()
		logger.Debug("discarding superseded load")
		return nil
	}
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			m.resetLocked()
		}
		m.lastErr = err.Error()
		m.mu.Unlock()
		logger.Warn("load campaign failed", zap.Error(err))
		m.notify()
		return err
	}

	m.applyLoadLocked(campaign, req)
	if scenariosErr != nil {
		m.lastErr = scenariosErr.Error()
		logger.Warn("load scenarios failed", zap.Error(scenariosErr))
	} else {
		m.scenarios = scenarios
		m.resetScenarioOrderLocked()
	}
	running := m.running
	m.mu.Unlock()

	logger.Info("campaign loaded",
		zap.Int("reports", len(campaign.Reports)),
		zap.Bool("running", running))
	if running {
		m.startPolling(gen, req.CampaignID)
	}
	m.notify()
	return nil
}

func (m *Monitor) resetLocked() {
	m.campaign = nil
	m.scenarios = nil
	m.ordered = nil
	m.scenarioOrder.Reset()
	m.selected = report.Selection{}
	m.outlines = nil
	m.outlineOrder.Reset()
	m.last = report.Selection{}
	m.running = false
	m.stopRequested = false
	m.warning = ""
}

func (m *Monitor) applyLoadLocked(campaign report.Campaign, req LoadRequest) {
	report.SortByExecutionDesc(campaign.Reports)
	m.campaign = &campaign
	m.selected = report.Selection{}
	m.outlines = nil
	m.warning = ""
	m.lastErr = ""

	if len(campaign.Reports) == 0 {
		m.running = m.inFlight > 0
		m.last = report.Selection{}
		return
	}

	if req.SelectLast {
		m.selectLocked(campaign.Reports[0].ExecutionID)
	}
	if req.ExecutionID != 0 {
		if report.Find(campaign.Reports, req.ExecutionID) >= 0 {
			m.selectLocked(req.ExecutionID)
		} else {
			m.warning = fmt.Sprintf("execution %d: %v", req.ExecutionID, ErrInvalidSelection)
			m.logger.Warn("requested execution not found",
				zap.Int64("campaign", campaign.ID),
				zap.Int64("execution", req.ExecutionID))
		}
	}
	m.running = report.AnyRunning(campaign.Reports) || m.inFlight > 0
	m.updateLastLocked()
}

func (m *Monitor) updateLastLocked() {
	if last, ok := report.LastComplete(m.campaign.Reports); ok {
		m.last = report.Select(last.ExecutionID)
	} else {
		m.last = report.Selection{}
	}
}

// selectLocked displays the report with the given id and resets both list orderings.
func (m *Monitor) selectLocked(executionID int64) {
	m.resetScenarioOrderLocked()
	m.outlineOrder.Reset()
	m.selected = report.Select(executionID)
	m.refreshOutlinesLocked()
}

func (m *Monitor) resetScenarioOrderLocked() {
	m.scenarioOrder.Reset()
	m.ordered = m.filter.Scenarios(m.scenarios)
}

func (m *Monitor) refreshOutlinesLocked() {
	m.outlines = nil
	if m.campaign == nil || !m.selected.Set {
		return
	}
	idx := report.Find(m.campaign.Reports, m.selected.ExecutionID)
	if idx < 0 {
		m.selected = report.Selection{}
		return
	}
	m.outlines = m.filter.Outlines(m.campaign.Reports[idx].Scenarios)
	if err := report.SortOutlines(m.outlines, m.outlineOrder); err != nil {
		m.outlineOrder.Reset()
	}
}

// startPolling starts a cycle for campaignID unless a Load newer than gen
// has begun.
func (m *Monitor) startPolling(gen uint64, campaignID int64) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	m.mu.Lock()
	current := gen == m.loadGen
	m.mu.Unlock()
	if !current || m.base.Err() != nil {
		m.logger.Debug("not polling superseded load", zap.Int64("campaign", campaignID))
		return
	}

	fetch := func(ctx context.Context) (report.Campaign, error) {
		return m.svc.FetchCampaign(ctx, campaignID)
	}
	cycle := m.poller.Start(m.base, fetch, m.applyRefresh)
	m.logger.Debug("polling started", zap.Int64("campaign", campaignID), zap.String("cycle", cycle))
}

// applyRefresh merges a polled campaign into the history and returns the
// status that decides whether the cycle goes on.
func (m *Monitor) applyRefresh(fetched report.Campaign) report.Status {
	m.mu.Lock()
	if m.campaign == nil || m.campaign.ID != fetched.ID {
		m.mu.Unlock()
		return report.StatusUnknown
	}

	res := report.Merge(m.campaign.Reports, fetched.Reports, m.selected)
	if !res.Changed {
		wasRunning := m.running
		m.running = report.AnyRunning(m.campaign.Reports) || m.inFlight > 0
		status := m.cycleStatusLocked()
		changed := wasRunning != m.running
		m.mu.Unlock()
		if changed {
			m.notify()
		}
		return status
	}

	m.campaign.Reports = res.Reports
	if fetched.Title != "" {
		m.campaign.Title = fetched.Title
	}
	switch {
	case res.NewRun:
		m.followRunLocked(res.Top.ExecutionID)
	case res.RefreshSelected:
		m.refreshOutlinesLocked()
	}
	m.running = report.AnyRunning(m.campaign.Reports) || m.inFlight > 0
	m.updateLastLocked()
	status := m.cycleStatusLocked()
	m.mu.Unlock()

	m.logger.Debug("report merged",
		zap.Int64("campaign", fetched.ID),
		zap.Int64("execution", res.Top.ExecutionID),
		zap.Stringer("status", res.Top.Status),
		zap.Bool("new_run", res.NewRun))
	m.notify()
	return status
}

// followRunLocked selects a run that appeared while polling. The outline
// order of the previous selection carries over.
func (m *Monitor) followRunLocked(executionID int64) {
	order := m.outlineOrder
	m.selectLocked(executionID)
	m.outlineOrder = order
	m.refreshOutlinesLocked()
	m.stopRequested = false
}

// cycleStatusLocked is RUNNING while an execute or replay call is pending,
// since the backend may not list the new run yet. Otherwise it is the
// status of the most recent report.
func (m *Monitor) cycleStatusLocked() report.Status {
	if m.inFlight > 0 {
		return report.StatusRunning
	}
	if len(m.campaign.Reports) == 0 {
		return report.StatusUnknown
	}
	return m.campaign.Reports[0].Status
}

func (m *Monitor) pollFailed(err error) {
	m.recordError(err)
	m.notify()
}

func (m *Monitor) recordError(err error) {
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
}

// Select displays the report with the given execution id.
func (m *Monitor) Select(executionID int64) error {
	m.mu.Lock()
	if m.campaign == nil {
		m.mu.Unlock()
		return ErrNoCampaign
	}
	if report.Find(m.campaign.Reports, executionID) < 0 {
		m.mu.Unlock()
		return fmt.Errorf("select execution %d: %w", executionID, ErrInvalidSelection)
	}
	m.selectLocked(executionID)
	m.mu.Unlock()
	m.notify()
	return nil
}

// SelectLastComplete clears the selection so the last complete report is shown.
func (m *Monitor) SelectLastComplete() {
	m.mu.Lock()
	m.selected = report.Selection{}
	m.outlines = nil
	m.outlineOrder.Reset()
	m.mu.Unlock()
	m.notify()
}

// SortScenariosBy orders the scenario list by key, toggling the direction
// when key is already the sort property.
func (m *Monitor) SortScenariosBy(key report.SortKey) error {
	m.mu.Lock()
	order := m.scenarioOrder
	order.Toggle(key)
	if err := report.SortScenarios(m.ordered, order); err != nil {
		m.mu.Unlock()
		return err
	}
	m.scenarioOrder = order
	m.mu.Unlock()
	m.notify()
	return nil
}

// SortOutlinesBy orders the outlines of the selected report by key,
// toggling the direction when key is already the sort property.
func (m *Monitor) SortOutlinesBy(key report.SortKey) error {
	m.mu.Lock()
	order := m.outlineOrder
	order.Toggle(key)
	if err := report.SortOutlines(m.outlines, order); err != nil {
		m.mu.Unlock()
		return err
	}
	m.outlineOrder = order
	m.mu.Unlock()
	m.notify()
	return nil
}

// Execute runs the campaign on environment and starts polling for the new run.
func (m *Monitor) Execute(environment string) error {
	m.mu.Lock()
	if m.campaign == nil {
		m.mu.Unlock()
		return ErrNoCampaign
	}
	campaignID := m.campaign.ID
	gen := m.loadGen
	m.running = true
	m.stopRequested = false
	m.inFlight++
	m.mu.Unlock()

	m.logger.Info("executing campaign", zap.Int64("campaign", campaignID), zap.String("environment", environment))
	m.runAction(func(ctx context.Context) error {
		return m.svc.ExecuteCampaign(ctx, campaignID, environment)
	}, m.finishRun("execute campaign", gen, campaignID))
	m.startPolling(gen, campaignID)
	m.notify()
	return nil
}

// ReplayFailed re-runs the failed scenarios of the selected report and
// starts polling.
func (m *Monitor) ReplayFailed() error {
	m.mu.Lock()
	if m.campaign == nil {
		m.mu.Unlock()
		return ErrNoCampaign
	}
	if !m.selected.Set {
		m.mu.Unlock()
		return ErrNoSelection
	}
	campaignID := m.campaign.ID
	executionID := m.selected.ExecutionID
	gen := m.loadGen
	m.running = true
	m.inFlight++
	m.mu.Unlock()

	m.logger.Info("replaying failed scenarios", zap.Int64("campaign", campaignID), zap.Int64("execution", executionID))
	m.runAction(func(ctx context.Context) error {
		return m.svc.ReplayFailed(ctx, executionID)
	}, m.finishRun("replay failed scenarios", gen, campaignID))
	m.startPolling(gen, campaignID)
	m.notify()
	return nil
}

// Stop asks the backend to stop the selected execution. Polling goes on
// until the backend reports a terminal status.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if m.campaign == nil {
		m.mu.Unlock()
		return ErrNoCampaign
	}
	if !m.selected.Set {
		m.mu.Unlock()
		return ErrNoSelection
	}
	campaignID := m.campaign.ID
	executionID := m.selected.ExecutionID
	m.mu.Unlock()

	m.logger.Info("stopping execution", zap.Int64("campaign", campaignID), zap.Int64("execution", executionID))
	m.runAction(func(ctx context.Context) error {
		return m.svc.StopExecution(ctx, campaignID, executionID)
	}, func(err error) func() {
		if err != nil {
			m.lastErr = fmt.Sprintf("cannot stop campaign: %v", err)
			return nil
		}
		m.stopRequested = true
		return nil
	})
	return nil
}

// finishRun settles an execute or replay call. On success a fresh cycle
// refreshes the history once more, so a run the backend registered after
// the last tick still shows up.
func (m *Monitor) finishRun(op string, gen uint64, campaignID int64) func(err error) func() {
	return func(err error) func() {
		m.inFlight--
		if err != nil {
			m.lastErr = fmt.Sprintf("%s: %v", op, err)
		}
		m.running = m.inFlight > 0
		if m.campaign != nil && report.AnyRunning(m.campaign.Reports) {
			m.running = true
		}
		if err != nil || gen != m.loadGen {
			return nil
		}
		m.running = true
		return func() { m.startPolling(gen, campaignID) }
	}
}

// runAction issues call in the background. done runs under the monitor
// lock; the followup it returns, if any, runs once the lock is released.
func (m *Monitor) runAction(call func(ctx context.Context) error, done func(err error) func()) {
	m.actions.Add(1)
	go func() {
		defer m.actions.Done()
		err := call(m.base)
		if err != nil {
			m.logger.Warn("background action failed", zap.Error(err))
		}
		m.mu.Lock()
		followup := done(err)
		m.mu.Unlock()
		if followup != nil {
			followup()
		}
		m.notify()
	}()
}

// Export writes the raw definitions of the campaign scenarios as a zip archive.
func (m *Monitor) Export(ctx context.Context, w io.Writer) (export.Result, error) {
	m.mu.Lock()
	if m.campaign == nil {
		m.mu.Unlock()
		return export.Result{}, ErrNoCampaign
	}
	scenarios := append([]report.ScenarioIndex{}, m.scenarios...)
	m.mu.Unlock()

	res, err := export.Zip(ctx, w, m.svc, scenarios, export.DefaultConcurrency)
	switch {
	case err != nil:
		m.recordError(err)
	case len(res.Composed) > 0:
		m.recordError(fmt.Errorf("campaign has %d component scenarios that cannot be exported", len(res.Composed)))
	}
	m.notify()
	return res, err
}

// Wait blocks until background actions are done and polling has ended.
func (m *Monitor) Wait() {
	m.actions.Wait()
	m.poller.Wait()
}

// WaitActions blocks until background actions are done. Polling may still be running.
func (m *Monitor) WaitActions() {
	m.actions.Wait()
}

// Close cancels polling and background calls and waits for them to return.
func (m *Monitor) Close() {
	m.stop()
	m.poller.Cancel()
	m.actions.Wait()
	m.poller.Wait()
}

func (m *Monitor) notify() {
	if m.onChange == nil {
		return
	}
	m.onChange(m.View())
}
