package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bgricker/campwatch/internal/backend"
	"github.com/bgricker/campwatch/internal/report"
)

// step is one scripted FetchCampaign answer.
type step struct {
	campaign report.Campaign
	err      error
	// gate, when set, blocks the fetch until closed.
	gate chan struct{}
}

// fakeService replays scripted campaign fetches; the last step repeats.
type fakeService struct {
	mu        sync.Mutex
	steps     map[int64][]step
	calls     map[int64]int
	scenarios map[int64][]report.ScenarioIndex
	raw       map[string]report.TestCase

	executeGate chan struct{}
	executeErr  error
	stopErr     error
	replayErr   error

	executed []string
	stopped  []int64
	replayed []int64
}

var _ backend.Service = (*fakeService)(nil)

func newFakeService() *fakeService {
	return &fakeService{
		steps:     map[int64][]step{},
		calls:     map[int64]int{},
		scenarios: map[int64][]report.ScenarioIndex{},
		raw:       map[string]report.TestCase{},
	}
}

func (f *fakeService) script(id int64, steps ...step) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps[id] = append(f.steps[id], steps...)
}

func (f *fakeService) fetches(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeService) FetchCampaign(ctx context.Context, id int64) (report.Campaign, error) {
	f.mu.Lock()
	steps := f.steps[id]
	if len(steps) == 0 {
		f.mu.Unlock()
		return report.Campaign{}, fmt.Errorf("fetch campaign: %w", backend.ErrNotFound)
	}
	i := f.calls[id]
	f.calls[id]++
	if i >= len(steps) {
		i = len(steps) - 1
	}
	st := steps[i]
	f.mu.Unlock()

	if st.gate != nil {
		<-st.gate
	}
	if st.err != nil {
		return report.Campaign{}, st.err
	}
	return cloneCampaign(st.campaign), nil
}

func (f *fakeService) FetchScenarios(ctx context.Context, id int64) ([]report.ScenarioIndex, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]report.ScenarioIndex{}, f.scenarios[id]...), nil
}

func (f *fakeService) ExecuteCampaign(ctx context.Context, id int64, env string) error {
	f.mu.Lock()
	f.executed = append(f.executed, fmt.Sprintf("%d@%s", id, env))
	gate := f.executeGate
	err := f.executeErr
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeService) StopExecution(ctx context.Context, campaignID, executionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, executionID)
	return f.stopErr
}

func (f *fakeService) ReplayFailed(ctx context.Context, executionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replayed = append(f.replayed, executionID)
	return f.replayErr
}

func (f *fakeService) FetchRawTestCase(ctx context.Context, id string) (report.TestCase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tc, ok := f.raw[id]
	if !ok {
		return report.TestCase{}, fmt.Errorf("raw scenario %s: %w", id, backend.ErrNotFound)
	}
	return tc, nil
}

func cloneCampaign(c report.Campaign) report.Campaign {
	out := c
	out.ScenarioIDs = append([]string{}, c.ScenarioIDs...)
	out.Reports = make([]report.ExecutionReport, 0, len(c.Reports))
	for _, r := range c.Reports {
		out.Reports = append(out.Reports, r.Clone())
	}
	return out
}

func immediate(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

// manualTimer hands out one channel per After call and fires them on demand.
type manualTimer struct {
	mu      sync.Mutex
	pending []chan time.Time
}

func (c *manualTimer) after(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	c.pending = append(c.pending, ch)
	c.mu.Unlock()
	return ch
}

// await waits until the poller has asked for n ticks in total.
func (c *manualTimer) await(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.pending) >= n
	}, time.Second, time.Millisecond)
}

// fire releases the nth requested tick, counting from 1.
func (c *manualTimer) fire(t *testing.T, n int) {
	t.Helper()
	c.await(t, n)
	c.mu.Lock()
	ch := c.pending[n-1]
	c.mu.Unlock()
	ch <- time.Now()
}

func execution(id int64, status report.Status, scenarios ...report.Status) report.ExecutionReport {
	r := report.ExecutionReport{ExecutionID: id, Status: status}
	for i, st := range scenarios {
		r.Scenarios = append(r.Scenarios, report.ScenarioOutline{
			ScenarioID:   fmt.Sprintf("s%d", i+1),
			ScenarioName: fmt.Sprintf("scenario %d", i+1),
			Status:       st,
			ExecutionID:  id*100 + int64(i),
		})
	}
	return r
}

func campaign(id int64, reports ...report.ExecutionReport) report.Campaign {
	return report.Campaign{ID: id, Title: fmt.Sprintf("campaign %d", id), Reports: reports}
}
