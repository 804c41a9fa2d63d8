// Package poller drives the recurring refresh of a running campaign execution.
//
// A Controller owns at most one polling cycle. Each cycle waits one
// interval, fetches the campaign, hands the result to the apply callback and
// schedules the next tick only while the applied top report is running.
// Starting a new cycle or cancelling supersedes the previous one: its pending
// tick is dropped and a fetch result that arrives afterwards is discarded.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bgricker/campwatch/internal/report"
)

const (
	// DefaultInterval matches the refresh cadence of the campaign web UI.
	DefaultInterval = 2 * time.Second
	// MinInterval bounds the cadence to avoid flooding the backend.
	MinInterval = 100 * time.Millisecond
	// MaxInterval bounds the cadence to keep the view reasonably live.
	MaxInterval = 5 * time.Minute
)

// ErrInterval is returned for intervals outside [MinInterval, MaxInterval].
var ErrInterval = errors.New("poll interval out of bounds")

// ValidateInterval checks that d is an acceptable polling cadence.
func ValidateInterval(d time.Duration) error {
	if d < MinInterval || d > MaxInterval {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrInterval, d, MinInterval, MaxInterval)
	}
	return nil
}

// State is the lifecycle state of the controller.
type State int

const (
	Idle State = iota
	Polling
	Stopped
)

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{Idle, Polling, Stopped} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown poller state %q", text)
}

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FetchFunc retrieves the current state of the watched campaign.
type FetchFunc func(ctx context.Context) (report.Campaign, error)

// ApplyFunc merges a fetched campaign into the view and returns the status
// of the most recent report. It runs under the controller lock and must not
// call back into the controller.
type ApplyFunc func(campaign report.Campaign) report.Status

// Options configure a Controller.
type Options struct {
	Interval time.Duration
	Logger   *zap.Logger
	// OnError receives the fetch error that ended a cycle.
	OnError func(err error)
	// After returns a channel that fires once d has elapsed. Defaults to time.After.
	After func(d time.Duration) <-chan time.Time
}

// Stats describes the current or last cycle.
type Stats struct {
	CycleID     string        `json:"id,omitempty"`
	State       State         `json:"state"`
	Interval    time.Duration `json:"interval"`
	Ticks       int           `json:"ticks"`
	Rescheduled int           `json:"rescheduled"`
}

// Controller runs one polling cycle at a time.
type Controller struct {
	interval time.Duration
	logger   *zap.Logger
	onError  func(err error)
	after    func(d time.Duration) <-chan time.Time

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}

	// Read without mu so that an ApplyFunc may report them.
	state       atomic.Int32
	cycleID     atomic.Pointer[string]
	ticks       atomic.Int64
	rescheduled atomic.Int64
}

// New creates an idle controller.
func New(opts Options) (*Controller, error) {
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}
	if err := ValidateInterval(opts.Interval); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.OnError == nil {
		opts.OnError = func(error) {}
	}
	if opts.After == nil {
		opts.After = time.After
	}
	return &Controller{
		interval: opts.Interval,
		logger:   opts.Logger,
		onError:  opts.OnError,
		after:    opts.After,
	}, nil
}

// Start supersedes any running cycle and begins a new one. The first tick
// fires one interval from now. It returns the new cycle id.
func (c *Controller) Start(ctx context.Context, fetch FetchFunc, apply ApplyFunc) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersedeLocked()
	cycleCtx, cancel := context.WithCancel(ctx)
	cycleID := uuid.NewString()
	c.cycleID.Store(&cycleID)
	c.setState(Polling)
	c.ticks.Store(0)
	c.rescheduled.Store(0)
	c.cancel = cancel
	c.done = make(chan struct{})

	logger := c.logger.With(zap.String("cycle", cycleID))
	logger.Debug("polling cycle started", zap.Duration("interval", c.interval))
	go c.run(cycleCtx, c.gen, logger, fetch, apply, c.done)
	return cycleID
}

// Cancel drops the pending tick of the current cycle.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.supersedeLocked() {
		c.setState(Stopped)
	}
}

// Wait blocks until the current cycle has ended.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// State returns the controller state. It does not take the controller
// lock, so it is safe to call from an ApplyFunc.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Stats returns counters of the current or last cycle. Like State it does
// not take the controller lock.
func (c *Controller) Stats() Stats {
	st := Stats{
		State:       c.State(),
		Interval:    c.interval,
		Ticks:       int(c.ticks.Load()),
		Rescheduled: int(c.rescheduled.Load()),
	}
	if id := c.cycleID.Load(); id != nil {
		st.CycleID = *id
	}
	return st
}

// supersedeLocked invalidates the current cycle. It reports whether a cycle
// was polling.
func (c *Controller) supersedeLocked() bool {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return c.State() == Polling
}

func (c *Controller) run(ctx context.Context, gen uint64, logger *zap.Logger, fetch FetchFunc, apply ApplyFunc, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if gen == c.gen {
				c.setState(Stopped)
			}
			c.mu.Unlock()
			return
		case <-c.after(c.interval):
		}

		campaign, err := fetch(ctx)

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			logger.Debug("discarding result of superseded cycle")
			return
		}
		tick := int(c.ticks.Add(1))
		if err != nil {
			c.setState(Stopped)
			c.mu.Unlock()
			if ctx.Err() != nil {
				return
			}
			logger.Warn("polling stopped on fetch error", zap.Int("tick", tick), zap.Error(err))
			c.onError(err)
			return
		}

		status := apply(campaign)
		if status != report.StatusRunning {
			c.setState(Stopped)
			c.mu.Unlock()
			logger.Debug("polling cycle finished", zap.Int("tick", tick), zap.Stringer("status", status))
			return
		}
		c.rescheduled.Add(1)
		c.mu.Unlock()
		logger.Debug("execution still running", zap.Int("tick", tick))
	}
}
