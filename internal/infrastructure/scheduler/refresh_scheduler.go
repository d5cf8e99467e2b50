package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/ordersync"
)

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

// State is the lifecycle state of the refresh scheduler
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateIdle
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Refresher runs refresh cycles and reports the store size
type Refresher interface {
	Refresh(ctx context.Context, trigger ordersync.Trigger) (ordersync.RefreshStats, error)
	StoreSize(ctx context.Context) (int, error)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds refresh scheduler configuration
type Config struct {
	// CronSchedule is a standard five-field cron expression or a descriptor
	// such as @daily or @every 1h
	CronSchedule string
	// Location is the timezone the schedule is evaluated in
	Location *time.Location
	// CycleTimeout bounds one refresh cycle; zero means unbounded
	CycleTimeout time.Duration
}

// DefaultConfig runs a refresh daily at midnight local time
func DefaultConfig() Config {
	return Config{
		CronSchedule: "0 0 * * *",
		Location:     time.Local,
	}
}

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule validates a cron expression
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSchedule, expr, err)
	}
	return sched, nil
}

// ---------------------------------------------------------------------------
// RefreshScheduler
// ---------------------------------------------------------------------------

// Status is a point-in-time view of the scheduler
type Status struct {
	State        string     `json:"state"`
	Schedule     string     `json:"schedule"`
	NextRun      *time.Time `json:"nextRun,omitempty"`
	LastRun      *time.Time `json:"lastRun,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
	InFlight     int        `json:"inFlight"`
	CyclesRun    int64      `json:"cyclesRun"`
	CyclesFailed int64      `json:"cyclesFailed"`
}

// RefreshScheduler drives periodic refresh cycles.
//
// On Start it checks the store once per process: an empty store triggers an
// immediate cycle, and the recurring trigger is registered only after that
// cycle finishes. Overlapping cycles are allowed; each failure is logged and
// leaves the schedule untouched. Stop prevents future firings without
// interrupting a running cycle.
type RefreshScheduler struct {
	config    Config
	refresher Refresher
	logger    *zap.Logger
	cron      *cron.Cron

	mu        sync.Mutex
	expr      string
	schedule  cron.Schedule
	entryID   cron.EntryID
	isRunning bool
	stopped   bool

	coldStart sync.Once
	wg        sync.WaitGroup

	state        atomic.Int32
	inFlight     atomic.Int32
	cyclesRun    atomic.Int64
	cyclesFailed atomic.Int64

	lastMu    sync.RWMutex
	lastRun   time.Time
	lastError string
}

// NewRefreshScheduler creates a scheduler. The schedule is validated here.
func NewRefreshScheduler(config Config, refresher Refresher, logger *zap.Logger) (*RefreshScheduler, error) {
	if config.CronSchedule == "" {
		config.CronSchedule = DefaultConfig().CronSchedule
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	sched, err := ParseSchedule(config.CronSchedule)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("scheduler")

	s := &RefreshScheduler{
		config:    config,
		refresher: refresher,
		logger:    logger,
		expr:      config.CronSchedule,
		schedule:  sched,
		cron: cron.New(
			cron.WithLocation(config.Location),
			cron.WithParser(cronParser),
			cron.WithLogger(newCronLogger(logger)),
			cron.WithChain(cron.Recover(newCronLogger(logger))),
		),
	}
	s.state.Store(int32(StateUninitialized))
	return s, nil
}

// Start initializes the scheduler. It returns immediately; the cold-start
// cycle, when needed, runs in the background.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSchedulerStopped
	}
	if s.isRunning {
		return nil
	}
	s.isRunning = true
	s.state.Store(int32(StateInitializing))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.coldStart.Do(func() { s.runColdStart(ctx) })
		s.activate()
	}()

	s.logger.Info("Refresh scheduler starting", zap.String("schedule", s.expr))
	return nil
}

func (s *RefreshScheduler) runColdStart(ctx context.Context) {
	n, err := s.refresher.StoreSize(ctx)
	if err != nil {
		s.logger.Error("Failed to inspect order store", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Order store populated, waiting for schedule", zap.Int("orders", n))
		return
	}
	s.logger.Info("Order store empty, running initial refresh")
	s.runCycle(ordersync.TriggerColdStart)
}

// activate registers the recurring trigger unless Stop was called meanwhile
func (s *RefreshScheduler) activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.entryID = s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		s.runCycle(ordersync.TriggerScheduled)
	}))
	s.cron.Start()
	if s.inFlight.Load() == 0 {
		s.state.Store(int32(StateIdle))
	}

	s.logger.Info("Refresh scheduler started",
		zap.String("schedule", s.expr),
		zap.Time("next_run", s.cron.Entry(s.entryID).Next),
	)
}

func (s *RefreshScheduler) runCycle(trigger ordersync.Trigger) {
	s.inFlight.Add(1)
	s.state.Store(int32(StateRunning))
	defer func() {
		if s.inFlight.Add(-1) == 0 && State(s.state.Load()) == StateRunning {
			s.state.Store(int32(StateIdle))
		}
	}()

	ctx := context.Background()
	if s.config.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.CycleTimeout)
		defer cancel()
	}

	stats, err := s.refresher.Refresh(ctx, trigger)
	s.cyclesRun.Add(1)

	s.lastMu.Lock()
	s.lastRun = time.Now()
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.lastMu.Unlock()

	if err != nil {
		s.cyclesFailed.Add(1)
		s.logger.Error("Refresh cycle failed", zap.String("trigger", string(trigger)), zap.Error(err))
		return
	}
	s.logger.Info("Refresh cycle finished",
		zap.String("trigger", string(trigger)),
		zap.Int("added", stats.Added),
		zap.Int("updated", stats.Updated),
		zap.Int("unchanged", stats.Unchanged),
	)
}

// UpdateSchedule replaces the recurring trigger. The new expression applies
// from the next firing; a cycle already running is not affected.
func (s *RefreshScheduler) UpdateSchedule(expr string) error {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.expr
	s.expr = expr
	s.schedule = sched
	if s.entryID != 0 && !s.stopped {
		s.cron.Remove(s.entryID)
		s.entryID = s.cron.Schedule(sched, cron.FuncJob(func() {
			s.runCycle(ordersync.TriggerScheduled)
		}))
	}

	s.logger.Info("Refresh schedule updated", zap.String("from", old), zap.String("to", expr))
	return nil
}

// Stop cancels future firings and waits, bounded by ctx, for running cycles.
func (s *RefreshScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	wasRunning := s.isRunning
	s.isRunning = false
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	s.mu.Unlock()

	if !wasRunning {
		s.state.Store(int32(StateStopped))
		return nil
	}

	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		<-cronDone.Done()
		close(done)
	}()

	defer s.state.Store(int32(StateStopped))
	select {
	case <-done:
		s.logger.Info("Refresh scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Refresh scheduler stop timed out, cycle still running")
		return ctx.Err()
	}
}

// State returns the current lifecycle state
func (s *RefreshScheduler) State() State {
	return State(s.state.Load())
}

// Schedule returns the active cron expression
func (s *RefreshScheduler) Schedule() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expr
}

// NextRun returns the next firing time, or the zero time when not scheduled
func (s *RefreshScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// Status returns a snapshot for health reporting
func (s *RefreshScheduler) Status() Status {
	st := Status{
		State:        s.State().String(),
		Schedule:     s.Schedule(),
		InFlight:     int(s.inFlight.Load()),
		CyclesRun:    s.cyclesRun.Load(),
		CyclesFailed: s.cyclesFailed.Load(),
	}
	if next := s.NextRun(); !next.IsZero() {
		st.NextRun = &next
	}
	s.lastMu.RLock()
	if !s.lastRun.IsZero() {
		last := s.lastRun
		st.LastRun = &last
	}
	st.LastError = s.lastError
	s.lastMu.RUnlock()
	return st
}
