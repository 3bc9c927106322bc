package autopilot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"autopilot/internal/broker"
	"autopilot/internal/logger"
	"autopilot/internal/pkg/circuit"
)

const minInterval = time.Minute

// State is the durable scheduler configuration, persisted on every change so
// a restart re-arms the autopilot where it left off.
type State struct {
	Armed           bool        `json:"armed"`
	DryRun          bool        `json:"dry_run"`
	IntervalSeconds int         `json:"interval_seconds"`
	Watchlist       []string    `json:"watchlist"`
	Constraints     Constraints `json:"constraints"`
}

// Status extends State with runtime-only fields for the admin surface.
type Status struct {
	State
	CycleInFlight bool   `json:"cycle_in_flight"`
	BreakerState  string `json:"breaker_state"`
}

// Scheduler drives the cycle loop. Exactly one cycle runs at a time: ticks
// arriving while a cycle is in flight are dropped, not queued.
type Scheduler struct {
	runner  *Runner
	clock   broker.Clock
	breaker *circuit.Breaker
	persist func(State)

	cycleTimeout   time.Duration
	enforceHours   bool
	runImmediately bool

	inFlight atomic.Bool

	mu          sync.Mutex
	armed       bool
	dryRun      bool
	interval    time.Duration
	watchlist   []string
	constraints Constraints

	nowFn func() time.Time
}

type SchedulerConfig struct {
	Interval           time.Duration
	CycleTimeout       time.Duration
	Watchlist          []string
	Constraints        Constraints
	DryRun             bool
	EnforceMarketHours bool
	RunImmediately     bool
	BreakerThreshold   int
	BreakerCooldown    time.Duration
	// Persist is called with the new state after every setting change.
	Persist func(State)
}

func NewScheduler(runner *Runner, clock broker.Clock, cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Interval < minInterval {
		return nil, fmt.Errorf("cycle interval must be at least %s, got %s", minInterval, cfg.Interval)
	}
	if cfg.CycleTimeout <= 0 || cfg.CycleTimeout >= cfg.Interval {
		return nil, fmt.Errorf("cycle timeout must be positive and shorter than the interval")
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 3
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 10 * time.Minute
	}
	return &Scheduler{
		runner:         runner,
		clock:          clock,
		breaker:        circuit.NewBreaker("cycle", cfg.BreakerThreshold, cfg.BreakerCooldown),
		persist:        cfg.Persist,
		cycleTimeout:   cfg.CycleTimeout,
		enforceHours:   cfg.EnforceMarketHours,
		runImmediately: cfg.RunImmediately,
		dryRun:         cfg.DryRun,
		interval:       cfg.Interval,
		watchlist:      append([]string(nil), cfg.Watchlist...),
		constraints:    cfg.Constraints,
		nowFn:          time.Now,
	}, nil
}

// Run blocks until ctx is cancelled, firing a cycle per interval while the
// scheduler is armed. Setting changes take effect on the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.runImmediately {
		go s.tick(ctx)
	}
	for {
		timer := time.NewTimer(s.currentInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			go s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	armed := s.armed
	dryRun := s.dryRun
	watchlist := append([]string(nil), s.watchlist...)
	constraints := s.constraints
	s.mu.Unlock()

	if !armed {
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		logger.Warnf("scheduler: cycle already in progress, tick dropped")
		return
	}
	defer s.inFlight.Store(false)

	if !s.breaker.Allow() {
		logger.Warnf("scheduler: breaker open, skipping tick")
		return
	}
	if s.enforceHours && !marketOpen(ctx, s.clock, s.nowFn()) {
		logger.Infof("scheduler: market closed, skipping tick")
		return
	}

	cctx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()
	report := s.runner.RunCycle(cctx, watchlist, constraints, dryRun)
	if report.Status == StatusAborted {
		s.breaker.Failure()
		return
	}
	s.breaker.Success()
}

// Start arms the scheduler. Idempotent.
func (s *Scheduler) Start() {
	s.setState(func() { s.armed = true })
	logger.Infof("scheduler: armed")
}

// Stop disarms the scheduler. The in-flight cycle, if any, finishes.
func (s *Scheduler) Stop() {
	s.setState(func() { s.armed = false })
	logger.Infof("scheduler: disarmed")
}

// SetInterval changes the tick interval, applied from the next tick on.
func (s *Scheduler) SetInterval(interval time.Duration) error {
	if interval < minInterval {
		return fmt.Errorf("cycle interval must be at least %s, got %s", minInterval, interval)
	}
	if interval <= s.cycleTimeout {
		return fmt.Errorf("cycle interval must be longer than the cycle timeout (%s)", s.cycleTimeout)
	}
	s.setState(func() { s.interval = interval })
	return nil
}

// SetWatchlist replaces the watch-list for subsequent cycles.
func (s *Scheduler) SetWatchlist(symbols []string) error {
	if len(symbols) == 0 {
		return fmt.Errorf("watch-list cannot be empty")
	}
	for _, symbol := range symbols {
		if symbol == "" {
			return fmt.Errorf("watch-list contains an empty symbol")
		}
	}
	s.setState(func() { s.watchlist = append([]string(nil), symbols...) })
	return nil
}

// SetConstraints replaces the exclusion constraints for subsequent cycles.
func (s *Scheduler) SetConstraints(constraints Constraints) {
	s.setState(func() { s.constraints = constraints })
}

// SetDryRun toggles order submission for subsequent cycles.
func (s *Scheduler) SetDryRun(dryRun bool) {
	s.setState(func() { s.dryRun = dryRun })
}

// Restore applies persisted state at boot. Zero-valued fields keep the
// configured defaults.
func (s *Scheduler) Restore(state State) {
	s.setState(func() {
		s.armed = state.Armed
		s.dryRun = state.DryRun
		if state.IntervalSeconds > 0 {
			if iv := time.Duration(state.IntervalSeconds) * time.Second; iv >= minInterval && iv > s.cycleTimeout {
				s.interval = iv
			}
		}
		if len(state.Watchlist) > 0 {
			s.watchlist = append([]string(nil), state.Watchlist...)
		}
		s.constraints = state.Constraints
	})
	logger.Infof("scheduler: restored persisted state (armed=%v)", state.Armed)
}

// Status reports the current settings plus runtime state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	state := s.stateLocked()
	s.mu.Unlock()
	return Status{
		State:         state,
		CycleInFlight: s.inFlight.Load(),
		BreakerState:  s.breaker.State().String(),
	}
}

func (s *Scheduler) currentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// setState applies a mutation under the lock and persists the result.
func (s *Scheduler) setState(apply func()) {
	s.mu.Lock()
	apply()
	state := s.stateLocked()
	s.mu.Unlock()
	if s.persist != nil {
		s.persist(state)
	}
}

func (s *Scheduler) stateLocked() State {
	return State{
		Armed:           s.armed,
		DryRun:          s.dryRun,
		IntervalSeconds: int(s.interval / time.Second),
		Watchlist:       append([]string(nil), s.watchlist...),
		Constraints:     s.constraints,
	}
}
