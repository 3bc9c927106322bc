package autopilot

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"autopilot/internal/types"
)

type fakeClock struct{ open bool }

func (f fakeClock) IsMarketOpen(ctx context.Context) (bool, error) { return f.open, nil }

func newTestScheduler(t *testing.T, b *fakeBroker, cfg SchedulerConfig) *Scheduler {
	t.Helper()
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.CycleTimeout == 0 {
		cfg.CycleTimeout = 30 * time.Second
	}
	sink := &fakeSink{reports: make(chan CycleReport, 16)}
	s, err := NewScheduler(newTestRunner(b, sink, nil), fakeClock{open: true}, cfg)
	assert.NoError(t, err)
	return s
}

func TestSchedulerSingleFlight(t *testing.T) {
	gate := make(chan struct{})
	b := &fakeBroker{
		account:     types.Account{Cash: 100000, PortfolioValue: 100000},
		accountGate: gate,
	}
	s := newTestScheduler(t, b, SchedulerConfig{Watchlist: []string{"AAPL"}})
	s.Start()

	go s.tick(context.Background())
	assert.Eventually(t, func() bool { return s.Status().CycleInFlight }, 2*time.Second, time.Millisecond)

	// a tick landing mid-cycle must drop, not queue
	s.tick(context.Background())
	s.tick(context.Background())

	close(gate)
	assert.Eventually(t, func() bool { return !s.Status().CycleInFlight }, 2*time.Second, time.Millisecond)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, 1, b.accountCalls)
}

func TestSchedulerDisarmedTickDoesNothing(t *testing.T) {
	b := &fakeBroker{account: types.Account{Cash: 100000, PortfolioValue: 100000}}
	s := newTestScheduler(t, b, SchedulerConfig{Watchlist: []string{"AAPL"}})

	s.tick(context.Background())
	assert.Equal(t, 0, b.accountCalls)

	s.Start()
	s.Start() // idempotent
	assert.True(t, s.Status().Armed)

	s.tick(context.Background())
	assert.Equal(t, 1, b.accountCalls)

	s.Stop()
	s.tick(context.Background())
	assert.Equal(t, 1, b.accountCalls)
}

func TestSchedulerSkipsWhenMarketClosed(t *testing.T) {
	b := &fakeBroker{account: types.Account{Cash: 100000, PortfolioValue: 100000}}
	sink := &fakeSink{reports: make(chan CycleReport, 1)}
	s, err := NewScheduler(newTestRunner(b, sink, nil), fakeClock{open: false}, SchedulerConfig{
		Interval:           time.Minute,
		CycleTimeout:       30 * time.Second,
		Watchlist:          []string{"AAPL"},
		EnforceMarketHours: true,
	})
	assert.NoError(t, err)
	s.Start()

	s.tick(context.Background())
	assert.Equal(t, 0, b.accountCalls)
}

func TestSchedulerBreakerOpensAfterRepeatedAborts(t *testing.T) {
	b := &fakeBroker{accountErr: fmt.Errorf("broker down")}
	s := newTestScheduler(t, b, SchedulerConfig{
		Watchlist:        []string{"AAPL"},
		BreakerThreshold: 2,
		BreakerCooldown:  time.Hour,
	})
	s.Start()

	s.tick(context.Background())
	s.tick(context.Background())
	assert.Equal(t, "OPEN", s.Status().BreakerState)

	// open breaker skips the cycle entirely
	s.tick(context.Background())
	assert.Equal(t, 2, b.accountCalls)
}

func TestSchedulerSettingValidation(t *testing.T) {
	b := &fakeBroker{account: types.Account{Cash: 100000, PortfolioValue: 100000}}
	s := newTestScheduler(t, b, SchedulerConfig{Watchlist: []string{"AAPL"}})

	assert.Error(t, s.SetInterval(30*time.Second))
	assert.Error(t, s.SetInterval(20*time.Second))
	assert.NoError(t, s.SetInterval(2*time.Minute))
	assert.Equal(t, 120, s.Status().IntervalSeconds)

	assert.Error(t, s.SetWatchlist(nil))
	assert.Error(t, s.SetWatchlist([]string{"AAPL", ""}))
	assert.NoError(t, s.SetWatchlist([]string{"MSFT"}))
	assert.Equal(t, []string{"MSFT"}, s.Status().Watchlist)

	s.SetDryRun(true)
	assert.True(t, s.Status().DryRun)
}

func TestSchedulerPersistsStateChanges(t *testing.T) {
	var mu sync.Mutex
	var saved []State
	b := &fakeBroker{account: types.Account{Cash: 100000, PortfolioValue: 100000}}
	s := newTestScheduler(t, b, SchedulerConfig{
		Watchlist: []string{"AAPL"},
		Persist: func(state State) {
			mu.Lock()
			saved = append(saved, state)
			mu.Unlock()
		},
	})

	s.Start()
	assert.NoError(t, s.SetWatchlist([]string{"MSFT", "NVDA"}))
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if assert.Len(t, saved, 3) {
		assert.True(t, saved[0].Armed)
		assert.Equal(t, []string{"MSFT", "NVDA"}, saved[1].Watchlist)
		assert.False(t, saved[2].Armed)
	}
}

func TestSchedulerRestore(t *testing.T) {
	b := &fakeBroker{account: types.Account{Cash: 100000, PortfolioValue: 100000}}
	s := newTestScheduler(t, b, SchedulerConfig{Watchlist: []string{"AAPL"}})

	s.Restore(State{
		Armed:           true,
		DryRun:          true,
		IntervalSeconds: 600,
		Watchlist:       []string{"NVDA"},
		Constraints:     Constraints{ExcludeSectors: []string{"Energy"}},
	})

	status := s.Status()
	assert.True(t, status.Armed)
	assert.True(t, status.DryRun)
	assert.Equal(t, 600, status.IntervalSeconds)
	assert.Equal(t, []string{"NVDA"}, status.Watchlist)
	assert.Equal(t, []string{"Energy"}, status.Constraints.ExcludeSectors)
}

func TestRegularSessionOpen(t *testing.T) {
	// Tuesday 2026-03-03 12:00 ET
	assert.True(t, regularSessionOpen(time.Date(2026, 3, 3, 17, 0, 0, 0, time.UTC)))
	// Tuesday 08:00 ET, pre-market
	assert.False(t, regularSessionOpen(time.Date(2026, 3, 3, 13, 0, 0, 0, time.UTC)))
	// Saturday
	assert.False(t, regularSessionOpen(time.Date(2026, 3, 7, 17, 0, 0, 0, time.UTC)))
}
