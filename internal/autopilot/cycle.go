package autopilot

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"autopilot/internal/broker"
	"autopilot/internal/decision"
	"autopilot/internal/logger"
	"autopilot/internal/risk"
	"autopilot/internal/types"
)

const defaultCycleParallelism = 4

// Runner executes one full trading cycle: snapshots, emergency stop,
// per-instrument consensus and risk gating, then order submission.
type Runner struct {
	broker      broker.Broker
	data        broker.MarketData
	engine      *decision.Engine
	gate        *risk.Gate
	policy      *risk.Policy
	sink        ReportSink
	notifier    Notifier
	historyBars int
	parallelism int
}

type RunnerConfig struct {
	HistoryBars int
	Parallelism int
}

func NewRunner(b broker.Broker, data broker.MarketData, engine *decision.Engine, gate *risk.Gate, policy *risk.Policy, sink ReportSink, notifier Notifier, cfg RunnerConfig) *Runner {
	if cfg.HistoryBars <= 0 {
		cfg.HistoryBars = 60
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultCycleParallelism
	}
	return &Runner{
		broker:      b,
		data:        data,
		engine:      engine,
		gate:        gate,
		policy:      policy,
		sink:        sink,
		notifier:    notifier,
		historyBars: cfg.HistoryBars,
		parallelism: cfg.Parallelism,
	}
}

// RunCycle executes one cycle and returns its report. The caller bounds ctx
// with the cycle timeout; instruments left unfinished at expiry are recorded
// as cancelled, never silently dropped.
func (r *Runner) RunCycle(ctx context.Context, watchlist []string, constraints Constraints, dryRun bool) CycleReport {
	report := CycleReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Status:    StatusCompleted,
		DryRun:    dryRun,
	}
	defer func() {
		report.FinishedAt = time.Now()
		report.Duration = report.FinishedAt.Sub(report.StartedAt)
		r.submitReport(report)
	}()

	account, err := r.broker.GetAccount(ctx)
	if err != nil {
		logger.Errorf("cycle %s: account snapshot unavailable, aborting: %v", report.ID, err)
		report.Status = StatusAborted
		report.Error = err.Error()
		return report
	}

	positions, err := r.broker.GetPositions(ctx)
	if err != nil {
		logger.Warnf("cycle %s: positions snapshot failed, assuming none: %v", report.ID, err)
		positions = nil
	}

	if stop, reason, symbols := r.policy.EmergencyStop(account.PortfolioValue, positions); stop {
		logger.Errorf("cycle %s: %s", report.ID, reason)
		report.Status = StatusEmergencyStop
		report.Emergency = reason
		if !dryRun {
			report.Liquidated = r.liquidate(ctx, symbols)
		}
		r.alert(reason)
		return report
	}

	symbols := constraints.Filter(watchlist, r.policy.SectorOf)
	if len(symbols) == 0 {
		logger.Infof("cycle %s: empty watch-list after constraints, nothing to do", report.ID)
		return report
	}

	var mu sync.Mutex
	done := make(map[string]bool, len(symbols))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.parallelism)
	for _, symbol := range symbols {
		symbol := symbol
		group.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			dec, outcome, ok := r.evaluate(gctx, symbol, account, positions, dryRun)
			mu.Lock()
			defer mu.Unlock()
			if !ok {
				return nil
			}
			done[symbol] = true
			report.Decisions = append(report.Decisions, dec)
			if outcome.Order != nil {
				report.Admitted = append(report.Admitted, *outcome.Order)
			}
			if outcome.Rejection != nil {
				report.Rejections = append(report.Rejections, *outcome.Rejection)
			}
			return nil
		})
	}
	_ = group.Wait()

	if ctx.Err() != nil {
		report.Status = StatusCancelled
		for _, symbol := range symbols {
			if !done[symbol] {
				report.Rejections = append(report.Rejections, risk.Rejection{
					Symbol: symbol,
					Reason: risk.Reason{
						Kind:    risk.ReasonCycleCancelled,
						Message: "cycle deadline expired before evaluation finished",
					},
				})
			}
		}
	}

	peak, dailyStart, _ := r.policy.Watermarks()
	logger.Infof("cycle %s: %s in %s (decisions=%d admitted=%d rejected=%d peak=%.2f day_start=%.2f)",
		report.ID, report.Status, report.Duration.Round(time.Millisecond),
		len(report.Decisions), len(report.Admitted), len(report.Rejections), peak, dailyStart)
	return report
}

// evaluate runs one instrument through consensus and the risk gate. ok is
// false when the instrument produced no result (missing data or cancelled).
func (r *Runner) evaluate(ctx context.Context, symbol string, account types.Account, positions []types.Position, dryRun bool) (decision.Decision, risk.Outcome, bool) {
	prices, err := r.data.RecentPrices(ctx, symbol, r.historyBars)
	if err != nil {
		logger.Warnf("cycle: price history for %s unavailable, skipping: %v", symbol, err)
		return decision.Decision{}, risk.Outcome{}, false
	}

	dec := r.engine.Evaluate(ctx, symbol, prices, account)
	if ctx.Err() != nil {
		return decision.Decision{}, risk.Outcome{}, false
	}
	outcome := r.gate.Admit(dec, account, positions, prices)
	if outcome.Order != nil && !dryRun {
		order, err := r.broker.PlaceOrder(ctx, symbol, outcome.Order.Qty, outcome.Order.Action)
		if err != nil {
			logger.Errorf("cycle: order submission for %s failed: %v", symbol, err)
			outcome.Order.Error = err.Error()
		} else {
			outcome.Order.OrderID = order.ID
		}
	}
	return dec, outcome, true
}

// liquidate closes the named positions. Failures are logged and retried on
// the next emergency evaluation rather than compounding this cycle.
func (r *Runner) liquidate(ctx context.Context, symbols []string) []broker.Order {
	var orders []broker.Order
	for _, symbol := range symbols {
		order, err := r.broker.Liquidate(ctx, symbol)
		if err != nil {
			logger.Errorf("liquidation of %s failed, will retry next cycle: %v", symbol, err)
			continue
		}
		orders = append(orders, order)
	}
	return orders
}

func (r *Runner) submitReport(report CycleReport) {
	if r.sink == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.sink.SaveReport(ctx, report); err != nil {
			logger.Errorf("cycle report %s not persisted: %v", report.ID, err)
		}
	}()
}

func (r *Runner) alert(message string) {
	if r.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.notifier.Notify(ctx, message); err != nil {
			logger.Warnf("notifier: %v", err)
		}
	}()
}
