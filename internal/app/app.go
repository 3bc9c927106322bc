// Package app assembles the autopilot from configuration: broker, consensus
// engine, risk gate, scheduler, persistence and the admin HTTP surface.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"autopilot/internal/autopilot"
	"autopilot/internal/broker"
	alpacabroker "autopilot/internal/broker/alpaca"
	"autopilot/internal/broker/paper"
	"autopilot/internal/config"
	"autopilot/internal/config/loader"
	"autopilot/internal/decision"
	"autopilot/internal/gateway/opinion"
	"autopilot/internal/logger"
	"autopilot/internal/notifier"
	"autopilot/internal/risk"
	"autopilot/internal/store/reportstore"
	adminhttp "autopilot/internal/transport/http"
)

// venue is the full broker surface one provider must supply.
type venue interface {
	broker.Broker
	broker.MarketData
	broker.Clock
}

type App struct {
	cfg       *config.Config
	scheduler *autopilot.Scheduler
	server    *adminhttp.Server
	store     *reportstore.Store
	roster    *loader.RosterLoader
}

func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	vn, err := buildVenue(cfg.Broker)
	if err != nil {
		return nil, err
	}

	roster, err := loader.NewRosterLoader(cfg.Decision.EvaluatorsPath)
	if err != nil {
		return nil, err
	}
	roster.Subscribe(func(snap loader.Snapshot) {
		logger.Infof("evaluator roster version %d active (%d evaluators)", snap.Version, len(snap.Evaluators))
	})

	engine := decision.NewEngine(
		buildSignalSource(cfg.Opinion),
		roster.Evaluators,
		cfg.Decision.Quorum,
		time.Duration(cfg.Decision.EvaluatorTimeoutSeconds)*time.Second,
	)

	limits := risk.Limits{
		MaxDrawdownPct:       cfg.Risk.MaxDrawdownPct,
		DailyLossLimitPct:    cfg.Risk.DailyLossLimitPct,
		MaxSectorExposurePct: cfg.Risk.MaxSectorExposurePct,
		MaxPositionSizePct:   cfg.Risk.MaxPositionSizePct,
		PerPositionStopPct:   cfg.Risk.PerPositionStopPct,
	}
	policy := risk.NewPolicy(cfg.Risk.Budget, limits, cfg.Risk.Sectors)
	sizer := risk.NewSizer(cfg.Risk.Budget, risk.SizerConfig{
		Policy:          cfg.Risk.Sizing.Policy,
		MaxPositionPct:  cfg.Risk.Sizing.MaxPositionPct,
		RiskPerTradePct: cfg.Risk.Sizing.RiskPerTradePct,
	})

	store, err := reportstore.Open(cfg.Store.Path)
	if err != nil {
		roster.Close()
		return nil, fmt.Errorf("opening report store: %w", err)
	}

	var alerts autopilot.Notifier
	if cfg.Notify.Telegram.Enabled {
		alerts = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
	}

	a := &App{cfg: cfg, store: store, roster: roster}

	runner := autopilot.NewRunner(vn, vn, engine, risk.NewGate(policy, sizer), policy,
		&reportSink{store: store}, alerts, autopilot.RunnerConfig{HistoryBars: cfg.Autopilot.HistoryBars})

	scheduler, err := autopilot.NewScheduler(runner, vn, autopilot.SchedulerConfig{
		Interval:     cfg.Autopilot.Interval(),
		CycleTimeout: cfg.Autopilot.CycleTimeout(),
		Watchlist:    cfg.Autopilot.Watchlist,
		Constraints: autopilot.Constraints{
			ExcludeSymbols: cfg.Autopilot.Constraints.ExcludeSymbols,
			ExcludeSectors: cfg.Autopilot.Constraints.ExcludeSectors,
		},
		DryRun:             cfg.Autopilot.DryRun,
		EnforceMarketHours: cfg.Autopilot.EnforceMarketHours,
		RunImmediately:     cfg.Autopilot.RunImmediately,
		Persist:            a.persistState,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.scheduler = scheduler
	a.restoreOrArm()

	server, err := adminhttp.NewServer(adminhttp.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Scheduler: scheduler,
		Risk:      policy,
		Reports:   store,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.server = server
	return a, nil
}

// Run serves the admin API and the cycle loop until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.server.Start(ctx)
	})
	group.Go(func() error {
		if err := a.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return group.Wait()
}

func (a *App) Close() {
	if a.roster != nil {
		a.roster.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// restoreOrArm replays the persisted scheduler state; a fresh database falls
// back to the configured autopilot.enabled flag.
func (a *App) restoreOrArm() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	saved, err := a.store.LoadState(ctx)
	if err != nil {
		logger.Warnf("loading persisted scheduler state failed: %v", err)
	}
	if saved == nil {
		if a.cfg.Autopilot.Enabled {
			a.scheduler.Start()
		}
		return
	}

	state := autopilot.State{
		Armed:           saved.Running,
		DryRun:          saved.DryRun,
		IntervalSeconds: saved.IntervalSeconds,
	}
	if len(saved.Watchlist) > 0 {
		if err := json.Unmarshal(saved.Watchlist, &state.Watchlist); err != nil {
			logger.Warnf("persisted watchlist unreadable, keeping configured one: %v", err)
		}
	}
	if len(saved.Constraints) > 0 {
		if err := json.Unmarshal(saved.Constraints, &state.Constraints); err != nil {
			logger.Warnf("persisted constraints unreadable, keeping configured ones: %v", err)
		}
	}
	a.scheduler.Restore(state)
}

func (a *App) persistState(state autopilot.State) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	watchlist, _ := json.Marshal(state.Watchlist)
	constraints, _ := json.Marshal(state.Constraints)
	err := a.store.SaveState(ctx, &reportstore.EngineStateModel{
		Running:         state.Armed,
		DryRun:          state.DryRun,
		IntervalSeconds: state.IntervalSeconds,
		Watchlist:       watchlist,
		Constraints:     constraints,
	})
	if err != nil {
		logger.Errorf("scheduler state not persisted: %v", err)
	}
}

func buildVenue(cfg config.BrokerConfig) (venue, error) {
	switch cfg.Provider {
	case "alpaca":
		logger.Infof("broker: alpaca (%s)", cfg.BaseURL)
		return alpacabroker.New(alpacabroker.Config{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			BaseURL:   cfg.BaseURL,
		}), nil
	case "paper":
		logger.Infof("broker: simulated, starting cash %.2f", cfg.PaperStartingCash)
		return paper.New(cfg.PaperStartingCash), nil
	default:
		return nil, fmt.Errorf("unknown broker provider: %s", cfg.Provider)
	}
}

// buildSignalSource picks the evaluator signal source. Without an opinion
// gateway every evaluator votes from the deterministic technical read.
func buildSignalSource(cfg config.OpinionConfig) decision.SignalSource {
	if !cfg.Enabled {
		logger.Infof("opinion gateway disabled, evaluators vote on technicals")
		return decision.TechnicalSource{}
	}
	return opinion.NewSource(&opinion.ChatClient{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
		ExtraHeaders: cfg.Headers,
	})
}

// reportSink adapts the SQLite store to the cycle report sink.
type reportSink struct {
	store *reportstore.Store
}

func (s *reportSink) SaveReport(ctx context.Context, report autopilot.CycleReport) error {
	detail, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return s.store.SaveReport(ctx, &reportstore.CycleReportModel{
		ID:         report.ID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Status:     report.Status,
		Detail:     detail,
	})
}
