package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/vendingbot/internal/domain"
	"github.com/alanyoungcy/vendingbot/internal/oracle"
	"github.com/alanyoungcy/vendingbot/internal/restock"
	"github.com/alanyoungcy/vendingbot/internal/retry"
	"github.com/alanyoungcy/vendingbot/internal/scoring"
	"github.com/alanyoungcy/vendingbot/internal/seed"
	"github.com/alanyoungcy/vendingbot/internal/server"
	"github.com/alanyoungcy/vendingbot/internal/server/handler"
	"github.com/alanyoungcy/vendingbot/internal/sim"
)

// dayLockTTL bounds the advisory lock held for a whole-day simulation run.
const dayLockTTL = 15 * time.Minute

// SeedMode writes the supplier catalog, the customer roster, and an initial
// empty machine with the configured starting balance.
func (a *App) SeedMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting seed mode")

	opts := seed.Options{
		Customers:      a.cfg.Seed.Customers,
		Seed:           a.cfg.Sim.RandSeed,
		Date:           a.simDate(),
		InitialBalance: a.cfg.Seed.InitialBalance,
	}
	return seed.Apply(ctx, deps.Snapshots, deps.Catalog, deps.Customers, opts, a.logger)
}

// DayMode simulates one trading day against the active snapshot pair.
func (a *App) DayMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting day mode")
	_, err := a.runDay(ctx, deps, a.simDate())
	return err
}

// RestockMode asks the restock oracle for a plan and commits it as the
// opening snapshot for the configured date.
func (a *App) RestockMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting restock mode")
	_, err := a.runRestock(ctx, deps, a.simDate())
	return err
}

// LoopMode alternates restock and day simulation for the configured number
// of days, starting from the configured date. The status server runs
// alongside when enabled so the machine can be inspected mid-loop.
func (a *App) LoopMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting loop mode",
		slog.Int("days", a.cfg.Sim.LoopDays),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps)
	}

	g.Go(func() error {
		defer cancel()

		date := a.simDate()
		for i := 0; i < a.cfg.Sim.LoopDays; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := a.runRestock(ctx, deps, date); err != nil {
				return fmt.Errorf("loop: day %s: %w", date, err)
			}
			if _, err := a.runDay(ctx, deps, date); err != nil {
				return fmt.Errorf("loop: day %s: %w", date, err)
			}
			next, err := nextDate(date)
			if err != nil {
				return fmt.Errorf("loop: advance date: %w", err)
			}
			date = next
		}

		if deps.Archiver != nil {
			key, count, err := deps.Archiver.ExportLedger(ctx)
			if err != nil {
				a.logger.WarnContext(ctx, "loop: ledger export failed",
					slog.String("error", err.Error()),
				)
			} else {
				a.logger.InfoContext(ctx, "loop: ledger exported",
					slog.String("key", key),
					slog.Int("events", count),
				)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ServeMode runs only the status API server.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps)
	return g.Wait()
}

// runDay drives one simulated trading day: roster visits against a working
// copy of the stock, the event ledger append, and the closing commit. The
// report is archived and announced when those channels are wired.
func (a *App) runDay(ctx context.Context, deps *Dependencies, date string) (*sim.DayReport, error) {
	if deps.LockManager != nil {
		release, err := deps.LockManager.Acquire(ctx, "day-run", dayLockTTL)
		if err != nil {
			return nil, fmt.Errorf("day: acquire lock: %w", err)
		}
		defer release()
	}

	purchaser, err := a.buildPurchaseOracle(ctx, deps)
	if err != nil {
		return nil, err
	}

	driver := sim.NewDriver(deps.Snapshots, deps.Customers, purchaser, a.retryPolicy(), deps.Metrics, a.logger)
	report, err := driver.RunDay(ctx, sim.Config{
		Date:      date,
		StartTime: a.cfg.Sim.StartTime,
		EventStep: a.cfg.Sim.EventStep.Duration,
		Shuffle:   a.cfg.Sim.Shuffle,
		Seed:      a.cfg.Sim.RandSeed,
	})
	if err != nil {
		return nil, fmt.Errorf("day: %w", err)
	}

	if deps.Archiver != nil {
		key, archiveErr := deps.Archiver.ArchiveDayReport(ctx, report)
		if archiveErr != nil {
			a.logger.WarnContext(ctx, "day: report archive failed",
				slog.String("date", date),
				slog.String("error", archiveErr.Error()),
			)
		} else {
			a.logger.InfoContext(ctx, "day: report archived", slog.String("key", key))
		}
	}
	if notifyErr := deps.Notifier.DayClosed(ctx, report); notifyErr != nil {
		a.logger.WarnContext(ctx, "day: notification failed",
			slog.String("error", notifyErr.Error()),
		)
	}

	return report, nil
}

// runRestock collects the restock context for date, asks the restock oracle
// for a plan, and commits it through the validation engine.
func (a *App) runRestock(ctx context.Context, deps *Dependencies, date string) (*restock.Result, error) {
	planner, err := a.buildRestockOracle(ctx, deps)
	if err != nil {
		return nil, err
	}

	rc, err := a.restockContext(ctx, deps, date)
	if err != nil {
		return nil, err
	}

	var plan domain.RestockPlan
	planErr := a.retryPolicy().Do(ctx, func(ctx context.Context) error {
		var derr error
		plan, derr = planner.DecideRestockPlan(ctx, rc)
		return derr
	})
	if planErr != nil {
		return nil, fmt.Errorf("restock: oracle plan: %w", planErr)
	}

	engine := restock.NewEngine(deps.Snapshots, deps.Catalog, deps.LockManager, restock.Config{
		Mode:                     restock.OverCapacityMode(strings.ToLower(a.cfg.Restock.OverCapacity)),
		NewProductsNeedEmptySlot: a.cfg.Restock.NewProductsNeedEmptySlot,
		LockTTL:                  a.cfg.Restock.LockTTL.Duration,
	}, deps.Metrics, a.logger)

	res, err := engine.Apply(ctx, date, plan)
	if err != nil {
		if notifyErr := deps.Notifier.RestockRejected(ctx, date, err); notifyErr != nil {
			a.logger.WarnContext(ctx, "restock: rejection notification failed",
				slog.String("error", notifyErr.Error()),
			)
		}
		return nil, fmt.Errorf("restock: %w", err)
	}
	if notifyErr := deps.Notifier.RestockCommitted(ctx, res); notifyErr != nil {
		a.logger.WarnContext(ctx, "restock: notification failed",
			slog.String("error", notifyErr.Error()),
		)
	}
	return res, nil
}

// restockContext assembles the machine state, the prior day's ledger, the
// supplier catalog, and optional operator guidance for the restock oracle.
func (a *App) restockContext(ctx context.Context, deps *Dependencies, date string) (domain.RestockContext, error) {
	rc := domain.RestockContext{Date: date}

	stock, err := deps.Snapshots.ReadActiveStock(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return rc, fmt.Errorf("restock: read stock: %w", err)
	}
	rc.Stock = stock

	balance, err := deps.Snapshots.ReadActiveBalance(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return rc, fmt.Errorf("restock: read balance: %w", err)
	}
	rc.Balance = balance

	// The plan for the coming day considers what sold the day before.
	if prev, derr := prevDate(date); derr == nil {
		history, herr := deps.Snapshots.ReadEvents(ctx, prev)
		if herr != nil {
			a.logger.WarnContext(ctx, "restock: read history failed",
				slog.String("date", prev),
				slog.String("error", herr.Error()),
			)
		} else {
			rc.History = history
		}
	}

	catalog, err := deps.Catalog.List(ctx)
	if err != nil {
		return rc, fmt.Errorf("restock: read catalog: %w", err)
	}
	rc.Catalog = catalog

	if deps.Archiver != nil {
		guidance, gerr := deps.Archiver.LoadGuidance(ctx, a.cfg.S3.GuidanceKey)
		if gerr != nil {
			a.logger.WarnContext(ctx, "restock: load guidance failed",
				slog.String("error", gerr.Error()),
			)
		} else {
			rc.Guidance = guidance
		}
	}

	return rc, nil
}

// buildPurchaseOracle selects the configured purchase decision source.
func (a *App) buildPurchaseOracle(ctx context.Context, deps *Dependencies) (domain.PurchaseOracle, error) {
	switch strings.ToLower(a.cfg.Oracle.Provider) {
	case "llm":
		return a.newLLMClient(deps), nil
	case "local":
		catalog, err := deps.Catalog.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("oracle: read catalog: %w", err)
		}
		return oracle.NewLocal(catalog, a.scoringParams(), a.cfg.Sim.RandSeed), nil
	default:
		return nil, fmt.Errorf("oracle: unsupported provider %q", a.cfg.Oracle.Provider)
	}
}

// buildRestockOracle selects the configured restock planner.
func (a *App) buildRestockOracle(_ context.Context, deps *Dependencies) (domain.RestockOracle, error) {
	switch strings.ToLower(a.cfg.Oracle.Provider) {
	case "llm":
		return a.newLLMClient(deps), nil
	case "local":
		return oracle.TopUp{}, nil
	default:
		return nil, fmt.Errorf("oracle: unsupported provider %q", a.cfg.Oracle.Provider)
	}
}

func (a *App) newLLMClient(deps *Dependencies) *oracle.Client {
	opts := []oracle.ClientOption{
		oracle.WithModel(a.cfg.Oracle.Model),
		oracle.WithTemperature(a.cfg.Oracle.Temperature),
	}
	if deps.RateLimiter != nil {
		opts = append(opts, oracle.WithLimiter(deps.RateLimiter))
	}
	return oracle.NewClient(a.cfg.Oracle.Endpoint, a.cfg.Oracle.APIKey, opts...)
}

// startServer adds the status API server to the given errgroup and wires
// its graceful shutdown to the context.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		Limiter:     deps.RateLimiter,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Machine: handler.NewMachineHandler(deps.Snapshots, a.logger),
	}, deps.Registry, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

func (a *App) retryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: a.cfg.Retry.MaxAttempts,
		Initial:     a.cfg.Retry.Initial.Duration,
		MaxInterval: a.cfg.Retry.MaxInterval.Duration,
	}
}

func (a *App) scoringParams() scoring.Params {
	return scoring.Params{
		PriceScale:    a.cfg.Scoring.PriceScale,
		ThresholdBase: a.cfg.Scoring.ThresholdBase,
		HungerBonus:   a.cfg.Scoring.HungerBonus,
		Epsilon:       a.cfg.Scoring.Epsilon,
	}
}

// simDate resolves the configured simulation date, defaulting to today.
func (a *App) simDate() string {
	if a.cfg.Sim.Date != "" {
		return a.cfg.Sim.Date
	}
	return time.Now().UTC().Format("2006-01-02")
}

func nextDate(date string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, 1).Format("2006-01-02"), nil
}

func prevDate(date string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -1).Format("2006-01-02"), nil
}
