// Command expenseview-export writes the configured person's expenses and
// this month's per-category totals to an XLSX file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"expenseview/internal/aggregate"
	"expenseview/internal/backend"
	"expenseview/internal/cli"
	"expenseview/internal/config"
	"expenseview/internal/core"
	"expenseview/internal/export"
	"expenseview/internal/listing"
	"expenseview/internal/log"
	"expenseview/internal/session"
	"expenseview/internal/view"
)

func main() {
	out := flag.String("out", "expenses.xlsx", "output file")
	sortBy := flag.String("sort", string(listing.ColumnPrice), "sort column: price, category or date")
	desc := flag.Bool("desc", false, "sort descending")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, *out, listing.ParseColumn(*sortBy), *desc, *timeout, logger); err != nil {
		logger.Error("Export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, out string, col listing.Column, desc bool, timeout time.Duration, logger *log.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	store := session.NewStore()
	if err := cli.SeedSession(cfg, store); err != nil {
		return err
	}
	if _, err := session.Require(store); err != nil {
		return fmt.Errorf("SESSION_PERSON_ID must be set for export: %w", err)
	}

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	clock := aggregate.SystemClock{}
	backendConfig.Tokens = store
	backendConfig.Clock = clock
	// events are irrelevant for a one-shot export
	backendConfig.AMQPURL = ""

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", log.FieldError, err)
			}
		}()
	}

	list := view.NewExpenseList(result.Source, result.Source, store, view.ListConfig{
		PageSize: cfg.PageSize,
		Locale:   cfg.SortLocale,
		Logger:   logger,
	})
	defer list.Status().Stop()
	if err := list.Load(ctx); err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	// The list starts on price ascending; a click on a new column selects
	// it ascending and a second click flips it.
	if col != listing.ColumnPrice {
		list.SortBy(col)
	}
	if desc {
		list.SortBy(col)
	}

	engine := aggregate.NewEngine(result.Source, result.Source, aggregate.Config{
		Clock:          clock,
		MaxConcurrency: cfg.AggregationMaxConcurrency,
		Logger:         logger,
	})
	totals, err := engine.Refresh(ctx, store)
	if err != nil {
		return fmt.Errorf("aggregate totals: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	wb := export.Workbook{
		Expenses: list.Snapshot(),
		Totals:   totals,
		Month:    core.MonthName(clock.Now().Month()),
	}
	if err := export.NewService(logger).WriteXLSX(ctx, wb, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}

	logger.Info("Export written", "file", out, log.FieldPersonID, cfg.SessionPersonID, log.FieldCount, len(wb.Expenses))
	return nil
}
