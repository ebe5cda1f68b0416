// Package worker reacts to expense change events published by the SQLite
// service, keeping cached categories and the chart series current.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expenseview/internal/amqp"
	"expenseview/internal/core"
	"expenseview/internal/log"
	"expenseview/internal/session"
)

const (
	minRetryDelay = time.Second
	maxRetryDelay = 30 * time.Second
)

// Consumer delivers expense events to a handler until ctx is done.
type Consumer interface {
	ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

// CategoryInvalidator drops a cached category list.
type CategoryInvalidator interface {
	InvalidateCategories()
}

// ChartRefresher reruns the aggregation for the session person.
type ChartRefresher interface {
	Refresh(ctx context.Context) ([]core.CategoryTotal, error)
}

type Config struct {
	Consumer   Consumer
	Categories CategoryInvalidator
	Chart      ChartRefresher
	Gate       session.Gate
	Logger     *log.Logger
}

// RefreshWorker handles expense events for one server process.
type RefreshWorker struct {
	consumer   Consumer
	categories CategoryInvalidator
	chart      ChartRefresher
	gate       session.Gate
	logger     *log.Logger
}

func NewRefreshWorker(cfg Config) *RefreshWorker {
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	return &RefreshWorker{
		consumer:   cfg.Consumer,
		categories: cfg.Categories,
		chart:      cfg.Chart,
		gate:       cfg.Gate,
		logger:     cfg.Logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent invalidates the category cache and, when the event belongs
// to the logged-in person, refreshes the chart. A returned error requeues
// the message.
func (w *RefreshWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	w.logger.InfoContext(ctx, "Processing expense event",
		log.FieldOperation, log.OpConsume,
		"kind", ev.Kind,
		log.FieldExpenseID, ev.ID,
		log.FieldPersonID, ev.PersonID)

	if w.categories != nil {
		w.categories.InvalidateCategories()
	}

	if w.chart == nil {
		return nil
	}
	person, err := session.Require(w.gate)
	if err != nil || person.ID != ev.PersonID {
		w.logger.DebugContext(ctx, "Event is for another person, skipping chart refresh",
			log.FieldExpenseID, ev.ID)
		return nil
	}

	if _, err := w.chart.Refresh(ctx); err != nil {
		if errors.Is(err, session.ErrNoIdentity) {
			return nil
		}
		return fmt.Errorf("refresh chart after %s: %w", ev.Kind, err)
	}
	return nil
}

// Run consumes events until ctx is cancelled, restarting the consumer with
// a growing delay whenever it stops.
func (w *RefreshWorker) Run(ctx context.Context) error {
	if w.consumer == nil {
		return errors.New("refresh worker has no consumer")
	}
	delay := minRetryDelay
	for {
		err := w.consumer.ConsumeExpenseEvents(ctx, w.HandleEvent)
		if ctx.Err() != nil {
			w.logger.Info("Refresh worker stopped")
			return nil
		}
		w.logger.WarnContext(ctx, "Event consumer stopped, restarting",
			log.FieldError, err, "backoff", delay.String())

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}
