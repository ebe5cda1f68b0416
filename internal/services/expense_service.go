package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"expenseview/internal/amqp"
	"expenseview/internal/core"
	"expenseview/internal/log"
)

// Repository is the persistence the service writes through.
type Repository interface {
	CreateExpense(ctx context.Context, e core.Expense, personID int64) (core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	SoftDeleteExpense(ctx context.Context, id int64) error
	ListExpenses(ctx context.Context, personID int64) ([]core.Expense, error)
	ListExpensesByCategory(ctx context.Context, personID int64, category string) ([]core.Expense, error)
	ListCategories(ctx context.Context) ([]string, error)
	MonthTotal(ctx context.Context, personID int64, now time.Time) (decimal.Decimal, error)
	Close() error
}

// Publisher announces expense changes.
type Publisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
	Close() error
}

// ExpenseService orchestrates expense writes across SQLite and AMQP. The
// local write is authoritative; a failed publish is logged and never fails
// the request.
type ExpenseService struct {
	storage   Repository
	publisher Publisher
	logger    *log.Logger
}

// NewExpenseService returns a service. publisher may be nil when no broker
// is configured.
func NewExpenseService(storage Repository, publisher Publisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		storage:   storage,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentSource),
	}
}

// CreateExpense saves an expense locally and publishes a created event.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense, personID int64) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	saved, err := s.storage.CreateExpense(ctx, e, personID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, amqp.NewExpenseEvent(amqp.EventCreated, saved.ID, personID, saved.Category))
	return saved, nil
}

// DeleteExpense soft deletes an expense locally and publishes a deleted
// event.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	existing, err := s.storage.GetExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("load expense: %w", err)
	}
	if err := s.storage.SoftDeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("soft delete expense: %w", err)
	}

	s.publish(ctx, amqp.NewExpenseEvent(amqp.EventDeleted, id, existing.PersonID, existing.Category))
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, ev *amqp.ExpenseEvent) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping event", "kind", ev.Kind, log.FieldExpenseID, ev.ID)
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			"kind", ev.Kind, log.FieldExpenseID, ev.ID, log.FieldError, err)
	}
}

// Close closes both storage and AMQP connections
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
