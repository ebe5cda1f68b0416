package view

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"expenseview/internal/aggregate"
	"expenseview/internal/core"
	"expenseview/internal/log"
	"expenseview/internal/session"
	"expenseview/internal/source"
)

const (
	ChartTitle  = "Monthly expenses"
	ChartSuffix = "€"

	msgAdded       = "Expense added successfully!"
	msgInvalidForm = "Please fill all required fields correctly."
	msgAddFailed   = "Error adding expense. Please try again."
)

// ChartPoint is one bar of the dashboard chart.
type ChartPoint struct {
	Label string  `json:"label"`
	Y     float64 `json:"y"`
}

// Chart is the render-ready dashboard chart.
type Chart struct {
	Title  string       `json:"title"`
	Suffix string       `json:"suffix"`
	Month  string       `json:"month"`
	Points []ChartPoint `json:"dataPoints"`
}

// userMessager is implemented by source errors that carry a message meant
// for the user, such as a rejection reason from the remote service.
type userMessager interface {
	UserMessage() string
}

// DashboardConfig tunes a Dashboard. Zero values pick the defaults.
type DashboardConfig struct {
	Clock  aggregate.Clock
	Status *Status
	Logger *log.Logger
}

// Dashboard is the monthly overview: per-category chart, month total and
// the add-expense form.
type Dashboard struct {
	engine *aggregate.Engine
	adder  source.ExpenseAdder
	totals source.MonthTotalReader
	gate   session.Gate
	clock  aggregate.Clock
	status *Status
	logger *log.Logger
}

// NewDashboard wires a Dashboard around an aggregation engine.
func NewDashboard(engine *aggregate.Engine, adder source.ExpenseAdder, totals source.MonthTotalReader, gate session.Gate, cfg DashboardConfig) *Dashboard {
	if cfg.Clock == nil {
		cfg.Clock = aggregate.SystemClock{}
	}
	if cfg.Status == nil {
		cfg.Status = NewStatus(DefaultStatusDelay)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	return &Dashboard{
		engine: engine,
		adder:  adder,
		totals: totals,
		gate:   gate,
		clock:  cfg.Clock,
		status: cfg.Status,
		logger: cfg.Logger.WithComponent(log.ComponentView),
	}
}

// Status returns the banner the dashboard reports to.
func (d *Dashboard) Status() *Status { return d.status }

// Refresh recomputes the chart series. Without a logged-in person it sets
// the error banner and leaves the published series unchanged.
func (d *Dashboard) Refresh(ctx context.Context) ([]core.CategoryTotal, error) {
	points, err := d.engine.Refresh(ctx, d.gate)
	if errors.Is(err, session.ErrNoIdentity) {
		d.status.Error(session.NoIdentityMessage)
	}
	return points, err
}

// CurrentDataPoints returns the most recently published series.
func (d *Dashboard) CurrentDataPoints() []core.CategoryTotal {
	return d.engine.Current()
}

// CurrentMonthName is the English name of the clock's month.
func (d *Dashboard) CurrentMonthName() string {
	return core.MonthName(d.clock.Now().Month())
}

// Chart renders the published series.
func (d *Dashboard) Chart() Chart {
	totals := d.engine.Current()
	points := make([]ChartPoint, len(totals))
	for i, t := range totals {
		points[i] = ChartPoint{Label: t.Label, Y: t.Value.InexactFloat64()}
	}
	return Chart{
		Title:  ChartTitle,
		Suffix: ChartSuffix,
		Month:  d.CurrentMonthName(),
		Points: points,
	}
}

// CurrentMonthTotal returns the person's spending this month rounded to
// cents. A failed read is logged and reported as zero.
func (d *Dashboard) CurrentMonthTotal(ctx context.Context) (decimal.Decimal, error) {
	person, err := session.Require(d.gate)
	if err != nil {
		d.status.Error(session.NoIdentityMessage)
		return decimal.Zero, err
	}
	total, err := d.totals.CurrentMonthTotal(ctx, person.ID)
	if err != nil {
		d.logger.WarnContext(ctx, "Month total unavailable",
			log.FieldOperation, log.OpFetch, log.FieldPersonID, person.ID, log.FieldError, err)
		return decimal.Zero, nil
	}
	return core.RoundCurrency(total), nil
}

// AddExpense validates e, stores it for the logged-in person and refreshes
// the chart. A missing date defaults to today.
func (d *Dashboard) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		d.status.Error(msgInvalidForm)
		return core.Expense{}, err
	}
	person, err := session.Require(d.gate)
	if err != nil {
		d.status.Error(session.NoIdentityMessage)
		return core.Expense{}, err
	}

	if e.Date.IsZero() {
		e.Date = core.DateOf(d.clock.Now())
	}
	e.PersonID = person.ID

	saved, err := d.adder.Add(ctx, e, person.ID)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to add expense",
			log.NewFields().
				WithOperation(log.OpCreate).
				WithPerson(person.ID).
				WithExpense(0, e.Category, e.Amount().String()).
				WithError(err).
				ToSlice()...)
		msg := msgAddFailed
		var um userMessager
		if errors.As(err, &um) && um.UserMessage() != "" {
			msg = um.UserMessage()
		}
		d.status.Error(msg)
		return core.Expense{}, err
	}

	d.logger.InfoContext(ctx, "Expense added",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithPerson(person.ID).
			WithExpense(saved.ID, saved.Category, saved.Amount().String()).
			ToSlice()...)
	d.status.Success(msgAdded)

	if _, err := d.engine.Refresh(ctx, d.gate); err != nil {
		d.logger.WarnContext(ctx, "Chart refresh after add failed", log.FieldError, err)
	}
	return saved, nil
}
