package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"expenseview/internal/amqp"
	"expenseview/internal/core"
	"expenseview/internal/session"
)

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) InvalidateCategories() { c.n.Add(1) }

type stubChart struct {
	calls atomic.Int32
	err   error
}

func (s *stubChart) Refresh(context.Context) ([]core.CategoryTotal, error) {
	s.calls.Add(1)
	return nil, s.err
}

func loggedIn(t *testing.T, id int64) *session.Store {
	t.Helper()
	s := session.NewStore()
	if err := s.Save(core.Person{ID: id, Token: "tok"}); err != nil {
		t.Fatalf("save person: %v", err)
	}
	return s
}

func TestHandleEvent(t *testing.T) {
	tests := []struct {
		name        string
		gate        session.Gate
		eventPerson int64
		chartErr    error
		wantRefresh int32
		wantErr     bool
	}{
		{name: "same person refreshes chart", gate: loggedIn(t, 7), eventPerson: 7, wantRefresh: 1},
		{name: "other person skips chart", gate: loggedIn(t, 7), eventPerson: 8, wantRefresh: 0},
		{name: "nobody logged in", gate: session.NewStore(), eventPerson: 7, wantRefresh: 0},
		{name: "refresh failure requeues", gate: loggedIn(t, 7), eventPerson: 7, chartErr: context.DeadlineExceeded, wantRefresh: 1, wantErr: true},
		{name: "identity lost mid-flight", gate: loggedIn(t, 7), eventPerson: 7, chartErr: session.ErrNoIdentity, wantRefresh: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &countingInvalidator{}
			chart := &stubChart{err: tt.chartErr}
			w := NewRefreshWorker(Config{Categories: inv, Chart: chart, Gate: tt.gate})

			ev := amqp.NewExpenseEvent(amqp.EventCreated, 1, tt.eventPerson, "Food")
			err := w.HandleEvent(context.Background(), ev)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if inv.n.Load() != 1 {
				t.Errorf("categories invalidated %d times, want 1", inv.n.Load())
			}
			if chart.calls.Load() != tt.wantRefresh {
				t.Errorf("chart refreshed %d times, want %d", chart.calls.Load(), tt.wantRefresh)
			}
		})
	}
}

type scriptedConsumer struct {
	events []*amqp.ExpenseEvent
	runs   atomic.Int32
}

func (c *scriptedConsumer) ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error {
	if c.runs.Add(1) == 1 {
		for _, ev := range c.events {
			_ = handler(ctx, ev)
		}
		return errors.New("message channel closed")
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunRestartsConsumer(t *testing.T) {
	inv := &countingInvalidator{}
	consumer := &scriptedConsumer{events: []*amqp.ExpenseEvent{
		amqp.NewExpenseEvent(amqp.EventCreated, 1, 3, "Food"),
		amqp.NewExpenseEvent(amqp.EventDeleted, 1, 3, "Food"),
	}}
	w := NewRefreshWorker(Config{Consumer: consumer, Categories: inv})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for consumer.runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if consumer.runs.Load() < 2 {
		t.Errorf("consumer ran %d times, want a restart", consumer.runs.Load())
	}
	if inv.n.Load() != 2 {
		t.Errorf("categories invalidated %d times, want 2", inv.n.Load())
	}
}

func TestRunWithoutConsumer(t *testing.T) {
	w := NewRefreshWorker(Config{})
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected an error without a consumer")
	}
}
