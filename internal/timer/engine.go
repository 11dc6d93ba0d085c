// Package timer opens and closes timed intervals (attendance, breaks, calls)
// and derives their durations from server-side UTC timestamps.
//
// Elapsed time is always recomputed as now - start at close, so an interval
// survives client reloads without any client-side stopwatch.
package timer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agentdesk/internal/model"
	"agentdesk/internal/repository"
)

var (
	ErrNotFound            = errors.New("interval not found")
	ErrAlreadyClosed       = errors.New("interval already closed")
	ErrConflict            = errors.New("interval already open")
	ErrUpstreamUnavailable = errors.New("data store unavailable")
)

// Store is the slice of the data store the engine needs.
type Store interface {
	Insert(ctx context.Context, interval *model.Interval) error
	Get(ctx context.Context, kind model.Kind, id string) (*model.Interval, error)
	FindOpen(ctx context.Context, kind model.Kind, userID string) (*model.Interval, error)
	Close(ctx context.Context, kind model.Kind, id string, end time.Time, duration int) (bool, error)
}

// Extra carries the kind-specific fields attached verbatim on open.
type Extra struct {
	AttendanceID *string
	TaskType     string
	Notes        string
	RoomID       string
}

type Engine struct {
	store Store
	now   func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open records a new interval starting now. Callers are expected to check
// FindOpen first; the store's uniqueness guard reports a lost race as
// ErrConflict.
func (e *Engine) Open(ctx context.Context, kind model.Kind, userID string, extra Extra) (*model.Interval, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("open: unknown kind %q", kind)
	}

	interval := &model.Interval{
		ID:           uuid.NewString(),
		Kind:         kind,
		UserID:       userID,
		Start:        e.now().UTC(),
		AttendanceID: extra.AttendanceID,
		TaskType:     extra.TaskType,
		Notes:        extra.Notes,
		RoomID:       extra.RoomID,
	}

	if err := e.store.Insert(ctx, interval); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("open %s for %s: %w", kind, userID, ErrConflict)
		}
		return nil, fmt.Errorf("open %s: %w: %w", kind, ErrUpstreamUnavailable, err)
	}
	return interval, nil
}

// Close ends an open interval and stores its duration, floored to the kind's
// unit. Closing twice returns ErrAlreadyClosed and leaves the stored duration
// untouched.
func (e *Engine) Close(ctx context.Context, kind model.Kind, id string) (*model.Interval, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("close: unknown kind %q", kind)
	}

	interval, err := e.store.Get(ctx, kind, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("close %s %s: %w", kind, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("close %s: %w: %w", kind, ErrUpstreamUnavailable, err)
	}
	if !interval.IsOpen() {
		return nil, fmt.Errorf("close %s %s: %w", kind, id, ErrAlreadyClosed)
	}

	end := e.now().UTC()
	duration := Elapsed(interval.Start, end, kind.Unit())

	closed, err := e.store.Close(ctx, kind, id, end, duration)
	if err != nil {
		return nil, fmt.Errorf("close %s: %w: %w", kind, ErrUpstreamUnavailable, err)
	}
	if !closed {
		return nil, fmt.Errorf("close %s %s: %w", kind, id, ErrAlreadyClosed)
	}

	interval.End = &end
	interval.Duration = &duration
	return interval, nil
}

// FindOpen returns the user's open interval of kind, or nil.
func (e *Engine) FindOpen(ctx context.Context, kind model.Kind, userID string) (*model.Interval, error) {
	interval, err := e.store.FindOpen(ctx, kind, userID)
	if err != nil {
		return nil, fmt.Errorf("find open %s: %w: %w", kind, ErrUpstreamUnavailable, err)
	}
	return interval, nil
}

// Elapsed is floor((end-start)/unit), never negative.
func Elapsed(start, end time.Time, unit time.Duration) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(d / unit)
}
