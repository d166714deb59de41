// Package ledger holds the in-process record sequence for a dashboard
// session and keeps its persistence in step with every mutation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ressarcimento/internal/core"
	"ressarcimento/internal/log"
)

var (
	ErrIndexOutOfRange = errors.New("record index out of range")
	ErrUnavailable     = errors.New("ledger unavailable: last load failed")
)

// LoadStatus classifies the outcome of reading persisted records.
type LoadStatus int

const (
	LoadOK LoadStatus = iota
	LoadEmpty
	LoadFailed
)

func (s LoadStatus) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadEmpty:
		return "empty"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LoadResult is the typed outcome of Open and Reload.
type LoadResult struct {
	Status LoadStatus
	Count  int
	Err    error
}

// Failed reports whether the load could not read persistence.
func (r LoadResult) Failed() bool {
	return r.Status == LoadFailed
}

// Options configures a Ledger.
type Options struct {
	Publisher ChangePublisher
	Observer  Observer
	WeekStart time.Weekday
	Now       func() time.Time
	Logger    *slog.Logger
}

// Ledger is the application state shared by the dashboard handlers.
type Ledger struct {
	mu        sync.Mutex
	records   []core.Record
	repo      Repository
	publisher ChangePublisher
	observer  Observer
	weekStart time.Weekday
	now       func() time.Time
	logger    *slog.Logger
	last      LoadResult
}

// Open builds a Ledger and loads the persisted records into it.
// A failed load still returns a usable Ledger; it rejects mutations until Reload succeeds.
func Open(ctx context.Context, repo Repository, opts Options) (*Ledger, LoadResult) {
	l := &Ledger{
		repo:      repo,
		publisher: opts.Publisher,
		observer:  opts.Observer,
		weekStart: opts.WeekStart,
		now:       opts.Now,
		logger:    opts.Logger,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l, l.Reload(ctx)
}

// Reload replaces the in-memory sequence with what persistence holds.
func (l *Ledger) Reload(ctx context.Context) LoadResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.repo.Load(ctx)
	if err != nil {
		l.records = nil
		l.last = LoadResult{Status: LoadFailed, Err: err}
		l.logger.ErrorContext(ctx, "Failed to load records", log.FieldError, err)
		return l.last
	}
	l.records = records
	status := LoadOK
	if len(records) == 0 {
		status = LoadEmpty
	}
	l.last = LoadResult{Status: status, Count: len(records)}
	if l.observer != nil {
		l.observer.SetRecords(len(records))
	}
	l.logger.InfoContext(ctx, "Records loaded", log.FieldCount, len(records), "status", status.String())
	return l.last
}

// LastLoad returns the outcome of the most recent Open or Reload.
func (l *Ledger) LastLoad() LoadResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Records returns a copy of the sequence in insertion order.
func (l *Ledger) Records() []core.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records held.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Append validates r, adds it at the end and persists. It returns the new record's position.
func (l *Ledger) Append(ctx context.Context, r core.Record) (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	var pos int
	err := l.mutate(ctx, OpAppend, func(cur []core.Record) ([]core.Record, error) {
		pos = len(cur)
		return append(cur, r), nil
	})
	if err != nil {
		return 0, err
	}
	return pos, nil
}

// AppendAll adds every record in rs, in order, with a single save.
func (l *Ledger) AppendAll(ctx context.Context, rs []core.Record) error {
	for i, r := range rs {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return l.mutate(ctx, OpImport, func(cur []core.Record) ([]core.Record, error) {
		return append(cur, rs...), nil
	})
}

// Delete removes the record at index and returns it.
func (l *Ledger) Delete(ctx context.Context, index int) (core.Record, error) {
	var removed core.Record
	err := l.mutate(ctx, OpDelete, func(cur []core.Record) ([]core.Record, error) {
		if index < 0 || index >= len(cur) {
			return nil, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(cur))
		}
		removed = cur[index]
		next := make([]core.Record, 0, len(cur)-1)
		next = append(next, cur[:index]...)
		return append(next, cur[index+1:]...), nil
	})
	return removed, err
}

// Clear empties the sequence.
func (l *Ledger) Clear(ctx context.Context) error {
	return l.mutate(ctx, OpClear, func([]core.Record) ([]core.Record, error) {
		return []core.Record{}, nil
	})
}

// Week summarizes the week containing the given day.
func (l *Ledger) Week(day time.Time) core.WeeklySummary {
	return core.Summarize(l.Records(), core.WeekWindow(day, l.weekStart))
}

// CurrentWeek summarizes the week containing today.
func (l *Ledger) CurrentWeek() core.WeeklySummary {
	return l.Week(l.now())
}

// mutate applies fn to a private copy, saves it, and only then swaps it in.
func (l *Ledger) mutate(ctx context.Context, op string, fn func([]core.Record) ([]core.Record, error)) (err error) {
	count := 0
	if l.observer != nil {
		defer func() { l.observer.ObserveMutation(op, count, err) }()
	}

	l.mu.Lock()
	if l.last.Failed() {
		l.mu.Unlock()
		return ErrUnavailable
	}

	cur := make([]core.Record, len(l.records), len(l.records)+1)
	copy(cur, l.records)
	next, err := fn(cur)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	if err := l.repo.Save(ctx, next); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("save records: %w", err)
	}
	l.records = next
	count = len(next)
	l.mu.Unlock()

	l.publish(ctx, op, count)
	return nil
}

func (l *Ledger) publish(ctx context.Context, op string, count int) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishLedgerChanged(ctx, op, count); err != nil {
		// The change is already persisted locally.
		l.logger.ErrorContext(ctx, "Failed to publish ledger change", log.FieldOperation, op, log.FieldError, err)
	}
}
