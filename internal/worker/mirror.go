// Package worker mirrors the primary record store into Google Sheets.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ressarcimento/internal/amqp"
	"ressarcimento/internal/ledger"
	"ressarcimento/internal/log"
	"ressarcimento/internal/metrics"
)

// Mirror triggers
const (
	TriggerStartup = "startup"
	TriggerMessage = "message"
	TriggerTick    = "tick"
)

// Consumer delivers ledger change notifications until ctx is done.
type Consumer interface {
	ConsumeLedgerChanged(ctx context.Context, handler func(context.Context, *amqp.LedgerChangedMessage) error) error
}

// Mirror copies the full record sequence from source to target.
// Every run is a whole overwrite, so duplicate or reordered messages are harmless.
type Mirror struct {
	source  ledger.Repository
	target  ledger.Repository
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	lastSync time.Time
}

func NewMirror(source, target ledger.Repository, m *metrics.Metrics, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		source:  source,
		target:  target,
		metrics: m,
		logger:  logger,
	}
}

// Sync loads the source and overwrites the target with it.
func (w *Mirror) Sync(ctx context.Context, trigger string) (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer func() { w.metrics.IncrementMirror(trigger, err) }()

	start := time.Now()
	records, err := w.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load primary store: %w", err)
	}
	if err := w.target.Save(ctx, records); err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}
	w.lastSync = time.Now()

	w.logger.InfoContext(ctx, "Ledger mirrored",
		log.FieldOperation, log.OpMirror,
		"trigger", trigger,
		log.FieldCount, len(records),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// LastSync returns when the last successful mirror finished.
func (w *Mirror) LastSync() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync
}

// HandleLedgerChanged processes a single change notification from AMQP.
// A failed mirror is logged and the message acknowledged; the next tick rewrites the whole sheet.
func (w *Mirror) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.DebugContext(ctx, "Ledger change received",
		log.FieldOperation, msg.Operation,
		log.FieldCount, msg.Count,
		"timestamp", msg.Timestamp)
	if err := w.Sync(ctx, TriggerMessage); err != nil {
		w.logger.ErrorContext(ctx, "Mirror after change failed, waiting for next tick",
			log.FieldOperation, log.OpMirror,
			log.FieldError, err)
	}
	return nil
}

// Run mirrors once at startup, then consumes notifications and mirrors every
// interval as a backstop for lost messages. It returns nil when ctx is cancelled.
func (w *Mirror) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	if err := w.Sync(ctx, TriggerStartup); err != nil {
		// The tick retries; a broken sheet must not keep the consumer down.
		w.logger.ErrorContext(ctx, "Startup mirror failed", log.FieldOperation, log.OpMirror, log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumeLedgerChanged(gctx, w.HandleLedgerChanged)
	})

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := w.Sync(gctx, TriggerTick); err != nil {
					w.logger.ErrorContext(gctx, "Periodic mirror failed", log.FieldOperation, log.OpMirror, log.FieldError, err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
