package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"ressarcimento/internal/amqp"
	"ressarcimento/internal/core"
	"ressarcimento/internal/metrics"
	"ressarcimento/internal/storage/memory"
)

func sample(id string) core.Record {
	return core.Record{
		Date:        core.NewDate(2024, 6, 3),
		ClubID:      id,
		ClubName:    "Club " + id,
		Amount:      decimal.RequireFromString("10"),
		Responsible: "Alice",
	}
}

type brokenRepo struct{}

func (brokenRepo) Load(context.Context) ([]core.Record, error) { return nil, errors.New("boom") }
func (brokenRepo) Save(context.Context, []core.Record) error    { return errors.New("boom") }

// scriptedConsumer delivers msgs, then blocks until ctx is done.
type scriptedConsumer struct {
	msgs    []*amqp.LedgerChangedMessage
	handled chan error
	err     error
}

func (c *scriptedConsumer) ConsumeLedgerChanged(ctx context.Context, handler func(context.Context, *amqp.LedgerChangedMessage) error) error {
	if c.err != nil {
		return c.err
	}
	for _, m := range c.msgs {
		c.handled <- handler(ctx, m)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestSyncCopiesWholeSequence(t *testing.T) {
	src := memory.New(sample("a"), sample("b"))
	dst := memory.New(sample("stale"))
	m := metrics.New(prometheus.NewRegistry())
	w := NewMirror(src, dst, m, nil)

	if err := w.Sync(context.Background(), TriggerMessage); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	got, _ := dst.Load(context.Background())
	if len(got) != 2 || got[0].ClubID != "a" || got[1].ClubID != "b" {
		t.Fatalf("mirror = %+v", got)
	}
	if w.LastSync().IsZero() {
		t.Error("LastSync should be set")
	}
	if v := testutil.ToFloat64(m.Mirrors.WithLabelValues(TriggerMessage, "ok")); v != 1 {
		t.Errorf("mirror counter = %v, want 1", v)
	}
}

func TestSyncErrors(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	if err := NewMirror(brokenRepo{}, memory.New(), m, nil).Sync(context.Background(), TriggerTick); err == nil {
		t.Fatal("expected load error")
	}
	if err := NewMirror(memory.New(sample("a")), brokenRepo{}, m, nil).Sync(context.Background(), TriggerTick); err == nil {
		t.Fatal("expected save error")
	}
	if v := testutil.ToFloat64(m.Mirrors.WithLabelValues(TriggerTick, "error")); v != 2 {
		t.Errorf("error counter = %v, want 2", v)
	}
}

func TestRunHandlesMessagesAndStopsCleanly(t *testing.T) {
	src := memory.New(sample("a"))
	dst := memory.New()
	w := NewMirror(src, dst, nil, nil)

	consumer := &scriptedConsumer{
		msgs:    []*amqp.LedgerChangedMessage{amqp.NewLedgerChangedMessage("append", 1)},
		handled: make(chan error, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, consumer, time.Hour) }()

	select {
	case err := <-consumer.handled:
		if err != nil {
			t.Fatalf("handler error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message was not handled")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	if dst.Saves() < 2 {
		t.Errorf("expected startup and message mirrors, got %d saves", dst.Saves())
	}
}

func TestRunMirrorsOnTick(t *testing.T) {
	src := memory.New(sample("a"))
	dst := memory.New()
	w := NewMirror(src, dst, nil, nil)
	consumer := &scriptedConsumer{handled: make(chan error)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx, consumer, 10*time.Millisecond) }()

	deadline := time.Now().Add(5 * time.Second)
	for dst.Saves() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected periodic mirrors, got %d saves", dst.Saves())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunReturnsConsumerFailure(t *testing.T) {
	w := NewMirror(memory.New(), memory.New(), nil, nil)
	consumer := &scriptedConsumer{err: errors.New("access refused")}

	err := w.Run(context.Background(), consumer, time.Hour)
	if err == nil || err.Error() != "access refused" {
		t.Fatalf("Run error = %v, want access refused", err)
	}
}

func TestFailedMirrorDoesNotRequeueMessage(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	w := NewMirror(memory.New(sample("a")), brokenRepo{}, m, nil)

	consumer := &scriptedConsumer{
		msgs: []*amqp.LedgerChangedMessage{
			amqp.NewLedgerChangedMessage("append", 1),
			amqp.NewLedgerChangedMessage("delete", 0),
		},
		handled: make(chan error, 2),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, consumer, time.Hour) }()

	for i := 0; i < 2; i++ {
		select {
		case err := <-consumer.handled:
			if err != nil {
				t.Fatalf("message %d: handler returned %v, want nil so it is acknowledged", i, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("message was not handled")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	if v := testutil.ToFloat64(m.Mirrors.WithLabelValues(TriggerMessage, "error")); v != 2 {
		t.Errorf("failed message mirrors = %v, want 2", v)
	}
}

func TestSyncLogsMirrorOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	w := NewMirror(memory.New(sample("a"), sample("b")), memory.New(), nil, logger)

	if err := w.Sync(context.Background(), TriggerTick); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["operation"] != "mirror" || entry["trigger"] != TriggerTick {
		t.Errorf("operation/trigger = %v/%v, want mirror/%s", entry["operation"], entry["trigger"], TriggerTick)
	}
	if entry["count"] != float64(2) {
		t.Errorf("count = %v, want 2", entry["count"])
	}
}
