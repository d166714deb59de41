package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ressarcimento/internal/core"
	"ressarcimento/internal/ledger"
	"ressarcimento/internal/storage/memory"
)

type failingRepo struct {
	loadErr error
	saveErr error
	stored  []core.Record
}

func (f *failingRepo) Load(context.Context) ([]core.Record, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]core.Record(nil), f.stored...), nil
}

func (f *failingRepo) Save(_ context.Context, rs []core.Record) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.stored = append([]core.Record(nil), rs...)
	return nil
}

type recordingPublisher struct {
	ops []string
	err error
}

func (p *recordingPublisher) PublishLedgerChanged(_ context.Context, op string, _ int) error {
	p.ops = append(p.ops, op)
	return p.err
}

func club(id string, day int, amount string) core.Record {
	return core.Record{
		Date:        core.NewDate(2024, 6, day),
		ClubID:      id,
		ClubName:    "Club " + id,
		Amount:      decimal.RequireFromString(amount),
		Responsible: "Alice",
	}
}

func ids(rs []core.Record) string {
	out := ""
	for _, r := range rs {
		out += r.ClubID
	}
	return out
}

func TestOpenEmptyStore(t *testing.T) {
	l, res := ledger.Open(context.Background(), memory.New(), ledger.Options{})
	if res.Status != ledger.LoadEmpty || res.Err != nil {
		t.Fatalf("unexpected load result: %+v", res)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger")
	}
}

func TestAppendPreservesOrderAndPersists(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	l, _ := ledger.Open(ctx, store, ledger.Options{})

	for i, id := range []string{"a", "b", "c"} {
		before := l.Records()
		pos, err := l.Append(ctx, club(id, 3, "10"))
		if err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
		if pos != i {
			t.Fatalf("append %s: position %d, want %d", id, pos, i)
		}
		after := l.Records()
		if len(after) != len(before)+1 {
			t.Fatalf("length grew by %d", len(after)-len(before))
		}
		if ids(after[:len(before)]) != ids(before) {
			t.Fatalf("prior records reordered: %s vs %s", ids(after), ids(before))
		}
	}

	persisted, _ := store.Load(ctx)
	if ids(persisted) != "abc" || store.Saves() != 3 {
		t.Fatalf("persisted=%s saves=%d", ids(persisted), store.Saves())
	}
}

func TestAppendRejectsInvalidRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	l, _ := ledger.Open(ctx, store, ledger.Options{})

	bad := club("x", 3, "1")
	bad.Amount = decimal.NewFromInt(-5)
	if _, err := l.Append(ctx, bad); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if l.Len() != 0 || store.Saves() != 0 {
		t.Fatalf("invalid record reached the store")
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.New(club("a", 3, "1"), club("b", 4, "2"), club("c", 5, "3"))
	l, _ := ledger.Open(ctx, store, ledger.Options{})

	removed, err := l.Delete(ctx, 1)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed.ClubID != "b" {
		t.Fatalf("removed %s", removed.ClubID)
	}
	rs := l.Records()
	if ids(rs) != "ac" {
		t.Fatalf("remaining %s", ids(rs))
	}
	if !rs[1].Amount.Equal(decimal.RequireFromString("3")) || rs[1].Date.Day() != 5 {
		t.Fatalf("shifted record data changed: %+v", rs[1])
	}

	for _, idx := range []int{2, 5, -1} {
		if _, err := l.Delete(ctx, idx); !errors.Is(err, ledger.ErrIndexOutOfRange) {
			t.Fatalf("index %d: expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}
	if l.Len() != 2 {
		t.Fatalf("failed delete changed the ledger")
	}
}

func TestClearThenLoadIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := memory.New(club("a", 3, "1"), club("b", 4, "2"))
	l, _ := ledger.Open(ctx, store, ledger.Options{})

	if err := l.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("ledger not empty")
	}

	reopened, res := ledger.Open(ctx, store, ledger.Options{})
	if res.Status != ledger.LoadEmpty || reopened.Len() != 0 {
		t.Fatalf("reload after clear: %+v len=%d", res, reopened.Len())
	}
}

func TestSaveFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{stored: []core.Record{club("a", 3, "1")}}
	l, _ := ledger.Open(ctx, repo, ledger.Options{})

	repo.saveErr = errors.New("disk full")
	if _, err := l.Append(ctx, club("b", 4, "1")); err == nil {
		t.Fatalf("expected save error")
	}
	if err := l.Clear(ctx); err == nil {
		t.Fatalf("expected save error on clear")
	}
	if ids(l.Records()) != "a" {
		t.Fatalf("in-memory state diverged from store: %s", ids(l.Records()))
	}
}

func TestFailedLoadBlocksMutationsUntilReload(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{loadErr: errors.New("remote unavailable"), stored: []core.Record{club("a", 3, "1")}}
	l, res := ledger.Open(ctx, repo, ledger.Options{})
	if !res.Failed() || res.Err == nil {
		t.Fatalf("expected failed load, got %+v", res)
	}
	if _, err := l.Append(ctx, club("b", 3, "1")); !errors.Is(err, ledger.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if ids(repo.stored) != "a" {
		t.Fatalf("remote data overwritten: %s", ids(repo.stored))
	}

	repo.loadErr = nil
	if res := l.Reload(ctx); res.Status != ledger.LoadOK || res.Count != 1 {
		t.Fatalf("reload: %+v", res)
	}
	if _, err := l.Append(ctx, club("b", 3, "1")); err != nil {
		t.Fatalf("append after reload: %v", err)
	}
	if ids(repo.stored) != "ab" {
		t.Fatalf("stored=%s", ids(repo.stored))
	}
}

func TestAppendAllValidatesBeforeSaving(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	l, _ := ledger.Open(ctx, store, ledger.Options{})

	bad := club("y", 3, "1")
	bad.Date = core.Date{}
	if err := l.AppendAll(ctx, []core.Record{club("x", 3, "1"), bad}); err == nil {
		t.Fatalf("expected validation error")
	}
	if store.Saves() != 0 {
		t.Fatalf("partial import persisted")
	}
	if err := l.AppendAll(ctx, []core.Record{club("x", 3, "1"), club("y", 4, "2")}); err != nil {
		t.Fatalf("append all: %v", err)
	}
	if ids(l.Records()) != "xy" || store.Saves() != 1 {
		t.Fatalf("records=%s saves=%d", ids(l.Records()), store.Saves())
	}
}

func TestPublisherNotifiedAfterSave(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	l, _ := ledger.Open(ctx, memory.New(), ledger.Options{Publisher: pub})

	if _, err := l.Append(ctx, club("a", 3, "1")); err != nil {
		t.Fatalf("publish failure must not fail append: %v", err)
	}
	if _, err := l.Delete(ctx, 0); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_ = l.Clear(ctx)
	_, _ = l.Delete(ctx, 0) // out of range, not published

	want := []string{ledger.OpAppend, ledger.OpDelete, ledger.OpClear}
	if len(pub.ops) != len(want) {
		t.Fatalf("ops=%v", pub.ops)
	}
	for i := range want {
		if pub.ops[i] != want[i] {
			t.Fatalf("ops=%v", pub.ops)
		}
	}
}

func TestCurrentWeekUsesClockAndWeekStart(t *testing.T) {
	ctx := context.Background()
	store := memory.New(club("sun", 2, "5"), club("mon", 3, "7"))
	wednesday := func() time.Time { return time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC) }

	monday, _ := ledger.Open(ctx, store, ledger.Options{Now: wednesday, WeekStart: time.Monday})
	if s := monday.CurrentWeek(); s.Count != 1 || s.Records[0].ClubID != "mon" {
		t.Fatalf("monday week: %+v", s)
	}

	sunday, _ := ledger.Open(ctx, store, ledger.Options{Now: wednesday, WeekStart: time.Sunday})
	if s := sunday.CurrentWeek(); s.Count != 2 || !s.Total.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("sunday week: %+v", s)
	}
}

type recordingObserver struct {
	mutations []string
	records   int
}

func (o *recordingObserver) ObserveMutation(op string, count int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	o.mutations = append(o.mutations, op+":"+result)
	if err == nil {
		o.records = count
	}
}

func (o *recordingObserver) SetRecords(count int) {
	o.records = count
}

func TestObserverSeesLoadsAndMutations(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	repo := &failingRepo{stored: []core.Record{club("a", 3, "1")}}
	l, _ := ledger.Open(ctx, repo, ledger.Options{Observer: obs})

	if obs.records != 1 {
		t.Fatalf("records after load = %d, want 1", obs.records)
	}
	if _, err := l.Append(ctx, club("b", 4, "2")); err != nil {
		t.Fatalf("append: %v", err)
	}
	repo.saveErr = errors.New("disk full")
	if err := l.Clear(ctx); err == nil {
		t.Fatal("expected clear to fail")
	}

	want := []string{"append:ok", "clear:error"}
	if len(obs.mutations) != len(want) || obs.mutations[0] != want[0] || obs.mutations[1] != want[1] {
		t.Fatalf("mutations = %v, want %v", obs.mutations, want)
	}
	if obs.records != 2 {
		t.Fatalf("records = %d, want 2", obs.records)
	}
}
