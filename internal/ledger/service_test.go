package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/core"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/log"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/sheets/memory"
)

func testLogger() *log.Logger {
	return log.New(log.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	})
}

func newTestService(t *testing.T, opts ...Option) (*Service, *memory.Store) {
	t.Helper()
	layout := core.DefaultSheetLayout()
	store := memory.New(layout)
	return NewService(store, layout, testLogger(), opts...), store
}

func TestCreateRefreshesSnapshot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	records, err := svc.Create(ctx, RecordInput{
		Date:      "2026/01/30",
		Item:      "午餐",
		Payer:     core.PartyXiang,
		AmountJPY: 2400,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	got := records[0]
	if got.RowIndex != 3 {
		t.Errorf("RowIndex = %d, want 3 (first data row)", got.RowIndex)
	}
	if got.SplitXiangJPY != 1200 || got.SplitQianJPY != 1200 {
		t.Errorf("equal split = %d/%d, want 1200/1200", got.SplitXiangJPY, got.SplitQianJPY)
	}
	if store.Len() != 1 {
		t.Errorf("store.Len() = %d, want 1", store.Len())
	}
}

func TestCreateOddAmountFavorsXiang(t *testing.T) {
	svc, _ := newTestService(t)

	records, err := svc.Create(context.Background(), RecordInput{
		Date:      "2026/01/30",
		Item:      "門票",
		Payer:     core.PartyQian,
		AmountTWD: 101,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if records[0].SplitXiangTWD != 51 || records[0].SplitQianTWD != 50 {
		t.Errorf("split = %d/%d, want 51/50", records[0].SplitXiangTWD, records[0].SplitQianTWD)
	}
}

func TestCreateManualSplit(t *testing.T) {
	svc, _ := newTestService(t)

	records, err := svc.Create(context.Background(), RecordInput{
		Date:       "2026/01/30",
		Item:       "伴手禮",
		Payer:      core.PartyXiang,
		AmountTWD:  1000,
		SplitMode:  core.SplitManual,
		XiangShare: 700,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if records[0].SplitXiangTWD != 700 || records[0].SplitQianTWD != 300 {
		t.Errorf("manual split = %d/%d, want 700/300", records[0].SplitXiangTWD, records[0].SplitQianTWD)
	}
}

func TestCreateRejectsInvalidRecord(t *testing.T) {
	svc, store := newTestService(t)

	tests := []struct {
		name  string
		input RecordInput
		want  error
	}{
		{"empty item", RecordInput{Date: "2026/01/30", Payer: core.PartyXiang, AmountTWD: 100}, core.ErrEmptyItem},
		{"unknown payer", RecordInput{Date: "2026/01/30", Item: "x", Payer: "小明", AmountTWD: 100}, core.ErrInvalidPayer},
		{"both currencies", RecordInput{Date: "2026/01/30", Item: "x", Payer: core.PartyXiang, AmountTWD: 100, AmountJPY: 100}, core.ErrBothCurrencies},
		{"no amount", RecordInput{Date: "2026/01/30", Item: "x", Payer: core.PartyXiang}, core.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}

	if store.Len() != 0 {
		t.Errorf("store.Len() = %d, want 0 (nothing persisted)", store.Len())
	}
}

func TestUpdateRewritesRow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, RecordInput{
		Date: "2026/01/30", Item: "晚餐", Payer: core.PartyXiang, AmountJPY: 3000,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	records, err := svc.Update(ctx, 3, RecordInput{
		Date: "2026/01/31", Item: "晚餐(改)", Payer: core.PartyQian, AmountJPY: 3500,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if records[0].Item != "晚餐(改)" || records[0].AmountJPY != 3500 {
		t.Errorf("updated record = %+v", records[0])
	}
	// Total changed, so the equal shares must be re-derived
	if records[0].SplitXiangJPY != 1750 {
		t.Errorf("SplitXiangJPY = %d, want 1750", records[0].SplitXiangJPY)
	}
}

func TestUpdateRejectsUnpersistedRow(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), core.UnpersistedRow, RecordInput{
		Date: "2026/01/30", Item: "x", Payer: core.PartyXiang, AmountTWD: 10,
	})
	if !errors.Is(err, core.ErrNotPersisted) {
		t.Errorf("Update() error = %v, want ErrNotPersisted", err)
	}
}

func TestDeleteShiftsLaterRows(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, item := range []string{"一", "二", "三"} {
		if _, err := svc.Create(ctx, RecordInput{
			Date: "2026/01/30", Item: item, Payer: core.PartyXiang, AmountTWD: 100,
		}); err != nil {
			t.Fatalf("Create %s: %v", item, err)
		}
	}

	records, err := svc.Delete(ctx, 3)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// Remaining rows compact down, so the snapshot must carry fresh indexes
	for _, rec := range records {
		if rec.RowIndex != 3 && rec.RowIndex != 4 {
			t.Errorf("stale row index %d after delete", rec.RowIndex)
		}
	}
}

func TestDeleteRejectsUnpersistedRowLocally(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Delete(context.Background(), core.UnpersistedRow)
	if !errors.Is(err, core.ErrNotPersisted) {
		t.Errorf("Delete() error = %v, want ErrNotPersisted", err)
	}
}

func TestSettlementOverSnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate := func(input RecordInput) {
		t.Helper()
		if _, err := svc.Create(ctx, input); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	mustCreate(RecordInput{Date: "2026/01/30", Item: "住宿", Payer: core.PartyXiang, AmountJPY: 20000})
	mustCreate(RecordInput{Date: "2026/01/30", Item: "機票", Payer: core.PartyQian, AmountTWD: 9000})

	settlement := svc.Settlement(ctx)
	// Xiang paid 20000 JPY, owes 10000: Qian owes Xiang 10000 JPY
	if settlement.JPY != 10000 {
		t.Errorf("settlement.JPY = %d, want 10000", settlement.JPY)
	}
	// Qian paid 9000 TWD, Xiang owes 4500: Xiang owes Qian 4500 TWD
	if settlement.TWD != -4500 {
		t.Errorf("settlement.TWD = %d, want -4500", settlement.TWD)
	}

	twd, jpy := svc.Totals(ctx)
	if twd != 9000 || jpy != 20000 {
		t.Errorf("Totals = %d/%d, want 9000/20000", twd, jpy)
	}
}

type fakeMirror struct {
	saved  []core.ExpenseRecord
	loaded []core.ExpenseRecord
}

func (m *fakeMirror) ReplaceSnapshot(_ context.Context, records []core.ExpenseRecord) error {
	m.saved = records
	return nil
}

func (m *fakeMirror) LoadSnapshot(_ context.Context) ([]core.ExpenseRecord, error) {
	return m.loaded, nil
}

func TestRefreshMirrorsSnapshot(t *testing.T) {
	mirror := &fakeMirror{}
	svc, _ := newTestService(t, WithMirror(mirror))
	ctx := context.Background()

	if _, err := svc.Create(ctx, RecordInput{
		Date: "2026/01/30", Item: "咖啡", Payer: core.PartyXiang, AmountTWD: 120,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(mirror.saved) != 1 || mirror.saved[0].Item != "咖啡" {
		t.Errorf("mirror.saved = %+v", mirror.saved)
	}
}

func TestRecordsFallsBackToMirror(t *testing.T) {
	mirror := &fakeMirror{loaded: []core.ExpenseRecord{{
		RowIndex: 3, Date: "2026/01/29", Item: "from mirror",
		Payer: core.PartyXiang, AmountTWD: 50, SplitMode: core.SplitEqual,
	}}}
	svc, _ := newTestService(t, WithMirror(mirror))

	records := svc.Records(context.Background())
	if len(records) != 1 || records[0].Item != "from mirror" {
		t.Errorf("Records() = %+v, want mirrored snapshot", records)
	}
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) PublishLedgerEvent(context.Context, string, int64, string) error {
	p.calls++
	return errors.New("broker down")
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &failingPublisher{}
	svc, _ := newTestService(t, WithEvents(pub))

	if _, err := svc.Create(context.Background(), RecordInput{
		Date: "2026/01/30", Item: "茶", Payer: core.PartyQian, AmountTWD: 60,
	}); err != nil {
		t.Fatalf("Create should succeed despite publish failure: %v", err)
	}
	if pub.calls != 1 {
		t.Errorf("publisher calls = %d, want 1", pub.calls)
	}
}
