package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/core"
)

func record(item string, jpy int64) core.ExpenseRecord {
	split := core.EqualSplit(jpy)
	return core.ExpenseRecord{
		Date: "2026/01/05", Item: item, Payer: core.PartyXiang,
		AmountJPY: jpy, SplitMode: core.SplitEqual,
		SplitXiangJPY: split.Xiang, SplitQianJPY: split.Qian,
	}
}

func TestAppendAssignsSequentialRows(t *testing.T) {
	s := New(core.DefaultSheetLayout())
	ctx := context.Background()

	if err := s.Append(ctx, record("a", 100)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, record("b", 200)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows, err := s.FetchRows(ctx)
	if err != nil {
		t.Fatalf("FetchRows: %v", err)
	}
	records := core.SelectValid(normalizeAll(rows), core.DefaultSheetLayout())
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// date tie, so row index descending
	if records[0].RowIndex != 4 || records[1].RowIndex != 3 {
		t.Errorf("rows = %d,%d; want 4,3", records[0].RowIndex, records[1].RowIndex)
	}
}

func TestFetchRowsIncludesHeaderRowThatFilterDrops(t *testing.T) {
	s := New(core.DefaultSheetLayout())
	rows, err := s.FetchRows(context.Background())
	if err != nil {
		t.Fatalf("FetchRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d raw rows, want header only", len(rows))
	}
	if kept := core.SelectValid(normalizeAll(rows), core.DefaultSheetLayout()); len(kept) != 0 {
		t.Errorf("filter kept %d header rows", len(kept))
	}
}

func TestDeleteShiftsLaterRows(t *testing.T) {
	s := New(core.DefaultSheetLayout())
	ctx := context.Background()
	for _, it := range []string{"a", "b", "c"} {
		if err := s.Append(ctx, record(it, 100)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	if err := s.Delete(ctx, 3); err != nil { // delete "a"
		t.Fatalf("Delete: %v", err)
	}

	rows, _ := s.FetchRows(ctx)
	records := core.SelectValid(normalizeAll(rows), core.DefaultSheetLayout())
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// "b" and "c" moved up to rows 3 and 4
	if records[0].Item != "c" || records[0].RowIndex != 4 {
		t.Errorf("first = %s@%d, want c@4", records[0].Item, records[0].RowIndex)
	}
	if records[1].Item != "b" || records[1].RowIndex != 3 {
		t.Errorf("second = %s@%d, want b@3", records[1].Item, records[1].RowIndex)
	}
}

func TestUpdateReplacesRecord(t *testing.T) {
	s := New(core.DefaultSheetLayout())
	ctx := context.Background()
	if err := s.Append(ctx, record("a", 100)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	upd := record("a2", 300)
	upd.RowIndex = 3
	if err := s.Update(ctx, upd); err != nil {
		t.Fatalf("Update: %v", err)
	}

	rows, _ := s.FetchRows(ctx)
	records := core.SelectValid(normalizeAll(rows), core.DefaultSheetLayout())
	if records[0].Item != "a2" || records[0].AmountJPY != 300 {
		t.Errorf("updated record = %+v", records[0])
	}
}

func TestMutationsRejectSentinelRow(t *testing.T) {
	s := New(core.DefaultSheetLayout())
	ctx := context.Background()

	if err := s.Delete(ctx, core.UnpersistedRow); !errors.Is(err, core.ErrNotPersisted) {
		t.Errorf("Delete sentinel: %v", err)
	}
	r := record("x", 100)
	r.RowIndex = core.UnpersistedRow
	if err := s.Update(ctx, r); !errors.Is(err, core.ErrNotPersisted) {
		t.Errorf("Update sentinel: %v", err)
	}
}

func normalizeAll(rows []core.RawRow) []core.ExpenseRecord {
	out := make([]core.ExpenseRecord, len(rows))
	for i, row := range rows {
		out[i] = core.Normalize(row)
	}
	return out
}
