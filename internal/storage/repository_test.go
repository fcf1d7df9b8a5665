package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleRecords() []core.ExpenseRecord {
	return []core.ExpenseRecord{
		{
			RowIndex: 4, Date: "2026/01/31", Item: "纜車票", Payer: core.PartyXiang,
			AmountJPY: 3000, SplitMode: core.SplitEqual,
			SplitXiangJPY: 1500, SplitQianJPY: 1500,
		},
		{
			RowIndex: 3, Date: "2026/01/30", Item: "便利商店", Payer: core.PartyQian,
			AmountTWD: 250, SplitMode: core.SplitEqual,
			SplitXiangTWD: 125, SplitQianTWD: 125,
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.ReplaceSnapshot(ctx, sampleRecords()); err != nil {
		t.Fatalf("ReplaceSnapshot: %v", err)
	}

	got, err := repo.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadSnapshot returned %d records, want 2", len(got))
	}
	if got[0].Item != "纜車票" || got[0].RowIndex != 4 {
		t.Errorf("first record = %+v, want 纜車票 at row 4", got[0])
	}
	if got[0].Payer != core.PartyXiang || got[0].SplitMode != core.SplitEqual {
		t.Errorf("typed fields not restored: %+v", got[0])
	}
	if got[1].AmountTWD != 250 || got[1].SplitQianTWD != 125 {
		t.Errorf("second record amounts = %+v", got[1])
	}
}

func TestReplaceSnapshotSwapsAtomically(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.ReplaceSnapshot(ctx, sampleRecords()); err != nil {
		t.Fatalf("first ReplaceSnapshot: %v", err)
	}

	replacement := []core.ExpenseRecord{{
		RowIndex: 7, Date: "2026/02/01", Item: "晚餐", Payer: core.PartyXiang,
		AmountJPY: 4200, SplitMode: core.SplitEqual,
		SplitXiangJPY: 2100, SplitQianJPY: 2100,
	}}
	if err := repo.ReplaceSnapshot(ctx, replacement); err != nil {
		t.Fatalf("second ReplaceSnapshot: %v", err)
	}

	count, err := repo.SnapshotCount(ctx)
	if err != nil {
		t.Fatalf("SnapshotCount: %v", err)
	}
	if count != 1 {
		t.Errorf("SnapshotCount = %d, want 1", count)
	}
}

func TestReplaceSnapshotSkipsUnpersisted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	records := append(sampleRecords(), core.ExpenseRecord{
		RowIndex: core.UnpersistedRow, Date: "2026/02/02", Item: "draft",
		Payer: core.PartyXiang, AmountTWD: 100,
	})
	if err := repo.ReplaceSnapshot(ctx, records); err != nil {
		t.Fatalf("ReplaceSnapshot: %v", err)
	}

	count, _ := repo.SnapshotCount(ctx)
	if count != 2 {
		t.Errorf("SnapshotCount = %d, want 2 (draft row skipped)", count)
	}
}

func TestStateRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetState(ctx, "checked_items"); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("GetState on missing key: err = %v, want ErrStateNotFound", err)
	}

	if err := repo.PutState(ctx, "checked_items", `{"passport":true}`); err != nil {
		t.Fatalf("PutState: %v", err)
	}
	if err := repo.PutState(ctx, "checked_items", `{"passport":true,"jr_pass":true}`); err != nil {
		t.Fatalf("PutState overwrite: %v", err)
	}

	got, err := repo.GetState(ctx, "checked_items")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if got != `{"passport":true,"jr_pass":true}` {
		t.Errorf("GetState = %s", got)
	}

	names, err := repo.ListStateNames(ctx)
	if err != nil {
		t.Fatalf("ListStateNames: %v", err)
	}
	if len(names) != 1 || names[0] != "checked_items" {
		t.Errorf("ListStateNames = %v", names)
	}
}
