// Package memory is an in-process ledger store used for development and
// tests. It mimics the sheet's row geometry: header rows occupy the first
// positions and deleting a row shifts every later row up, so row indexes
// are positional, not stable identifiers.
package memory

import (
	"context"
	"sync"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/core"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/sheets"
)

type Store struct {
	mu      sync.Mutex
	layout  core.SheetLayout
	records []core.ExpenseRecord
}

// Ensure interface conformance
var _ sheets.Store = (*Store)(nil)

func New(layout core.SheetLayout) *Store {
	return &Store{layout: layout}
}

// FetchRows returns the ledger as raw rows, header rows included, the way
// the script endpoint reports its sheet.
func (s *Store) FetchRows(_ context.Context) ([]core.RawRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]core.RawRow, 0, len(s.records)+1)
	rows = append(rows, core.RawRow{
		"rowIndex": float64(1),
		"date":     s.layout.DateHeaderLabel,
		"item":     s.layout.ItemHeaderLabel,
	})
	for i, r := range s.records {
		rows = append(rows, core.RawRow{
			"rowIndex":      float64(s.layout.FirstDataRow + int64(i)),
			"date":          r.Date,
			"item":          r.Item,
			"payer":         string(r.Payer),
			"twd":           float64(r.AmountTWD),
			"jpy":           float64(r.AmountJPY),
			"note":          r.Note,
			"splitXiangTwd": float64(r.SplitXiangTWD),
			"splitXiangJpy": float64(r.SplitXiangJPY),
			"splitQianTwd":  float64(r.SplitQianTWD),
			"splitQianJpy":  float64(r.SplitQianJPY),
		})
	}
	return rows, nil
}

func (s *Store) Append(_ context.Context, r core.ExpenseRecord) error {
	if err := r.Validate(); err != nil {
		return &sheets.StoreError{Message: err.Error()}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r.RowIndex = core.UnpersistedRow // the store owns row assignment
	s.records = append(s.records, r)
	return nil
}

func (s *Store) Update(_ context.Context, r core.ExpenseRecord) error {
	if !r.Persisted() {
		return core.ErrNotPersisted
	}
	if err := r.Validate(); err != nil {
		return &sheets.StoreError{Message: err.Error()}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.position(r.RowIndex)
	if !ok {
		return &sheets.StoreError{Message: "row not found"}
	}
	s.records[pos] = r
	return nil
}

func (s *Store) Delete(_ context.Context, rowIndex int64) error {
	if rowIndex <= core.UnpersistedRow {
		return core.ErrNotPersisted
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.position(rowIndex)
	if !ok {
		return &sheets.StoreError{Message: "row not found"}
	}
	s.records = append(s.records[:pos], s.records[pos+1:]...)
	return nil
}

// Len reports the number of data rows held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) position(rowIndex int64) (int, bool) {
	pos := int(rowIndex - s.layout.FirstDataRow)
	if pos < 0 || pos >= len(s.records) {
		return 0, false
	}
	return pos, true
}
