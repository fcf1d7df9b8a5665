package core

import (
	"sort"
	"strings"
	"time"
)

// SheetLayout describes the store-specific sheet geometry. The backing
// spreadsheet reserves its first rows for headers, so both the first data
// row and the literal header labels are injected configuration rather than
// constants of the ledger logic.
type SheetLayout struct {
	// FirstDataRow is the 1-based index of the first row that can hold a
	// record. Rows below it are headers and never valid data.
	FirstDataRow int64

	// DateHeaderLabel and ItemHeaderLabel are the header cell texts used to
	// reject a header row that leaked through as data.
	DateHeaderLabel string
	ItemHeaderLabel string
}

// DefaultSheetLayout matches the deployed trip sheet: two header rows, data
// from row 3, Chinese column labels.
func DefaultSheetLayout() SheetLayout {
	return SheetLayout{
		FirstDataRow:    3,
		DateHeaderLabel: "日期",
		ItemHeaderLabel: "項目",
	}
}

// SelectValid drops structurally invalid and header-like rows and orders the
// survivors newest first (date descending, row index descending on ties).
// Records whose date fails to parse are kept and fall through to the row
// index tiebreak; they are mis-ordered, never dropped. The input slice is
// not modified.
func SelectValid(records []ExpenseRecord, layout SheetLayout) []ExpenseRecord {
	out := make([]ExpenseRecord, 0, len(records))
	for _, r := range records {
		if r.RowIndex < layout.FirstDataRow {
			continue
		}
		if layout.DateHeaderLabel != "" && strings.Contains(r.Date, layout.DateHeaderLabel) {
			continue
		}
		if layout.ItemHeaderLabel != "" && strings.Contains(r.Item, layout.ItemHeaderLabel) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, okI := ParseDate(out[i].Date)
		dj, okJ := ParseDate(out[j].Date)
		if okI && okJ && !di.Equal(dj) {
			return di.After(dj)
		}
		return out[i].RowIndex > out[j].RowIndex
	})
	return out
}

// dateLayouts are tried in order; the store writes slash-delimited dates but
// Apps Script serializes Date cells as ISO timestamps.
var dateLayouts = []string{
	"2006/01/02",
	"2006/1/2",
	"2006-01-02",
	"2006-1-2",
	time.RFC3339,
}

// ParseDate parses the date forms observed in the sheet. The boolean is
// false when no layout matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	// ISO timestamps compare by their calendar day.
	if i := strings.IndexByte(s, 'T'); i > 0 {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.Truncate(24 * time.Hour), true
		}
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
