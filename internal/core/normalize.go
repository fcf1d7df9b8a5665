// Package core implements the trip ledger domain: row normalization,
// header filtering, two-party split accounting and settlement.
//
// This file turns raw store rows into canonical records. The backing sheet
// is loosely typed (amounts may arrive as strings with currency symbols and
// thousands separators, indexes as floats), so every coercion here is a
// total function resolving to a best-effort default instead of failing.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawRow is one undecoded row as returned by the backing store.
type RawRow map[string]any

// SplitTolerance is the per-currency slack, in whole units, allowed between
// the two parties' shares before a split stops counting as even. One unit
// absorbs the rounding remainder of odd equal splits.
const SplitTolerance int64 = 1

// Normalize converts a raw row into a canonical ExpenseRecord. It never
// fails: missing or malformed fields resolve to zero values so a partially
// broken sheet still renders. Validation is SelectValid's job.
func Normalize(raw RawRow) ExpenseRecord {
	r := ExpenseRecord{
		RowIndex: coerceIndex(raw["rowIndex"]),
		Date:     stringField(raw["date"]),
		Item:     stringField(raw["item"]),
		Payer:    Party(stringField(raw["payer"])),
		Note:     stringField(raw["note"]),

		AmountTWD: coerceAmount(raw["twd"]),
		AmountJPY: coerceAmount(raw["jpy"]),

		SplitXiangTWD: coerceAmount(raw["splitXiangTwd"]),
		SplitXiangJPY: coerceAmount(raw["splitXiangJpy"]),
		SplitQianTWD:  coerceAmount(raw["splitQianTwd"]),
		SplitQianJPY:  coerceAmount(raw["splitQianJpy"]),
	}
	r.SplitMode = InferSplitMode(r.SplitXiangTWD, r.SplitQianTWD, r.SplitXiangJPY, r.SplitQianJPY)
	return r
}

// InferSplitMode classifies a row's split from its share columns. The sheet
// carries no authoritative split flag, so a split is manual when the two
// shares diverge by more than the tolerance in either currency. Rows with
// all shares at zero count as equal: the shares were never entered, they
// are not genuinely skewed.
func InferSplitMode(xiangTWD, qianTWD, xiangJPY, qianJPY int64) SplitMode {
	if abs64(xiangTWD-qianTWD) > SplitTolerance || abs64(xiangJPY-qianJPY) > SplitTolerance {
		return SplitManual
	}
	return SplitEqual
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// coerceAmount extracts a whole-unit amount from a number or a string with
// stray symbols ("NT$1,200", "¥980"). Unparseable values become 0.
func coerceAmount(v any) int64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return roundToUnit(n)
	case int:
		return int64(n)
	case int64:
		return n
	case string:
		return parseAmountString(n)
	default:
		return parseAmountString(fmt.Sprint(v))
	}
}

func parseAmountString(s string) int64 {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return roundToUnit(f)
}

func roundToUnit(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(math.Round(f))
}

// coerceIndex parses a row index; anything invalid or non-positive yields
// the unpersisted sentinel.
func coerceIndex(v any) int64 {
	idx := coerceAmount(v)
	if idx <= 0 {
		return UnpersistedRow
	}
	return idx
}

func stringField(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}
