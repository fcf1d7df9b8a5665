package core

import (
	"errors"
	"strings"
)

const (
	PartyXiang Party = "想想"
	PartyQian  Party = "錢錢"

	CurrencyTWD Currency = "TWD"
	CurrencyJPY Currency = "JPY"

	SplitEqual  SplitMode = "equal"
	SplitManual SplitMode = "manual"
)

// UnpersistedRow is the sentinel RowIndex for records that have no backing
// store row yet. Such records cannot be updated or deleted.
const UnpersistedRow int64 = 0

type (
	Party     string
	Currency  string
	SplitMode string

	// ExpenseRecord is the canonical form of one ledger row. Amounts are
	// whole currency units (yen / NT dollars); exactly one currency column
	// carries the amount, the other stays zero.
	ExpenseRecord struct {
		RowIndex int64
		Date     string
		Item     string
		Payer    Party
		AmountTWD int64
		AmountJPY int64
		Note     string
		SplitMode SplitMode

		// Each party's share, mirrored across both currency columns with
		// the inactive currency's fields at zero.
		SplitXiangTWD int64
		SplitXiangJPY int64
		SplitQianTWD  int64
		SplitQianJPY  int64
	}
)

var (
	ErrEmptyItem      = errors.New("empty item description")
	ErrInvalidPayer   = errors.New("unknown payer")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrBothCurrencies = errors.New("record carries both currencies")
	ErrSplitMismatch  = errors.New("split shares do not sum to amount")
	ErrNotPersisted   = errors.New("record has no backing store row")
)

// Persisted reports whether the record has a valid backing-store row.
func (r ExpenseRecord) Persisted() bool {
	return r.RowIndex > UnpersistedRow
}

// Currency returns the currency the record is denominated in.
func (r ExpenseRecord) Currency() Currency {
	if r.AmountTWD > 0 {
		return CurrencyTWD
	}
	return CurrencyJPY
}

// Amount returns the record's total in its active currency.
func (r ExpenseRecord) Amount() int64 {
	if r.AmountTWD > 0 {
		return r.AmountTWD
	}
	return r.AmountJPY
}

// XiangShare returns 想想's share in the record's active currency.
func (r ExpenseRecord) XiangShare() int64 {
	if r.AmountTWD > 0 {
		return r.SplitXiangTWD
	}
	return r.SplitXiangJPY
}

// QianShare returns 錢錢's share in the record's active currency.
func (r ExpenseRecord) QianShare() int64 {
	if r.AmountTWD > 0 {
		return r.SplitQianTWD
	}
	return r.SplitQianJPY
}

func (p Party) Valid() bool {
	return p == PartyXiang || p == PartyQian
}

func (m SplitMode) Valid() bool {
	return m == SplitEqual || m == SplitManual
}

// Validate checks a record about to be sent to the store. Records read back
// from the store are never validated; normalization already resolved them to
// best-effort defaults.
func (r ExpenseRecord) Validate() error {
	if len(strings.TrimSpace(r.Item)) == 0 {
		return ErrEmptyItem
	}
	if !r.Payer.Valid() {
		return ErrInvalidPayer
	}
	if r.AmountTWD < 0 || r.AmountJPY < 0 {
		return ErrInvalidAmount
	}
	if r.AmountTWD > 0 && r.AmountJPY > 0 {
		return ErrBothCurrencies
	}
	if r.AmountTWD == 0 && r.AmountJPY == 0 {
		return ErrInvalidAmount
	}
	if diff := r.XiangShare() + r.QianShare() - r.Amount(); diff > SplitTolerance || diff < -SplitTolerance {
		return ErrSplitMismatch
	}
	return nil
}
