package core

// Settlement is the net balance per currency over the whole ledger. The
// sign convention follows 想想's point of view: positive means 想想 paid
// more than their obligated share, so 錢錢 owes 想想 that amount; negative
// means the reverse. Currencies never net against each other.
type Settlement struct {
	TWD int64
	JPY int64
}

// Direction tells who owes whom in one currency.
type Direction int

const (
	Settled Direction = iota
	QianOwesXiang
	XiangOwesQian
)

// Settle aggregates the record set into one net balance per currency:
// what 想想 paid minus what 想想 should have paid. An empty ledger is
// settled.
func Settle(records []ExpenseRecord) Settlement {
	var s Settlement
	for _, r := range records {
		if r.Payer == PartyXiang {
			s.TWD += r.AmountTWD
			s.JPY += r.AmountJPY
		}
		s.TWD -= r.SplitXiangTWD
		s.JPY -= r.SplitXiangJPY
	}
	return s
}

// Balance returns the transfer direction and absolute amount due in the
// given currency.
func (s Settlement) Balance(c Currency) (Direction, int64) {
	v := s.JPY
	if c == CurrencyTWD {
		v = s.TWD
	}
	switch {
	case v > 0:
		return QianOwesXiang, v
	case v < 0:
		return XiangOwesQian, -v
	default:
		return Settled, 0
	}
}

// Totals sums the gross spend per currency across the record set.
func Totals(records []ExpenseRecord) (twd, jpy int64) {
	for _, r := range records {
		twd += r.AmountTWD
		jpy += r.AmountJPY
	}
	return twd, jpy
}
