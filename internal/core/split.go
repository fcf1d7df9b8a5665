package core

// Split is the pair of shares one expense is divided into.
type Split struct {
	Xiang int64
	Qian  int64
}

// ComputeSplit derives both parties' shares from a total. In equal mode the
// odd unit of an odd total always lands on 想想 (round-half-up), matching
// what the sheet has recorded since the trip started; keep it that way or
// historical settlements stop reproducing. In manual mode 想想's share is
// taken as entered and 錢錢's is derived, never entered independently, so
// the shares sum to the total by construction in both modes.
func ComputeSplit(total int64, mode SplitMode, manualXiang int64) Split {
	if mode == SplitManual {
		return Split{Xiang: manualXiang, Qian: total - manualXiang}
	}
	return EqualSplit(total)
}

// EqualSplit halves a total with the remainder assigned to 想想.
func EqualSplit(total int64) Split {
	xiang := (total + 1) / 2
	return Split{Xiang: xiang, Qian: total - xiang}
}
