package core

import "testing"

func TestComputeSplitEqual(t *testing.T) {
	cases := []struct {
		total     int64
		wantXiang int64
		wantQian  int64
	}{
		{0, 0, 0},
		{100, 50, 50},
		{101, 51, 50}, // odd remainder goes to 想想
		{1, 1, 0},
		{999, 500, 499},
	}
	for _, tc := range cases {
		got := ComputeSplit(tc.total, SplitEqual, 0)
		if got.Xiang != tc.wantXiang || got.Qian != tc.wantQian {
			t.Errorf("ComputeSplit(%d, equal) = %d/%d, want %d/%d",
				tc.total, got.Xiang, got.Qian, tc.wantXiang, tc.wantQian)
		}
	}
}

func TestComputeSplitManual(t *testing.T) {
	cases := []struct {
		total, manual int64
		wantQian      int64
	}{
		{1000, 600, 400},
		{1000, 0, 1000},
		{1000, 1000, 0},
		{500, 123, 377},
	}
	for _, tc := range cases {
		got := ComputeSplit(tc.total, SplitManual, tc.manual)
		if got.Xiang != tc.manual || got.Qian != tc.wantQian {
			t.Errorf("ComputeSplit(%d, manual, %d) = %d/%d, want %d/%d",
				tc.total, tc.manual, got.Xiang, got.Qian, tc.manual, tc.wantQian)
		}
	}
}

func TestComputeSplitSharesAlwaysSumToTotal(t *testing.T) {
	for total := int64(0); total <= 2000; total++ {
		for _, mode := range []SplitMode{SplitEqual, SplitManual} {
			got := ComputeSplit(total, mode, total/3)
			if got.Xiang+got.Qian != total {
				t.Fatalf("mode %q total %d: shares %d+%d != total", mode, total, got.Xiang, got.Qian)
			}
		}
	}
}

func TestComputeSplitManualRederivesQianWhenTotalChanges(t *testing.T) {
	// Changing the total keeps 想想's entered share and re-derives 錢錢's.
	first := ComputeSplit(1000, SplitManual, 600)
	second := ComputeSplit(1500, SplitManual, first.Xiang)
	if second.Xiang != 600 || second.Qian != 900 {
		t.Errorf("re-derived split = %d/%d, want 600/900", second.Xiang, second.Qian)
	}
}
