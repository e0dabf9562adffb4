package crypto

import (
	"slices"
	"testing"
)

func TestSlotForAmount(t *testing.T) {
	tests := []struct {
		amount    uint64
		wantSlot  int
		wantValid bool
	}{
		{amount: 1, wantSlot: 0, wantValid: true},
		{amount: 2, wantSlot: 1, wantValid: true},
		{amount: 1024, wantSlot: 10, wantValid: true},
		{amount: 0, wantValid: false},
		{amount: 3, wantValid: false},
		{amount: 1 << 63, wantSlot: 63, wantValid: true}, // last slot, MaxOrder-1
	}

	for _, test := range tests {
		slot, ok := SlotForAmount(test.amount)
		if ok != test.wantValid {
			t.Errorf("SlotForAmount(%d) valid = %v, want %v", test.amount, ok, test.wantValid)
			continue
		}
		if ok && slot != test.wantSlot {
			t.Errorf("SlotForAmount(%d) = %d, want %d", test.amount, slot, test.wantSlot)
		}
	}
}

func TestAmountForSlotRoundTrip(t *testing.T) {
	for i := 0; i < MaxOrder; i++ {
		amount := AmountForSlot(i)
		slot, ok := SlotForAmount(amount)
		if !ok || slot != i {
			t.Errorf("round trip failed for slot %d: amount %d -> slot %d, ok %v", i, amount, slot, ok)
		}
	}
}

func TestDecompose(t *testing.T) {
	got := Decompose(50)
	want := []uint64{2, 16, 32}
	slices.Sort(got)
	if !slices.Equal(got, want) {
		t.Errorf("Decompose(50) = %v, want %v", got, want)
	}

	if Decompose(0) != nil {
		t.Errorf("Decompose(0) should be empty")
	}

	maxAmount := ^uint64(0) >> (64 - MaxOrder) // 2^MaxOrder - 1
	sum := uint64(0)
	for _, d := range Decompose(maxAmount) {
		sum += d
	}
	if sum != maxAmount {
		t.Errorf("Decompose(max) sum = %d, want %d", sum, maxAmount)
	}
}
