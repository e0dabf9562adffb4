package crypto

import "math/bits"

// MaxOrder is the default number of power-of-two denomination slots a
// keyset carries: slots 0..63, so the largest denomination is 2^63 and
// any amount up to 2^64-1 can be represented.
const MaxOrder = 64

// SlotForAmount returns the keyset slot index i such that amount ==
// 2^i, and false if amount is not a power of two or exceeds MaxOrder.
func SlotForAmount(amount uint64) (int, bool) {
	if amount == 0 || bits.OnesCount64(amount) != 1 {
		return 0, false
	}
	i := bits.TrailingZeros64(amount)
	if i >= MaxOrder {
		return 0, false
	}
	return i, true
}

// AmountForSlot returns 2^i, the denomination a keyset slot signs for.
func AmountForSlot(i int) uint64 {
	return uint64(1) << uint(i)
}

// Decompose splits amount into the canonical multiset of power-of-two
// denominations given by its binary representation, one per set bit.
func Decompose(amount uint64) []uint64 {
	var denoms []uint64
	for amount != 0 {
		lowest := amount & (-amount)
		denoms = append(denoms, lowest)
		amount &^= lowest
	}
	return denoms
}
