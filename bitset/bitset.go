package bitset

import (
	"fmt"
	"math/bits"
)

// BitSet is a fixed-size bit vector backed by uint64 words. Index range
// checks are left to the slice bounds; callers size it once via NewBitSet.
type BitSet []uint64

// NewBitSet creates a bitset holding length bits, all unset.
func NewBitSet(length uint64) BitSet {
	words := (length + 63) / 64
	return make([]uint64, words)
}

func (b BitSet) IsSet(index uint64) bool {
	return (b[index/64] & (uint64(1) << (index % 64))) != 0
}

func (b BitSet) Set(index uint64) {
	b[index/64] |= uint64(1) << (index % 64)
}

func (b BitSet) Unset(index uint64) {
	b[index/64] &^= uint64(1) << (index % 64)
}

func (b BitSet) Clear() {
	for i := range b {
		b[i] = 0
	}
}

// Count returns the number of set bits.
func (b BitSet) Count() int {
	total := 0
	for _, word := range b {
		total += bits.OnesCount64(word)
	}
	return total
}

// Ones calls fn with the index of every set bit, in ascending order.
func (b BitSet) Ones(fn func(index uint64)) {
	for i, word := range b {
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			fn(uint64(i*64 + bit))
			word &= word - 1
		}
	}
}

// SetFrom overwrites b with the contents of o.
func (b BitSet) SetFrom(o BitSet) {
	if len(b) != len(o) {
		panic(fmt.Sprintf("bitsets must be same size: got %d vs %d", len(b), len(o)))
	}
	copy(b, o)
}
