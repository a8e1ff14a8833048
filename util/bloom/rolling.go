// Package bloom provides a rolling bloom filter which forgets the oldest
// entries once its capacity has been inserted, used to remember recently
// rejected objects without growing without bound.
package bloom

import (
	"math"

	"github.com/btcsuite/btcd/btcutil/bloom"
	"github.com/floweethehub/thehub-sub000/util"
)

const (
	maxHashFuncs = 50
	hashSeedMul  = 0xFBA4C795
)

// RollingFilter keeps three generations of entries, each entry costs two
// bits per hash function. It is not safe for concurrent use.
type RollingFilter struct {
	entriesPerGeneration  int
	entriesThisGeneration int
	generation            uint64
	hashFuncs             uint32
	tweak                 uint32
	data                  []uint64
}

// NewRollingFilter creates a filter that remembers at least the last
// elements inserted items with the given false positive rate.
func NewRollingFilter(elements uint32, fpRate float64) *RollingFilter {
	logFpRate := math.Log(fpRate)
	hashFuncs := int(math.Round(logFpRate / math.Log(0.5)))
	if hashFuncs < 1 {
		hashFuncs = 1
	}
	if hashFuncs > maxHashFuncs {
		hashFuncs = maxHashFuncs
	}
	perGeneration := int((elements + 1) / 2)
	maxElements := perGeneration * 3
	filterBits := uint32(math.Ceil(-1.0 * float64(hashFuncs) * float64(maxElements) /
		math.Log(1.0-math.Exp(logFpRate/float64(hashFuncs)))))

	f := &RollingFilter{
		entriesPerGeneration: perGeneration,
		hashFuncs:            uint32(hashFuncs),
		data:                 make([]uint64, ((filterBits+63)/64)<<1),
	}
	f.Reset()
	return f
}

func (f *RollingFilter) hash(n uint32, key []byte) uint32 {
	return bloom.MurmurHash3(n*hashSeedMul+f.tweak, key)
}

// fastRange maps x onto [0, n) without a division.
func fastRange(x uint32, n int) int {
	return int((uint64(x) * uint64(n)) >> 32)
}

func (f *RollingFilter) Insert(key []byte) {
	if f.entriesThisGeneration == f.entriesPerGeneration {
		f.entriesThisGeneration = 0
		f.generation++
		if f.generation == 4 {
			f.generation = 1
		}
		mask1 := -(f.generation & 1)
		mask2 := -(f.generation >> 1)
		// wipe the entries of the generation that is about to be reused
		for p := 0; p < len(f.data); p += 2 {
			p1, p2 := f.data[p], f.data[p+1]
			mask := (p1 ^ mask1) | (p2 ^ mask2)
			f.data[p] = p1 & mask
			f.data[p+1] = p2 & mask
		}
	}
	f.entriesThisGeneration++

	for n := uint32(0); n < f.hashFuncs; n++ {
		h := f.hash(n, key)
		bit := h & 0x3f
		pos := fastRange(h, len(f.data)) &^ 1
		f.data[pos] = (f.data[pos] &^ (uint64(1) << bit)) | ((f.generation & 1) << bit)
		f.data[pos|1] = (f.data[pos|1] &^ (uint64(1) << bit)) | ((f.generation >> 1) << bit)
	}
}

func (f *RollingFilter) Contains(key []byte) bool {
	for n := uint32(0); n < f.hashFuncs; n++ {
		h := f.hash(n, key)
		bit := h & 0x3f
		pos := fastRange(h, len(f.data)) &^ 1
		if ((f.data[pos]|f.data[pos|1])>>bit)&1 == 0 {
			return false
		}
	}
	return true
}

func (f *RollingFilter) InsertHash(h *util.Hash) {
	f.Insert(h[:])
}

func (f *RollingFilter) ContainsHash(h *util.Hash) bool {
	return f.Contains(h[:])
}

// Reset forgets every entry and picks a fresh tweak.
func (f *RollingFilter) Reset() {
	f.tweak = uint32(util.InsecureRand64())
	f.entriesThisGeneration = 0
	f.generation = 1
	for i := range f.data {
		f.data[i] = 0
	}
}
