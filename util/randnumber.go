package util

import (
	"crypto/rand"
	"encoding/binary"
	"math"
)

func InsecureRand64() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("init rand number creator failed...")
	}
	return binary.LittleEndian.Uint64(b[:])
}

// GetRand returns a uniformly distributed number in [0, nMax).
func GetRand(nMax uint64) uint64 {
	if nMax == 0 {
		return 0
	}

	nRange := (math.MaxUint64 / nMax) * nMax
	nRand := InsecureRand64()
	for nRand >= nRange {
		nRand = InsecureRand64()
	}

	return nRand % nMax
}
