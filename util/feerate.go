package util

import (
	"fmt"

	"github.com/floweethehub/thehub-sub000/util/amount"
)

// FeeRate is a fee rate in satoshis per kilobyte.
type FeeRate struct {
	SataoshisPerK int64
}

func NewFeeRate(satoshisPerK int64) FeeRate {
	return FeeRate{SataoshisPerK: satoshisPerK}
}

func NewFeeRateWithSize(feePaid int64, bytes int64) FeeRate {
	if bytes > 0 {
		return NewFeeRate(feePaid * 1000 / bytes)
	}
	return NewFeeRate(0)
}

// GetFee returns the fee in satoshis for the given size in bytes, never
// rounding a non-zero rate down to zero.
func (feeRate *FeeRate) GetFee(bytes int) int64 {
	size := int64(bytes)
	fee := feeRate.SataoshisPerK * size / 1000
	if fee == 0 && size != 0 {
		if feeRate.SataoshisPerK > 0 {
			fee = 1
		}
		if feeRate.SataoshisPerK < 0 {
			fee = -1
		}
	}
	return fee
}

func (feeRate *FeeRate) GetFeePerK() int64 {
	return feeRate.GetFee(1000)
}

func (feeRate *FeeRate) Less(b FeeRate) bool {
	return feeRate.SataoshisPerK < b.SataoshisPerK
}

func (feeRate FeeRate) String() string {
	return fmt.Sprintf("%d.%08d BCH/kB", feeRate.SataoshisPerK/int64(amount.COIN),
		feeRate.SataoshisPerK%int64(amount.COIN))
}
