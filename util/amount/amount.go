package amount

import (
	"fmt"
)

type Amount int64

const (
	COIN     Amount = 100000000
	CENT     Amount = 1000000
	MaxMoney        = 21000000 * COIN
)

func (a Amount) String() string {
	sign := ""
	v := a
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%08d BCH", sign, v/COIN, v%COIN)
}

func MoneyRange(a Amount) bool {
	return a >= 0 && a <= MaxMoney
}
