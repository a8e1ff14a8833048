package errcode

import "fmt"

type ChainErr int

const (
	ErrorBlockNotConnectTip ChainErr = ChainErrorBase + iota
	ErrorMissingUndo
	ErrorMissingCoin
	ErrorCoinAlreadySpent
)

var chainErrToString = map[ChainErr]string{
	ErrorBlockNotConnectTip: "The block does not build on the current tip",
	ErrorMissingUndo:        "The undo data does not match the block",
	ErrorMissingCoin:        "The block spends a missing coin",
	ErrorCoinAlreadySpent:   "The block spends an already spent coin",
}

func (ce ChainErr) String() string {
	if s, ok := chainErrToString[ce]; ok {
		return s
	}
	return fmt.Sprintf("Unknown code (%d)", ce)
}
