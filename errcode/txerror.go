package errcode

import "fmt"

type TxErr int

const (
	TxErrNoPreviousOut TxErr = TxErrorBase + iota
	TxErrEmptyInputs
	TxErrEmptyOutputs
	TxErrDupIns
	TxErrOverSize
	TxErrNotFinal
	TxErrInputsMoneyBigThanOut
	TxErrCoinBase
	TxErrMalformed
)

var txErrToString = map[TxErr]string{
	TxErrNoPreviousOut:         "There is no previousout",
	TxErrEmptyInputs:           "The transaction has no inputs",
	TxErrEmptyOutputs:          "The transaction has no outputs",
	TxErrDupIns:                "The transaction spends the same input twice",
	TxErrOverSize:              "The transaction is oversize",
	TxErrNotFinal:              "The transaction is not final",
	TxErrInputsMoneyBigThanOut: "The transaction spends more than its inputs",
	TxErrCoinBase:              "Coinbase transactions are only valid in a block",
	TxErrMalformed:             "The transaction can not be deserialized",
}

func (te TxErr) String() string {
	if s, ok := txErrToString[te]; ok {
		return s
	}
	return fmt.Sprintf("Unknown code (%d)", te)
}
