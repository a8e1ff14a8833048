package errcode

import (
	"fmt"
)

type DSProofErr int

const (
	DSProofNoCommonInput DSProofErr = DSProofErrorBase + iota
	DSProofNotP2PKH
	DSProofMissingForkID
	DSProofEmptySignature
	DSProofMalformed
	DSProofSameTransaction
)

var dsErrToString = map[DSProofErr]string{
	DSProofNoCommonInput:   "Transactions do not double spend each other",
	DSProofNotP2PKH:        "Only P2PKH inputs can be proven",
	DSProofMissingForkID:   "Signature does not use fork id",
	DSProofEmptySignature:  "Empty signature in input",
	DSProofMalformed:       "Malformed double spend proof",
	DSProofSameTransaction: "Both transactions are the same",
}

func (de DSProofErr) String() string {
	if s, ok := dsErrToString[de]; ok {
		return s
	}
	return fmt.Sprintf("Unknown code (%d)", de)
}
