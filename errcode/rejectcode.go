package errcode

import "fmt"

// RejectCode represents a numeric value by which a remote peer indicates
// why a message was rejected.
type RejectCode uint8

const (
	RejectMalformed       RejectCode = 0x01
	RejectInvalid         RejectCode = 0x10
	RejectObsolete        RejectCode = 0x11
	RejectDuplicate       RejectCode = 0x12
	RejectNonstandard     RejectCode = 0x40
	RejectDust            RejectCode = 0x41
	RejectInsufficientFee RejectCode = 0x42
	RejectCheckpoint      RejectCode = 0x43
)

var rejectCodeStrings = map[RejectCode]string{
	RejectMalformed:       "REJECT_MALFORMED",
	RejectInvalid:         "REJECT_INVALID",
	RejectObsolete:        "REJECT_OBSOLETE",
	RejectDuplicate:       "REJECT_DUPLICATE",
	RejectNonstandard:     "REJECT_NONSTANDARD",
	RejectDust:            "REJECT_DUST",
	RejectInsufficientFee: "REJECT_INSUFFICIENTFEE",
	RejectCheckpoint:      "REJECT_CHECKPOINT",
}

func (code RejectCode) String() string {
	if s, ok := rejectCodeStrings[code]; ok {
		return s
	}

	return fmt.Sprintf("Unknown RejectCode (%d)", uint8(code))
}

// GetRejectCode maps a policy error onto the code relayed to the peer.
func GetRejectCode(err error) RejectCode {
	e, ok := err.(ProjectError)
	if !ok {
		return RejectInvalid
	}
	switch e.Code {
	case int(AlreadHaveTx):
		return RejectDuplicate
	case int(TooMinFeeRate):
		return RejectInsufficientFee
	case int(TooManyAncestors), int(AncestorSizeTooLarge), int(TooManyDescendants),
		int(DescendantSizeTooLarge), int(Nomature):
		return RejectNonstandard
	case int(TxErrMalformed):
		return RejectMalformed
	}
	return RejectInvalid
}
