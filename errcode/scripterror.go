package errcode

import "fmt"

type ScriptErr int

const (
	ScriptErrOK ScriptErr = ScriptErrorBase + iota
	ScriptErrUnknownError
	ScriptErrEvalFalse
	ScriptErrPushSize
	ScriptErrEqualVerify
	ScriptErrCheckSigVerify
	ScriptErrBadOpCode
	ScriptErrInvalidStackOperation
	ScriptErrSigHashType
	ScriptErrSigDer
	ScriptErrSigPushOnly
	ScriptErrPubKeyType
	ScriptErrSigNullFail
	ScriptErrMustUseForkID
	ScriptErrNonStandardScript
)

var scriptErrToString = map[ScriptErr]string{
	ScriptErrOK:                    "No error",
	ScriptErrUnknownError:          "Unknown error",
	ScriptErrEvalFalse:             "Script evaluated without error but finished with a false/empty top stack element",
	ScriptErrPushSize:              "Push value size limit exceeded",
	ScriptErrEqualVerify:           "Script failed an OP_EQUALVERIFY operation",
	ScriptErrCheckSigVerify:        "Script failed an OP_CHECKSIGVERIFY operation",
	ScriptErrBadOpCode:             "Opcode missing or not understood",
	ScriptErrInvalidStackOperation: "Operation not valid with the current stack size",
	ScriptErrSigHashType:           "Signature hash type missing or not understood",
	ScriptErrSigDer:                "Non-canonical DER signature",
	ScriptErrSigPushOnly:           "Only push operators allowed in signatures",
	ScriptErrPubKeyType:            "Public key is neither compressed or uncompressed",
	ScriptErrSigNullFail:           "Signature must be zero for failed CHECK(MULTI)SIG operation",
	ScriptErrMustUseForkID:         "Signature must use SIGHASH_FORKID",
	ScriptErrNonStandardScript:     "Script is not a supported standard template",
}

func (se ScriptErr) String() string {
	if s, ok := scriptErrToString[se]; ok {
		return s
	}
	return fmt.Sprintf("Unknown code (%d)", se)
}
