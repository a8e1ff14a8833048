package errcode

import (
	"fmt"
)

const (
	MempoolErrorBase = iota * 1000
	ScriptErrorBase
	TxErrorBase
	DSProofErrorBase
	ChainErrorBase
	PersistErrorBase
)

type ProjectError struct {
	Module string
	Code   int
	Desc   string
}

func (e ProjectError) Error() string {
	return fmt.Sprintf("module: %s, global errcode: %v,  desc: %s", e.Module, e.Code, e.Desc)
}

func getCodeAndName(errCode fmt.Stringer) (int, string) {
	code := 0
	name := ""

	switch t := errCode.(type) {
	case MemPoolErr:
		code = int(t)
		name = "mempool"
	case ScriptErr:
		code = int(t)
		name = "script"
	case TxErr:
		code = int(t)
		name = "transaction"
	case DSProofErr:
		code = int(t)
		name = "dsproof"
	case ChainErr:
		code = int(t)
		name = "chain"
	default:
	}

	return code, name
}

// IsErrorCode reports whether err is a ProjectError carrying errCode.
func IsErrorCode(err error, errCode fmt.Stringer) bool {
	e, ok := err.(ProjectError)
	icode, _ := getCodeAndName(errCode)
	return ok && icode == e.Code
}

// GetCode extracts the numeric code of a ProjectError, ok is false otherwise.
func GetCode(err error) (int, bool) {
	e, ok := err.(ProjectError)
	if !ok {
		return 0, false
	}
	return e.Code, true
}

func New(errCode fmt.Stringer) error {
	code, name := getCodeAndName(errCode)

	return ProjectError{
		Module: name,
		Code:   code,
		Desc:   errCode.String(),
	}
}

// NewWithDesc keeps the code of errCode but replaces the description with a
// caller supplied reason, such as which limit was exceeded.
func NewWithDesc(errCode fmt.Stringer, format string, args ...interface{}) error {
	code, name := getCodeAndName(errCode)

	return ProjectError{
		Module: name,
		Code:   code,
		Desc:   fmt.Sprintf(format, args...),
	}
}
