package errcode

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsErrorCode(t *testing.T) {
	tests := []struct {
		errCode    fmt.Stringer
		want       bool
		descriptor string
	}{
		{ErrorBlockNotConnectTip, true,
			"module: chain, global errcode: " + strconv.Itoa(int(ErrorBlockNotConnectTip)) + ",  desc: The block does not build on the current tip"},
		{MissParent, true,
			"module: mempool, global errcode: " + strconv.Itoa(int(MissParent)) + ",  desc: Miss input transaction"},
		{ScriptErrOK, true,
			"module: script, global errcode: " + strconv.Itoa(int(ScriptErrOK)) + ",  desc: No error"},
		{TxErrNoPreviousOut, true,
			"module: transaction, global errcode: " + strconv.Itoa(int(TxErrNoPreviousOut)) + ",  desc: There is no previousout"},
		{DSProofNotP2PKH, true,
			"module: dsproof, global errcode: " + strconv.Itoa(int(DSProofNotP2PKH)) + ",  desc: Only P2PKH inputs can be proven"},
	}

	for i, test := range tests {
		err := New(test.errCode)
		assert.Equal(t, test.want, IsErrorCode(err, test.errCode), "#%d", i)
		assert.Equal(t, test.descriptor, err.Error(), "#%d", i)
	}
}

func TestIsErrorCodeMismatch(t *testing.T) {
	err := New(TooManyAncestors)
	assert.False(t, IsErrorCode(err, TooManyDescendants))
	assert.False(t, IsErrorCode(errors.New("plain"), TooManyAncestors))

	code, ok := GetCode(err)
	assert.True(t, ok)
	assert.Equal(t, int(TooManyAncestors), code)
	_, ok = GetCode(errors.New("plain"))
	assert.False(t, ok)
}

func TestNewWithDesc(t *testing.T) {
	err := NewWithDesc(TooManyAncestors, "too many unconfirmed ancestors [limit: %d]", 25)
	assert.True(t, IsErrorCode(err, TooManyAncestors))
	assert.Contains(t, err.Error(), "too many unconfirmed ancestors [limit: 25]")
}

func TestGetRejectCode(t *testing.T) {
	assert.Equal(t, RejectDuplicate, GetRejectCode(New(AlreadHaveTx)))
	assert.Equal(t, RejectNonstandard, GetRejectCode(New(TooManyDescendants)))
	assert.Equal(t, RejectInsufficientFee, GetRejectCode(New(TooMinFeeRate)))
	assert.Equal(t, RejectMalformed, GetRejectCode(New(TxErrMalformed)))
	assert.Equal(t, RejectInvalid, GetRejectCode(errors.New("plain")))
	assert.Equal(t, "REJECT_DUPLICATE", RejectDuplicate.String())
	assert.Equal(t, "Unknown RejectCode (255)", RejectCode(255).String())
}
