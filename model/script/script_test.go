package script

import (
	"bytes"
	"testing"

	"github.com/floweethehub/thehub-sub000/crypto"
	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/model/opcodes"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestP2PKH(t *testing.T) {
	hash := util.Hash160([]byte("pubkey"))
	s := NewP2PKHScript(hash)
	assert.True(t, s.IsPayToPubKeyHash())
	assert.False(t, s.IsPayToScriptHash())
	got, ok := s.ExtractPubKeyHash()
	require.True(t, ok)
	assert.Equal(t, hash, got)
	assert.Equal(t, 1, s.GetSigOpCount())

	other := NewScriptRaw([]byte{opcodes.OP_11, opcodes.OP_EQUAL})
	assert.False(t, other.IsPayToPubKeyHash())
	_, ok = other.ExtractPubKeyHash()
	assert.False(t, ok)
}

func TestPushedData(t *testing.T) {
	sig := bytes.Repeat([]byte{0x30}, 72)
	pub := bytes.Repeat([]byte{0x02}, 33)
	s := NewEmptyScript()
	require.NoError(t, s.PushMultData([][]byte{sig, pub}))
	assert.True(t, s.IsPushOnly())
	assert.Equal(t, [][]byte{sig, pub}, s.PushedData())

	big := bytes.Repeat([]byte{0x01}, 300)
	s2 := NewEmptyScript()
	require.NoError(t, s2.PushSingleData(big))
	assert.Equal(t, byte(opcodes.OP_PUSHDATA2), s2.Bytes()[0])
	assert.Equal(t, [][]byte{big}, s2.PushedData())

	nonPush := NewScriptRaw([]byte{0x01, 0xaa, opcodes.OP_DUP})
	assert.False(t, nonPush.IsPushOnly())
	assert.Nil(t, nonPush.PushedData())

	truncated := NewScriptRaw([]byte{0x05, 0x01})
	assert.True(t, truncated.GetBadOpCode())
	assert.Nil(t, truncated.PushedData())
}

func TestScriptSerialize(t *testing.T) {
	s := NewP2PKHScript(util.Hash160([]byte("k")))
	var buf bytes.Buffer
	require.NoError(t, s.Serialize(&buf))
	assert.Equal(t, s.SerializeSize(), buf.Len())

	var got Script
	require.NoError(t, got.Unserialize(&buf))
	assert.True(t, s.IsEqual(&got))
	assert.True(t, got.IsPayToPubKeyHash())
}

func TestCheckSignatureEncoding(t *testing.T) {
	flags := uint32(StandardScriptVerifyFlags)
	assert.NoError(t, CheckSignatureEncoding(nil, flags))

	schnorr := append(bytes.Repeat([]byte{0x11}, 64), crypto.SigHashAll|crypto.SigHashForkID)
	assert.NoError(t, CheckSignatureEncoding(schnorr, flags))

	noForkID := append(bytes.Repeat([]byte{0x11}, 64), crypto.SigHashAll)
	err := CheckSignatureEncoding(noForkID, flags)
	assert.True(t, errcode.IsErrorCode(err, errcode.ScriptErrMustUseForkID))

	badDER := append(bytes.Repeat([]byte{0x11}, 70), crypto.SigHashAll|crypto.SigHashForkID)
	err = CheckSignatureEncoding(badDER, flags)
	assert.True(t, errcode.IsErrorCode(err, errcode.ScriptErrSigDer))

	err = CheckPubKeyEncoding([]byte{0x05, 0x01}, flags)
	assert.True(t, errcode.IsErrorCode(err, errcode.ScriptErrPubKeyType))
	assert.NoError(t, CheckPubKeyEncoding(append([]byte{0x02}, bytes.Repeat([]byte{1}, 32)...), flags))
}
