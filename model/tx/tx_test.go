package tx

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/floweethehub/thehub-sub000/crypto"
	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/model/opcodes"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/model/txin"
	"github.com/floweethehub/thehub-sub000/model/txout"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/floweethehub/thehub-sub000/util/amount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() *crypto.PrivateKey {
	seed := sha256.Sum256([]byte("tx test key"))
	return crypto.PrivateKeyFromBytes(seed[:], true)
}

func spendingTx(prevHash util.Hash, outs int) *Tx {
	transaction := NewTx(0, TxVersion)
	transaction.AddTxIn(txin.NewTxIn(outpoint.NewOutPoint(prevHash, 0), nil, script.SequenceFinal))
	transaction.AddTxIn(txin.NewTxIn(outpoint.NewOutPoint(prevHash, 1), nil, script.SequenceFinal-1))
	for i := 0; i < outs; i++ {
		transaction.AddTxOut(txout.NewTxOut(amount.Amount(1000*(i+1)),
			script.NewScriptRaw([]byte{opcodes.OP_11, opcodes.OP_EQUAL})))
	}
	return transaction
}

func TestTxSerializeAndHash(t *testing.T) {
	transaction := spendingTx(util.DoubleSha256Hash([]byte("prev")), 2)
	var buf bytes.Buffer
	require.NoError(t, transaction.Serialize(&buf))
	assert.Equal(t, transaction.SerializeSize(), buf.Len())
	raw := append([]byte(nil), buf.Bytes()...)

	got := NewEmptyTx()
	require.NoError(t, got.Unserialize(bytes.NewReader(raw)))
	assert.Equal(t, transaction.GetHash(), got.GetHash())
	assert.Equal(t, util.DoubleSha256Hash(raw), got.GetHash())
	assert.Equal(t, 2, got.GetInsCount())
	assert.Equal(t, amount.Amount(3000), got.GetValueOut())

	before := transaction.GetHash()
	transaction.AddTxOut(txout.NewTxOut(1, script.NewEmptyScript()))
	assert.NotEqual(t, before, transaction.GetHash())

	assert.Error(t, NewEmptyTx().Unserialize(bytes.NewReader(raw[:10])))
}

func TestCheckRegularTransaction(t *testing.T) {
	prev := util.DoubleSha256Hash([]byte("prev"))
	assert.NoError(t, spendingTx(prev, 1).CheckRegularTransaction())

	noOuts := spendingTx(prev, 0)
	assert.True(t, errcode.IsErrorCode(noOuts.CheckRegularTransaction(), errcode.TxErrEmptyOutputs))

	dup := NewTx(0, TxVersion)
	dup.AddTxIn(txin.NewTxIn(outpoint.NewOutPoint(prev, 0), nil, script.SequenceFinal))
	dup.AddTxIn(txin.NewTxIn(outpoint.NewOutPoint(prev, 0), nil, script.SequenceFinal))
	dup.AddTxOut(txout.NewTxOut(1, nil))
	assert.True(t, errcode.IsErrorCode(dup.CheckRegularTransaction(), errcode.TxErrDupIns))

	coinbase := NewTx(0, TxVersion)
	coinbase.AddTxIn(txin.NewTxIn(nil, nil, script.SequenceFinal))
	coinbase.AddTxOut(txout.NewTxOut(50*amount.COIN, nil))
	assert.True(t, coinbase.IsCoinBase())
	assert.True(t, errcode.IsErrorCode(coinbase.CheckRegularTransaction(), errcode.TxErrCoinBase))
}

func TestIsFinal(t *testing.T) {
	transaction := spendingTx(util.DoubleSha256Hash([]byte("prev")), 1)
	assert.True(t, transaction.IsFinal(10, 0))

	locked := NewTx(100, TxVersion)
	locked.AddTxIn(txin.NewTxIn(outpoint.NewOutPoint(util.HashZero, 0), nil, 0))
	assert.False(t, locked.IsFinal(100, 0))
	assert.True(t, locked.IsFinal(101, 0))
}

func TestSigHashPreimageComponents(t *testing.T) {
	transaction := spendingTx(util.DoubleSha256Hash([]byte("prev")), 3)

	all := NewSigHashPreimage(transaction, 0, crypto.SigHashAll|crypto.SigHashForkID)
	assert.Equal(t, GetPreviousOutHash(transaction), all.HashPrevOutputs)
	assert.Equal(t, GetSequenceHash(transaction), all.HashSequence)
	assert.Equal(t, GetOutputsHash(transaction.GetOuts()), all.HashOutputs)

	acp := NewSigHashPreimage(transaction, 0, crypto.SigHashAll|crypto.SigHashForkID|crypto.SigHashAnyoneCanpay)
	assert.True(t, acp.HashPrevOutputs.IsNull())
	assert.True(t, acp.HashSequence.IsNull())
	assert.False(t, acp.HashOutputs.IsNull())

	single := NewSigHashPreimage(transaction, 1, crypto.SigHashSingle|crypto.SigHashForkID)
	assert.False(t, single.HashPrevOutputs.IsNull())
	assert.True(t, single.HashSequence.IsNull())
	assert.Equal(t, GetOutputsHash(transaction.GetOuts()[1:2]), single.HashOutputs)

	singleNoOut := NewSigHashPreimage(spendingTx(util.HashZero, 1), 1, crypto.SigHashSingle|crypto.SigHashForkID)
	assert.True(t, singleNoOut.HashOutputs.IsNull())

	none := NewSigHashPreimage(transaction, 0, crypto.SigHashNone|crypto.SigHashForkID)
	assert.True(t, none.HashSequence.IsNull())
	assert.True(t, none.HashOutputs.IsNull())
}

func TestSignatureHashRequiresForkID(t *testing.T) {
	transaction := spendingTx(util.DoubleSha256Hash([]byte("prev")), 1)
	_, err := SignatureHash(transaction, script.NewEmptyScript(), crypto.SigHashAll, 0, 1000)
	assert.True(t, errcode.IsErrorCode(err, errcode.ScriptErrMustUseForkID))
	_, err = SignatureHash(transaction, script.NewEmptyScript(), crypto.SigHashAll|crypto.SigHashForkID, 5, 1000)
	assert.Error(t, err)
}

func TestSignP2PKHAndCheck(t *testing.T) {
	key := testKey()
	pubKey := key.PubKey().ToBytes()
	scriptCode := script.NewP2PKHScript(util.Hash160(pubKey)).Bytes()

	for _, schnorr := range []bool{false, true} {
		transaction := spendingTx(util.DoubleSha256Hash([]byte("prev")), 2)
		hashType := uint32(crypto.SigHashAll | crypto.SigHashForkID)
		require.NoError(t, SignP2PKH(transaction, 0, key, 5000, hashType, schnorr))

		pushes := transaction.GetIns()[0].GetScriptSig().PushedData()
		require.Len(t, pushes, 2)
		if schnorr {
			assert.Len(t, pushes[0], 65)
		}
		assert.Equal(t, pubKey, pushes[1])

		checker := NewTxSignatureChecker(transaction, 0, 5000)
		assert.True(t, checker.CheckSig(pushes[0], pushes[1], scriptCode, script.StandardScriptVerifyFlags))

		wrongAmount := NewTxSignatureChecker(transaction, 0, 5001)
		assert.False(t, wrongAmount.CheckSig(pushes[0], pushes[1], scriptCode, script.StandardScriptVerifyFlags))
		assert.False(t, checker.CheckSig(nil, pushes[1], scriptCode, 0))
	}
}
