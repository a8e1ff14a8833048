package ltx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/model/block"
	"github.com/floweethehub/thehub-sub000/model/chain"
	"github.com/floweethehub/thehub-sub000/model/consensus"
	"github.com/floweethehub/thehub-sub000/model/opcodes"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/model/txin"
	"github.com/floweethehub/thehub-sub000/model/txout"
	"github.com/floweethehub/thehub-sub000/model/undo"
	"github.com/floweethehub/thehub-sub000/model/utxo"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/floweethehub/thehub-sub000/util/amount"
)

const genesisTime = 1231006505

// chainOf builds a chain of height blocks, ten minutes apart.
func chainOf(t *testing.T, height int) *chain.Chain {
	c := chain.NewChain(&block.BlockHeader{Version: 1, Time: genesisTime, Bits: 0x207fffff}, nil)
	for i := 0; i < height; i++ {
		_, err := c.ConnectTip(&block.BlockHeader{
			Version:       4,
			HashPrevBlock: c.Tip().BlockHash,
			Time:          uint32(c.Tip().GetBlockTime()) + 600,
			Bits:          0x207fffff,
			Nonce:         uint32(i),
		}, 1)
		require.NoError(t, err)
	}
	return c
}

func padScript() *script.Script {
	return script.NewScriptRaw(bytes.Repeat([]byte{opcodes.OP_1}, 80))
}

func prevout(n byte) *outpoint.OutPoint {
	return outpoint.NewOutPoint(util.DoubleSha256Hash([]byte{n}), 0)
}

func newTx(version int32, lockTime uint32, outValue amount.Amount, ins ...*txin.TxIn) *tx.Tx {
	txn := tx.NewTx(lockTime, version)
	for _, in := range ins {
		txn.AddTxIn(in)
	}
	txn.AddTxOut(txout.NewTxOut(outValue, padScript()))
	return txn
}

func TestContextualCheckTransaction(t *testing.T) {
	c := chainOf(t, 10)

	final := newTx(2, 5, 1, txin.NewTxIn(prevout(1), nil, 0))
	assert.NoError(t, ContextualCheckTransactionForCurrentBlock(final, c, consensus.StandardLockTimeVerifyFlags))

	future := newTx(2, 20, 1, txin.NewTxIn(prevout(1), nil, 0))
	err := ContextualCheckTransactionForCurrentBlock(future, c, consensus.StandardLockTimeVerifyFlags)
	assert.True(t, errcode.IsErrorCode(err, errcode.TxErrNotFinal))

	// a final sequence disables the lock time
	disabled := newTx(2, 20, 1, txin.NewTxIn(prevout(1), nil, script.SequenceFinal))
	assert.NoError(t, ContextualCheckTransactionForCurrentBlock(disabled, c, consensus.StandardLockTimeVerifyFlags))

	// time locks compare against the median time past with BIP113
	timeLocked := newTx(2, uint32(c.MedianTimePast()), 1, txin.NewTxIn(prevout(1), nil, 0))
	err = ContextualCheckTransactionForCurrentBlock(timeLocked, c, consensus.StandardLockTimeVerifyFlags)
	assert.True(t, errcode.IsErrorCode(err, errcode.TxErrNotFinal))
	assert.NoError(t, ContextualCheckTransactionForCurrentBlock(timeLocked, c, 0))

	small := tx.NewTx(0, 2)
	small.AddTxIn(txin.NewTxIn(prevout(1), nil, 0))
	small.AddTxOut(txout.NewTxOut(1, script.NewScriptRaw([]byte{opcodes.OP_1})))
	err = ContextualCheckTransactionForCurrentBlock(small, c, consensus.StandardLockTimeVerifyFlags)
	assert.True(t, errcode.IsErrorCode(err, errcode.TxErrMalformed))
}

func TestSequenceLocks(t *testing.T) {
	c := chainOf(t, 10)
	coins := utxo.NewEmptyCoinsMap()
	out := txout.NewTxOut(1000, padScript())
	coins.AddCoin(prevout(1), utxo.NewCoin(out, 5, false), false)
	coins.AddCoin(prevout(2), utxo.NewMempoolCoin(out), false)

	tests := []struct {
		name      string
		version   int32
		prev      *outpoint.OutPoint
		sequence  uint32
		passes    bool
		maxHeight int32
	}{
		{"height lock reached", 2, prevout(1), 3, true, 5},
		{"height lock pending", 2, prevout(1), 10, false, 5},
		{"lock disabled", 2, prevout(1), script.SequenceLockTimeDisableFlag | 10, true, 0},
		{"version 1 ignores sequence", 1, prevout(1), 10, true, 5},
		{"time lock reached", 2, prevout(1), script.SequenceLockTimeTypeFlag | 1, true, 5},
		{"time lock pending", 2, prevout(1), script.SequenceLockTimeTypeFlag | 10, false, 5},
		{"unconfirmed input without lock", 2, prevout(2), 0, true, 0},
		{"unconfirmed input with lock", 2, prevout(2), 1, false, 0},
	}
	for _, test := range tests {
		txn := newTx(test.version, 0, 1, txin.NewTxIn(test.prev, nil, test.sequence))
		lp, err := CalculateLockPoints(txn, c, coins, consensus.StandardLockTimeVerifyFlags)
		require.NoError(t, err, test.name)
		assert.Equal(t, test.passes, CheckSequenceLocks(c, lp), test.name)
		assert.Equal(t, c.GetIndex(test.maxHeight), lp.MaxInputBlock, test.name)
	}

	missing := newTx(2, 0, 1, txin.NewTxIn(prevout(3), nil, 0))
	_, err := CalculateLockPoints(missing, c, coins, consensus.StandardLockTimeVerifyFlags)
	assert.True(t, errcode.IsErrorCode(err, errcode.TxErrNoPreviousOut))
}

func TestCheckInputsMoney(t *testing.T) {
	coins := utxo.NewEmptyCoinsMap()
	coins.AddCoin(prevout(1), utxo.NewCoin(txout.NewTxOut(1000, padScript()), 5, false), false)
	coins.AddCoin(prevout(2), utxo.NewCoin(txout.NewTxOut(5000, padScript()), 5, true), false)

	fee, err := CheckInputsMoney(newTx(2, 0, 900, txin.NewTxIn(prevout(1), nil, 0)), coins, 11)
	require.NoError(t, err)
	assert.Equal(t, amount.Amount(100), fee)

	_, err = CheckInputsMoney(newTx(2, 0, 1100, txin.NewTxIn(prevout(1), nil, 0)), coins, 11)
	assert.True(t, errcode.IsErrorCode(err, errcode.TxErrInputsMoneyBigThanOut))

	_, err = CheckInputsMoney(newTx(2, 0, 1, txin.NewTxIn(prevout(3), nil, 0)), coins, 11)
	assert.True(t, errcode.IsErrorCode(err, errcode.TxErrNoPreviousOut))

	coinbaseSpend := newTx(2, 0, 4000, txin.NewTxIn(prevout(2), nil, 0))
	_, err = CheckInputsMoney(coinbaseSpend, coins, 5+consensus.CoinbaseMaturity-1)
	assert.True(t, errcode.IsErrorCode(err, errcode.Nomature))
	fee, err = CheckInputsMoney(coinbaseSpend, coins, 5+consensus.CoinbaseMaturity)
	require.NoError(t, err)
	assert.Equal(t, amount.Amount(1000), fee)
}

func TestUpdateTxCoins(t *testing.T) {
	coins := utxo.NewEmptyCoinsMap()
	coins.AddCoin(prevout(1), utxo.NewCoin(txout.NewTxOut(1000, padScript()), 5, false), false)

	txn := newTx(2, 0, 900, txin.NewTxIn(prevout(1), nil, 0))
	txUndo := undo.NewTxUndo()
	require.NoError(t, UpdateTxCoins(txn, coins, txUndo, 11))

	assert.Nil(t, coins.GetCoin(prevout(1)))
	require.Len(t, txUndo.GetUndoCoins(), 1)
	assert.Equal(t, int32(5), txUndo.GetUndoCoins()[0].GetHeight())
	created := coins.GetCoin(outpoint.NewOutPoint(txn.GetHash(), 0))
	require.NotNil(t, created)
	assert.Equal(t, int32(11), created.GetHeight())
	assert.Equal(t, amount.Amount(900), created.GetAmount())

	err := UpdateTxCoins(txn, coins, nil, 12)
	assert.True(t, errcode.IsErrorCode(err, errcode.TxErrNoPreviousOut))
}
