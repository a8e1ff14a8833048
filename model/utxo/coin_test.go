package utxo

import (
	"bytes"
	"testing"

	"github.com/floweethehub/thehub-sub000/model/opcodes"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/model/txout"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCoin(value int64, height int32, coinbase bool) *Coin {
	s := script.NewP2PKHScript(util.Hash160([]byte{byte(value)}))
	return NewCoin(txout.NewTxOut(amountOf(value), s), height, coinbase)
}

func testOutPoint(seed string, index uint32) *outpoint.OutPoint {
	return outpoint.NewOutPoint(util.DoubleSha256Hash([]byte(seed)), index)
}

func TestCoinSerialize(t *testing.T) {
	tests := []struct {
		height   int32
		coinbase bool
	}{
		{0, false},
		{1, true},
		{500000, false},
		{0x3fffffff, true},
	}
	for _, test := range tests {
		coin := testCoin(1234, test.height, test.coinbase)
		var buf bytes.Buffer
		require.NoError(t, coin.Serialize(&buf))

		got := NewEmptyCoin()
		require.NoError(t, got.Unserialize(&buf))
		assert.Equal(t, test.height, got.GetHeight())
		assert.Equal(t, test.coinbase, got.IsCoinBase())
		assert.Equal(t, coin.GetAmount(), got.GetAmount())
		assert.True(t, coin.GetScriptPubKey().IsEqual(got.GetScriptPubKey()))
	}
}

func TestMempoolCoin(t *testing.T) {
	coin := NewMempoolCoin(txout.NewTxOut(5, nil))
	assert.True(t, coin.IsMempoolCoin())
	assert.False(t, testCoin(5, 10, false).IsMempoolCoin())
}

func TestCoinKey(t *testing.T) {
	op := testOutPoint("key", 300)
	key := NewCoinKey(op)
	raw := key.GetSerKey()

	got := &CoinKey{}
	require.NoError(t, got.Unserialize(bytes.NewReader(raw)))
	assert.Equal(t, *op, *got.GetOutPoint())

	raw[0] = 'x'
	assert.Error(t, got.Unserialize(bytes.NewReader(raw)))
}

func TestCoinsMap(t *testing.T) {
	cm := NewEmptyCoinsMap()
	op := testOutPoint("map", 0)
	assert.Nil(t, cm.GetCoin(op))
	assert.Nil(t, cm.SpendCoin(op))

	cm.AddCoin(op, testCoin(100, 5, false), false)
	require.NotNil(t, cm.GetCoin(op))
	assert.Equal(t, 1, cm.Len())
	assert.Panics(t, func() { cm.AddCoin(op, testCoin(100, 5, false), false) })
	assert.NotPanics(t, func() { cm.AddCoin(op, testCoin(200, 6, false), true) })
	assert.Equal(t, amountOf(200), cm.GetCoin(op).GetAmount())

	unspendable := NewCoin(txout.NewTxOut(1, script.NewScriptRaw([]byte{opcodes.OP_RETURN})), 1, false)
	cm.AddCoin(testOutPoint("ret", 0), unspendable, false)
	assert.Equal(t, 1, cm.Len())

	spent := cm.SpendCoin(op)
	require.NotNil(t, spent)
	assert.Equal(t, amountOf(200), spent.GetAmount())
	assert.False(t, cm.HaveCoin(op))
}
