package utxo

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/floweethehub/thehub-sub000/util/amount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amountOf(v int64) amount.Amount {
	return amount.Amount(v)
}

func openCoinsDB(t *testing.T) (*CoinsDB, func()) {
	dir, err := ioutil.TempDir("", "coinsdb")
	require.NoError(t, err)
	coinsDB, err := NewCoinsDB(dir, 1, false)
	require.NoError(t, err)
	return coinsDB, func() {
		coinsDB.Close()
		os.RemoveAll(dir)
	}
}

func TestCoinsDBBatchWrite(t *testing.T) {
	coinsDB, cleanup := openCoinsDB(t)
	defer cleanup()

	best, err := coinsDB.GetBestBlock()
	require.NoError(t, err)
	assert.True(t, best.IsNull())

	op1, op2 := testOutPoint("a", 0), testOutPoint("a", 1)
	block := util.DoubleSha256Hash([]byte("block"))
	require.NoError(t, coinsDB.BatchWrite(map[outpoint.OutPoint]*Coin{
		*op1: testCoin(10, 3, true),
		*op2: testCoin(20, 3, false),
	}, block))

	assert.True(t, coinsDB.HaveCoin(op1))
	coin := coinsDB.GetCoin(op2)
	require.NotNil(t, coin)
	assert.Equal(t, amountOf(20), coin.GetAmount())
	assert.Equal(t, int32(3), coin.GetHeight())

	best, err = coinsDB.GetBestBlock()
	require.NoError(t, err)
	assert.Equal(t, block, best)

	require.NoError(t, coinsDB.BatchWrite(map[outpoint.OutPoint]*Coin{*op1: nil}, util.HashZero))
	assert.Nil(t, coinsDB.GetCoin(op1))
	assert.False(t, coinsDB.HaveCoin(op1))
	assert.True(t, coinsDB.HaveCoin(op2))
}

func TestCoinsCacheFlush(t *testing.T) {
	coinsDB, cleanup := openCoinsDB(t)
	defer cleanup()

	stored := testOutPoint("stored", 0)
	require.NoError(t, coinsDB.BatchWrite(map[outpoint.OutPoint]*Coin{*stored: testCoin(7, 1, false)}, util.HashZero))

	cache := NewCoinsCache(coinsDB)
	require.NotNil(t, cache.GetCoin(stored))

	fresh := testOutPoint("fresh", 0)
	cache.AddCoin(fresh, testCoin(8, 2, false), false)
	assert.NotNil(t, cache.GetCoin(fresh))
	assert.Nil(t, coinsDB.GetCoin(fresh))

	// spending a fresh coin never reaches the database
	transient := testOutPoint("transient", 0)
	cache.AddCoin(transient, testCoin(9, 2, false), false)
	require.NotNil(t, cache.SpendCoin(transient))

	require.NotNil(t, cache.SpendCoin(stored))
	assert.Nil(t, cache.GetCoin(stored))

	tip := util.DoubleSha256Hash([]byte("tip"))
	require.NoError(t, cache.Flush(tip))
	assert.Equal(t, 0, cache.CacheSize())

	assert.Nil(t, coinsDB.GetCoin(stored))
	assert.NotNil(t, coinsDB.GetCoin(fresh))
	assert.Nil(t, coinsDB.GetCoin(transient))
	best, err := coinsDB.GetBestBlock()
	require.NoError(t, err)
	assert.Equal(t, tip, best)
}

func TestCoinsDBStats(t *testing.T) {
	coinsDB, cleanup := openCoinsDB(t)
	defer cleanup()

	stats, err := coinsDB.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Coins)
	assert.Equal(t, 0, stats.Transactions)

	require.NoError(t, coinsDB.BatchWrite(map[outpoint.OutPoint]*Coin{
		*testOutPoint("a", 0): testCoin(10, 3, true),
		*testOutPoint("a", 1): testCoin(20, 3, false),
		*testOutPoint("b", 4): testCoin(30, 4, false),
	}, util.DoubleSha256Hash([]byte("block"))))

	stats, err = coinsDB.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Transactions)
	assert.Equal(t, 3, stats.Coins)
	// the best block marker is not a coin
	assert.Equal(t, amountOf(60), stats.TotalAmount)

	require.NoError(t, coinsDB.BatchWrite(map[outpoint.OutPoint]*Coin{*testOutPoint("b", 4): nil}, util.HashZero))
	stats, err = coinsDB.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Transactions)
	assert.Equal(t, 2, stats.Coins)
	assert.Equal(t, amountOf(30), stats.TotalAmount)
}
