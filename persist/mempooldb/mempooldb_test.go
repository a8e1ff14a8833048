package mempooldb

import (
	"encoding/binary"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floweethehub/thehub-sub000/model/mempool"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/model/txin"
	"github.com/floweethehub/thehub-sub000/model/txout"
	"github.com/floweethehub/thehub-sub000/util"
)

func openTemp(t *testing.T) (*Store, string) {
	dir, err := ioutil.TempDir("", "mempooldb")
	require.NoError(t, err)
	path := filepath.Join(dir, FileName)
	store, err := Open(path)
	require.NoError(t, err)
	return store, dir
}

func infoOf(seed string, when int64, delta int64) *mempool.TxMempoolInfo {
	txn := tx.NewTx(0, tx.TxVersion)
	txn.AddTxIn(txin.NewTxIn(outpoint.NewOutPoint(util.DoubleSha256Hash([]byte(seed)), 1),
		script.NewScriptRaw([]byte{1, 2}), script.SequenceFinal))
	txn.AddTxOut(txout.NewTxOut(5000, script.NewScriptRaw([]byte{0x51})))
	return &mempool.TxMempoolInfo{Tx: txn, Time: when, FeeDelta: delta}
}

func TestDumpAndLoad(t *testing.T) {
	store, dir := openTemp(t)
	defer os.RemoveAll(dir)

	infos, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, infos)
	_, ok := store.SavedAt()
	assert.False(t, ok)

	saved := []*mempool.TxMempoolInfo{infoOf("b", 200, 0), infoOf("a", 100, -300), infoOf("c", 300, 1000)}
	now := time.Unix(1600000000, 0)
	require.NoError(t, store.Dump(saved, now))
	require.NoError(t, store.Close())

	store, err = Open(filepath.Join(dir, FileName))
	require.NoError(t, err)
	defer store.Close()

	infos, err = store.Load()
	require.NoError(t, err)
	require.Len(t, infos, len(saved))
	for i, info := range infos {
		assert.Equal(t, saved[i].Tx.GetHash(), info.Tx.GetHash())
		assert.Equal(t, saved[i].Time, info.Time)
		assert.Equal(t, saved[i].FeeDelta, info.FeeDelta)
	}
	at, ok := store.SavedAt()
	assert.True(t, ok)
	assert.Equal(t, now, at)

	// a dump replaces what was there
	require.NoError(t, store.Dump(saved[:1], now))
	infos, err = store.Load()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, saved[0].Tx.GetHash(), infos[0].Tx.GetHash())
}

func TestLoadUnknownVersion(t *testing.T) {
	store, dir := openTemp(t)
	defer os.RemoveAll(dir)
	defer store.Close()

	require.NoError(t, store.Dump([]*mempool.TxMempoolInfo{infoOf("a", 1, 0)}, time.Now()))
	require.NoError(t, store.Update(func(tx *bolt.Tx) error {
		var v [8]byte
		binary.BigEndian.PutUint64(v[:], dumpVersion+1)
		return tx.Bucket(metaBucket).Put(versionKey, v[:])
	}))

	infos, err := store.Load()
	assert.Nil(t, infos)
	assert.Equal(t, ErrVersion, errors.Cause(err))
}

func TestLoadCorruptEntry(t *testing.T) {
	store, dir := openTemp(t)
	defer os.RemoveAll(dir)
	defer store.Close()

	require.NoError(t, store.Dump([]*mempool.TxMempoolInfo{infoOf("a", 1, 0)}, time.Now()))
	require.NoError(t, store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(entryBucket).Put([]byte("junk"), []byte{1, 2, 3})
	}))

	_, err := store.Load()
	assert.Error(t, err)
}

func TestDumpKeepsEveryKey(t *testing.T) {
	store, dir := openTemp(t)
	defer os.RemoveAll(dir)
	defer store.Close()

	saved := []*mempool.TxMempoolInfo{infoOf("a", 1, 0), infoOf("b", 2, 0), infoOf("c", 3, 0)}
	require.NoError(t, store.Dump(saved, time.Unix(1600000000, 0)))

	require.NoError(t, store.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		assert.Equal(t, uint64(dumpVersion), binary.BigEndian.Uint64(meta.Get(versionKey)))
		assert.Equal(t, uint64(1600000000), binary.BigEndian.Uint64(meta.Get(savedKey)))
		assert.Equal(t, len(saved), tx.Bucket(entryBucket).Stats().KeyN)
		return nil
	}))
	infos, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, infos, len(saved))
}
