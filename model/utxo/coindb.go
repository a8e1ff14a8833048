package utxo

import (
	"bytes"
	"path/filepath"

	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/persist/db"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/floweethehub/thehub-sub000/util/amount"
	"github.com/pkg/errors"
)

// CoinsDB is the leveldb backed chainstate.
type CoinsDB struct {
	dbw *db.DBWrapper
}

// NewCoinsDB opens <dataDir>/chainstate, cacheSize in MB.
func NewCoinsDB(dataDir string, cacheSize int, wipe bool) (*CoinsDB, error) {
	dbw, err := db.NewDBWrapper(&db.DBOption{
		FilePath:  filepath.Join(dataDir, "chainstate"),
		CacheSize: cacheSize << 20,
		Wipe:      wipe,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open coins db")
	}
	return &CoinsDB{dbw: dbw}, nil
}

func (coinsDB *CoinsDB) GetCoin(point *outpoint.OutPoint) *Coin {
	coinBuff, err := coinsDB.dbw.Read(NewCoinKey(point).GetSerKey())
	if err != nil {
		if err != db.ErrNotFound {
			log.Error("read coin %s: %v", point.String(), err)
		}
		return nil
	}
	coin := NewEmptyCoin()
	if err := coin.Unserialize(bytes.NewReader(coinBuff)); err != nil {
		log.Error("corrupted coin %s: %v", point.String(), err)
		return nil
	}
	return coin
}

func (coinsDB *CoinsDB) HaveCoin(point *outpoint.OutPoint) bool {
	ok, err := coinsDB.dbw.Exists(NewCoinKey(point).GetSerKey())
	return err == nil && ok
}

// GetBestBlock returns the block the stored coins are consistent with, the
// zero hash on an empty database.
func (coinsDB *CoinsDB) GetBestBlock() (util.Hash, error) {
	var hash util.Hash
	v, err := coinsDB.dbw.Read([]byte{db.DbBestBlock})
	if err == db.ErrNotFound {
		return hash, nil
	}
	if err != nil {
		return hash, err
	}
	err = hash.Unserialize(bytes.NewReader(v))
	return hash, err
}

// BatchWrite stores coins atomically, a nil coin erases its outpoint.
func (coinsDB *CoinsDB) BatchWrite(coins map[outpoint.OutPoint]*Coin, bestBlock util.Hash) error {
	batch := db.NewBatchWrapper(coinsDB.dbw)
	for point, coin := range coins {
		point := point
		key := NewCoinKey(&point).GetSerKey()
		if coin == nil {
			batch.Erase(key)
			continue
		}
		var buf bytes.Buffer
		if err := coin.Serialize(&buf); err != nil {
			return err
		}
		batch.Write(key, buf.Bytes())
	}
	if !bestBlock.IsNull() {
		batch.Write([]byte{db.DbBestBlock}, bestBlock[:])
	}
	if err := coinsDB.dbw.WriteBatch(batch, true); err != nil {
		return errors.Wrap(err, "write coins batch")
	}
	log.Print("persist", "debug", "committed %d changed transaction outputs to %s, batch of %d bytes",
		len(coins), coinsDB.dbw.Name(), batch.SizeEstimate())
	return nil
}

// CoinsStats summarises the stored coins.
type CoinsStats struct {
	Transactions int
	Coins        int
	TotalAmount  amount.Amount
	// DiskSize is leveldb's estimate of the space taken by the coins.
	DiskSize uint64
}

// Stats walks every stored coin.
func (coinsDB *CoinsDB) Stats() (*CoinsStats, error) {
	stats := &CoinsStats{}
	it := coinsDB.dbw.PrefixIterator([]byte{db.DbCoin})
	defer it.Close()

	var lastTx util.Hash
	for it.SeekToFirst(); it.Valid(); it.Next() {
		key := NewCoinKey(nil)
		if err := key.Unserialize(bytes.NewReader(it.GetKey())); err != nil {
			return nil, errors.Wrap(err, "corrupted coin key")
		}
		coin := NewEmptyCoin()
		if err := coin.Unserialize(bytes.NewReader(it.GetVal())); err != nil {
			return nil, errors.Wrapf(err, "corrupted coin %s", key.GetOutPoint())
		}
		// keys sort by txid, the outputs of one transaction are adjacent
		if stats.Coins == 0 || key.GetOutPoint().Hash != lastTx {
			stats.Transactions++
			lastTx = key.GetOutPoint().Hash
		}
		stats.Coins++
		stats.TotalAmount += coin.GetAmount()
	}
	stats.DiskSize = coinsDB.dbw.EstimateSize([]byte{db.DbCoin}, []byte{db.DbCoin + 1})
	return stats, nil
}

func (coinsDB *CoinsDB) Close() error {
	return coinsDB.dbw.Close()
}
