package db

import (
	"crypto/rand"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	lvldb "github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	obfuscateKeyKey = "\000obfuscate_key"
	obfuscateKeyLen = 8
)

// Key prefixes of the chainstate database.
const (
	DbCoin      byte = 'C'
	DbBestBlock byte = 'B'
)

// ErrNotFound is returned by Read for a missing key.
var ErrNotFound = lvldb.ErrNotFound

type DBWrapper struct {
	option       opt.Options
	readOption   opt.ReadOptions
	iterOption   opt.ReadOptions
	writeOption  opt.WriteOptions
	syncOption   opt.WriteOptions
	db           *lvldb.DB
	name         string
	obfuscateKey []byte
}

type DBOption struct {
	FilePath       string
	CacheSize      int
	Wipe           bool
	DontObfuscate  bool
	ForceCompactdb bool
}

func genObfuscateKey() ([]byte, error) {
	buf := make([]byte, obfuscateKeyLen)
	if _, err := rand.Read(buf); err != nil {
		return nil, errors.Wrap(err, "read obfuscate key")
	}
	return buf, nil
}

func getOptions(cacheSize int) opt.Options {
	var opts opt.Options
	opts.BlockCacher = opt.LRUCacher
	opts.BlockCacheCapacity = cacheSize / 2
	opts.WriteBuffer = cacheSize / 4
	opts.Filter = filter.NewBloomFilter(10)
	opts.Compression = opt.NoCompression
	opts.OpenFilesCacheCapacity = 64
	return opts
}

func destroyDB(path string) error {
	st, err := storage.OpenFile(path, false)
	if err != nil {
		return err
	}
	defer st.Close()
	fds, err := st.List(storage.TypeAll)
	if err != nil {
		return err
	}
	for _, fd := range fds {
		if err := st.Remove(fd); err != nil {
			return err
		}
	}
	for _, other := range []string{"CURRENT", "LOCK", "LOG", "LOG.old"} {
		if err := os.Remove(filepath.Join(path, other)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func NewDBWrapper(do *DBOption) (*DBWrapper, error) {
	if do == nil {
		return nil, errors.New("DBWrapper: nil DBOption")
	}
	opts := getOptions(do.CacheSize)
	if do.Wipe {
		if err := destroyDB(do.FilePath); err != nil {
			return nil, errors.Wrapf(err, "wipe %s", do.FilePath)
		}
	}
	if err := os.MkdirAll(do.FilePath, 0740); err != nil {
		return nil, errors.Wrapf(err, "create %s", do.FilePath)
	}

	db, err := lvldb.OpenFile(do.FilePath, &opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open leveldb %s", do.FilePath)
	}
	if do.ForceCompactdb {
		if err := db.CompactRange(util.Range{}); err != nil {
			db.Close()
			return nil, err
		}
	}

	strict := opt.StrictJournalChecksum | opt.StrictBlockChecksum
	dbw := &DBWrapper{
		option:      opts,
		readOption:  opt.ReadOptions{Strict: strict},
		iterOption:  opt.ReadOptions{DontFillCache: true, Strict: strict},
		syncOption:  opt.WriteOptions{Sync: true},
		db:          db,
		name:        filepath.Base(do.FilePath),
	}

	obk, err := dbw.readRaw([]byte(obfuscateKeyKey))
	switch {
	case err == nil:
		dbw.obfuscateKey = obk
	case err != ErrNotFound:
		db.Close()
		return nil, err
	case !do.DontObfuscate && dbw.IsEmpty():
		newKey, err := genObfuscateKey()
		if err != nil {
			db.Close()
			return nil, err
		}
		if err := db.Put([]byte(obfuscateKeyKey), newKey, &dbw.syncOption); err != nil {
			db.Close()
			return nil, err
		}
		dbw.obfuscateKey = newKey
	}
	return dbw, nil
}

func xor(val, key []byte) {
	if len(key) == 0 {
		return
	}
	for i, j := 0, 0; i < len(val); i++ {
		val[i] ^= key[j]
		j++
		if j == len(key) {
			j = 0
		}
	}
}

func (dbw *DBWrapper) readRaw(key []byte) ([]byte, error) {
	return dbw.db.Get(key, &dbw.readOption)
}

func (dbw *DBWrapper) Name() string {
	return dbw.name
}

func (dbw *DBWrapper) Read(key []byte) ([]byte, error) {
	value, err := dbw.readRaw(key)
	if err != nil {
		return nil, err
	}
	xor(value, dbw.obfuscateKey)
	return value, nil
}

func (dbw *DBWrapper) Write(key, val []byte, sync bool) error {
	bw := NewBatchWrapper(dbw)
	bw.Write(key, val)
	return dbw.WriteBatch(bw, sync)
}

func (dbw *DBWrapper) WriteBatch(bw *BatchWrapper, sync bool) error {
	opts := &dbw.writeOption
	if sync {
		opts = &dbw.syncOption
	}
	return dbw.db.Write(&bw.bat, opts)
}

func (dbw *DBWrapper) Exists(key []byte) (bool, error) {
	return dbw.db.Has(key, &dbw.readOption)
}

func (dbw *DBWrapper) Erase(key []byte, sync bool) error {
	bw := NewBatchWrapper(dbw)
	bw.Erase(key)
	return dbw.WriteBatch(bw, sync)
}

func (dbw *DBWrapper) Iterator() *IterWrapper {
	return NewIterWrapper(dbw, dbw.db.NewIterator(nil, &dbw.iterOption))
}

// PrefixIterator walks every key starting with prefix.
func (dbw *DBWrapper) PrefixIterator(prefix []byte) *IterWrapper {
	return NewIterWrapper(dbw, dbw.db.NewIterator(util.BytesPrefix(prefix), &dbw.iterOption))
}

func (dbw *DBWrapper) IsEmpty() bool {
	it := dbw.Iterator()
	defer it.Close()
	it.SeekToFirst()
	return !it.Valid()
}

func (dbw *DBWrapper) EstimateSize(begin, end []byte) uint64 {
	sizes, err := dbw.db.SizeOf([]util.Range{{Start: begin, Limit: end}})
	if err != nil {
		return 0
	}
	return uint64(sizes.Sum())
}

func (dbw *DBWrapper) GetObfuscateKey() []byte {
	return dbw.obfuscateKey
}

func (dbw *DBWrapper) Close() error {
	if dbw.db == nil {
		return nil
	}
	return dbw.db.Close()
}

type BatchWrapper struct {
	bat     lvldb.Batch
	parent  *DBWrapper
	sizeEst int
}

func NewBatchWrapper(parent *DBWrapper) *BatchWrapper {
	return &BatchWrapper{parent: parent}
}

func (bw *BatchWrapper) Clear() {
	bw.bat.Reset()
	bw.sizeEst = 0
}

func (bw *BatchWrapper) Write(key, val []byte) {
	obfuscated := append([]byte(nil), val...)
	xor(obfuscated, bw.parent.GetObfuscateKey())
	bw.bat.Put(key, obfuscated)
	// header byte, varint lengths below 16k and the payloads
	bw.sizeEst += 3 + varLenExtra(len(key)) + len(key) + varLenExtra(len(val)) + len(val)
}

func (bw *BatchWrapper) Erase(key []byte) {
	bw.bat.Delete(key)
	bw.sizeEst += 2 + varLenExtra(len(key)) + len(key)
}

func (bw *BatchWrapper) SizeEstimate() int {
	return bw.sizeEst
}

func (bw *BatchWrapper) Len() int {
	return bw.bat.Len()
}

func varLenExtra(n int) int {
	if n > 127 {
		return 1
	}
	return 0
}

type IterWrapper struct {
	parent *DBWrapper
	iter   iterator.Iterator
}

func NewIterWrapper(parent *DBWrapper, iter iterator.Iterator) *IterWrapper {
	return &IterWrapper{parent: parent, iter: iter}
}

func (iw *IterWrapper) Valid() bool {
	return iw.iter != nil && iw.iter.Valid()
}

func (iw *IterWrapper) SeekToFirst() {
	if iw.iter != nil {
		iw.iter.First()
	}
}

func (iw *IterWrapper) Next() {
	if iw.iter != nil {
		iw.iter.Next()
	}
}

func (iw *IterWrapper) GetKey() []byte {
	if iw.iter == nil {
		return nil
	}
	return append([]byte(nil), iw.iter.Key()...)
}

func (iw *IterWrapper) GetVal() []byte {
	if iw.iter == nil {
		return nil
	}
	val := append([]byte(nil), iw.iter.Value()...)
	xor(val, iw.parent.GetObfuscateKey())
	return val
}

func (iw *IterWrapper) Close() {
	if iw.iter != nil {
		iw.iter.Release()
	}
}
