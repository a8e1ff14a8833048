// Package mempooldb saves the mempool across restarts in a bolt file.
package mempooldb

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"

	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/model/mempool"
)

// FileName is the store's file inside the data directory.
const FileName = "mempool.db"

const dumpVersion = 1

var (
	entryBucket = []byte("entries")
	metaBucket  = []byte("meta")
	versionKey  = []byte("version")
	savedKey    = []byte("saved")
)

// ErrVersion is returned by Load for a file written by an unknown version.
var ErrVersion = errors.New("unsupported mempool dump version")

type Store struct {
	*bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open mempool store %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(entryBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create mempool buckets")
	}
	return &Store{db}, nil
}

// Dump replaces the saved pool with infos. Keys follow the slice order so
// Load gives the entries back in the same order.
func (s *Store) Dump(infos []*mempool.TxMempoolInfo, now time.Time) error {
	start := time.Now()
	err := s.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(entryBucket); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		entries, err := tx.CreateBucket(entryBucket)
		if err != nil {
			return err
		}
		for i, info := range infos {
			buf := bytes.NewBuffer(make([]byte, 0, info.Tx.SerializeSize()+32))
			if err := info.Serialize(buf); err != nil {
				return errors.Wrapf(err, "serialize tx %s", info.Tx.GetHash())
			}
			// bolt holds on to keys and values until commit
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, uint64(i))
			if err := entries.Put(key, buf.Bytes()); err != nil {
				return err
			}
		}

		meta := tx.Bucket(metaBucket)
		var version, saved [8]byte
		binary.BigEndian.PutUint64(version[:], dumpVersion)
		if err := meta.Put(versionKey, version[:]); err != nil {
			return err
		}
		binary.BigEndian.PutUint64(saved[:], uint64(now.Unix()))
		return meta.Put(savedKey, saved[:])
	})
	if err != nil {
		return errors.Wrap(err, "dump mempool")
	}
	log.Print("persist", "info", "dumped %d mempool transactions in %v", len(infos), time.Since(start))
	return nil
}

// Load returns the saved pool, empty when nothing was dumped yet.
func (s *Store) Load() ([]*mempool.TxMempoolInfo, error) {
	var infos []*mempool.TxMempoolInfo
	err := s.View(func(tx *bolt.Tx) error {
		version := tx.Bucket(metaBucket).Get(versionKey)
		if version == nil {
			return nil
		}
		if len(version) != 8 || binary.BigEndian.Uint64(version) != dumpVersion {
			return ErrVersion
		}
		return tx.Bucket(entryBucket).ForEach(func(k, v []byte) error {
			info := new(mempool.TxMempoolInfo)
			if err := info.Unserialize(bytes.NewReader(v)); err != nil {
				return errors.Wrapf(err, "entry %x", k)
			}
			infos = append(infos, info)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "load mempool")
	}
	return infos, nil
}

// SavedAt reports when the pool was last dumped.
func (s *Store) SavedAt() (time.Time, bool) {
	var saved time.Time
	var ok bool
	s.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(metaBucket).Get(savedKey); len(v) == 8 {
			saved, ok = time.Unix(int64(binary.BigEndian.Uint64(v)), 0), true
		}
		return nil
	})
	return saved, ok
}
