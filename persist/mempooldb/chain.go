package mempooldb

import (
	"bytes"
	"encoding/binary"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"

	"github.com/floweethehub/thehub-sub000/model/block"
	"github.com/floweethehub/thehub-sub000/model/chain"
)

// headerBucket keeps the active chain above genesis, keyed by height. A
// saved pool is only meaningful on top of the chain it was saved with.
var headerBucket = []byte("headers")

// SaveChain replaces the stored headers with the active chain. Callers
// hold the chain lock.
func (s *Store) SaveChain(active *chain.Chain) error {
	err := s.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(headerBucket); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		headers, err := tx.CreateBucket(headerBucket)
		if err != nil {
			return err
		}
		for height := int32(1); height <= active.TipHeight(); height++ {
			index := active.GetIndex(height)
			buf := bytes.NewBuffer(make([]byte, 0, 84))
			if err := index.Header.Serialize(buf); err != nil {
				return err
			}
			var count [4]byte
			binary.LittleEndian.PutUint32(count[:], uint32(index.TxCount))
			buf.Write(count[:])
			key := make([]byte, 4)
			binary.BigEndian.PutUint32(key, uint32(height))
			if err := headers.Put(key, buf.Bytes()); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "save chain")
}

// LoadChain connects the stored headers on top of active, which must still
// be at genesis. Returns the number of headers connected.
func (s *Store) LoadChain(active *chain.Chain) (int, error) {
	if active.TipHeight() != 0 {
		return 0, errors.Errorf("load chain: tip at height %d, want genesis", active.TipHeight())
	}
	connected := 0
	err := s.View(func(tx *bolt.Tx) error {
		headers := tx.Bucket(headerBucket)
		if headers == nil {
			return nil
		}
		return headers.ForEach(func(k, v []byte) error {
			if len(v) < 4 {
				return errors.Errorf("header %x truncated", k)
			}
			header := block.NewBlockHeader()
			if err := header.Unserialize(bytes.NewReader(v[:len(v)-4])); err != nil {
				return errors.Wrapf(err, "header %x", k)
			}
			txCount := int(binary.LittleEndian.Uint32(v[len(v)-4:]))
			if _, err := active.ConnectTip(header, txCount); err != nil {
				return err
			}
			connected++
			return nil
		})
	})
	if err != nil {
		return connected, errors.Wrap(err, "load chain")
	}
	return connected, nil
}
