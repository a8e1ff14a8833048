package utxo

import (
	"bytes"
	"io"

	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/persist/db"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/pkg/errors"
)

// CoinKey is the database key of a coin: 'C' | txid | varint(index).
type CoinKey struct {
	outpoint *outpoint.OutPoint
}

func NewCoinKey(outPoint *outpoint.OutPoint) *CoinKey {
	return &CoinKey{outpoint: outPoint}
}

func (coinKey *CoinKey) Serialize(writer io.Writer) error {
	if _, err := writer.Write([]byte{db.DbCoin}); err != nil {
		return err
	}
	if err := coinKey.outpoint.Hash.Serialize(writer); err != nil {
		return err
	}
	return util.WriteVarInt(writer, uint64(coinKey.outpoint.Index))
}

func (coinKey *CoinKey) Unserialize(reader io.Reader) error {
	prefix := make([]byte, 1)
	if _, err := io.ReadFull(reader, prefix); err != nil {
		return err
	}
	if prefix[0] != db.DbCoin {
		return errors.Errorf("unexpected coin key prefix %x", prefix[0])
	}
	op := outpoint.OutPoint{}
	if err := op.Hash.Unserialize(reader); err != nil {
		return err
	}
	n, err := util.ReadVarInt(reader)
	if err != nil {
		return err
	}
	op.Index = uint32(n)
	coinKey.outpoint = &op
	return nil
}

func (coinKey *CoinKey) GetOutPoint() *outpoint.OutPoint {
	return coinKey.outpoint
}

func (coinKey *CoinKey) GetSerKey() []byte {
	buf := bytes.NewBuffer(nil)
	coinKey.Serialize(buf)
	return buf.Bytes()
}
