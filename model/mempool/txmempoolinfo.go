package mempool

import (
	"encoding/binary"
	"io"

	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/util"
)

// TxMempoolInfo is the persisted view of a pool entry.
type TxMempoolInfo struct {
	Tx       *tx.Tx
	Time     int64
	FeeRate  util.FeeRate
	FeeDelta int64
}

func (info *TxMempoolInfo) Serialize(w io.Writer) error {
	if err := info.Tx.Serialize(w); err != nil {
		return err
	}
	if err := util.BinarySerializer.PutUint64(w, binary.LittleEndian, uint64(info.Time)); err != nil {
		return err
	}
	return util.BinarySerializer.PutUint64(w, binary.LittleEndian, uint64(info.FeeDelta))
}

func (info *TxMempoolInfo) Unserialize(r io.Reader) error {
	info.Tx = tx.NewEmptyTx()
	if err := info.Tx.Unserialize(r); err != nil {
		return err
	}
	t, err := util.BinarySerializer.Uint64(r, binary.LittleEndian)
	if err != nil {
		return err
	}
	delta, err := util.BinarySerializer.Uint64(r, binary.LittleEndian)
	if err != nil {
		return err
	}
	info.Time = int64(t)
	info.FeeDelta = int64(delta)
	return nil
}
