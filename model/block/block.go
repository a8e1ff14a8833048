package block

import (
	"io"

	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/pkg/errors"
)

// MaxBlockTxs bounds the transaction count read from the wire.
const MaxBlockTxs = 1000000

type Block struct {
	Header BlockHeader
	Txs    []*tx.Tx
}

func NewBlock() *Block {
	return &Block{}
}

func (bl *Block) GetHash() util.Hash {
	return bl.Header.GetHash()
}

func (bl *Block) Serialize(w io.Writer) error {
	if err := bl.Header.Serialize(w); err != nil {
		return err
	}
	if err := util.WriteVarInt(w, uint64(len(bl.Txs))); err != nil {
		return err
	}
	for _, transaction := range bl.Txs {
		if err := transaction.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (bl *Block) Unserialize(r io.Reader) error {
	if err := bl.Header.Unserialize(r); err != nil {
		return err
	}
	count, err := util.ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxBlockTxs {
		return errors.Errorf("too many transactions in block: %d", count)
	}
	bl.Txs = make([]*tx.Tx, 0, count)
	for i := uint64(0); i < count; i++ {
		transaction := tx.NewEmptyTx()
		if err := transaction.Unserialize(r); err != nil {
			return errors.Wrapf(err, "block tx %d", i)
		}
		bl.Txs = append(bl.Txs, transaction)
	}
	return nil
}

func (bl *Block) SerializeSize() int {
	size := blockHeaderLength + util.VarIntSerializeSize(uint64(len(bl.Txs)))
	for _, transaction := range bl.Txs {
		size += transaction.SerializeSize()
	}
	return size
}
