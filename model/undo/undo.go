package undo

import (
	"io"

	"github.com/floweethehub/thehub-sub000/model/utxo"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/pkg/errors"
)

const maxInputPerTx = 1000000

// TxUndo holds the coins a transaction spent, in input order.
type TxUndo struct {
	undoCoins []*utxo.Coin
}

func NewTxUndo() *TxUndo {
	return &TxUndo{undoCoins: make([]*utxo.Coin, 0)}
}

func (tu *TxUndo) AddUndoCoin(coin *utxo.Coin) {
	tu.undoCoins = append(tu.undoCoins, coin)
}

func (tu *TxUndo) GetUndoCoins() []*utxo.Coin {
	return tu.undoCoins
}

func (tu *TxUndo) Serialize(w io.Writer) error {
	if err := util.WriteVarInt(w, uint64(len(tu.undoCoins))); err != nil {
		return err
	}
	for _, coin := range tu.undoCoins {
		if err := coin.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (tu *TxUndo) Unserialize(r io.Reader) error {
	count, err := util.ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxInputPerTx {
		return errors.Errorf("too many input undo records: %d", count)
	}
	coins := make([]*utxo.Coin, count)
	for i := range coins {
		coin := utxo.NewEmptyCoin()
		if err := coin.Unserialize(r); err != nil {
			return errors.Wrapf(err, "undo coin %d", i)
		}
		coins[i] = coin
	}
	tu.undoCoins = coins
	return nil
}

// BlockUndo has one TxUndo per non-coinbase transaction of a block.
type BlockUndo struct {
	txundo []*TxUndo
}

func NewBlockUndo(count int) *BlockUndo {
	return &BlockUndo{txundo: make([]*TxUndo, 0, count)}
}

func (bu *BlockUndo) GetTxundo() []*TxUndo {
	return bu.txundo
}

func (bu *BlockUndo) AddTxUndo(txUndo *TxUndo) {
	bu.txundo = append(bu.txundo, txUndo)
}

func (bu *BlockUndo) Serialize(w io.Writer) error {
	if err := util.WriteVarInt(w, uint64(len(bu.txundo))); err != nil {
		return err
	}
	for _, obj := range bu.txundo {
		if err := obj.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (bu *BlockUndo) Unserialize(r io.Reader) error {
	count, err := util.ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxInputPerTx {
		return errors.Errorf("too many tx undo records: %d", count)
	}
	txundos := make([]*TxUndo, count)
	for i := range txundos {
		obj := NewTxUndo()
		if err := obj.Unserialize(r); err != nil {
			return err
		}
		txundos[i] = obj
	}
	bu.txundo = txundos
	return nil
}
