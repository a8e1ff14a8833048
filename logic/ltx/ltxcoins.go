package ltx

import (
	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/model/undo"
	"github.com/floweethehub/thehub-sub000/model/utxo"
)

// UpdateTxCoins spends the inputs of txn, saving them in txUndo when it is
// not nil, and adds its outputs at height.
func UpdateTxCoins(txn *tx.Tx, view utxo.CoinsUpdater, txUndo *undo.TxUndo, height int32) error {
	if !txn.IsCoinBase() {
		for _, in := range txn.GetIns() {
			coin := view.SpendCoin(in.PreviousOutPoint)
			if coin == nil {
				return errcode.NewWithDesc(errcode.TxErrNoPreviousOut, "bad-txns-inputs-missingorspent %s",
					in.PreviousOutPoint.String())
			}
			if txUndo != nil {
				txUndo.AddUndoCoin(coin)
			}
		}
	}
	AddTxCoins(txn, view, height)
	return nil
}

func AddTxCoins(txn *tx.Tx, view utxo.CoinsUpdater, height int32) {
	isCoinBase := txn.IsCoinBase()
	txid := txn.GetHash()
	for idx, out := range txn.GetOuts() {
		op := outpoint.NewOutPoint(txid, uint32(idx))
		view.AddCoin(op, utxo.NewCoin(out, height, isCoinBase), isCoinBase)
	}
}
