package lundo

import (
	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/model/block"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/undo"
	"github.com/floweethehub/thehub-sub000/model/utxo"
)

type DisconnectResult int

const (
	DisconnectOk DisconnectResult = iota
	// DisconnectUnclean rolled back, but the view did not hold exactly what
	// the block created.
	DisconnectUnclean
	DisconnectFailed
)

// ApplyBlockUndo reverts the coin changes of blk on view, transactions in
// reverse order.
func ApplyBlockUndo(blockUndo *undo.BlockUndo, blk *block.Block, view utxo.CoinsUpdater) DisconnectResult {
	clean := true
	txUndos := blockUndo.GetTxundo()
	if len(txUndos)+1 != len(blk.Txs) {
		log.Error("DisconnectBlock(): block and undo data inconsistent")
		return DisconnectFailed
	}

	for i := len(blk.Txs) - 1; i >= 0; i-- {
		txn := blk.Txs[i]
		txid := txn.GetHash()

		// Check that all outputs are available and match the outputs in the
		// block itself exactly.
		for j, out := range txn.GetOuts() {
			if out.GetScriptPubKey().IsUnspendable() {
				continue
			}
			coin := view.SpendCoin(outpoint.NewOutPoint(txid, uint32(j)))
			if coin == nil || coin.GetAmount() != out.GetValue() ||
				!coin.GetScriptPubKey().IsEqual(out.GetScriptPubKey()) {
				clean = false
			}
		}

		if i == 0 {
			break
		}

		// Restore inputs
		ins := txn.GetIns()
		undoCoins := txUndos[i-1].GetUndoCoins()
		if len(undoCoins) != len(ins) {
			log.Error("DisconnectBlock(): transaction %s and undo data inconsistent", txid)
			return DisconnectFailed
		}
		for k := len(ins) - 1; k >= 0; k-- {
			res := CoinSpend(undoCoins[k], view, ins[k].PreviousOutPoint)
			clean = clean && res != DisconnectUnclean
		}
	}

	if clean {
		return DisconnectOk
	}
	return DisconnectUnclean
}

// CoinSpend puts back a coin spent by the block being disconnected.
func CoinSpend(coin *utxo.Coin, view utxo.CoinsUpdater, out *outpoint.OutPoint) DisconnectResult {
	clean := true
	if view.GetCoin(out) != nil {
		// Overwriting transaction output.
		clean = false
	}
	view.AddCoin(out, coin, !clean || coin.IsCoinBase())
	if clean {
		return DisconnectOk
	}
	return DisconnectUnclean
}
