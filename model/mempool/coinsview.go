package mempool

import (
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/utxo"
)

// CoinsViewMemPool layers the outputs of pool transactions over a base view.
// Outputs already spent inside the pool are still returned, conflict
// detection is done against the spent index. Callers hold the pool lock.
type CoinsViewMemPool struct {
	base    utxo.CoinsView
	mempool *TxMempool
}

func NewCoinsViewMemPool(base utxo.CoinsView, mempool *TxMempool) *CoinsViewMemPool {
	return &CoinsViewMemPool{base: base, mempool: mempool}
}

func (m *CoinsViewMemPool) GetCoin(point *outpoint.OutPoint) *utxo.Coin {
	if entry, ok := m.mempool.poolData[point.Hash]; ok {
		out := entry.Tx.GetTxOut(int(point.Index))
		if out == nil {
			return nil
		}
		return utxo.NewMempoolCoin(out)
	}
	return m.base.GetCoin(point)
}
