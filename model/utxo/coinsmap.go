package utxo

import (
	"sync"

	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/util/amount"
)

// CoinsMap is an in memory coins view.
type CoinsMap struct {
	mtx        sync.RWMutex
	cacheCoins map[outpoint.OutPoint]*Coin
}

func NewEmptyCoinsMap() *CoinsMap {
	return &CoinsMap{cacheCoins: make(map[outpoint.OutPoint]*Coin)}
}

func (cm *CoinsMap) GetCoin(point *outpoint.OutPoint) *Coin {
	cm.mtx.RLock()
	defer cm.mtx.RUnlock()
	return cm.cacheCoins[*point]
}

func (cm *CoinsMap) HaveCoin(point *outpoint.OutPoint) bool {
	return cm.GetCoin(point) != nil
}

// AddCoin stores a copy of coin. Overwriting an existing coin is a caller
// bug unless possibleOverwrite is set.
func (cm *CoinsMap) AddCoin(point *outpoint.OutPoint, coin *Coin, possibleOverwrite bool) {
	if coin.GetScriptPubKey().IsUnspendable() {
		return
	}
	cm.mtx.Lock()
	defer cm.mtx.Unlock()
	if _, ok := cm.cacheCoins[*point]; ok && !possibleOverwrite {
		panic("adding new coin that replaces an unspent coin: " + point.String())
	}
	cm.cacheCoins[*point] = coin.DeepCopy()
}

// SpendCoin removes the coin and returns it, nil when it was not there.
func (cm *CoinsMap) SpendCoin(point *outpoint.OutPoint) *Coin {
	cm.mtx.Lock()
	defer cm.mtx.Unlock()
	coin, ok := cm.cacheCoins[*point]
	if !ok {
		return nil
	}
	delete(cm.cacheCoins, *point)
	return coin
}

func (cm *CoinsMap) GetValueIn(txn *tx.Tx) amount.Amount {
	if txn.IsCoinBase() {
		return 0
	}
	var valueIn amount.Amount
	for _, in := range txn.GetIns() {
		if coin := cm.GetCoin(in.PreviousOutPoint); coin != nil {
			valueIn += coin.GetAmount()
		}
	}
	return valueIn
}

func (cm *CoinsMap) Len() int {
	cm.mtx.RLock()
	defer cm.mtx.RUnlock()
	return len(cm.cacheCoins)
}
