package utxo

import (
	"sync"

	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/util"
)

type cacheEntry struct {
	coin  *Coin // nil once spent
	dirty bool
	fresh bool // unknown to the database
}

// CoinsCache layers modifications over a CoinsDB until Flush.
type CoinsCache struct {
	mtx   sync.RWMutex
	base  *CoinsDB
	coins map[outpoint.OutPoint]*cacheEntry
}

func NewCoinsCache(base *CoinsDB) *CoinsCache {
	return &CoinsCache{base: base, coins: make(map[outpoint.OutPoint]*cacheEntry)}
}

func (cc *CoinsCache) GetCoin(point *outpoint.OutPoint) *Coin {
	cc.mtx.RLock()
	entry, ok := cc.coins[*point]
	cc.mtx.RUnlock()
	if ok {
		return entry.coin
	}
	coin := cc.base.GetCoin(point)
	if coin == nil {
		return nil
	}
	cc.mtx.Lock()
	if _, ok := cc.coins[*point]; !ok {
		cc.coins[*point] = &cacheEntry{coin: coin}
	}
	cc.mtx.Unlock()
	return coin
}

func (cc *CoinsCache) AddCoin(point *outpoint.OutPoint, coin *Coin, possibleOverwrite bool) {
	if coin.GetScriptPubKey().IsUnspendable() {
		return
	}
	cc.mtx.Lock()
	defer cc.mtx.Unlock()
	fresh := false
	entry, ok := cc.coins[*point]
	if ok && entry.coin != nil && !possibleOverwrite {
		panic("adding new coin that replaces an unspent coin: " + point.String())
	}
	if !possibleOverwrite && (!ok || !entry.dirty) {
		fresh = true
	}
	cc.coins[*point] = &cacheEntry{coin: coin.DeepCopy(), dirty: true, fresh: fresh}
}

func (cc *CoinsCache) SpendCoin(point *outpoint.OutPoint) *Coin {
	coin := cc.GetCoin(point)
	if coin == nil {
		return nil
	}
	cc.mtx.Lock()
	defer cc.mtx.Unlock()
	entry := cc.coins[*point]
	if entry.fresh {
		delete(cc.coins, *point)
	} else {
		entry.coin = nil
		entry.dirty = true
	}
	return coin
}

// Flush writes every dirty entry to the database and empties the cache.
func (cc *CoinsCache) Flush(bestBlock util.Hash) error {
	cc.mtx.Lock()
	defer cc.mtx.Unlock()
	changed := make(map[outpoint.OutPoint]*Coin)
	for point, entry := range cc.coins {
		if entry.dirty {
			changed[point] = entry.coin
		}
	}
	if err := cc.base.BatchWrite(changed, bestBlock); err != nil {
		return err
	}
	cc.coins = make(map[outpoint.OutPoint]*cacheEntry)
	return nil
}

func (cc *CoinsCache) CacheSize() int {
	cc.mtx.RLock()
	defer cc.mtx.RUnlock()
	return len(cc.coins)
}
