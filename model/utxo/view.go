package utxo

import (
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/util"
)

// CoinsView resolves an outpoint to its unspent coin, nil when unknown or
// already spent.
type CoinsView interface {
	GetCoin(point *outpoint.OutPoint) *Coin
}

// CoinsUpdater is a view that block connection can modify.
type CoinsUpdater interface {
	CoinsView
	AddCoin(point *outpoint.OutPoint, coin *Coin, possibleOverwrite bool)
	SpendCoin(point *outpoint.OutPoint) *Coin
}

// Flusher is implemented by views backed by persistent storage.
type Flusher interface {
	Flush(bestBlock util.Hash) error
}
