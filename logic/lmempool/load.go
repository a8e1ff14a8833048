package lmempool

import (
	"time"

	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/model/mempool"
)

type LoadStats struct {
	Accepted int
	Failed   int
	Expired  int
	Known    int
}

// LoadMempool offers a saved pool back to the acceptor. Transactions keep
// their original entry time and fee delta, those older than expiry are
// skipped.
func (a *TxAcceptor) LoadMempool(infos []*mempool.TxMempoolInfo, expiry time.Duration) LoadStats {
	var stats LoadStats
	cutoff := a.pool.Clock().Now().Add(-expiry).Unix()
	for _, info := range infos {
		hash := info.Tx.GetHash()
		if info.FeeDelta != 0 {
			a.pool.PrioritiseTransaction(hash, 0, info.FeeDelta)
		}
		if info.Time < cutoff {
			stats.Expired++
			continue
		}
		result := a.accept(info.Tx, -1, info.Time)
		switch {
		case result.Status == StatusAccepted:
			stats.Accepted++
		case errcode.IsErrorCode(result.Err, errcode.AlreadHaveTx):
			stats.Known++
		default:
			stats.Failed++
			log.Print("mempool", "debug", "saved tx %s not loaded: %v", hash.String(), result.Err)
		}
	}
	log.Info("imported mempool transactions from disk: %d succeeded, %d failed, %d expired, %d already there",
		stats.Accepted, stats.Failed, stats.Expired, stats.Known)
	return stats
}
