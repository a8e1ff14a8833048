package lmempool

import (
	"github.com/pkg/errors"
	"gopkg.in/fatih/set.v0"

	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/logic/ltx"
	"github.com/floweethehub/thehub-sub000/model/chain"
	"github.com/floweethehub/thehub-sub000/model/consensus"
	"github.com/floweethehub/thehub-sub000/model/mempool"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/util"
)

// AddTxFromUndoBlock puts the transactions of a disconnected block back
// into the pool. Transactions that no longer pass are dropped together
// with whatever already spends them. Callers hold the chain lock and
// pass the block's transactions, coinbase first.
func (a *TxAcceptor) AddTxFromUndoBlock(txs []*tx.Tx) []util.Hash {
	sorted, err := TTORSort(txs)
	if err != nil {
		log.Print("mempool", "error", "re-adding disconnected block: %v", err)
		sorted = txs
	}

	var notify []func()
	added := make([]util.Hash, 0, len(sorted))
	a.pool.LockQueued()
	for _, txn := range sorted {
		if txn.IsCoinBase() {
			// pool spends of an unconfirmed coinbase can never be mined
			a.pool.RemoveTxRecursiveWithoutLock(txn, chain.ReasonReorg)
			continue
		}
		result := &AcceptResult{Status: StatusRejected}
		if result.Err = txn.CheckRegularTransaction(); result.Err == nil {
			result = a.acceptWithoutLock(txn, 0, &notify)
		}
		if result.Status != StatusAccepted {
			// error by tx from an undo block is acceptable
			log.Print("mempool", "info", "tx %s from disconnected block not re-added: %v",
				txn.GetHash().String(), result.Err)
			a.pool.RemoveTxRecursiveWithoutLock(txn, chain.ReasonReorg)
			continue
		}
		added = append(added, txn.GetHash())
		txn := txn
		notify = append(notify, func() { a.chain.Notifier().SyncTransaction(txn) })
	}
	// the re-added transactions may already have children in the pool
	a.pool.UpdateTransactionsFromBlockWithoutLock(added)
	a.pool.UnlockQueued()

	for _, fn := range notify {
		fn()
	}
	return added
}

// RemoveForReorg drops the transactions the new tip can no longer mine:
// non final ones, those whose sequence locks are not met and those
// spending a coinbase that is now immature. Callers hold the chain lock.
func (a *TxAcceptor) RemoveForReorg() int {
	a.pool.LockQueued()

	view := mempool.NewCoinsViewMemPool(a.coins, a.pool)
	memPoolHeight := a.chain.TipHeight() + 1
	allEntry := a.pool.GetAllTxEntryWithoutLock()
	toRemove := set.New(set.NonThreadSafe)
	for _, entry := range allEntry {
		if toRemove.Has(entry) {
			continue
		}
		if !a.stillMinable(entry, view) {
			a.pool.CalculateDescendants(entry, toRemove)
			continue
		}
		if !entry.GetSpendsCoinbase() {
			continue
		}
		for _, in := range entry.Tx.GetIns() {
			if _, ok := allEntry[in.PreviousOutPoint.Hash]; ok {
				continue
			}
			coin := a.coins.GetCoin(in.PreviousOutPoint)
			if a.pool.GetCheckFrequency() != 0 && coin == nil {
				panic("pool tx spends coin " + in.PreviousOutPoint.String() + " that is not in the utxo set")
			}
			if coin == nil || (coin.IsCoinBase() && memPoolHeight-coin.GetHeight() < consensus.CoinbaseMaturity) {
				a.pool.CalculateDescendants(entry, toRemove)
				break
			}
		}
	}

	removed := toRemove.Size()
	if removed > 0 {
		a.pool.RemoveStaged(toRemove, false, chain.ReasonReorg)
		log.Print("mempool", "debug", "removed %d transactions for reorg to height %d", removed, memPoolHeight-1)
	}
	a.pool.UnlockQueued()

	CheckMempool(a.pool, a.chain, a.coins)
	return removed
}

// stillMinable refreshes the lock points of entry when the block they were
// computed against left the chain and checks them against the tip.
func (a *TxAcceptor) stillMinable(entry *mempool.TxEntry, view *mempool.CoinsViewMemPool) bool {
	if ltx.ContextualCheckTransactionForCurrentBlock(entry.Tx, a.chain, consensus.StandardLockTimeVerifyFlags) != nil {
		return false
	}
	lp := entry.GetLockPointFromTxEntry()
	if !entry.CheckLockPointValidity(a.chain) {
		fresh, err := ltx.CalculateLockPoints(entry.Tx, a.chain, view, consensus.StandardLockTimeVerifyFlags)
		if err != nil {
			return false
		}
		lp = *fresh
		entry.SetLockPointFromTxEntry(lp)
	}
	return ltx.CheckSequenceLocks(a.chain, &lp)
}

// TTORSort sorts transactions topologically, parents before children. The
// first transaction is the coinbase and keeps its place.
func TTORSort(trans []*tx.Tx) ([]*tx.Tx, error) {
	inputTxCnt := len(trans)
	if inputTxCnt < 2 {
		return trans, nil
	}

	outpointMap := make(map[outpoint.OutPoint]*tx.Tx)
	for _, txn := range trans[1:] {
		if txn == nil {
			return nil, errors.New("TTORSort: nil tx found")
		}
		for _, prevout := range txn.GetAllPreviousOut() {
			outpointMap[prevout] = txn
		}
	}

	parentCntMap := make(map[*tx.Tx]uint32)
	for _, txn := range trans[1:] {
		cur := outpoint.OutPoint{Hash: txn.GetHash()}
		for cur.Index = 0; cur.Index < uint32(txn.GetOutsCount()); cur.Index++ {
			if child, ok := outpointMap[cur]; ok {
				parentCntMap[child]++
			}
		}
	}

	var noParentTxs []*tx.Tx
	for _, txn := range trans[1:] {
		if _, ok := parentCntMap[txn]; !ok {
			noParentTxs = append(noParentTxs, txn)
		}
	}
	if len(noParentTxs) == 0 {
		return nil, errors.New("TTORSort: cycle found from transactions")
	}

	sortedTx := make([]*tx.Tx, 0, inputTxCnt)
	sortedTx = append(sortedTx, trans[0])
	for len(noParentTxs) > 0 {
		var curTx *tx.Tx
		curTx, noParentTxs = noParentTxs[0], noParentTxs[1:]
		sortedTx = append(sortedTx, curTx)

		cur := outpoint.OutPoint{Hash: curTx.GetHash()}
		for cur.Index = 0; cur.Index < uint32(curTx.GetOutsCount()); cur.Index++ {
			child, ok := outpointMap[cur]
			if !ok {
				continue
			}
			if parentCntMap[child] == 1 {
				delete(parentCntMap, child)
				noParentTxs = append(noParentTxs, child)
			} else {
				parentCntMap[child]--
			}
		}
	}
	if inputTxCnt != len(sortedTx) {
		return nil, errors.Errorf("TTORSort: input tx count(%d) not equal to output count(%d)",
			inputTxCnt, len(sortedTx))
	}
	return sortedTx, nil
}

// IsTTORSorted reports whether no transaction after the coinbase spends
// an output of a later one.
func IsTTORSorted(txs []*tx.Tx) bool {
	if len(txs) < 2 {
		return true
	}
	txs = txs[1:]
	txpos := make(map[util.Hash]int, len(txs))
	for i, txn := range txs {
		txpos[txn.GetHash()] = i
	}
	for i, txn := range txs {
		for _, prevout := range txn.GetAllPreviousOut() {
			if parentIdx, ok := txpos[prevout.Hash]; ok && parentIdx >= i {
				return false
			}
		}
	}
	return true
}
