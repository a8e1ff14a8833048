package lmempool

import (
	"container/list"
	"fmt"
	"math"

	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/logic/ltx"
	"github.com/floweethehub/thehub-sub000/model/chain"
	"github.com/floweethehub/thehub-sub000/model/mempool"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/model/utxo"
	"github.com/floweethehub/thehub-sub000/util"
)

// fetchInputs copies the coins txn spends from view into the scratch map.
func fetchInputs(coinsMap *utxo.CoinsMap, view utxo.CoinsView, txn *tx.Tx) {
	for _, in := range txn.GetIns() {
		if coinsMap.GetCoin(in.PreviousOutPoint) != nil {
			continue
		}
		if coin := view.GetCoin(in.PreviousOutPoint); coin != nil {
			coinsMap.AddCoin(in.PreviousOutPoint, coin.DeepCopy(), false)
		}
	}
}

func haveInputs(coinsMap *utxo.CoinsMap, txn *tx.Tx) bool {
	for _, in := range txn.GetIns() {
		if coinsMap.GetCoin(in.PreviousOutPoint) == nil {
			return false
		}
	}
	return true
}

func checkAndSpend(coinsMap *utxo.CoinsMap, view utxo.CoinsView, entry *mempool.TxEntry, spendHeight int32) {
	fetchInputs(coinsMap, view, entry.Tx)
	if _, err := ltx.CheckInputsMoney(entry.Tx, coinsMap, spendHeight); err != nil {
		panic(fmt.Sprintf("tx %s fails its inputs: %v", entry.Tx.GetHash(), err))
	}
	if err := ltx.UpdateTxCoins(entry.Tx, coinsMap, nil, utxo.MempoolHeight); err != nil {
		panic(fmt.Sprintf("tx %s can not spend its inputs: %v", entry.Tx.GetHash(), err))
	}
}

// CheckMempool makes sure the pool is consistent: no two transactions
// spend the same input, every input resolves against the pool or view, and
// the link table and package aggregates match the graph. It runs on a
// random fraction of calls set by the pool's check frequency and panics on
// the first inconsistency. Callers hold the chain lock.
func CheckMempool(pool *mempool.TxMempool, activeChain *chain.Chain, view utxo.CoinsView) {
	if pool.GetCheckFrequency() == 0 {
		return
	}
	if float64(util.GetRand(math.MaxUint32)) >= pool.GetCheckFrequency()*math.MaxUint32 {
		return
	}

	pool.RLock()
	defer pool.RUnlock()

	spendHeight := activeChain.TipHeight() + 1
	allEntry := pool.GetAllTxEntryWithoutLock()
	log.Print("mempool", "debug", "checking mempool with %d transactions", len(allEntry))

	if err := pool.CheckAggregates(); err != nil {
		panic(err.Error())
	}

	mempoolDuplicate := utxo.NewEmptyCoinsMap()
	waitingOnDependants := list.New()
	var checkTotal uint64
	for _, entry := range allEntry {
		checkTotal += uint64(entry.TxSize)
		dependsWait := false
		parentCheck := make(map[util.Hash]struct{})

		for _, in := range entry.Tx.GetIns() {
			prevout := in.PreviousOutPoint
			if parent, ok := allEntry[prevout.Hash]; ok {
				if parent.Tx.GetTxOut(int(prevout.Index)) == nil {
					panic(fmt.Sprintf("tx %s spends missing output %s", entry.Tx.GetHash(), prevout))
				}
				dependsWait = true
				parentCheck[prevout.Hash] = struct{}{}
			} else if view.GetCoin(prevout) == nil {
				panic(fmt.Sprintf("tx %s input %s is neither in the pool nor in the utxo set",
					entry.Tx.GetHash(), prevout))
			}
			if pool.HasSpentOutWithoutLock(prevout) != entry {
				panic(fmt.Sprintf("input %s of tx %s is not indexed as spent by it", prevout, entry.Tx.GetHash()))
			}
		}
		if len(parentCheck) != len(entry.ParentTx) {
			panic(fmt.Sprintf("tx %s has %d parent links for %d parents", entry.Tx.GetHash(),
				len(entry.ParentTx), len(parentCheck)))
		}

		ancestors, err := pool.CalculateMemPoolAncestorsWithoutLock(entry.Tx, math.MaxInt32, math.MaxInt64,
			math.MaxInt32, math.MaxInt64, false)
		if err != nil {
			panic(err.Error())
		}
		countCheck := int64(ancestors.Size()) + 1
		sizeCheck := int64(entry.TxSize)
		sigOpCheck := int64(entry.SigOpCount)
		feeCheck := entry.GetModifiedFee()
		ancestors.Each(func(item interface{}) bool {
			a := item.(*mempool.TxEntry)
			sizeCheck += int64(a.TxSize)
			sigOpCheck += int64(a.SigOpCount)
			feeCheck += a.GetModifiedFee()
			return true
		})
		if entry.SumTxCountWithAncestors != countCheck || entry.SumTxSizeWitAncestors != sizeCheck ||
			entry.SumTxSigOpCountWithAncestors != sigOpCheck || entry.SumTxFeeWithAncestors != feeCheck {
			panic(fmt.Sprintf("tx %s ancestor state (%d, %d, %d, %d) want (%d, %d, %d, %d)", entry.Tx.GetHash(),
				entry.SumTxCountWithAncestors, entry.SumTxSizeWitAncestors, entry.SumTxSigOpCountWithAncestors,
				entry.SumTxFeeWithAncestors, countCheck, sizeCheck, sigOpCheck, feeCheck))
		}

		children := make(map[*mempool.TxEntry]struct{})
		for i := 0; i < entry.Tx.GetOutsCount(); i++ {
			if child := pool.HasSpentOutWithoutLock(outpoint.NewOutPoint(entry.Tx.GetHash(), uint32(i))); child != nil {
				children[child] = struct{}{}
			}
		}
		if len(children) != len(entry.ChildTx) {
			panic(fmt.Sprintf("tx %s has %d child links for %d children", entry.Tx.GetHash(),
				len(entry.ChildTx), len(children)))
		}

		if dependsWait {
			waitingOnDependants.PushBack(entry)
		} else {
			checkAndSpend(mempoolDuplicate, view, entry, spendHeight)
		}
	}

	stepsSinceLastRemove := 0
	for waitingOnDependants.Len() > 0 {
		it := waitingOnDependants.Front()
		entry := it.Value.(*mempool.TxEntry)
		waitingOnDependants.Remove(it)

		fetchInputs(mempoolDuplicate, view, entry.Tx)
		if !haveInputs(mempoolDuplicate, entry.Tx) {
			waitingOnDependants.PushBack(entry)
			stepsSinceLastRemove++
			if stepsSinceLastRemove >= waitingOnDependants.Len() {
				panic(fmt.Sprintf("%d transactions wait on inputs that never appear", waitingOnDependants.Len()))
			}
			continue
		}
		checkAndSpend(mempoolDuplicate, view, entry, spendHeight)
		stepsSinceLastRemove = 0
	}

	if total := pool.GetPoolAllTxSizeWithoutLock(); total != checkTotal {
		panic(fmt.Sprintf("pool size %d, sum of entries %d", total, checkTotal))
	}
}
