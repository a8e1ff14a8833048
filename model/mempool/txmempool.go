package mempool

import (
	"math"
	"sync"
	"unsafe"

	"github.com/google/btree"
	"github.com/lightningnetwork/lnd/clock"
	"gopkg.in/fatih/set.v0"

	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/model/chain"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/util"
)

const (
	RollingFeeHalfLife = 60 * 60 * 12

	DefaultUpdateDescendantsBudget = 100
	DefaultIncrementalRelayFee     = 1000
)

// ProofRemover drops a double spend proof when its transaction leaves the pool.
type ProofRemover interface {
	Remove(proofID int)
}

type PriorityFeeDelta struct {
	PriorityDelta float64
	Fee           int64
}

// Config tunes a TxMempool, zero values take the defaults.
type Config struct {
	CheckFrequency          float64
	IncrementalRelayFee     util.FeeRate
	UpdateDescendantsBudget int
	Clock                   clock.Clock
	Notifier                *chain.Notifier
}

// TxMempool is safe for concurrent use
type TxMempool struct {
	sync.RWMutex
	// poolData store the tx in the mempool
	poolData map[util.Hash]*TxEntry
	// nextTx key is txPrevout, value is the tx entry that spends it
	nextTx map[outpoint.OutPoint]*TxEntry
	// descendantScore, entryTime and modFeeRate index the entries of poolData
	descendantScore *btree.BTree
	entryTime       *btree.BTree
	modFeeRate      *btree.BTree
	mapDeltas       map[util.Hash]PriorityFeeDelta

	cacheInnerUsage              int64
	totalTxSize                  uint64
	transactionsUpdated          uint64
	checkFrequency               float64
	updateBudget                 int
	incrementalRelayFee          util.FeeRate
	rollingMinimumFeeRate        float64
	lastRollingFeeUpdate         int64
	blockSinceLastRollingFeeBump bool

	clock    clock.Clock
	notifier *chain.Notifier
	proofs   ProofRemover
}

func NewTxMempool(cfg Config) *TxMempool {
	t := &TxMempool{}
	t.checkFrequency = cfg.CheckFrequency
	t.incrementalRelayFee = cfg.IncrementalRelayFee
	if t.incrementalRelayFee.SataoshisPerK == 0 {
		t.incrementalRelayFee = util.NewFeeRate(DefaultIncrementalRelayFee)
	}
	t.updateBudget = cfg.UpdateDescendantsBudget
	if t.updateBudget <= 0 {
		t.updateBudget = DefaultUpdateDescendantsBudget
	}
	t.clock = cfg.Clock
	if t.clock == nil {
		t.clock = clock.NewDefaultClock()
	}
	t.notifier = cfg.Notifier
	t.clear()
	return t
}

func (m *TxMempool) clear() {
	m.poolData = make(map[util.Hash]*TxEntry)
	m.nextTx = make(map[outpoint.OutPoint]*TxEntry)
	m.descendantScore = btree.New(btreeDegree)
	m.entryTime = btree.New(btreeDegree)
	m.modFeeRate = btree.New(btreeDegree)
	m.mapDeltas = make(map[util.Hash]PriorityFeeDelta)
	m.cacheInnerUsage = 0
	m.totalTxSize = 0
	m.rollingMinimumFeeRate = 0
	m.lastRollingFeeUpdate = m.clock.Now().Unix()
	m.blockSinceLastRollingFeeBump = false
	m.transactionsUpdated++
}

// Clear empties the pool without notifying.
func (m *TxMempool) Clear() {
	m.LockQueued()
	defer m.UnlockQueued()
	m.clear()
}

// LockQueued takes the write lock. Notifications raised until the matching
// UnlockQueued are sent after the lock is released, so subscribers may call
// back into the pool.
func (m *TxMempool) LockQueued() {
	m.notifier.Hold()
	m.Lock()
}

func (m *TxMempool) UnlockQueued() {
	m.Unlock()
	m.notifier.Release()
}

// SetProofRemover installs the storage asked to drop proofs of removed
// transactions.
func (m *TxMempool) SetProofRemover(p ProofRemover) {
	m.Lock()
	m.proofs = p
	m.Unlock()
}

func (m *TxMempool) GetCheckFrequency() float64 {
	return m.checkFrequency
}

func (m *TxMempool) GetIncrementalRelayFee() util.FeeRate {
	return m.incrementalRelayFee
}

func (m *TxMempool) Clock() clock.Clock {
	return m.clock
}

// updateEntry re-keys entry in the ordered indices around mutate.
func (m *TxMempool) updateEntry(entry *TxEntry, mutate func()) {
	m.descendantScore.Delete(descendantScoreItem{entry})
	m.modFeeRate.Delete(modFeeRateItem{entry})
	mutate()
	m.descendantScore.ReplaceOrInsert(descendantScoreItem{entry})
	m.modFeeRate.ReplaceOrInsert(modFeeRateItem{entry})
}

// AddTx inserts entry, ancestors must be the result of
// CalculateMemPoolAncestors for the entry's tx.
func (m *TxMempool) AddTx(entry *TxEntry, ancestors set.Interface) error {
	m.LockQueued()
	defer m.UnlockQueued()
	return m.AddTxWithoutLock(entry, ancestors)
}

func (m *TxMempool) AddTxWithoutLock(entry *TxEntry, ancestors set.Interface) error {
	txHash := entry.Tx.GetHash()
	if _, ok := m.poolData[txHash]; ok {
		return errcode.New(errcode.AlreadHaveTx)
	}
	for _, in := range entry.Tx.GetIns() {
		if spender, ok := m.nextTx[*in.PreviousOutPoint]; ok {
			return errcode.NewWithDesc(errcode.DoubleSpend, "txn-mempool-conflict: %s spent by %s",
				in.PreviousOutPoint.String(), spender.Tx.GetHash().String())
		}
	}

	if delta, ok := m.mapDeltas[txHash]; ok && delta.Fee != 0 {
		entry.UpdateFeeDelta(delta.Fee)
	}

	m.poolData[txHash] = entry
	m.descendantScore.ReplaceOrInsert(descendantScoreItem{entry})
	m.entryTime.ReplaceOrInsert(entryTimeItem{entry})
	m.modFeeRate.ReplaceOrInsert(modFeeRateItem{entry})
	m.cacheInnerUsage += entry.GetUsageSize()

	for _, in := range entry.Tx.GetIns() {
		m.nextTx[*in.PreviousOutPoint] = entry
		if parent, ok := m.poolData[in.PreviousOutPoint.Hash]; ok {
			m.updateParent(entry, parent, true)
			m.updateChild(parent, entry, true)
		}
	}

	m.updateAncestorsOf(true, entry, ancestors)
	m.updateEntryForAncestors(entry, ancestors)
	m.totalTxSize += uint64(entry.TxSize)
	m.transactionsUpdated++
	return nil
}

func (m *TxMempool) updateParent(entry, parent *TxEntry, add bool) {
	_, has := entry.ParentTx[parent]
	if add && !has {
		m.cacheInnerUsage += linkUsage
	} else if !add && has {
		m.cacheInnerUsage -= linkUsage
	}
	entry.UpdateParent(parent, add)
}

func (m *TxMempool) updateChild(entry, child *TxEntry, add bool) {
	_, has := entry.ChildTx[child]
	if add && !has {
		m.cacheInnerUsage += linkUsage
	} else if !add && has {
		m.cacheInnerUsage -= linkUsage
	}
	entry.UpdateChild(child, add)
}

// updateAncestorsOf adjusts the descendant state of every ancestor, and
// severs the parent to child links when the entry is going away.
func (m *TxMempool) updateAncestorsOf(add bool, entry *TxEntry, ancestors set.Interface) {
	if !add {
		for parent := range entry.ParentTx {
			m.updateChild(parent, entry, false)
		}
	}
	updateCount := 1
	if !add {
		updateCount = -1
	}
	updateSize := updateCount * entry.TxSize
	updateFee := int64(updateCount) * entry.GetModifiedFee()
	ancestors.Each(func(item interface{}) bool {
		ancestor := item.(*TxEntry)
		m.updateEntry(ancestor, func() {
			ancestor.UpdateState(updateSize, updateFee, updateCount)
		})
		return true
	})
}

func (m *TxMempool) updateEntryForAncestors(entry *TxEntry, ancestors set.Interface) {
	updateCount := ancestors.Size()
	updateSize := 0
	updateSigOps := 0
	var updateFee int64
	ancestors.Each(func(item interface{}) bool {
		ancestor := item.(*TxEntry)
		updateSize += ancestor.TxSize
		updateFee += ancestor.GetModifiedFee()
		updateSigOps += ancestor.SigOpCount
		return true
	})
	entry.UpdateAncestorState(updateCount, updateSize, updateSigOps, updateFee)
}

// CalculateMemPoolAncestors walks the in-pool ancestors of txn. With
// searchForParents the parents are looked up through the inputs, otherwise
// txn must already be in the pool. The pool is never modified.
func (m *TxMempool) CalculateMemPoolAncestors(txn *tx.Tx, limitAncestorCount int, limitAncestorSize int64,
	limitDescendantCount int, limitDescendantSize int64, searchForParents bool) (set.Interface, error) {

	m.RLock()
	defer m.RUnlock()
	return m.CalculateMemPoolAncestorsWithoutLock(txn, limitAncestorCount, limitAncestorSize,
		limitDescendantCount, limitDescendantSize, searchForParents)
}

func (m *TxMempool) CalculateMemPoolAncestorsWithoutLock(txn *tx.Tx, limitAncestorCount int, limitAncestorSize int64,
	limitDescendantCount int, limitDescendantSize int64, searchForParents bool) (set.Interface, error) {

	ancestors := set.New(set.NonThreadSafe)
	parents := set.New(set.NonThreadSafe)
	entrySize := int64(txn.SerializeSize())

	if searchForParents {
		// Get parents of this transaction that are in the mempool
		for _, in := range txn.GetIns() {
			if parent, ok := m.poolData[in.PreviousOutPoint.Hash]; ok {
				parents.Add(parent)
				if parents.Size()+1 > limitAncestorCount {
					return nil, errcode.NewWithDesc(errcode.TooManyAncestors,
						"too many unconfirmed parents [limit: %d]", limitAncestorCount)
				}
			}
		}
	} else {
		// If we're not searching for parents, we require this to be an entry
		// in the mempool already.
		entry, ok := m.poolData[txn.GetHash()]
		if !ok {
			return nil, errcode.New(errcode.ErrorNotExistsInMemMap)
		}
		entrySize = int64(entry.TxSize)
		for parent := range entry.ParentTx {
			parents.Add(parent)
		}
	}

	totalSizeWithAncestors := entrySize
	for !parents.IsEmpty() {
		stage := parents.Pop().(*TxEntry)
		ancestors.Add(stage)
		totalSizeWithAncestors += int64(stage.TxSize)
		stageHash := stage.Tx.GetHash()

		if stage.SumTxSizeWithDescendants+entrySize > limitDescendantSize {
			return nil, errcode.NewWithDesc(errcode.DescendantSizeTooLarge,
				"exceeds descendant size limit for tx %s [limit: %d]", stageHash.String(), limitDescendantSize)
		}
		if stage.SumTxCountWithDescendants+1 > int64(limitDescendantCount) {
			return nil, errcode.NewWithDesc(errcode.TooManyDescendants,
				"too many descendants for tx %s [limit: %d]", stageHash.String(), limitDescendantCount)
		}
		if totalSizeWithAncestors > limitAncestorSize {
			return nil, errcode.NewWithDesc(errcode.AncestorSizeTooLarge,
				"exceeds ancestor size limit [limit: %d]", limitAncestorSize)
		}

		for parent := range stage.ParentTx {
			if !ancestors.Has(parent) {
				parents.Add(parent)
			}
			if parents.Size()+ancestors.Size()+1 > limitAncestorCount {
				return nil, errcode.NewWithDesc(errcode.TooManyAncestors,
					"too many unconfirmed ancestors [limit: %d]", limitAncestorCount)
			}
		}
	}
	return ancestors, nil
}

// CalculateDescendants adds entry and all its in-pool descendants to descendants.
func (m *TxMempool) CalculateDescendants(entry *TxEntry, descendants set.Interface) {
	stage := make([]*TxEntry, 0, len(entry.ChildTx)+1)
	if !descendants.Has(entry) {
		stage = append(stage, entry)
	}
	for len(stage) > 0 {
		it := stage[len(stage)-1]
		stage = stage[:len(stage)-1]
		descendants.Add(it)
		for child := range it.ChildTx {
			if !descendants.Has(child) {
				stage = append(stage, child)
			}
		}
	}
}

// RemoveStaged removes a set of transactions that is closed under
// descendants unless updateDescendants is set.
func (m *TxMempool) RemoveStaged(stage set.Interface, updateDescendants bool, reason chain.RemovalReason) {
	m.updateForRemoveFromMempool(stage, updateDescendants)
	stage.Each(func(item interface{}) bool {
		m.removeUnchecked(item.(*TxEntry), reason)
		return true
	})
}

func (m *TxMempool) updateForRemoveFromMempool(entriesToRemove set.Interface, updateDescendants bool) {
	nNoLimit := math.MaxInt32
	if updateDescendants {
		// updateDescendants should be true whenever we're not recursively
		// removing a tx and all its descendants, eg when a transaction is
		// confirmed in a block.
		entriesToRemove.Each(func(item interface{}) bool {
			removeIt := item.(*TxEntry)
			descendants := set.New(set.NonThreadSafe)
			m.CalculateDescendants(removeIt, descendants)
			descendants.Remove(removeIt)
			modifySize := -removeIt.TxSize
			modifyFee := -removeIt.GetModifiedFee()
			modifySigOps := -removeIt.SigOpCount
			descendants.Each(func(d interface{}) bool {
				d.(*TxEntry).UpdateAncestorState(-1, modifySize, modifySigOps, modifyFee)
				return true
			})
			return true
		})
	}

	entriesToRemove.Each(func(item interface{}) bool {
		entry := item.(*TxEntry)
		// Since this is a tx that is already in the mempool, we can call CMPA
		// with fSearchForParents = false.
		ancestors, err := m.CalculateMemPoolAncestorsWithoutLock(entry.Tx, nNoLimit, math.MaxInt64,
			nNoLimit, math.MaxInt64, false)
		if err != nil {
			log.Print("mempool", "error", "ancestors of %s: %v", entry.Tx.GetHash().String(), err)
			return true
		}
		// Note that updateAncestorsOf severs the child links that point to
		// removeIt in the entries for the parents of removeIt.
		m.updateAncestorsOf(false, entry, ancestors)
		return true
	})

	// After updating all the ancestor sizes, we can now sever the link between
	// each transaction being removed and any mempool children.
	entriesToRemove.Each(func(item interface{}) bool {
		m.updateChildrenForRemoval(item.(*TxEntry))
		return true
	})
}

// updateChildrenForRemoval severs the links from the children of entry back to it.
func (m *TxMempool) updateChildrenForRemoval(entry *TxEntry) {
	for child := range entry.ChildTx {
		m.updateParent(child, entry, false)
	}
}

func (m *TxMempool) removeUnchecked(entry *TxEntry, reason chain.RemovalReason) {
	txHash := entry.Tx.GetHash()
	if _, ok := m.poolData[txHash]; !ok {
		return
	}
	m.notifier.TransactionRemoved(entry.Tx, reason)
	if entry.HasDSProof() && m.proofs != nil {
		m.proofs.Remove(entry.dsproofID)
	}

	for _, in := range entry.Tx.GetIns() {
		if spender, ok := m.nextTx[*in.PreviousOutPoint]; ok && spender == entry {
			delete(m.nextTx, *in.PreviousOutPoint)
		}
	}

	m.descendantScore.Delete(descendantScoreItem{entry})
	m.entryTime.Delete(entryTimeItem{entry})
	m.modFeeRate.Delete(modFeeRateItem{entry})
	delete(m.poolData, txHash)

	m.cacheInnerUsage -= entry.GetUsageSize()
	m.cacheInnerUsage -= int64(len(entry.ParentTx)+len(entry.ChildTx)) * linkUsage
	entry.ParentTx = make(map[*TxEntry]struct{})
	entry.ChildTx = make(map[*TxEntry]struct{})
	m.totalTxSize -= uint64(entry.TxSize)
	m.transactionsUpdated++
}

// RemoveTxRecursive removes origTx and everything that depends on it.
func (m *TxMempool) RemoveTxRecursive(origTx *tx.Tx, reason chain.RemovalReason) {
	m.LockQueued()
	defer m.UnlockQueued()
	m.RemoveTxRecursiveWithoutLock(origTx, reason)
}

func (m *TxMempool) RemoveTxRecursiveWithoutLock(origTx *tx.Tx, reason chain.RemovalReason) {
	txToRemove := set.New(set.NonThreadSafe)
	if entry, ok := m.poolData[origTx.GetHash()]; ok {
		txToRemove.Add(entry)
	} else {
		// When recursively removing but origTx isn't in the mempool be sure
		// to remove any children that are in the pool. This can happen
		// during chain re-orgs if origTx isn't re-accepted into the mempool
		// for any reason.
		origHash := origTx.GetHash()
		for i := 0; i < origTx.GetOutsCount(); i++ {
			if spender, ok := m.nextTx[*outpoint.NewOutPoint(origHash, uint32(i))]; ok {
				txToRemove.Add(spender)
			}
		}
	}

	allRemoves := set.New(set.NonThreadSafe)
	txToRemove.Each(func(item interface{}) bool {
		m.CalculateDescendants(item.(*TxEntry), allRemoves)
		return true
	})
	m.RemoveStaged(allRemoves, false, reason)
}

// RemoveTxSelf removes the transactions without their descendants, the
// descendants stay and are re-anchored.
func (m *TxMempool) RemoveTxSelf(txs []*tx.Tx, reason chain.RemovalReason) {
	m.LockQueued()
	defer m.UnlockQueued()
	for _, txn := range txs {
		if entry, ok := m.poolData[txn.GetHash()]; ok {
			stage := set.New(set.NonThreadSafe)
			stage.Add(entry)
			m.RemoveStaged(stage, true, reason)
		}
	}
}

// RemoveConflicts removes every pool transaction spending an input of txn,
// txn itself excluded, together with their descendants.
func (m *TxMempool) RemoveConflicts(txn *tx.Tx) []*tx.Tx {
	m.LockQueued()
	defer m.UnlockQueued()
	return m.removeConflictsWithoutLock(txn)
}

func (m *TxMempool) removeConflictsWithoutLock(txn *tx.Tx) []*tx.Tx {
	var conflicts []*tx.Tx
	txHash := txn.GetHash()
	for _, in := range txn.GetIns() {
		spender, ok := m.nextTx[*in.PreviousOutPoint]
		if !ok {
			continue
		}
		conflictHash := spender.Tx.GetHash()
		if conflictHash == txHash {
			continue
		}
		conflicts = append(conflicts, spender.Tx)
		m.ClearPrioritisationWithoutLock(conflictHash)
		m.RemoveTxRecursiveWithoutLock(spender.Tx, chain.ReasonConflict)
	}
	return conflicts
}

// RemoveForBlock is called when a block is connected. Removes from mempool
// and updates the miner fee estimator. The returned transactions are the
// conflicts that were evicted.
func (m *TxMempool) RemoveForBlock(txs []*tx.Tx) []*tx.Tx {
	m.LockQueued()
	defer m.UnlockQueued()

	var conflicts []*tx.Tx
	for _, txn := range txs {
		txHash := txn.GetHash()
		if entry, ok := m.poolData[txHash]; ok {
			stage := set.New(set.NonThreadSafe)
			stage.Add(entry)
			m.RemoveStaged(stage, true, chain.ReasonBlock)
		}
		conflicts = append(conflicts, m.removeConflictsWithoutLock(txn)...)
		m.ClearPrioritisationWithoutLock(txHash)
	}

	m.lastRollingFeeUpdate = m.clock.Now().Unix()
	m.blockSinceLastRollingFeeBump = true
	return conflicts
}

// updateForDescendants walks the descendants of updateIt that were not part
// of the disconnected block and folds them into its descendant state. Gives
// up and marks the entry dirty once more than the visit budget is spent.
func (m *TxMempool) updateForDescendants(updateIt *TxEntry, cachedDescendants map[*TxEntry][]*TxEntry,
	exclude map[util.Hash]struct{}) {

	stageEntries := make([]*TxEntry, 0, len(updateIt.ChildTx))
	for child := range updateIt.ChildTx {
		stageEntries = append(stageEntries, child)
	}
	allDescendants := set.New(set.NonThreadSafe)
	visits := 0

	for len(stageEntries) > 0 {
		cit := stageEntries[len(stageEntries)-1]
		stageEntries = stageEntries[:len(stageEntries)-1]
		if allDescendants.Has(cit) {
			continue
		}
		allDescendants.Add(cit)
		visits++
		if visits > m.updateBudget {
			m.updateEntry(updateIt, updateIt.SetDirty)
			log.Print("mempool", "debug", "descendant walk of %s over budget, marked dirty",
				updateIt.Tx.GetHash().String())
			return
		}

		if cached, ok := cachedDescendants[cit]; ok {
			// We've already calculated this one, just add the entries for
			// this set but don't traverse again.
			for _, e := range cached {
				allDescendants.Add(e)
			}
			continue
		}
		for child := range cit.ChildTx {
			if !allDescendants.Has(child) {
				stageEntries = append(stageEntries, child)
			}
		}
	}

	modifySize := 0
	modifyCount := 0
	var modifyFee int64
	cached := make([]*TxEntry, 0, allDescendants.Size())
	allDescendants.Each(func(item interface{}) bool {
		cit := item.(*TxEntry)
		if _, ok := exclude[cit.Tx.GetHash()]; ok {
			return true
		}
		modifySize += cit.TxSize
		modifyFee += cit.GetModifiedFee()
		modifyCount++
		cached = append(cached, cit)
		cit.UpdateAncestorState(1, updateIt.TxSize, updateIt.SigOpCount, updateIt.GetModifiedFee())
		return true
	})
	cachedDescendants[updateIt] = cached
	m.updateEntry(updateIt, func() {
		updateIt.UpdateState(modifySize, modifyFee, modifyCount)
	})
}

// UpdateTransactionsFromBlock is used after a reorg re-added the
// transactions of a disconnected block. hashesToUpdate are in block order,
// descendants already in the pool are linked in and accounted for.
func (m *TxMempool) UpdateTransactionsFromBlock(hashesToUpdate []util.Hash) {
	m.LockQueued()
	defer m.UnlockQueued()
	m.UpdateTransactionsFromBlockWithoutLock(hashesToUpdate)
}

func (m *TxMempool) UpdateTransactionsFromBlockWithoutLock(hashesToUpdate []util.Hash) {

	// For each entry in hashesToUpdate, store the set of in-mempool, but not
	// in-hashesToUpdate transactions, so that we don't have to recalculate
	// descendants when we come across a previously seen entry.
	cachedDescendants := make(map[*TxEntry][]*TxEntry)
	alreadyIncluded := make(map[util.Hash]struct{}, len(hashesToUpdate))
	for _, h := range hashesToUpdate {
		alreadyIncluded[h] = struct{}{}
	}

	// Iterate in reverse, so that whenever we are looking at a transaction we
	// are sure that all in-mempool descendants have already been processed.
	for i := len(hashesToUpdate) - 1; i >= 0; i-- {
		hash := hashesToUpdate[i]
		entry, ok := m.poolData[hash]
		if !ok {
			continue
		}
		for n := 0; n < entry.Tx.GetOutsCount(); n++ {
			child, ok := m.nextTx[*outpoint.NewOutPoint(hash, uint32(n))]
			if !ok {
				continue
			}
			if _, ok := alreadyIncluded[child.Tx.GetHash()]; ok {
				continue
			}
			m.updateChild(entry, child, true)
			m.updateParent(child, entry, true)
		}
		m.updateForDescendants(entry, cachedDescendants, alreadyIncluded)
	}
}

// RecomputeDirty rebuilds the descendant state of every dirty entry.
func (m *TxMempool) RecomputeDirty() int {
	m.LockQueued()
	defer m.UnlockQueued()
	return m.recomputeDirtyWithoutLock()
}

func (m *TxMempool) recomputeDirtyWithoutLock() int {
	var dirty []*TxEntry
	for _, entry := range m.poolData {
		if entry.IsDirty() {
			dirty = append(dirty, entry)
		}
	}
	for _, entry := range dirty {
		descendants := set.New(set.NonThreadSafe)
		m.CalculateDescendants(entry, descendants)
		var size, fee int64
		descendants.Each(func(item interface{}) bool {
			d := item.(*TxEntry)
			size += int64(d.TxSize)
			fee += d.GetModifiedFee()
			return true
		})
		count := int64(descendants.Size())
		m.updateEntry(entry, func() {
			entry.SumTxCountWithDescendants = count
			entry.SumTxSizeWithDescendants = size
			entry.SumTxFeeWithDescendants = fee
		})
	}
	return len(dirty)
}

// GetMinFee is the rolling fee rate floor, decaying with a half life that
// shortens while the pool is well under sizeLimit.
func (m *TxMempool) GetMinFee(sizeLimit int64) util.FeeRate {
	m.LockQueued()
	defer m.UnlockQueued()
	return m.GetMinFeeWithoutLock(sizeLimit)
}

func (m *TxMempool) GetMinFeeWithoutLock(sizeLimit int64) util.FeeRate {
	if !m.blockSinceLastRollingFeeBump || m.rollingMinimumFeeRate == 0 {
		return util.NewFeeRate(int64(m.rollingMinimumFeeRate))
	}

	now := m.clock.Now().Unix()
	if now > m.lastRollingFeeUpdate+10 {
		halfLife := float64(RollingFeeHalfLife)
		usage := m.DynamicMemoryUsage()
		if usage < sizeLimit/4 {
			halfLife /= 4
		} else if usage < sizeLimit/2 {
			halfLife /= 2
		}

		m.rollingMinimumFeeRate = m.rollingMinimumFeeRate /
			math.Pow(2.0, float64(now-m.lastRollingFeeUpdate)/halfLife)
		m.lastRollingFeeUpdate = now
		if m.rollingMinimumFeeRate < float64(m.incrementalRelayFee.GetFeePerK())/2 {
			m.rollingMinimumFeeRate = 0
			return util.NewFeeRate(0)
		}
	}
	result := int64(math.Max(m.rollingMinimumFeeRate, float64(m.incrementalRelayFee.SataoshisPerK)))
	return util.NewFeeRate(result)
}

func (m *TxMempool) trackPackageRemoved(rate util.FeeRate) {
	if float64(rate.GetFeePerK()) > m.rollingMinimumFeeRate {
		m.rollingMinimumFeeRate = float64(rate.GetFeePerK())
		m.blockSinceLastRollingFeeBump = false
	}
}

// TrimToSize Remove transactions from the mempool until its dynamic size is <=
// sizeLimit. With wantNoSpends it returns the outpoints, not in the mempool,
// which no longer have any spends in this mempool.
func (m *TxMempool) TrimToSize(sizeLimit int64, wantNoSpends bool) []outpoint.OutPoint {
	m.LockQueued()
	defer m.UnlockQueued()
	return m.TrimToSizeWithoutLock(sizeLimit, wantNoSpends)
}

func (m *TxMempool) TrimToSizeWithoutLock(sizeLimit int64, wantNoSpends bool) []outpoint.OutPoint {
	if m.DynamicMemoryUsage() <= sizeLimit {
		return nil
	}
	m.recomputeDirtyWithoutLock()

	nTxnRemoved := 0
	maxFeeRateRemoved := util.NewFeeRate(0)
	candidates := set.New(set.NonThreadSafe)
	for len(m.poolData) > 0 && m.DynamicMemoryUsage() > sizeLimit {
		it := m.descendantScore.Min().(descendantScoreItem).TxEntry

		// We set the new mempool min fee to the feerate of the removed set,
		// plus the "minimum reasonable fee rate" (ie some value under which we
		// consider txn to have 0 fee). This way, we don't allow txn to enter
		// mempool with feerate equal to txn which were removed with no block in
		// between.
		removed := util.NewFeeRateWithSize(it.SumTxFeeWithDescendants, it.SumTxSizeWithDescendants)
		removed.SataoshisPerK += m.incrementalRelayFee.SataoshisPerK
		m.trackPackageRemoved(removed)
		if removed.SataoshisPerK > maxFeeRateRemoved.SataoshisPerK {
			maxFeeRateRemoved = removed
		}

		stage := set.New(set.NonThreadSafe)
		m.CalculateDescendants(it, stage)
		nTxnRemoved += stage.Size()
		if wantNoSpends {
			stage.Each(func(item interface{}) bool {
				for _, in := range item.(*TxEntry).Tx.GetIns() {
					candidates.Add(*in.PreviousOutPoint)
				}
				return true
			})
		}
		m.RemoveStaged(stage, false, chain.ReasonSizeLimit)
	}

	if maxFeeRateRemoved.SataoshisPerK > 0 {
		log.Print("mempool", "debug", "removed %d txn, rolling minimum fee bumped to %s",
			nTxnRemoved, maxFeeRateRemoved.String())
	}
	if !wantNoSpends {
		return nil
	}

	stillSpent := make(map[util.Hash]struct{}, len(m.nextTx))
	for out := range m.nextTx {
		stillSpent[out.Hash] = struct{}{}
	}
	noSpends := make([]outpoint.OutPoint, 0, candidates.Size())
	candidates.Each(func(item interface{}) bool {
		out := item.(outpoint.OutPoint)
		if _, ok := m.poolData[out.Hash]; ok {
			return true
		}
		if _, ok := stillSpent[out.Hash]; ok {
			return true
		}
		noSpends = append(noSpends, out)
		return true
	})
	return noSpends
}

// Expire removes the entries, and their descendants, that entered the
// pool before cutoff. Returns the number of removed transactions.
func (m *TxMempool) Expire(cutoff int64) int {
	m.LockQueued()
	defer m.UnlockQueued()

	toRemove := make([]*TxEntry, 0)
	m.entryTime.Ascend(func(i btree.Item) bool {
		entry := i.(entryTimeItem).TxEntry
		if entry.time >= cutoff {
			return false
		}
		toRemove = append(toRemove, entry)
		return true
	})
	stage := set.New(set.NonThreadSafe)
	for _, entry := range toRemove {
		m.CalculateDescendants(entry, stage)
	}
	m.RemoveStaged(stage, false, chain.ReasonExpiry)
	return stage.Size()
}

// PrioritiseTransaction adds sticky priority and fee deltas to a txid,
// present in the pool or not.
func (m *TxMempool) PrioritiseTransaction(hash util.Hash, priorityDelta float64, feeDelta int64) {
	m.LockQueued()
	defer m.UnlockQueued()

	deltas := m.mapDeltas[hash]
	deltas.PriorityDelta += priorityDelta
	deltas.Fee += feeDelta
	m.mapDeltas[hash] = deltas

	if entry, ok := m.poolData[hash]; ok {
		m.updateEntry(entry, func() {
			entry.UpdateFeeDelta(deltas.Fee)
		})
		// Now update all ancestors' modified fees with descendants
		ancestors, err := m.CalculateMemPoolAncestorsWithoutLock(entry.Tx, math.MaxInt32, math.MaxInt64,
			math.MaxInt32, math.MaxInt64, false)
		if err == nil {
			ancestors.Each(func(item interface{}) bool {
				ancestor := item.(*TxEntry)
				m.updateEntry(ancestor, func() {
					ancestor.UpdateState(0, feeDelta, 0)
				})
				return true
			})
		}
		// Now update all descendants' modified fees with ancestors
		descendants := set.New(set.NonThreadSafe)
		m.CalculateDescendants(entry, descendants)
		descendants.Remove(entry)
		descendants.Each(func(item interface{}) bool {
			item.(*TxEntry).UpdateAncestorState(0, 0, 0, feeDelta)
			return true
		})
	}
	log.Print("mempool", "info", "PrioritiseTransaction: %s priority += %f, fee += %d",
		hash.String(), priorityDelta, feeDelta)
}

// ApplyDeltas adds the sticky deltas of hash to the given values.
func (m *TxMempool) ApplyDeltas(hash util.Hash, priorityDelta float64, feeDelta int64) (float64, int64) {
	m.RLock()
	defer m.RUnlock()
	return m.ApplyDeltasWithoutLock(hash, priorityDelta, feeDelta)
}

func (m *TxMempool) ApplyDeltasWithoutLock(hash util.Hash, priorityDelta float64, feeDelta int64) (float64, int64) {
	if deltas, ok := m.mapDeltas[hash]; ok {
		priorityDelta += deltas.PriorityDelta
		feeDelta += deltas.Fee
	}
	return priorityDelta, feeDelta
}

func (m *TxMempool) ClearPrioritisation(hash util.Hash) {
	m.LockQueued()
	defer m.UnlockQueued()
	m.ClearPrioritisationWithoutLock(hash)
}

func (m *TxMempool) ClearPrioritisationWithoutLock(hash util.Hash) {
	delete(m.mapDeltas, hash)
}

var (
	linkUsage      = int64(unsafe.Sizeof(uintptr(0)) * 3)
	entryOverhead  = int64(unsafe.Sizeof(util.Hash{}) + unsafe.Sizeof(uintptr(0))*4)
	nextTxOverhead = int64(unsafe.Sizeof(outpoint.OutPoint{}) + unsafe.Sizeof(uintptr(0)))
	deltaOverhead  = int64(unsafe.Sizeof(util.Hash{}) + unsafe.Sizeof(PriorityFeeDelta{}))
)

// DynamicMemoryUsage estimates the heap used by the pool. Callers hold the lock.
func (m *TxMempool) DynamicMemoryUsage() int64 {
	return entryOverhead*int64(len(m.poolData)) +
		nextTxOverhead*int64(len(m.nextTx)) +
		deltaOverhead*int64(len(m.mapDeltas)) +
		m.cacheInnerUsage
}
