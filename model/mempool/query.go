package mempool

import (
	"github.com/google/btree"
	"github.com/pkg/errors"
	"gopkg.in/fatih/set.v0"

	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/util"
)

func (m *TxMempool) Size() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.poolData)
}

func (m *TxMempool) GetPoolAllTxSize() uint64 {
	m.RLock()
	defer m.RUnlock()
	return m.totalTxSize
}

func (m *TxMempool) GetPoolAllTxSizeWithoutLock() uint64 {
	return m.totalTxSize
}

func (m *TxMempool) GetTransactionsUpdated() uint64 {
	m.RLock()
	defer m.RUnlock()
	return m.transactionsUpdated
}

func (m *TxMempool) GetPoolUsage() int64 {
	m.RLock()
	defer m.RUnlock()
	return m.DynamicMemoryUsage()
}

// FindTx returns the pool entry of hash, nil when absent.
func (m *TxMempool) FindTx(hash util.Hash) *TxEntry {
	m.RLock()
	defer m.RUnlock()
	return m.poolData[hash]
}

func (m *TxMempool) FindTxWithoutLock(hash util.Hash) *TxEntry {
	return m.poolData[hash]
}

func (m *TxMempool) HasTx(hash util.Hash) bool {
	m.RLock()
	defer m.RUnlock()
	_, ok := m.poolData[hash]
	return ok
}

// HasSpentOut returns the entry spending out, nil when no pool tx spends it.
func (m *TxMempool) HasSpentOut(out *outpoint.OutPoint) *TxEntry {
	m.RLock()
	defer m.RUnlock()
	return m.HasSpentOutWithoutLock(out)
}

func (m *TxMempool) HasSpentOutWithoutLock(out *outpoint.OutPoint) *TxEntry {
	return m.nextTx[*out]
}

// GetTxByHash implements the lookup used by the proof validator.
func (m *TxMempool) GetTxByHash(hash util.Hash) *tx.Tx {
	if entry, ok := m.poolData[hash]; ok {
		return entry.Tx
	}
	return nil
}

// GetSpender returns the pool tx spending out. Callers hold the lock.
func (m *TxMempool) GetSpender(out *outpoint.OutPoint) *tx.Tx {
	if entry, ok := m.nextTx[*out]; ok {
		return entry.Tx
	}
	return nil
}

func (m *TxMempool) GetMemPoolParents(hash util.Hash) []*TxEntry {
	m.RLock()
	defer m.RUnlock()
	entry, ok := m.poolData[hash]
	if !ok {
		return nil
	}
	ret := make([]*TxEntry, 0, len(entry.ParentTx))
	for parent := range entry.ParentTx {
		ret = append(ret, parent)
	}
	return ret
}

func (m *TxMempool) GetMemPoolChildren(hash util.Hash) []*TxEntry {
	m.RLock()
	defer m.RUnlock()
	entry, ok := m.poolData[hash]
	if !ok {
		return nil
	}
	ret := make([]*TxEntry, 0, len(entry.ChildTx))
	for child := range entry.ChildTx {
		ret = append(ret, child)
	}
	return ret
}

func (m *TxMempool) GetAllTxEntryWithoutLock() map[util.Hash]*TxEntry {
	return m.poolData
}

// IterateByDescendantScore visits entries from the lowest descendant score
// up, until fn returns false.
func (m *TxMempool) IterateByDescendantScore(fn func(*TxEntry) bool) {
	m.RLock()
	defer m.RUnlock()
	m.descendantScore.Ascend(func(i btree.Item) bool {
		return fn(i.(descendantScoreItem).TxEntry)
	})
}

// IterateByModifiedFeeRate visits entries from the highest own modified
// fee rate down.
func (m *TxMempool) IterateByModifiedFeeRate(fn func(*TxEntry) bool) {
	m.RLock()
	defer m.RUnlock()
	m.modFeeRate.Ascend(func(i btree.Item) bool {
		return fn(i.(modFeeRateItem).TxEntry)
	})
}

func (m *TxMempool) IterateByEntryTime(fn func(*TxEntry) bool) {
	m.RLock()
	defer m.RUnlock()
	m.entryTime.Ascend(func(i btree.Item) bool {
		return fn(i.(entryTimeItem).TxEntry)
	})
}

// CalculateAncestorPackage returns the modified fee, size and sigops of
// hash together with all its in-pool ancestors.
func (m *TxMempool) CalculateAncestorPackage(hash util.Hash) (fee int64, size int64, sigOps int64, ok bool) {
	m.RLock()
	defer m.RUnlock()
	entry, ok := m.poolData[hash]
	if !ok {
		return 0, 0, 0, false
	}
	return entry.SumTxFeeWithAncestors, entry.SumTxSizeWitAncestors, entry.SumTxSigOpCountWithAncestors, true
}

// SetDSProof attaches a proof id to the entry of hash.
func (m *TxMempool) SetDSProof(hash util.Hash, proofID int) bool {
	m.Lock()
	defer m.Unlock()
	return m.SetDSProofWithoutLock(hash, proofID)
}

func (m *TxMempool) SetDSProofWithoutLock(hash util.Hash, proofID int) bool {
	entry, ok := m.poolData[hash]
	if !ok {
		return false
	}
	entry.dsproofID = proofID
	return true
}

func (m *TxMempool) InfoAll() []*TxMempoolInfo {
	m.RLock()
	defer m.RUnlock()
	return m.InfoAllWithoutLock()
}

func (m *TxMempool) InfoAllWithoutLock() []*TxMempoolInfo {
	ret := make([]*TxMempoolInfo, 0, len(m.poolData))
	m.entryTime.Ascend(func(i btree.Item) bool {
		ret = append(ret, i.(entryTimeItem).GetInfo())
		return true
	})
	return ret
}

// CheckAggregates verifies that the link table matches the spent outpoint
// index and that every clean entry carries the sums of its descendants.
// Callers hold the lock.
func (m *TxMempool) CheckAggregates() error {
	if m.descendantScore.Len() != len(m.poolData) || m.entryTime.Len() != len(m.poolData) ||
		m.modFeeRate.Len() != len(m.poolData) {
		return errors.Errorf("index sizes differ: pool %d, descendant score %d, time %d, fee rate %d",
			len(m.poolData), m.descendantScore.Len(), m.entryTime.Len(), m.modFeeRate.Len())
	}
	var totalSize uint64
	for hash, entry := range m.poolData {
		totalSize += uint64(entry.TxSize)
		for _, in := range entry.Tx.GetIns() {
			if m.nextTx[*in.PreviousOutPoint] != entry {
				return errors.Errorf("tx %s: input %s missing from spent index", hash, in.PreviousOutPoint)
			}
			parent, ok := m.poolData[in.PreviousOutPoint.Hash]
			if !ok {
				continue
			}
			if _, ok := entry.ParentTx[parent]; !ok {
				return errors.Errorf("tx %s: parent link to %s missing", hash, parent.Tx.GetHash())
			}
			if _, ok := parent.ChildTx[entry]; !ok {
				return errors.Errorf("tx %s: child link from %s missing", hash, parent.Tx.GetHash())
			}
		}
		for parent := range entry.ParentTx {
			if _, ok := m.poolData[parent.Tx.GetHash()]; !ok {
				return errors.Errorf("tx %s: links to removed parent %s", hash, parent.Tx.GetHash())
			}
		}
		if entry.IsDirty() {
			continue
		}
		descendants := set.New(set.NonThreadSafe)
		m.CalculateDescendants(entry, descendants)
		var size, fee int64
		descendants.Each(func(item interface{}) bool {
			d := item.(*TxEntry)
			size += int64(d.TxSize)
			fee += d.GetModifiedFee()
			return true
		})
		if entry.SumTxCountWithDescendants != int64(descendants.Size()) ||
			entry.SumTxSizeWithDescendants != size || entry.SumTxFeeWithDescendants != fee {
			return errors.Errorf("tx %s: descendant state (%d, %d, %d) want (%d, %d, %d)", hash,
				entry.SumTxCountWithDescendants, entry.SumTxSizeWithDescendants, entry.SumTxFeeWithDescendants,
				descendants.Size(), size, fee)
		}
	}
	for out, spender := range m.nextTx {
		if _, ok := m.poolData[spender.Tx.GetHash()]; !ok {
			return errors.Errorf("outpoint %s spent by removed tx", out)
		}
	}
	if totalSize != m.totalTxSize {
		return errors.Errorf("total size %d, tracked %d", totalSize, m.totalTxSize)
	}
	return nil
}
