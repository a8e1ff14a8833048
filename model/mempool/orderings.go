package mempool

import (
	"github.com/google/btree"
)

const btreeDegree = 32

func lessByHash(a, b *TxEntry) bool {
	ha, hb := a.Tx.GetHash(), b.Tx.GetHash()
	return ha.Cmp(&hb) < 0
}

// descendantScore is max(own fee rate, fee rate with descendants). Trees
// of this item are ascending, so the first item is the first to evict.
type descendantScoreItem struct {
	*TxEntry
}

func (e *TxEntry) descendantScore() (fee, size int64) {
	fee, size = e.GetModifiedFee(), int64(e.TxSize)
	if CompareFeeRate(e.SumTxFeeWithDescendants, e.SumTxSizeWithDescendants, fee, size) > 0 {
		return e.SumTxFeeWithDescendants, e.SumTxSizeWithDescendants
	}
	return
}

func (d descendantScoreItem) Less(than btree.Item) bool {
	b := than.(descendantScoreItem)
	aFee, aSize := d.descendantScore()
	bFee, bSize := b.descendantScore()
	if c := CompareFeeRate(aFee, aSize, bFee, bSize); c != 0 {
		return c < 0
	}
	// newer entries go first
	if d.time != b.time {
		return d.time > b.time
	}
	return lessByHash(d.TxEntry, b.TxEntry)
}

type entryTimeItem struct {
	*TxEntry
}

func (e entryTimeItem) Less(than btree.Item) bool {
	b := than.(entryTimeItem)
	if e.time != b.time {
		return e.time < b.time
	}
	return lessByHash(e.TxEntry, b.TxEntry)
}

// modFeeRateItem sorts the highest own modified fee rate first.
type modFeeRateItem struct {
	*TxEntry
}

func (m modFeeRateItem) Less(than btree.Item) bool {
	b := than.(modFeeRateItem)
	c := CompareFeeRate(m.GetModifiedFee(), int64(m.TxSize), b.GetModifiedFee(), int64(b.TxSize))
	if c != 0 {
		return c > 0
	}
	if m.time != b.time {
		return m.time < b.time
	}
	return lessByHash(m.TxEntry, b.TxEntry)
}
