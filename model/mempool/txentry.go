package mempool

import (
	"math/bits"
	"unsafe"

	"github.com/floweethehub/thehub-sub000/model/chain"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/floweethehub/thehub-sub000/util/amount"
)

// NoDSProof marks an entry without an attached double spend proof.
const NoDSProof = -1

type TxEntry struct {
	Tx     *tx.Tx
	TxSize int
	// TxFee is the fee actually paid, without prioritisation
	TxFee    int64
	TxHeight int32
	// SigOpCount sigop plus P2SH sigops count
	SigOpCount int
	// time Local time when entering the memPool
	time int64
	// entryPriority is the coin age priority at TxHeight
	entryPriority float64
	// inChainInputValue sums the confirmed inputs, it ages the priority
	inChainInputValue amount.Amount
	// modSize is the size used for priority, scriptSig discounts applied
	modSize   int
	usageSize int
	feeDelta  int64
	// lp Track the height and time at which tx was final
	lp             LockPoints
	spendsCoinbase bool
	dsproofID      int

	ChildTx  map[*TxEntry]struct{}
	ParentTx map[*TxEntry]struct{}

	StatisInformation
}

// StatisInformation holds the package aggregates of an entry. The
// descendant part is only meaningful while the entry is not dirty.
type StatisInformation struct {
	// SumTxCountWithDescendants counts this tx and all in-mempool descendants;
	// zero marks the entry dirty.
	SumTxCountWithDescendants int64
	SumTxSizeWithDescendants  int64
	// SumTxFeeWithDescendants sums modified fees.
	SumTxFeeWithDescendants int64

	SumTxCountWithAncestors      int64
	SumTxSizeWitAncestors        int64
	SumTxSigOpCountWithAncestors int64
	SumTxFeeWithAncestors        int64
}

func NewTxEntry(txn *tx.Tx, txFee int64, acceptTime int64, priority float64, height int32,
	inChainValue amount.Amount, spendsCoinbase bool, sigOpsCount int, lp LockPoints) *TxEntry {

	t := new(TxEntry)
	t.Tx = txn
	t.time = acceptTime
	t.TxSize = txn.SerializeSize()
	t.TxFee = txFee
	t.entryPriority = priority
	t.TxHeight = height
	t.inChainInputValue = inChainValue
	t.modSize = CalculateModifiedSize(txn, t.TxSize)
	t.usageSize = t.TxSize + int(unsafe.Sizeof(*t))
	t.spendsCoinbase = spendsCoinbase
	t.SigOpCount = sigOpsCount
	t.lp = lp
	t.dsproofID = NoDSProof

	t.SumTxCountWithDescendants = 1
	t.SumTxSizeWithDescendants = int64(t.TxSize)
	t.SumTxFeeWithDescendants = txFee

	t.SumTxCountWithAncestors = 1
	t.SumTxSizeWitAncestors = int64(t.TxSize)
	t.SumTxSigOpCountWithAncestors = int64(sigOpsCount)
	t.SumTxFeeWithAncestors = txFee

	t.ParentTx = make(map[*TxEntry]struct{})
	t.ChildTx = make(map[*TxEntry]struct{})
	return t
}

// CalculateModifiedSize discounts every input by 41 bytes plus up to 110
// bytes of scriptSig so that spending many outputs is not penalised.
func CalculateModifiedSize(txn *tx.Tx, txSize int) int {
	for _, in := range txn.GetIns() {
		scriptLen := in.GetScriptSig().Size()
		if scriptLen > 110 {
			scriptLen = 110
		}
		offset := 41 + scriptLen
		if txSize > offset {
			txSize -= offset
		}
	}
	return txSize
}

func (t *TxEntry) GetTime() int64 {
	return t.time
}

func (t *TxEntry) GetModifiedFee() int64 {
	return t.TxFee + t.feeDelta
}

func (t *TxEntry) GetFeeDelta() int64 {
	return t.feeDelta
}

func (t *TxEntry) GetUsageSize() int64 {
	return int64(t.usageSize)
}

func (t *TxEntry) GetModSize() int {
	return t.modSize
}

func (t *TxEntry) GetInChainInputValue() amount.Amount {
	return t.inChainInputValue
}

func (t *TxEntry) GetSpendsCoinbase() bool {
	return t.spendsCoinbase
}

func (t *TxEntry) GetSigOpCountWithAncestors() int64 {
	return t.SumTxSigOpCountWithAncestors
}

func (t *TxEntry) SetLockPointFromTxEntry(lp LockPoints) {
	t.lp = lp
}

func (t *TxEntry) GetLockPointFromTxEntry() LockPoints {
	return t.lp
}

// GetDSProof returns the attached proof id or NoDSProof.
func (t *TxEntry) GetDSProof() int {
	return t.dsproofID
}

func (t *TxEntry) HasDSProof() bool {
	return t.dsproofID != NoDSProof
}

// GetPriority ages the entry priority to currentHeight, never negative.
func (t *TxEntry) GetPriority(currentHeight int32) float64 {
	if t.modSize == 0 {
		return t.entryPriority
	}
	delta := float64(currentHeight-t.TxHeight) * float64(t.inChainInputValue) / float64(t.modSize)
	result := t.entryPriority + delta
	if result < 0 {
		result = 0
	}
	return result
}

// SetDirty drops the descendant aggregates back to the entry itself. A
// dirty entry ignores descendant updates until it is recomputed.
func (t *TxEntry) SetDirty() {
	t.SumTxCountWithDescendants = 0
	t.SumTxSizeWithDescendants = int64(t.TxSize)
	t.SumTxFeeWithDescendants = t.GetModifiedFee()
}

func (t *TxEntry) IsDirty() bool {
	return t.SumTxCountWithDescendants == 0
}

// UpdateState adjusts the descendant aggregates.
func (t *TxEntry) UpdateState(updateSize int, updateFee int64, updateCount int) {
	if t.IsDirty() {
		return
	}
	t.SumTxCountWithDescendants += int64(updateCount)
	t.SumTxSizeWithDescendants += int64(updateSize)
	t.SumTxFeeWithDescendants += updateFee
}

func (t *TxEntry) UpdateAncestorState(updateCount, updateSize, updateSigOps int, updateFee int64) {
	t.SumTxCountWithAncestors += int64(updateCount)
	t.SumTxSizeWitAncestors += int64(updateSize)
	t.SumTxSigOpCountWithAncestors += int64(updateSigOps)
	t.SumTxFeeWithAncestors += updateFee
}

// UpdateFeeDelta replaces the prioritisation delta, the fee aggregates
// follow the modified fee.
func (t *TxEntry) UpdateFeeDelta(newFeeDelta int64) {
	diff := newFeeDelta - t.feeDelta
	t.SumTxFeeWithDescendants += diff
	t.SumTxFeeWithAncestors += diff
	t.feeDelta = newFeeDelta
}

// UpdateParent update the tx's parent transaction.
func (t *TxEntry) UpdateParent(parent *TxEntry, add bool) {
	if add {
		t.ParentTx[parent] = struct{}{}
		return
	}
	delete(t.ParentTx, parent)
}

func (t *TxEntry) UpdateChild(child *TxEntry, add bool) {
	if add {
		t.ChildTx[child] = struct{}{}
		return
	}
	delete(t.ChildTx, child)
}

func (t *TxEntry) GetFeeRate() util.FeeRate {
	return util.NewFeeRateWithSize(t.TxFee, int64(t.TxSize))
}

func (t *TxEntry) GetInfo() *TxMempoolInfo {
	return &TxMempoolInfo{
		Tx:       t.Tx,
		Time:     t.time,
		FeeRate:  t.GetFeeRate(),
		FeeDelta: t.feeDelta,
	}
}

// CheckLockPointValidity reports whether the cached lock points still hold
// on the active chain.
func (t *TxEntry) CheckLockPointValidity(c *chain.Chain) bool {
	if t.lp.MaxInputBlock != nil {
		if !c.Contains(t.lp.MaxInputBlock.BlockHash) {
			return false
		}
	}
	return true
}

// CompareFeeRate orders feeA/sizeA against feeB/sizeB by exact cross
// multiplication, -1 when A pays less per byte.
func CompareFeeRate(feeA, sizeA, feeB, sizeB int64) int {
	negA, hiA, loA := mul128(feeA, sizeB)
	negB, hiB, loB := mul128(feeB, sizeA)
	switch {
	case negA && !negB:
		return -1
	case !negA && negB:
		return 1
	}
	c := compareUint64(hiA, hiB)
	if c == 0 {
		c = compareUint64(loA, loB)
	}
	if negA {
		return -c
	}
	return c
}

// mul128 returns the sign and the 128 bit magnitude of x*y.
func mul128(x, y int64) (neg bool, hi, lo uint64) {
	hi, lo = bits.Mul64(abs64(x), abs64(y))
	neg = (x < 0) != (y < 0) && hi|lo != 0
	return
}

func abs64(x int64) uint64 {
	if x < 0 {
		return uint64(-x)
	}
	return uint64(x)
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
