package ltx

import (
	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/model/chain"
	"github.com/floweethehub/thehub-sub000/model/consensus"
	"github.com/floweethehub/thehub-sub000/model/mempool"
	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/model/utxo"
	"github.com/floweethehub/thehub-sub000/util/amount"
)

// ContextualCheckTransactionForCurrentBlock checks that txn could be mined
// in the block following the tip.
func ContextualCheckTransactionForCurrentBlock(txn *tx.Tx, activeChain *chain.Chain, flags uint32) error {
	tip := activeChain.Tip()

	// BIP113 will require that time-locked transactions have nLockTime set to
	// less than the median time of the previous block they're contained in.
	lockTimeCutoff := tip.GetBlockTime()
	if flags&consensus.LocktimeMedianTimePast != 0 {
		lockTimeCutoff = tip.GetMedianTimePast()
	}
	return ContextualCheckTransaction(txn, tip.Height+1, lockTimeCutoff)
}

func ContextualCheckTransaction(txn *tx.Tx, blockHeight int32, lockTimeCutoff int64) error {
	if !txn.IsFinal(blockHeight, lockTimeCutoff) {
		log.Debug("txn is not final, hash: %s", txn.GetHash())
		return errcode.NewWithDesc(errcode.TxErrNotFinal, "bad-txns-nonfinal")
	}
	if size := txn.SerializeSize(); size < consensus.MinTxSize {
		return errcode.NewWithDesc(errcode.TxErrMalformed,
			"bad-txn-undersize: tx(%d) should be equal to or greater than %d", size, consensus.MinTxSize)
	}
	return nil
}

// CalculateLockPoints computes the BIP68 lock points of txn. Coins created
// by pool transactions count as mined in the block after the tip.
func CalculateLockPoints(txn *tx.Tx, activeChain *chain.Chain, view utxo.CoinsView,
	flags uint32) (*mempool.LockPoints, error) {

	tipHeight := activeChain.TipHeight()
	ins := txn.GetIns()
	preHeights := make([]int32, 0, len(ins))
	for _, in := range ins {
		coin := view.GetCoin(in.PreviousOutPoint)
		if coin == nil {
			return nil, errcode.New(errcode.TxErrNoPreviousOut)
		}
		if coin.IsMempoolCoin() {
			preHeights = append(preHeights, tipHeight+1)
		} else {
			preHeights = append(preHeights, coin.GetHeight())
		}
	}

	lp := mempool.NewLockPoints()
	lp.Height, lp.Time = calculateSequenceLockPair(txn, activeChain, preHeights, flags)

	// Also store the block with the highest height of all the blocks which
	// have sequence locked prevouts. It has to stay on the chain for the
	// lock points to remain valid. Mempool inputs are at tip+1 and can not
	// pass a non-zero lock anyway.
	var maxInputHeight int32
	for _, height := range preHeights {
		if height != tipHeight+1 && maxInputHeight < height {
			maxInputHeight = height
		}
	}
	lp.MaxInputBlock = activeChain.GetIndex(maxInputHeight)
	return lp, nil
}

// calculateSequenceLockPair returns the last invalid height and time of
// txn's relative locks, -1 when there are none.
func calculateSequenceLockPair(txn *tx.Tx, activeChain *chain.Chain, preHeights []int32,
	flags uint32) (height int32, time int64) {

	var maxHeight int32 = -1
	var maxTime int64 = -1

	if txn.GetVersion() < 2 || flags&consensus.LocktimeVerifySequence == 0 {
		return maxHeight, maxTime
	}

	for i, in := range txn.GetIns() {
		// Sequence numbers with the most significant bit set are not
		// treated as relative lock-times.
		if in.Sequence&script.SequenceLockTimeDisableFlag != 0 {
			preHeights[i] = 0
			continue
		}

		coinHeight := preHeights[i]
		if in.Sequence&script.SequenceLockTimeTypeFlag != 0 {
			// measured from the median time past of the block prior to
			// the one containing the coin
			prev := activeChain.GetIndex(coinHeight - 1)
			if prev == nil {
				prev = activeChain.Tip()
			}
			expireTime := prev.GetMedianTimePast() +
				((int64(in.Sequence) & script.SequenceLockTimeMask) << script.SequenceLockTimeGranularity) - 1
			if maxTime < expireTime {
				maxTime = expireTime
			}
		} else {
			expireHeight := coinHeight + int32(in.Sequence&script.SequenceLockTimeMask) - 1
			if maxHeight < expireHeight {
				maxHeight = expireHeight
			}
		}
	}
	return maxHeight, maxTime
}

// CheckSequenceLocks reports whether lock points allow mining in the next block.
func CheckSequenceLocks(activeChain *chain.Chain, lp *mempool.LockPoints) bool {
	if lp.Height >= activeChain.TipHeight()+1 || lp.Time >= activeChain.MedianTimePast() {
		return false
	}
	return true
}

// CheckInputsMoney validates the input values of txn spent at spendHeight
// and returns the fee.
func CheckInputsMoney(txn *tx.Tx, view utxo.CoinsView, spendHeight int32) (amount.Amount, error) {
	var valueIn amount.Amount
	for _, in := range txn.GetIns() {
		coin := view.GetCoin(in.PreviousOutPoint)
		if coin == nil {
			return 0, errcode.NewWithDesc(errcode.TxErrNoPreviousOut, "bad-txns-inputs-missingorspent")
		}

		if coin.IsCoinBase() && spendHeight-coin.GetHeight() < consensus.CoinbaseMaturity {
			log.Debug("tx %s spends immature coinbase %s", txn.GetHash(), in.PreviousOutPoint.String())
			return 0, errcode.NewWithDesc(errcode.Nomature, "bad-txns-premature-spend-of-coinbase")
		}

		value := coin.GetAmount()
		if !amount.MoneyRange(value) {
			return 0, errcode.NewWithDesc(errcode.TxErrMalformed, "bad-txns-inputvalues-outofrange")
		}
		valueIn += value
		if !amount.MoneyRange(valueIn) {
			return 0, errcode.NewWithDesc(errcode.TxErrMalformed, "bad-txns-inputvalues-outofrange")
		}
	}

	valueOut := txn.GetValueOut()
	if valueIn < valueOut {
		return 0, errcode.NewWithDesc(errcode.TxErrInputsMoneyBigThanOut,
			"bad-txns-in-belowout, value in (%s) < value out (%s)", valueIn.String(), valueOut.String())
	}

	fee := valueIn - valueOut
	if !amount.MoneyRange(fee) {
		return 0, errcode.NewWithDesc(errcode.TxErrMalformed, "bad-txns-fee-outofrange")
	}
	return fee, nil
}
