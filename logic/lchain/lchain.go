// Package lchain moves the chain tip: it applies connected blocks to the
// coin view and the mempool, and rolls them back on disconnect.
package lchain

import (
	"time"

	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/logic/lmempool"
	"github.com/floweethehub/thehub-sub000/logic/ltx"
	"github.com/floweethehub/thehub-sub000/logic/lundo"
	"github.com/floweethehub/thehub-sub000/model/block"
	"github.com/floweethehub/thehub-sub000/model/blockindex"
	"github.com/floweethehub/thehub-sub000/model/chain"
	"github.com/floweethehub/thehub-sub000/model/dsproof"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/undo"
	"github.com/floweethehub/thehub-sub000/model/utxo"
	"github.com/floweethehub/thehub-sub000/util"
)

type Config struct {
	Acceptor *lmempool.TxAcceptor
	// Coins is the confirmed coin view, the same one the acceptor reads.
	Coins utxo.CoinsUpdater
}

type BlockConnector struct {
	chain    *chain.Chain
	acceptor *lmempool.TxAcceptor
	coins    utxo.CoinsUpdater
}

func NewBlockConnector(cfg Config) *BlockConnector {
	return &BlockConnector{
		chain:    cfg.Acceptor.Chain(),
		acceptor: cfg.Acceptor,
		coins:    cfg.Coins,
	}
}

// ConnectBlock applies blk on top of the tip. Its transactions leave the
// pool along with everything conflicting with them, and the returned undo
// data is what DisconnectBlock needs to roll the block back. Transactions
// must be in topological order, parents first.
func (bc *BlockConnector) ConnectBlock(blk *block.Block) (*blockindex.BlockIndex, *undo.BlockUndo, error) {
	start := time.Now()
	notifier := bc.chain.Notifier()
	notifier.Hold()
	defer notifier.Release()
	bc.chain.Lock()
	defer bc.chain.Unlock()

	tip := bc.chain.Tip()
	blockHash := blk.GetHash()
	if blk.Header.HashPrevBlock != tip.BlockHash {
		return nil, nil, errcode.NewWithDesc(errcode.ErrorBlockNotConnectTip,
			"block %s does not build on tip %s", blockHash, tip.BlockHash)
	}
	if err := checkBlock(blk); err != nil {
		return nil, nil, err
	}
	if err := bc.checkInputs(blk); err != nil {
		return nil, nil, err
	}

	height := tip.Height + 1
	blockUndo := undo.NewBlockUndo(len(blk.Txs) - 1)
	for i, txn := range blk.Txs {
		var txUndo *undo.TxUndo
		if i > 0 {
			txUndo = undo.NewTxUndo()
			blockUndo.AddTxUndo(txUndo)
		}
		if err := ltx.UpdateTxCoins(txn, bc.coins, txUndo, height); err != nil {
			// checkInputs saw every input, the view changed under us
			panic(err.Error())
		}
	}

	index, err := bc.chain.ConnectTip(&blk.Header, len(blk.Txs))
	if err != nil {
		panic(err.Error())
	}
	bc.flush(blockHash)

	pool := bc.acceptor.Pool()
	conflicts := pool.RemoveForBlock(blk.Txs)
	if proofs := bc.acceptor.Proofs(); proofs != nil {
		proofs.NewBlockFound()
		dropMinedOrphans(proofs, blk)
	}
	lmempool.CheckMempool(pool, bc.chain, bc.coins)

	notifier.BlockConnected(blk, index)
	notifier.UpdatedChainTip(index)
	log.Print("chain", "debug", "connected block %s at height %d with %d txs in %v, %d conflicts evicted",
		blockHash, height, len(blk.Txs), time.Since(start), len(conflicts))
	return index, blockUndo, nil
}

// DisconnectBlock rolls back the tip, which must be blk, and offers its
// transactions back to the pool. Pool transactions the shorter chain can
// no longer mine are dropped.
func (bc *BlockConnector) DisconnectBlock(blk *block.Block, blockUndo *undo.BlockUndo) (*blockindex.BlockIndex, error) {
	start := time.Now()
	notifier := bc.chain.Notifier()
	notifier.Hold()
	defer notifier.Release()
	bc.chain.Lock()
	defer bc.chain.Unlock()

	tip := bc.chain.Tip()
	blockHash := blk.GetHash()
	if blockHash != tip.BlockHash {
		return nil, errcode.NewWithDesc(errcode.ErrorBlockNotConnectTip,
			"block %s is not the tip %s", blockHash, tip.BlockHash)
	}
	if tip == bc.chain.Genesis() {
		return nil, errcode.NewWithDesc(errcode.ErrorBlockNotConnectTip, "cannot disconnect genesis")
	}

	switch lundo.ApplyBlockUndo(blockUndo, blk, bc.coins) {
	case lundo.DisconnectFailed:
		return nil, errcode.NewWithDesc(errcode.ErrorMissingUndo, "undo data of block %s does not apply", blockHash)
	case lundo.DisconnectUnclean:
		log.Warn("DisconnectBlock(): block %s rolled back uncleanly", blockHash)
	}

	index, err := bc.chain.DisconnectTip()
	if err != nil {
		panic(err.Error())
	}
	bc.flush(blk.Header.HashPrevBlock)

	added := bc.acceptor.AddTxFromUndoBlock(blk.Txs)
	removed := bc.acceptor.RemoveForReorg()
	if proofs := bc.acceptor.Proofs(); proofs != nil {
		proofs.NewBlockFound()
	}

	notifier.BlockDisconnected(blk, index)
	notifier.UpdatedChainTip(bc.chain.Tip())
	log.Print("chain", "debug", "disconnected block %s in %v, %d txs back in pool, %d dropped",
		blockHash, time.Since(start), len(added), removed)
	return index, nil
}

// dropMinedOrphans removes the orphan proofs disputing an output blk
// spends, the block settled which spend wins.
func dropMinedOrphans(proofs *dsproof.Storage, blk *block.Block) {
	for _, txn := range blk.Txs[1:] {
		for _, in := range txn.GetIns() {
			for _, ref := range proofs.FindOrphans(in.PreviousOutPoint) {
				proof := proofs.Lookup(ref.ProofID)
				if proof != nil && *proof.OutPoint() == *in.PreviousOutPoint {
					proofs.Remove(ref.ProofID)
				}
			}
		}
	}
}

func (bc *BlockConnector) flush(bestBlock util.Hash) {
	f, ok := bc.coins.(utxo.Flusher)
	if !ok {
		return
	}
	if err := f.Flush(bestBlock); err != nil {
		// the chain already moved, a coin view behind it is unrecoverable
		log.Error("flushing coins at %s: %v", bestBlock, err)
		panic(err.Error())
	}
}

// checkBlock runs the context free checks that matter to the view: a
// single leading coinbase, a matching merkle root and parents first order.
func checkBlock(blk *block.Block) error {
	if len(blk.Txs) == 0 || !blk.Txs[0].IsCoinBase() {
		return errcode.NewWithDesc(errcode.TxErrMalformed, "bad-cb-missing")
	}
	for _, txn := range blk.Txs[1:] {
		if err := txn.CheckRegularTransaction(); err != nil {
			return err
		}
	}
	root, mutated := BlockMerkleRoot(blk.Txs)
	if root != blk.Header.MerkleRoot {
		return errcode.NewWithDesc(errcode.TxErrMalformed, "bad-txnmrklroot")
	}
	if mutated {
		return errcode.NewWithDesc(errcode.TxErrMalformed, "bad-txns-duplicate")
	}
	if !lmempool.IsTTORSorted(blk.Txs) {
		return errcode.NewWithDesc(errcode.TxErrMalformed, "tx-ordering")
	}
	return nil
}

// checkInputs makes sure every input of blk resolves, against the view or
// an earlier transaction of the block, and is spent once. Nothing is
// written until all of them pass.
func (bc *BlockConnector) checkInputs(blk *block.Block) error {
	created := make(map[outpoint.OutPoint]struct{})
	spent := make(map[outpoint.OutPoint]struct{})
	for i, txn := range blk.Txs {
		if i > 0 {
			for _, in := range txn.GetIns() {
				prevout := *in.PreviousOutPoint
				if _, ok := spent[prevout]; ok {
					return errcode.NewWithDesc(errcode.ErrorCoinAlreadySpent, "tx %s spends %s twice in block",
						txn.GetHash(), prevout)
				}
				if _, ok := created[prevout]; !ok && bc.coins.GetCoin(&prevout) == nil {
					return errcode.NewWithDesc(errcode.ErrorMissingCoin, "tx %s input %s", txn.GetHash(), prevout)
				}
				spent[prevout] = struct{}{}
			}
		}
		txid := txn.GetHash()
		for j, out := range txn.GetOuts() {
			if !out.GetScriptPubKey().IsUnspendable() {
				created[*outpoint.NewOutPoint(txid, uint32(j))] = struct{}{}
			}
		}
	}
	return nil
}
