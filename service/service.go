// Package service wires the chain, the mempool and the proof storage into
// one node and runs its housekeeping.
package service

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/pkg/errors"

	"github.com/floweethehub/thehub-sub000/conf"
	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/logic/lchain"
	"github.com/floweethehub/thehub-sub000/logic/ldsproof"
	"github.com/floweethehub/thehub-sub000/logic/lmempool"
	"github.com/floweethehub/thehub-sub000/model/block"
	"github.com/floweethehub/thehub-sub000/model/chain"
	"github.com/floweethehub/thehub-sub000/model/dsproof"
	"github.com/floweethehub/thehub-sub000/model/mempool"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/model/undo"
	"github.com/floweethehub/thehub-sub000/model/utxo"
	"github.com/floweethehub/thehub-sub000/persist/mempooldb"
	"github.com/floweethehub/thehub-sub000/util"
)

// MaxReorgDepth is how many connected blocks keep their undo data in
// memory, and so how deep DisconnectTip can go.
const MaxReorgDepth = 100

type Config struct {
	Conf *conf.Configuration
	// Coins is the confirmed coin view, usually a utxo.CoinsCache.
	Coins utxo.CoinsUpdater
	// BestBlock reports the block the persisted coins belong to, the zero
	// hash for an empty database. Optional.
	BestBlock func() (util.Hash, error)
	Clock     clock.Clock
	// Ticker paces the scheduler, a ticker.New of the configured cleanup
	// interval when nil.
	Ticker ticker.Ticker
}

type connectedBlock struct {
	blk  *block.Block
	undo *undo.BlockUndo
}

// Node owns one instance of every component and hands them to each other.
type Node struct {
	Chain     *chain.Chain
	Notifier  *chain.Notifier
	Pool      *mempool.TxMempool
	Proofs    *dsproof.Storage
	Acceptor  *lmempool.TxAcceptor
	Handler   *ldsproof.Handler
	Connector *lchain.BlockConnector
	Scheduler *Scheduler

	cfg       *conf.Configuration
	bestBlock func() (util.Hash, error)
	store     *mempooldb.Store

	recentMtx sync.Mutex
	recent    []connectedBlock
}

func NewNode(cfg Config) *Node {
	c := cfg.Conf
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewDefaultClock()
	}

	n := &Node{cfg: c, bestBlock: cfg.BestBlock, Notifier: chain.NewNotifier()}
	n.Chain = chain.NewChain(GenesisHeader(c.RegTest), n.Notifier)
	n.Pool = mempool.NewTxMempool(mempool.Config{
		CheckFrequency:          c.Mempool.CheckFrequency,
		IncrementalRelayFee:     util.NewFeeRate(c.Mempool.IncrementalRelayFee),
		UpdateDescendantsBudget: c.Mempool.UpdateDescendantsBudget,
		Clock:                   clk,
		Notifier:                n.Notifier,
	})
	n.Proofs = dsproof.NewStorage(dsproof.StorageConfig{
		OrphanRetention:    time.Duration(c.DSProof.OrphanRetentionSeconds) * time.Second,
		RejectFilterItems:  c.DSProof.RejectFilterItems,
		RejectFilterFPRate: c.DSProof.RejectFilterFPRate,
		Clock:              clk,
	})
	limits := lmempool.Limits{
		AncestorCount:   c.Mempool.LimitAncestorCount,
		AncestorSize:    c.Mempool.LimitAncestorSize * 1000,
		DescendantCount: c.Mempool.LimitDescendantCount,
		DescendantSize:  c.Mempool.LimitDescendantSize * 1000,
		MaxPoolSize:     c.Mempool.MaxPoolSize * 1000000,
		MinRelayFee:     util.NewFeeRate(c.Mempool.MinRelayTxFee),
	}
	n.Acceptor = lmempool.NewTxAcceptor(lmempool.Config{
		Chain:  n.Chain,
		Pool:   n.Pool,
		Proofs: n.Proofs,
		Coins:  cfg.Coins,
		Limits: limits,
	})
	n.Handler = ldsproof.NewHandler(ldsproof.Config{
		Chain:  n.Chain,
		Pool:   n.Pool,
		Proofs: n.Proofs,
		Coins:  cfg.Coins,
	})
	n.Connector = lchain.NewBlockConnector(lchain.Config{Acceptor: n.Acceptor, Coins: cfg.Coins})

	tick := cfg.Ticker
	if tick == nil {
		tick = ticker.New(time.Duration(c.DSProof.CleanupIntervalSeconds) * time.Second)
	}
	n.Scheduler = NewScheduler(SchedulerConfig{
		Pool:        n.Pool,
		Proofs:      n.Proofs,
		Ticker:      tick,
		Expiry:      time.Duration(c.Mempool.Expiry) * time.Hour,
		MaxPoolSize: limits.MaxPoolSize,
	})
	return n
}

// Start restores the saved chain and pool when persistence is on and
// starts the scheduler.
func (n *Node) Start(ctx context.Context) error {
	if n.cfg.Mempool.Persist {
		if err := n.restore(); err != nil {
			if n.store != nil {
				n.store.Close()
				n.store = nil
			}
			return err
		}
	}
	n.Scheduler.Start(ctx)
	log.Print("service", "info", "node started at height %d with %d pool transactions",
		n.Chain.TipHeight(), n.Pool.Size())
	return nil
}

func (n *Node) restore() error {
	dataPath, err := n.cfg.GetDataPath()
	if err != nil {
		return err
	}
	n.store, err = mempooldb.Open(filepath.Join(dataPath, mempooldb.FileName))
	if err != nil {
		return err
	}

	n.Chain.Lock()
	height, err := n.store.LoadChain(n.Chain)
	tip := n.Chain.Tip().BlockHash
	n.Chain.Unlock()
	if err != nil {
		return err
	}
	if n.bestBlock != nil {
		best, err := n.bestBlock()
		if err != nil {
			return errors.Wrap(err, "read coins best block")
		}
		if best != util.HashZero && best != tip {
			return errors.Errorf("coins are at block %s but the saved chain ends at %s", best, tip)
		}
	}
	log.Print("persist", "info", "restored chain to height %d", height)

	infos, err := n.store.Load()
	if err != nil {
		return err
	}
	n.Acceptor.LoadMempool(infos, time.Duration(n.cfg.Mempool.Expiry)*time.Hour)
	return nil
}

// Stop halts the scheduler and saves the chain and pool.
func (n *Node) Stop() error {
	n.Scheduler.Stop()
	if n.store == nil {
		return nil
	}
	defer n.store.Close()

	n.Chain.Lock()
	err := n.store.SaveChain(n.Chain)
	n.Chain.Unlock()
	if err != nil {
		return err
	}
	return n.store.Dump(n.Pool.InfoAll(), n.Pool.Clock().Now())
}

// ProcessTransaction offers a transaction relayed by peerID to the pool.
func (n *Node) ProcessTransaction(txn *tx.Tx, peerID int64) *lmempool.AcceptResult {
	return n.Acceptor.AcceptTxFromNetwork(txn, peerID)
}

// ProcessDoubleSpendProof parses and handles a proof message from peerID.
// A parse error is returned as is, the caller decides on the penalty.
func (n *Node) ProcessDoubleSpendProof(data []byte, peerID int64) (*ldsproof.ProofResult, error) {
	proof := dsproof.NewEmptyProof()
	if err := proof.Unserialize(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return n.Handler.AddDoubleSpendProof(proof, peerID), nil
}

// ProcessBlock connects blk on the tip and keeps its undo data for
// DisconnectTip.
func (n *Node) ProcessBlock(blk *block.Block) error {
	n.recentMtx.Lock()
	defer n.recentMtx.Unlock()
	_, blockUndo, err := n.Connector.ConnectBlock(blk)
	if err != nil {
		return err
	}
	n.recent = append(n.recent, connectedBlock{blk: blk, undo: blockUndo})
	if len(n.recent) > MaxReorgDepth {
		n.recent = n.recent[1:]
	}
	return nil
}

// DisconnectTip rolls back the last block connected through ProcessBlock.
func (n *Node) DisconnectTip() error {
	n.recentMtx.Lock()
	defer n.recentMtx.Unlock()
	if len(n.recent) == 0 {
		return errors.New("no undo data for the tip")
	}
	last := n.recent[len(n.recent)-1]
	if _, err := n.Connector.DisconnectBlock(last.blk, last.undo); err != nil {
		return err
	}
	n.recent = n.recent[:len(n.recent)-1]
	return nil
}

// LookupTx returns the pool transaction txid, nil when not there.
func (n *Node) LookupTx(txid util.Hash) *tx.Tx {
	if entry := n.Pool.FindTx(txid); entry != nil {
		return entry.Tx
	}
	return nil
}

func (n *Node) TxExists(txid util.Hash) bool {
	return n.Pool.HasTx(txid)
}
