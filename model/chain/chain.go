package chain

import (
	"sync"

	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/model/block"
	"github.com/floweethehub/thehub-sub000/model/blockindex"
	"github.com/floweethehub/thehub-sub000/util"
)

// Chain is the active chain. The embedded mutex is the chain-state lock:
// callers that need a consistent tip hold it around their work, and when
// the mempool lock is also needed it is always taken second. The accessors
// themselves do not lock.
type Chain struct {
	sync.Mutex

	active   []*blockindex.BlockIndex
	indexMap map[util.Hash]*blockindex.BlockIndex
	notifier *Notifier
}

// NewChain starts a chain at genesis.
func NewChain(genesis *block.BlockHeader, notifier *Notifier) *Chain {
	c := &Chain{indexMap: make(map[util.Hash]*blockindex.BlockIndex), notifier: notifier}
	index := blockindex.NewBlockIndex(genesis, nil)
	c.active = append(c.active, index)
	c.indexMap[index.BlockHash] = index
	return c
}

func (c *Chain) Notifier() *Notifier {
	return c.notifier
}

func (c *Chain) Genesis() *blockindex.BlockIndex {
	return c.active[0]
}

func (c *Chain) Tip() *blockindex.BlockIndex {
	return c.active[len(c.active)-1]
}

func (c *Chain) TipHeight() int32 {
	return c.Tip().Height
}

func (c *Chain) MedianTimePast() int64 {
	return c.Tip().GetMedianTimePast()
}

func (c *Chain) GetIndex(height int32) *blockindex.BlockIndex {
	if height < 0 || int(height) >= len(c.active) {
		return nil
	}
	return c.active[height]
}

func (c *Chain) FindBlockIndex(hash util.Hash) *blockindex.BlockIndex {
	return c.indexMap[hash]
}

// Contains reports whether hash is part of the active chain.
func (c *Chain) Contains(hash util.Hash) bool {
	index, ok := c.indexMap[hash]
	return ok && c.GetIndex(index.Height) == index
}

// ConnectTip appends a block built on the current tip.
func (c *Chain) ConnectTip(header *block.BlockHeader, txCount int) (*blockindex.BlockIndex, error) {
	tip := c.Tip()
	if header.HashPrevBlock != tip.BlockHash {
		return nil, errcode.NewWithDesc(errcode.ErrorBlockNotConnectTip,
			"block %s does not build on tip %s", header.GetHash(), tip.BlockHash)
	}
	index := blockindex.NewBlockIndex(header, tip)
	index.TxCount = txCount
	c.active = append(c.active, index)
	c.indexMap[index.BlockHash] = index
	log.Print("chain", "debug", "connected tip %s at height %d", index.BlockHash, index.Height)
	return index, nil
}

// DisconnectTip drops the tip, genesis is never removed.
func (c *Chain) DisconnectTip() (*blockindex.BlockIndex, error) {
	if len(c.active) == 1 {
		return nil, errcode.NewWithDesc(errcode.ErrorBlockNotConnectTip, "cannot disconnect genesis")
	}
	tip := c.Tip()
	c.active = c.active[:len(c.active)-1]
	delete(c.indexMap, tip.BlockHash)
	log.Print("chain", "debug", "disconnected tip %s at height %d", tip.BlockHash, tip.Height)
	return tip, nil
}
