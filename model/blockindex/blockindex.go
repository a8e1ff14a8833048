package blockindex

import (
	"fmt"
	"sort"

	"github.com/floweethehub/thehub-sub000/model/block"
	"github.com/floweethehub/thehub-sub000/util"
)

const medianTimeSpan = 11

// BlockIndex is a node of the active chain.
type BlockIndex struct {
	Header    block.BlockHeader
	BlockHash util.Hash
	Prev      *BlockIndex
	// genesis has height 0
	Height  int32
	TxCount int
}

func NewBlockIndex(header *block.BlockHeader, prev *BlockIndex) *BlockIndex {
	index := &BlockIndex{Header: *header, BlockHash: header.GetHash(), Prev: prev}
	if prev != nil {
		index.Height = prev.Height + 1
	}
	return index
}

func (bIndex *BlockIndex) GetBlockHash() *util.Hash {
	return &bIndex.BlockHash
}

func (bIndex *BlockIndex) GetBlockTime() int64 {
	return int64(bIndex.Header.Time)
}

// GetMedianTimePast returns the median time of the last eleven blocks
// ending at this one.
func (bIndex *BlockIndex) GetMedianTimePast() int64 {
	times := make([]int64, 0, medianTimeSpan)
	for index := bIndex; index != nil && len(times) < medianTimeSpan; index = index.Prev {
		times = append(times, index.GetBlockTime())
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times[len(times)/2]
}

// GetAncestor walks back to the given height, nil when out of range.
func (bIndex *BlockIndex) GetAncestor(height int32) *BlockIndex {
	if height > bIndex.Height || height < 0 {
		return nil
	}
	index := bIndex
	for index != nil && index.Height > height {
		index = index.Prev
	}
	return index
}

func (bIndex *BlockIndex) String() string {
	return fmt.Sprintf("BlockIndex(height=%d, hash=%s)", bIndex.Height, bIndex.BlockHash)
}
