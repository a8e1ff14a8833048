package service

import (
	"github.com/floweethehub/thehub-sub000/model/block"
	"github.com/floweethehub/thehub-sub000/util"
)

var genesisMerkleRoot = mustHash("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b")

func mustHash(s string) util.Hash {
	h, err := util.HashFromString(s)
	if err != nil {
		panic(err)
	}
	return *h
}

// GenesisHeader returns the first header of the main network, or of
// regtest.
func GenesisHeader(regTest bool) *block.BlockHeader {
	header := &block.BlockHeader{
		Version:    1,
		MerkleRoot: genesisMerkleRoot,
		Time:       1231006505,
		Bits:       0x1d00ffff,
		Nonce:      2083236893,
	}
	if regTest {
		header.Time = 1296688602
		header.Bits = 0x207fffff
		header.Nonce = 2
	}
	return header
}
