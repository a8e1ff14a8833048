package lchain

import (
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/util"
)

// BlockMerkleRoot computes the merkle root of the transactions in txs.
// mutated is set when a level ends in two identical hashes, the
// duplication that lets two different transaction lists share a root.
func BlockMerkleRoot(txs []*tx.Tx) (root util.Hash, mutated bool) {
	if len(txs) == 0 {
		return util.HashZero, false
	}
	level := make([]util.Hash, len(txs))
	for i, txn := range txs {
		level[i] = txn.GetHash()
	}

	buf := make([]byte, 2*util.Hash256Size)
	for len(level) > 1 {
		next := make([]util.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			j := i + 1
			if j == len(level) {
				// odd levels pair the last hash with itself
				j = i
			} else if j+1 == len(level) && level[i] == level[j] {
				mutated = true
			}
			copy(buf, level[i][:])
			copy(buf[util.Hash256Size:], level[j][:])
			next = append(next, util.DoubleSha256Hash(buf))
		}
		level = next
	}
	return level[0], mutated
}
