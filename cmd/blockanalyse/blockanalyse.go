// Command blockanalyse reads a hex encoded block from a file and reports
// whether the block connector would accept its layout.
package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/floweethehub/thehub-sub000/logic/lchain"
	"github.com/floweethehub/thehub-sub000/logic/lmempool"
	"github.com/floweethehub/thehub-sub000/model/block"
	"github.com/floweethehub/thehub-sub000/model/tx"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: blockanalyse <hex block file>")
		os.Exit(2)
	}
	pblock, size, err := readBlock(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	inputs, outputs := getBlockInputsOutputs(pblock)
	blockHash := pblock.GetHash()
	fmt.Printf("blockhash: %s, block size: %d bytes, inputs: %d, outputs: %d, tx count: %d\n",
		blockHash, size, inputs, outputs, len(pblock.Txs))

	root, mutated := lchain.BlockMerkleRoot(pblock.Txs)
	fmt.Printf("merkle root matches: %v, mutated: %v, parents first: %v\n",
		root == pblock.Header.MerkleRoot, mutated, lmempool.IsTTORSorted(pblock.Txs))
}

func readBlock(path string) (*block.Block, int, error) {
	srcBuf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, 0, errors.Wrap(err, "read block file")
	}
	raw, err := hex.DecodeString(strings.TrimSpace(string(srcBuf)))
	if err != nil {
		return nil, 0, errors.Wrap(err, "decode block")
	}
	pblock := block.NewBlock()
	if err := pblock.Unserialize(bytes.NewReader(raw)); err != nil {
		return nil, 0, errors.Wrap(err, "unserialize block")
	}
	return pblock, len(raw), nil
}

func getBlockInputsOutputs(pblock *block.Block) (inputs, outputs int) {
	for _, ptx := range pblock.Txs {
		tempInputs, tempOutputs := getTxInputsOutputs(ptx)
		inputs += tempInputs
		outputs += tempOutputs
	}
	return
}

func getTxInputsOutputs(txn *tx.Tx) (inputs int, outputs int) {
	return len(txn.GetIns()), len(txn.GetOuts())
}
