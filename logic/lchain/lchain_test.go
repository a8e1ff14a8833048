package lchain

import (
	"crypto/sha256"
	"fmt"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floweethehub/thehub-sub000/crypto"
	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/logic/lmempool"
	"github.com/floweethehub/thehub-sub000/model/block"
	"github.com/floweethehub/thehub-sub000/model/chain"
	"github.com/floweethehub/thehub-sub000/model/dsproof"
	"github.com/floweethehub/thehub-sub000/model/mempool"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/model/txin"
	"github.com/floweethehub/thehub-sub000/model/txout"
	"github.com/floweethehub/thehub-sub000/model/undo"
	"github.com/floweethehub/thehub-sub000/model/utxo"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/floweethehub/thehub-sub000/util/amount"
)

const coinValue = amount.Amount(100000)

type harness struct {
	chain     *chain.Chain
	coins     *utxo.CoinsMap
	pool      *mempool.TxMempool
	proofs    *dsproof.Storage
	acceptor  *lmempool.TxAcceptor
	connector *BlockConnector
	key       *crypto.PrivateKey
	notes     []*chain.Notification
}

func newHarness(t *testing.T) *harness {
	seed := sha256.Sum256([]byte("miner"))
	h := &harness{key: crypto.PrivateKeyFromBytes(seed[:], true), coins: utxo.NewEmptyCoinsMap()}
	notifier := chain.NewNotifier()
	notifier.Subscribe(func(n *chain.Notification) {
		h.notes = append(h.notes, n)
	})
	h.chain = chain.NewChain(&block.BlockHeader{Version: 1, Time: 1231006505, Bits: 0x207fffff}, notifier)
	for i := 0; i < 10; i++ {
		_, err := h.chain.ConnectTip(&block.BlockHeader{
			Version:       4,
			HashPrevBlock: h.chain.Tip().BlockHash,
			Time:          uint32(h.chain.Tip().GetBlockTime()) + 600,
			Nonce:         uint32(i),
		}, 1)
		require.NoError(t, err)
	}
	testClock := clock.NewTestClock(time.Date(2020, 11, 15, 12, 0, 0, 0, time.UTC))
	h.pool = mempool.NewTxMempool(mempool.Config{CheckFrequency: 1, Clock: testClock, Notifier: notifier})
	h.proofs = dsproof.NewStorage(dsproof.StorageConfig{Clock: testClock})
	h.acceptor = lmempool.NewTxAcceptor(lmempool.Config{
		Chain:  h.chain,
		Pool:   h.pool,
		Proofs: h.proofs,
		Coins:  h.coins,
	})
	h.connector = NewBlockConnector(Config{Acceptor: h.acceptor, Coins: h.coins})
	return h
}

func (h *harness) lockScript() *script.Script {
	return script.NewP2PKHScript(util.Hash160(h.key.PubKey().ToBytes()))
}

func (h *harness) fund(seed string) *outpoint.OutPoint {
	point := outpoint.NewOutPoint(util.DoubleSha256Hash([]byte(seed)), 0)
	h.coins.AddCoin(point, utxo.NewCoin(txout.NewTxOut(coinValue, h.lockScript()), 5, false), false)
	return point
}

// spend moves point, worth value, back to the harness key minus fee.
func (h *harness) spend(t *testing.T, point *outpoint.OutPoint, value, fee amount.Amount) *tx.Tx {
	txn := tx.NewTx(0, tx.TxVersion)
	txn.AddTxIn(txin.NewTxIn(point, nil, script.SequenceFinal))
	txn.AddTxOut(txout.NewTxOut(value-fee, h.lockScript()))
	require.NoError(t, tx.SignP2PKH(txn, 0, h.key, value, crypto.SigHashAll|crypto.SigHashForkID, false))
	return txn
}

func (h *harness) block(txs ...*tx.Tx) *block.Block {
	tip := h.chain.Tip()
	coinbase := tx.NewTx(0, 1)
	coinbase.AddTxIn(txin.NewTxIn(outpoint.NewOutPoint(util.HashZero, 0xffffffff),
		script.NewScriptRaw([]byte{2, byte(tip.Height + 1), 0}), script.SequenceFinal))
	coinbase.AddTxOut(txout.NewTxOut(5000000000, h.lockScript()))

	blk := block.NewBlock()
	blk.Txs = append([]*tx.Tx{coinbase}, txs...)
	blk.Header = block.BlockHeader{
		Version:       4,
		HashPrevBlock: tip.BlockHash,
		Time:          uint32(tip.GetBlockTime()) + 600,
		Bits:          0x207fffff,
	}
	blk.Header.MerkleRoot, _ = BlockMerkleRoot(blk.Txs)
	return blk
}

func (h *harness) removals() map[util.Hash]chain.RemovalReason {
	ret := make(map[util.Hash]chain.RemovalReason)
	for _, n := range h.notes {
		if n.Type == chain.NTTxRemoved {
			data := n.Data.(*chain.TxRemovedData)
			ret[data.Tx.GetHash()] = data.Reason
		}
	}
	return ret
}

func (h *harness) count(typ chain.NotificationType) int {
	n := 0
	for _, note := range h.notes {
		if note.Type == typ {
			n++
		}
	}
	return n
}

func TestConnectBlockRemovesMinedTx(t *testing.T) {
	h := newHarness(t)
	mined := h.spend(t, h.fund("x"), coinValue, 1000)
	require.Equal(t, lmempool.StatusAccepted, h.acceptor.AcceptTx(mined).Status)

	blk := h.block(mined)
	index, blockUndo, err := h.connector.ConnectBlock(blk)
	require.NoError(t, err)
	assert.Equal(t, int32(11), index.Height)
	assert.Equal(t, index, h.chain.Tip())
	assert.Equal(t, 2, index.TxCount)

	assert.Equal(t, 0, h.pool.Size())
	assert.Equal(t, chain.ReasonBlock, h.removals()[mined.GetHash()])
	assert.Nil(t, h.coins.GetCoin(mined.GetIns()[0].PreviousOutPoint))
	coin := h.coins.GetCoin(outpoint.NewOutPoint(mined.GetHash(), 0))
	require.NotNil(t, coin)
	assert.Equal(t, int32(11), coin.GetHeight())
	cb := h.coins.GetCoin(outpoint.NewOutPoint(blk.Txs[0].GetHash(), 0))
	require.NotNil(t, cb)
	assert.True(t, cb.IsCoinBase())

	require.Len(t, blockUndo.GetTxundo(), 1)
	require.Len(t, blockUndo.GetTxundo()[0].GetUndoCoins(), 1)
	assert.Equal(t, coinValue, blockUndo.GetTxundo()[0].GetUndoCoins()[0].GetAmount())

	assert.Equal(t, 1, h.count(chain.NTBlockConnected))
	assert.Equal(t, 1, h.count(chain.NTChainTipUpdated))
}

func TestConnectBlockEvictsConflicts(t *testing.T) {
	h := newHarness(t)
	point := h.fund("x")
	first := h.spend(t, point, coinValue, 1000)
	second := h.spend(t, point, coinValue, 2000)
	other := h.spend(t, h.fund("y"), coinValue, 1000)
	require.Equal(t, lmempool.StatusAccepted, h.acceptor.AcceptTx(first).Status)
	require.Equal(t, lmempool.StatusAccepted, h.acceptor.AcceptTx(other).Status)
	require.Equal(t, lmempool.StatusDoubleSpend, h.acceptor.AcceptTx(second).Status)
	require.Equal(t, 1, h.proofs.Size())

	rejected := util.DoubleSha256Hash([]byte("bad proof"))
	h.proofs.MarkProofRejected(rejected)

	_, _, err := h.connector.ConnectBlock(h.block(second))
	require.NoError(t, err)

	assert.Nil(t, h.pool.FindTx(first.GetHash()))
	assert.NotNil(t, h.pool.FindTx(other.GetHash()))
	assert.Nil(t, h.pool.FindTx(second.GetHash()))
	assert.Equal(t, chain.ReasonConflict, h.removals()[first.GetHash()])
	// the proof went with the transaction it was attached to
	assert.Equal(t, 0, h.proofs.Size())
	assert.False(t, h.proofs.IsRecentlyRejectedProof(rejected))
}

func TestConnectBlockDropsMinedOrphans(t *testing.T) {
	h := newHarness(t)
	point := h.fund("x")
	mined := h.spend(t, point, coinValue, 1000)
	other := h.spend(t, point, coinValue, 2000)
	proof, err := dsproof.Create(mined, other)
	require.NoError(t, err)
	id, isNew := h.proofs.AddOrphan(proof, 7)
	require.True(t, isNew)
	unrelated := h.spend(t, h.fund("y"), coinValue, 1000)
	keep, err := dsproof.Create(unrelated, h.spend(t, unrelated.GetIns()[0].PreviousOutPoint, coinValue, 2000))
	require.NoError(t, err)
	keepID, _ := h.proofs.AddOrphan(keep, 8)

	_, _, err = h.connector.ConnectBlock(h.block(mined))
	require.NoError(t, err)
	assert.Nil(t, h.proofs.Lookup(id))
	assert.True(t, h.proofs.IsOrphan(keepID))
	assert.Equal(t, 1, h.proofs.OrphanCount())
}

func TestConnectBlockRejects(t *testing.T) {
	h := newHarness(t)
	point := h.fund("x")
	valid := h.spend(t, point, coinValue, 1000)
	child := h.spend(t, outpoint.NewOutPoint(valid.GetHash(), 0), coinValue-1000, 1000)

	orphanBlock := h.block(valid)
	orphanBlock.Header.HashPrevBlock = util.DoubleSha256Hash([]byte("elsewhere"))
	noCoinbase := h.block(valid)
	noCoinbase.Txs = noCoinbase.Txs[1:]
	noCoinbase.Header.MerkleRoot, _ = BlockMerkleRoot(noCoinbase.Txs)
	badRoot := h.block(valid)
	badRoot.Header.MerkleRoot = util.HashZero
	unsorted := h.block(child, valid)
	duplicate := h.block(valid, h.spend(t, point, coinValue, 2000))

	tests := []struct {
		name string
		blk  *block.Block
		code fmt.Stringer
	}{
		{"not on tip", orphanBlock, errcode.ErrorBlockNotConnectTip},
		{"no coinbase", noCoinbase, errcode.TxErrMalformed},
		{"bad merkle root", badRoot, errcode.TxErrMalformed},
		{"children first", unsorted, errcode.TxErrMalformed},
		{"missing coin", h.block(h.spend(t, h.fundless(), coinValue, 1000)), errcode.ErrorMissingCoin},
		{"double spend", duplicate, errcode.ErrorCoinAlreadySpent},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			index, blockUndo, err := h.connector.ConnectBlock(test.blk)
			require.Error(t, err)
			assert.True(t, errcode.IsErrorCode(err, test.code), "%v", err)
			assert.Nil(t, index)
			assert.Nil(t, blockUndo)
			assert.Equal(t, int32(10), h.chain.TipHeight())
			assert.Equal(t, 1, h.coins.Len())
			assert.NotNil(t, h.coins.GetCoin(point))
		})
	}
	assert.Zero(t, h.count(chain.NTBlockConnected))
}

// fundless is an outpoint nobody funded.
func (h *harness) fundless() *outpoint.OutPoint {
	return outpoint.NewOutPoint(util.DoubleSha256Hash([]byte("nowhere")), 3)
}

func TestDisconnectBlock(t *testing.T) {
	h := newHarness(t)
	point := h.fund("x")
	parent := h.spend(t, point, coinValue, 1000)
	child := h.spend(t, outpoint.NewOutPoint(parent.GetHash(), 0), coinValue-1000, 1000)
	blk := h.block(parent, child)
	_, blockUndo, err := h.connector.ConnectBlock(blk)
	require.NoError(t, err)

	// spends the confirmed child, must stay linked once the block is undone
	grandChild := h.spend(t, outpoint.NewOutPoint(child.GetHash(), 0), coinValue-2000, 1000)
	require.Equal(t, lmempool.StatusAccepted, h.acceptor.AcceptTx(grandChild).Status)

	index, err := h.connector.DisconnectBlock(blk, blockUndo)
	require.NoError(t, err)
	assert.Equal(t, blk.GetHash(), index.BlockHash)
	assert.Equal(t, int32(10), h.chain.TipHeight())
	assert.False(t, h.chain.Contains(blk.GetHash()))

	restored := h.coins.GetCoin(point)
	require.NotNil(t, restored)
	assert.Equal(t, int32(5), restored.GetHeight())
	assert.Nil(t, h.coins.GetCoin(outpoint.NewOutPoint(parent.GetHash(), 0)))
	assert.Nil(t, h.coins.GetCoin(outpoint.NewOutPoint(blk.Txs[0].GetHash(), 0)))

	assert.Equal(t, 3, h.pool.Size())
	childEntry := h.pool.FindTx(child.GetHash())
	grandEntry := h.pool.FindTx(grandChild.GetHash())
	require.NotNil(t, childEntry)
	require.NotNil(t, grandEntry)
	assert.Contains(t, grandEntry.ParentTx, childEntry)
	assert.Equal(t, int64(3), grandEntry.SumTxCountWithAncestors)
	assert.Equal(t, int64(3), h.pool.FindTx(parent.GetHash()).SumTxCountWithDescendants)

	assert.Equal(t, 1, h.count(chain.NTBlockDisconnected))
	assert.Equal(t, 2, h.count(chain.NTChainTipUpdated))

	// and forward again
	_, _, err = h.connector.ConnectBlock(blk)
	require.NoError(t, err)
	assert.Equal(t, 1, h.pool.Size())
	assert.NotNil(t, h.pool.FindTx(grandChild.GetHash()))
}

func TestDisconnectBlockRejects(t *testing.T) {
	h := newHarness(t)
	blk := h.block(h.spend(t, h.fund("x"), coinValue, 1000))
	_, blockUndo, err := h.connector.ConnectBlock(blk)
	require.NoError(t, err)

	stale := h.block()
	_, err = h.connector.DisconnectBlock(stale, undo.NewBlockUndo(0))
	assert.True(t, errcode.IsErrorCode(err, errcode.ErrorBlockNotConnectTip), "%v", err)

	_, err = h.connector.DisconnectBlock(blk, undo.NewBlockUndo(0))
	assert.True(t, errcode.IsErrorCode(err, errcode.ErrorMissingUndo), "%v", err)
	assert.Equal(t, int32(11), h.chain.TipHeight())

	_, err = h.connector.DisconnectBlock(blk, blockUndo)
	assert.NoError(t, err)
}

func TestBlockMerkleRoot(t *testing.T) {
	h := newHarness(t)
	a := h.spend(t, h.fund("a"), coinValue, 1000)
	b := h.spend(t, h.fund("b"), coinValue, 1000)
	c := h.spend(t, h.fund("c"), coinValue, 1000)

	root, mutated := BlockMerkleRoot(nil)
	assert.Equal(t, util.HashZero, root)
	assert.False(t, mutated)

	root, mutated = BlockMerkleRoot([]*tx.Tx{a})
	assert.Equal(t, a.GetHash(), root)
	assert.False(t, mutated)

	ha, hb := a.GetHash(), b.GetHash()
	root, _ = BlockMerkleRoot([]*tx.Tx{a, b})
	assert.Equal(t, util.DoubleSha256Hash(append(ha[:], hb[:]...)), root)

	// repeating the odd last transaction yields the same root
	odd, mutated := BlockMerkleRoot([]*tx.Tx{a, b, c})
	assert.False(t, mutated)
	even, mutated := BlockMerkleRoot([]*tx.Tx{a, b, c, c})
	assert.True(t, mutated)
	assert.Equal(t, odd, even)
}

func TestSubscribersRunWithoutLocks(t *testing.T) {
	h := newHarness(t)
	var heights []int32
	h.chain.Notifier().Subscribe(func(n *chain.Notification) {
		h.chain.Lock()
		heights = append(heights, h.chain.TipHeight())
		h.chain.Unlock()
		h.pool.Size()
	})

	point := h.fund("x")
	mined := h.spend(t, point, coinValue, 1000)
	conflict := h.spend(t, point, coinValue, 2000)
	child := h.spend(t, h.fund("y"), coinValue, 1000)
	require.Equal(t, lmempool.StatusAccepted, h.acceptor.AcceptTx(conflict).Status)
	require.Equal(t, lmempool.StatusAccepted, h.acceptor.AcceptTx(child).Status)
	blk := h.block(mined)

	var blockUndo *undo.BlockUndo
	done := make(chan error, 1)
	go func() {
		var err error
		_, blockUndo, err = h.connector.ConnectBlock(blk)
		if err == nil {
			_, err = h.connector.DisconnectBlock(blk, blockUndo)
		}
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("block connector blocked on a subscriber")
	}

	assert.Equal(t, chain.ReasonConflict, h.removals()[conflict.GetHash()])
	assert.True(t, h.pool.HasTx(mined.GetHash()))
	assert.True(t, h.pool.HasTx(child.GetHash()))
	assert.Contains(t, heights, int32(11))
	assert.Equal(t, int32(10), heights[len(heights)-1])
}
