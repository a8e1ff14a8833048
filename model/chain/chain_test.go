package chain

import (
	"testing"

	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/model/block"
	"github.com/floweethehub/thehub-sub000/model/blockindex"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genesisHeader() *block.BlockHeader {
	return &block.BlockHeader{Version: 1, Time: 1231006505, Bits: 0x207fffff}
}

func nextHeader(c *Chain, nonce uint32) *block.BlockHeader {
	return &block.BlockHeader{
		Version:       4,
		HashPrevBlock: c.Tip().BlockHash,
		Time:          uint32(c.Tip().GetBlockTime()) + 600,
		Bits:          0x207fffff,
		Nonce:         nonce,
	}
}

func TestChainConnectDisconnect(t *testing.T) {
	c := NewChain(genesisHeader(), NewNotifier())
	genesis := c.Tip()
	assert.Equal(t, int32(0), c.TipHeight())
	assert.True(t, c.Contains(genesis.BlockHash))

	first, err := c.ConnectTip(nextHeader(c, 1), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), c.TipHeight())
	assert.Equal(t, first, c.FindBlockIndex(first.BlockHash))
	assert.Equal(t, genesis, c.GetIndex(0))

	orphan := &block.BlockHeader{HashPrevBlock: util.DoubleSha256Hash([]byte("nowhere")), Bits: 1}
	_, err = c.ConnectTip(orphan, 0)
	assert.True(t, errcode.IsErrorCode(err, errcode.ErrorBlockNotConnectTip))

	removed, err := c.DisconnectTip()
	require.NoError(t, err)
	assert.Equal(t, first, removed)
	assert.False(t, c.Contains(first.BlockHash))
	assert.Equal(t, genesis, c.Tip())

	_, err = c.DisconnectTip()
	assert.Error(t, err)
}

func TestChainMedianTimePast(t *testing.T) {
	c := NewChain(genesisHeader(), nil)
	for i := 0; i < 3; i++ {
		_, err := c.ConnectTip(nextHeader(c, uint32(i)), 0)
		require.NoError(t, err)
	}
	assert.Equal(t, c.GetIndex(2).GetBlockTime(), c.MedianTimePast())
}

func TestNotifierFanOut(t *testing.T) {
	n := NewNotifier()
	var first, second []NotificationType
	n.Subscribe(func(notification *Notification) { first = append(first, notification.Type) })
	n.Subscribe(func(notification *Notification) { second = append(second, notification.Type) })

	txn := tx.NewTx(0, tx.TxVersion)
	n.SyncTransaction(txn)
	n.TransactionRemoved(txn, ReasonConflict)
	n.DoubleSpendFound(txn, txn)
	n.DoubleSpendProofFound(txn, 3, []byte{1})
	n.UpdatedChainTip(&blockindex.BlockIndex{})

	expected := []NotificationType{NTTxAdded, NTTxRemoved, NTDoubleSpendFound, NTDoubleSpendProofFound, NTChainTipUpdated}
	assert.Equal(t, expected, first)
	assert.Equal(t, expected, second)

	var removed *TxRemovedData
	n2 := NewNotifier()
	n2.Subscribe(func(notification *Notification) { removed = notification.Data.(*TxRemovedData) })
	n2.TransactionRemoved(txn, ReasonSizeLimit)
	require.NotNil(t, removed)
	assert.Equal(t, "sizelimit", removed.Reason.String())
}

func TestNilNotifierIsSilent(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() { n.SyncTransaction(tx.NewTx(0, 1)) })
	assert.Equal(t, "NTBlockConnected", NTBlockConnected.String())
	assert.Contains(t, NotificationType(99).String(), "Unknown")
}

func TestNotifierHoldQueuesUntilLastRelease(t *testing.T) {
	n := NewNotifier()
	var got []NotificationType
	n.Subscribe(func(notification *Notification) { got = append(got, notification.Type) })

	txn := tx.NewTx(0, tx.TxVersion)
	n.Hold()
	n.SyncTransaction(txn)
	n.Hold()
	n.TransactionRemoved(txn, ReasonBlock)
	n.Release()
	assert.Empty(t, got)

	n.UpdatedChainTip(&blockindex.BlockIndex{})
	n.Release()
	assert.Equal(t, []NotificationType{NTTxAdded, NTTxRemoved, NTChainTipUpdated}, got)

	n.SyncTransaction(txn)
	assert.Len(t, got, 4)

	var nilNotifier *Notifier
	assert.NotPanics(t, func() {
		nilNotifier.Hold()
		nilNotifier.Release()
	})
}

func TestNotifierSubscriberMaySend(t *testing.T) {
	n := NewNotifier()
	var got []NotificationType
	n.Subscribe(func(notification *Notification) {
		got = append(got, notification.Type)
		if notification.Type == NTTxAdded {
			n.UpdatedChainTip(&blockindex.BlockIndex{})
		}
	})
	n.Hold()
	n.SyncTransaction(tx.NewTx(0, tx.TxVersion))
	n.Release()
	assert.Equal(t, []NotificationType{NTTxAdded, NTChainTipUpdated}, got)
}
