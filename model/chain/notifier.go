package chain

import (
	"fmt"
	"sync"

	"github.com/floweethehub/thehub-sub000/model/block"
	"github.com/floweethehub/thehub-sub000/model/blockindex"
	"github.com/floweethehub/thehub-sub000/model/tx"
)

// NotificationType represents the type of a notification message.
type NotificationType int

// NotificationCallback is used for a caller to provide a callback for
// notifications about mempool and chain events.
type NotificationCallback func(*Notification)

const (
	// NTTxAdded indicates a transaction entered the mempool.
	NTTxAdded NotificationType = iota

	// NTTxRemoved indicates a transaction left the mempool.
	NTTxRemoved

	// NTDoubleSpendFound indicates a conflicting pair of transactions.
	NTDoubleSpendFound

	// NTDoubleSpendProofFound indicates a proof attached to a mempool transaction.
	NTDoubleSpendProofFound

	NTBlockConnected
	NTBlockDisconnected
	NTChainTipUpdated
)

var notificationTypeStrings = map[NotificationType]string{
	NTTxAdded:               "NTTxAdded",
	NTTxRemoved:             "NTTxRemoved",
	NTDoubleSpendFound:      "NTDoubleSpendFound",
	NTDoubleSpendProofFound: "NTDoubleSpendProofFound",
	NTBlockConnected:        "NTBlockConnected",
	NTBlockDisconnected:     "NTBlockDisconnected",
	NTChainTipUpdated:       "NTChainTipUpdated",
}

func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Notification Type (%d)", int(n))
}

// RemovalReason tells why a transaction left the mempool.
type RemovalReason int

const (
	ReasonUnknown RemovalReason = iota
	ReasonExpiry
	ReasonSizeLimit
	ReasonReorg
	ReasonBlock
	ReasonConflict
	ReasonReplaced
)

var removalReasonStrings = [...]string{"unknown", "expiry", "sizelimit", "reorg", "block", "conflict", "replaced"}

func (r RemovalReason) String() string {
	if r < 0 || int(r) >= len(removalReasonStrings) {
		return fmt.Sprintf("reason(%d)", int(r))
	}
	return removalReasonStrings[r]
}

// TxRemovedData is the payload of NTTxRemoved.
type TxRemovedData struct {
	Tx     *tx.Tx
	Reason RemovalReason
}

// DoubleSpendData is the payload of NTDoubleSpendFound.
type DoubleSpendData struct {
	First  *tx.Tx
	Second *tx.Tx
}

// DoubleSpendProofData is the payload of NTDoubleSpendProofFound. Proof is
// the serialized proof so listeners need not depend on the proof package.
type DoubleSpendProofData struct {
	Tx      *tx.Tx
	ProofID int
	Proof   []byte
}

// BlockData is the payload of the block notifications.
type BlockData struct {
	Block *block.Block
	Index *blockindex.BlockIndex
}

// Notification carries a type and its payload:
//   - NTTxAdded:               *tx.Tx
//   - NTTxRemoved:             *TxRemovedData
//   - NTDoubleSpendFound:      *DoubleSpendData
//   - NTDoubleSpendProofFound: *DoubleSpendProofData
//   - NTBlockConnected:        *BlockData
//   - NTBlockDisconnected:     *BlockData
//   - NTChainTipUpdated:       *blockindex.BlockIndex
type Notification struct {
	Type NotificationType
	Data interface{}
}

// Notifier fans notifications out to every subscriber, synchronously and in
// subscription order. Between Hold and the matching Release notifications
// are queued, so code holding the chain or pool locks never calls a
// subscriber.
type Notifier struct {
	notificationsLock sync.RWMutex
	notifications     []NotificationCallback

	queueLock sync.Mutex
	holds     int
	queued    []Notification
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) Subscribe(callback NotificationCallback) {
	n.notificationsLock.Lock()
	n.notifications = append(n.notifications, callback)
	n.notificationsLock.Unlock()
}

func (n *Notifier) SendNotification(typ NotificationType, data interface{}) {
	if n == nil {
		return
	}
	notification := Notification{Type: typ, Data: data}
	n.queueLock.Lock()
	if n.holds > 0 {
		n.queued = append(n.queued, notification)
		n.queueLock.Unlock()
		return
	}
	n.queueLock.Unlock()
	n.dispatch(&notification)
}

func (n *Notifier) dispatch(notification *Notification) {
	n.notificationsLock.RLock()
	callbacks := n.notifications
	n.notificationsLock.RUnlock()
	for _, callback := range callbacks {
		callback(notification)
	}
}

// Hold starts queueing notifications. Holds nest.
func (n *Notifier) Hold() {
	if n == nil {
		return
	}
	n.queueLock.Lock()
	n.holds++
	n.queueLock.Unlock()
}

// Release ends a Hold. The last Release sends everything queued, in order,
// and must be called with no chain or pool lock held.
func (n *Notifier) Release() {
	if n == nil {
		return
	}
	n.queueLock.Lock()
	n.holds--
	if n.holds > 0 {
		n.queueLock.Unlock()
		return
	}
	queued := n.queued
	n.queued = nil
	n.queueLock.Unlock()
	for i := range queued {
		n.dispatch(&queued[i])
	}
}

func (n *Notifier) SyncTransaction(txn *tx.Tx) {
	n.SendNotification(NTTxAdded, txn)
}

func (n *Notifier) TransactionRemoved(txn *tx.Tx, reason RemovalReason) {
	n.SendNotification(NTTxRemoved, &TxRemovedData{Tx: txn, Reason: reason})
}

func (n *Notifier) DoubleSpendFound(first, second *tx.Tx) {
	n.SendNotification(NTDoubleSpendFound, &DoubleSpendData{First: first, Second: second})
}

func (n *Notifier) DoubleSpendProofFound(txn *tx.Tx, proofID int, proof []byte) {
	n.SendNotification(NTDoubleSpendProofFound, &DoubleSpendProofData{Tx: txn, ProofID: proofID, Proof: proof})
}

func (n *Notifier) BlockConnected(blk *block.Block, index *blockindex.BlockIndex) {
	n.SendNotification(NTBlockConnected, &BlockData{Block: blk, Index: index})
}

func (n *Notifier) BlockDisconnected(blk *block.Block, index *blockindex.BlockIndex) {
	n.SendNotification(NTBlockDisconnected, &BlockData{Block: blk, Index: index})
}

func (n *Notifier) UpdatedChainTip(index *blockindex.BlockIndex) {
	n.SendNotification(NTChainTipUpdated, index)
}
