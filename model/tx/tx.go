package tx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/model/txin"
	"github.com/floweethehub/thehub-sub000/model/txout"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/floweethehub/thehub-sub000/util/amount"
)

const (
	DefaultVersion    = 0x01
	TxVersion         = 2
	MaxMessagePayload = 32 * 1024 * 1024
	MinTxInPayload    = 9 + util.Hash256Size
	MaxTxInPerMessage = (MaxMessagePayload / MinTxInPayload) + 1

	// MaxTxSize is the consensus limit on a serialized transaction.
	MaxTxSize = 1000000
)

type Tx struct {
	hash     util.Hash
	lockTime uint32
	version  int32
	ins      []*txin.TxIn
	outs     []*txout.TxOut
}

func NewTx(locktime uint32, version int32) *Tx {
	tx := &Tx{lockTime: locktime, version: version}
	tx.ins = make([]*txin.TxIn, 0)
	tx.outs = make([]*txout.TxOut, 0)
	return tx
}

func NewEmptyTx() *Tx {
	return &Tx{}
}

func (tx *Tx) AddTxIn(txIn *txin.TxIn) {
	tx.ins = append(tx.ins, txIn)
	tx.hash = util.HashZero
}

func (tx *Tx) AddTxOut(txOut *txout.TxOut) {
	tx.outs = append(tx.outs, txOut)
	tx.hash = util.HashZero
}

// UpdateInScript replaces the scriptSig of input i, used while signing.
func (tx *Tx) UpdateInScript(i int, scriptSig *script.Script) error {
	if i < 0 || i >= len(tx.ins) {
		return fmt.Errorf("input index %d out of range", i)
	}
	tx.ins[i].SetScriptSig(scriptSig)
	tx.hash = util.HashZero
	return nil
}

func (tx *Tx) GetTxOut(index int) *txout.TxOut {
	if index < 0 || index >= len(tx.outs) {
		return nil
	}
	return tx.outs[index]
}

func (tx *Tx) GetTxIn(index int) *txin.TxIn {
	if index < 0 || index >= len(tx.ins) {
		return nil
	}
	return tx.ins[index]
}

func (tx *Tx) GetIns() []*txin.TxIn {
	return tx.ins
}

func (tx *Tx) GetOuts() []*txout.TxOut {
	return tx.outs
}

func (tx *Tx) GetInsCount() int {
	return len(tx.ins)
}

func (tx *Tx) GetOutsCount() int {
	return len(tx.outs)
}

func (tx *Tx) GetLockTime() uint32 {
	return tx.lockTime
}

func (tx *Tx) GetVersion() int32 {
	return tx.version
}

func (tx *Tx) GetAllPreviousOut() []outpoint.OutPoint {
	outs := make([]outpoint.OutPoint, 0, len(tx.ins))
	for _, in := range tx.ins {
		outs = append(outs, *in.PreviousOutPoint)
	}
	return outs
}

func (tx *Tx) PrevoutHashs() []util.Hash {
	outs := make([]util.Hash, 0, len(tx.ins))
	for _, in := range tx.ins {
		outs = append(outs, in.PreviousOutPoint.Hash)
	}
	return outs
}

// AnyInputTxIn reports whether tx spends an output of any transaction in container.
func (tx *Tx) AnyInputTxIn(container map[util.Hash]struct{}) bool {
	for _, in := range tx.ins {
		if _, exists := container[in.PreviousOutPoint.Hash]; exists {
			return true
		}
	}
	return false
}

func (tx *Tx) SerializeSize() int {
	// Version 4 bytes + LockTime 4 bytes + varint counts
	n := 8 + util.VarIntSerializeSize(uint64(len(tx.ins))) + util.VarIntSerializeSize(uint64(len(tx.outs)))
	for _, txIn := range tx.ins {
		n += txIn.SerializeSize()
	}
	for _, txOut := range tx.outs {
		n += txOut.SerializeSize()
	}
	return n
}

func (tx *Tx) Serialize(writer io.Writer) error {
	err := util.BinarySerializer.PutUint32(writer, binary.LittleEndian, uint32(tx.version))
	if err != nil {
		return err
	}
	if err = util.WriteVarInt(writer, uint64(len(tx.ins))); err != nil {
		return err
	}
	for _, txIn := range tx.ins {
		if err = txIn.Serialize(writer); err != nil {
			return err
		}
	}
	if err = util.WriteVarInt(writer, uint64(len(tx.outs))); err != nil {
		return err
	}
	for _, txOut := range tx.outs {
		if err = txOut.Serialize(writer); err != nil {
			return err
		}
	}
	return util.BinarySerializer.PutUint32(writer, binary.LittleEndian, tx.lockTime)
}

func (tx *Tx) Unserialize(reader io.Reader) error {
	version, err := util.BinarySerializer.Uint32(reader, binary.LittleEndian)
	if err != nil {
		return err
	}
	count, err := util.ReadVarInt(reader)
	if err != nil {
		return err
	}
	if count > uint64(MaxTxInPerMessage) {
		return fmt.Errorf("too many input txs to fit into max message size [count %d , max %d]",
			count, MaxTxInPerMessage)
	}

	tx.version = int32(version)
	tx.ins = make([]*txin.TxIn, count)
	for i := uint64(0); i < count; i++ {
		txIn := new(txin.TxIn)
		if err = txIn.Unserialize(reader); err != nil {
			return err
		}
		tx.ins[i] = txIn
	}
	if count, err = util.ReadVarInt(reader); err != nil {
		return err
	}
	if count > uint64(MaxMessagePayload/9) {
		return fmt.Errorf("too many outputs %d", count)
	}
	tx.outs = make([]*txout.TxOut, count)
	for i := uint64(0); i < count; i++ {
		txOut := new(txout.TxOut)
		if err = txOut.Unserialize(reader); err != nil {
			return err
		}
		tx.outs[i] = txOut
	}

	tx.lockTime, err = util.BinarySerializer.Uint32(reader, binary.LittleEndian)
	tx.hash = util.HashZero
	return err
}

func (tx *Tx) GetHash() util.Hash {
	if !tx.hash.IsNull() {
		return tx.hash
	}
	tx.hash = tx.calHash()
	return tx.hash
}

func (tx *Tx) calHash() util.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, tx.SerializeSize()))
	if err := tx.Serialize(buf); err != nil {
		panic("tx encode failed: " + err.Error())
	}
	return util.DoubleSha256Hash(buf.Bytes())
}

func (tx *Tx) IsCoinBase() bool {
	return len(tx.ins) == 1 && tx.ins[0].PreviousOutPoint.IsNull()
}

func (tx *Tx) GetValueOut() amount.Amount {
	var total amount.Amount
	for _, out := range tx.outs {
		total += out.GetValue()
	}
	return total
}

func (tx *Tx) GetSigOpCount() int {
	n := 0
	for _, in := range tx.ins {
		n += in.GetScriptSig().GetSigOpCount()
	}
	for _, out := range tx.outs {
		n += out.GetScriptPubKey().GetSigOpCount()
	}
	return n
}

// CheckRegularTransaction runs the context free checks on a non-coinbase transaction.
func (tx *Tx) CheckRegularTransaction() error {
	if tx.IsCoinBase() {
		return errcode.New(errcode.TxErrCoinBase)
	}
	if len(tx.ins) == 0 {
		return errcode.New(errcode.TxErrEmptyInputs)
	}
	if len(tx.outs) == 0 {
		return errcode.New(errcode.TxErrEmptyOutputs)
	}
	if tx.SerializeSize() > MaxTxSize {
		return errcode.New(errcode.TxErrOverSize)
	}
	var total amount.Amount
	for _, out := range tx.outs {
		if !amount.MoneyRange(out.GetValue()) {
			return errcode.NewWithDesc(errcode.TxErrMalformed, "bad-txns-vout-toolarge")
		}
		total += out.GetValue()
		if !amount.MoneyRange(total) {
			return errcode.NewWithDesc(errcode.TxErrMalformed, "bad-txns-txouttotal-toolarge")
		}
	}
	seen := make(map[outpoint.OutPoint]struct{}, len(tx.ins))
	for _, in := range tx.ins {
		if in.PreviousOutPoint.IsNull() {
			return errcode.New(errcode.TxErrNoPreviousOut)
		}
		if _, ok := seen[*in.PreviousOutPoint]; ok {
			return errcode.New(errcode.TxErrDupIns)
		}
		seen[*in.PreviousOutPoint] = struct{}{}
	}
	return nil
}

// IsFinal proceeds as follows
// 1. tx.locktime > 0 and tx.locktime < Threshold, use height to check final (tx.locktime < current height)
// 2. tx.locktime > Threshold, use time to check final (tx.locktime < current blocktime)
// 3. sequence can disable it(sequence == sequencefinal)
func (tx *Tx) IsFinal(height int32, time int64) bool {
	if tx.lockTime == 0 {
		return true
	}

	var lockTimeLimit int64
	if tx.lockTime < script.LockTimeThreshold {
		lockTimeLimit = int64(height)
	} else {
		lockTimeLimit = time
	}
	if int64(tx.lockTime) < lockTimeLimit {
		return true
	}

	for _, in := range tx.ins {
		if in.Sequence != script.SequenceFinal {
			return false
		}
	}
	return true
}

func (tx *Tx) String() string {
	inStr := "ins:\n"
	for i, in := range tx.ins {
		inStr = fmt.Sprintf("%s  %d , %s\n", inStr, i, in.String())
	}
	outStr := "outs:\n"
	for i, out := range tx.outs {
		outStr = fmt.Sprintf("%s  %d , %s\n", outStr, i, out.String())
	}
	return fmt.Sprintf("hash: %s version: %d lockTime: %d\n%s%s", tx.GetHash(), tx.version, tx.lockTime, inStr, outStr)
}
