package txin

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"

	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/util"
)

type TxIn struct {
	PreviousOutPoint *outpoint.OutPoint
	scriptSig        *script.Script
	Sequence         uint32
}

func NewTxIn(previousOutPoint *outpoint.OutPoint, scriptSig *script.Script, sequence uint32) *TxIn {
	txIn := TxIn{PreviousOutPoint: previousOutPoint, scriptSig: scriptSig, Sequence: sequence}
	if txIn.PreviousOutPoint == nil {
		txIn.PreviousOutPoint = outpoint.NewOutPoint(util.Hash{}, math.MaxUint32)
	}
	if txIn.scriptSig == nil {
		txIn.scriptSig = script.NewEmptyScript()
	}
	return &txIn
}

func (txIn *TxIn) SerializeSize() int {
	// previousOutPoint + scriptSig + Sequence 4 bytes
	return outpoint.SerializeSize + txIn.scriptSig.SerializeSize() + 4
}

func (txIn *TxIn) Serialize(writer io.Writer) error {
	if err := txIn.PreviousOutPoint.Serialize(writer); err != nil {
		return err
	}
	if err := txIn.scriptSig.Serialize(writer); err != nil {
		return err
	}
	return util.BinarySerializer.PutUint32(writer, binary.LittleEndian, txIn.Sequence)
}

func (txIn *TxIn) Unserialize(reader io.Reader) error {
	txIn.PreviousOutPoint = new(outpoint.OutPoint)
	if err := txIn.PreviousOutPoint.Unserialize(reader); err != nil {
		return err
	}
	scriptSig := script.NewEmptyScript()
	if err := scriptSig.Unserialize(reader); err != nil {
		return err
	}
	txIn.scriptSig = scriptSig
	seq, err := util.BinarySerializer.Uint32(reader, binary.LittleEndian)
	txIn.Sequence = seq
	return err
}

func (txIn *TxIn) GetScriptSig() *script.Script {
	return txIn.scriptSig
}

func (txIn *TxIn) SetScriptSig(scriptSig *script.Script) {
	txIn.scriptSig = scriptSig
}

func (txIn *TxIn) String() string {
	return fmt.Sprintf("PreviousOutPoint: %s , script:%s , Sequence:%d ", txIn.PreviousOutPoint.String(),
		hex.EncodeToString(txIn.scriptSig.Bytes()), txIn.Sequence)
}
