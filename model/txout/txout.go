package txout

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/floweethehub/thehub-sub000/util/amount"
)

type TxOut struct {
	value        amount.Amount
	scriptPubKey *script.Script
}

func NewTxOut(value amount.Amount, scriptPubKey *script.Script) *TxOut {
	if scriptPubKey == nil {
		scriptPubKey = script.NewEmptyScript()
	}
	return &TxOut{value: value, scriptPubKey: scriptPubKey}
}

func (txOut *TxOut) SerializeSize() int {
	return 8 + txOut.scriptPubKey.SerializeSize()
}

func (txOut *TxOut) Serialize(writer io.Writer) error {
	err := util.BinarySerializer.PutUint64(writer, binary.LittleEndian, uint64(txOut.value))
	if err != nil {
		return err
	}
	return txOut.scriptPubKey.Serialize(writer)
}

func (txOut *TxOut) Unserialize(reader io.Reader) error {
	value, err := util.BinarySerializer.Uint64(reader, binary.LittleEndian)
	if err != nil {
		return err
	}
	txOut.value = amount.Amount(value)
	txOut.scriptPubKey = script.NewEmptyScript()
	return txOut.scriptPubKey.Unserialize(reader)
}

func (txOut *TxOut) GetValue() amount.Amount {
	return txOut.value
}

func (txOut *TxOut) GetScriptPubKey() *script.Script {
	return txOut.scriptPubKey
}

func (txOut *TxOut) IsNull() bool {
	return txOut.value == -1
}

func (txOut *TxOut) String() string {
	return fmt.Sprintf("Value :%d Script:%x", txOut.value, txOut.scriptPubKey.Bytes())
}
