package utxo

import (
	"io"
	"unsafe"

	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/model/txout"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/floweethehub/thehub-sub000/util/amount"
	"github.com/pkg/errors"
)

// Coin is an unspent output together with the height of the block that
// created it. Mempool coins carry MempoolHeight.
type Coin struct {
	txOut      *txout.TxOut
	height     int32
	isCoinBase bool
}

// MempoolHeight marks coins created by unconfirmed transactions.
const MempoolHeight = 0x7FFFFFFF

func NewCoin(out *txout.TxOut, height int32, isCoinBase bool) *Coin {
	return &Coin{txOut: out, height: height, isCoinBase: isCoinBase}
}

func NewMempoolCoin(out *txout.TxOut) *Coin {
	return &Coin{txOut: out, height: MempoolHeight}
}

func NewEmptyCoin() *Coin {
	return &Coin{txOut: txout.NewTxOut(0, nil)}
}

func (coin *Coin) GetHeight() int32 {
	return coin.height
}

func (coin *Coin) IsCoinBase() bool {
	return coin.isCoinBase
}

func (coin *Coin) IsMempoolCoin() bool {
	return coin.height == MempoolHeight
}

func (coin *Coin) GetTxOut() *txout.TxOut {
	return coin.txOut
}

func (coin *Coin) GetScriptPubKey() *script.Script {
	return coin.txOut.GetScriptPubKey()
}

func (coin *Coin) GetAmount() amount.Amount {
	return coin.txOut.GetValue()
}

func (coin *Coin) DeepCopy() *Coin {
	out := txout.NewTxOut(coin.txOut.GetValue(), script.NewScriptRaw(coin.GetScriptPubKey().Bytes()))
	return &Coin{txOut: out, height: coin.height, isCoinBase: coin.isCoinBase}
}

func (coin *Coin) DynamicMemoryUsage() int64 {
	return int64(unsafe.Sizeof(*coin)) + int64(coin.GetScriptPubKey().Size())
}

// Serialize writes varint(height*2 + coinbase) followed by the output.
func (coin *Coin) Serialize(w io.Writer) error {
	code := uint64(coin.height) << 1
	if coin.isCoinBase {
		code |= 1
	}
	if err := util.WriteVarInt(w, code); err != nil {
		return err
	}
	return coin.txOut.Serialize(w)
}

func (coin *Coin) Unserialize(r io.Reader) error {
	code, err := util.ReadVarInt(r)
	if err != nil {
		return errors.Wrap(err, "coin height")
	}
	coin.height = int32(code >> 1)
	coin.isCoinBase = code&1 == 1
	coin.txOut = txout.NewTxOut(0, nil)
	return coin.txOut.Unserialize(r)
}
