package tx

import (
	"bytes"
	"encoding/binary"

	"github.com/floweethehub/thehub-sub000/crypto"
	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/model/txout"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/floweethehub/thehub-sub000/util/amount"
)

// SigHashPreimage holds the per transaction parts of a fork id signature
// hash; everything else comes from the input being signed.
type SigHashPreimage struct {
	Version         int32
	HashPrevOutputs util.Hash
	HashSequence    util.Hash
	HashOutputs     util.Hash
	LockTime        uint32
}

func GetPreviousOutHash(tx *Tx) util.Hash {
	var buf bytes.Buffer
	for _, in := range tx.ins {
		in.PreviousOutPoint.Serialize(&buf)
	}
	return util.DoubleSha256Hash(buf.Bytes())
}

func GetSequenceHash(tx *Tx) util.Hash {
	var buf bytes.Buffer
	for _, in := range tx.ins {
		util.BinarySerializer.PutUint32(&buf, binary.LittleEndian, in.Sequence)
	}
	return util.DoubleSha256Hash(buf.Bytes())
}

func GetOutputsHash(outs []*txout.TxOut) util.Hash {
	var buf bytes.Buffer
	for _, out := range outs {
		out.Serialize(&buf)
	}
	return util.DoubleSha256Hash(buf.Bytes())
}

// NewSigHashPreimage computes the hashes the given hash type commits to for
// input nIn, zero hashes where the hash type opts out.
func NewSigHashPreimage(transaction *Tx, nIn int, hashType uint32) SigHashPreimage {
	anyoneCanPay := hashType&crypto.SigHashAnyoneCanpay != 0
	baseType := crypto.BaseSigHashType(hashType)
	single := baseType == crypto.SigHashSingle
	none := baseType == crypto.SigHashNone

	p := SigHashPreimage{Version: transaction.version, LockTime: transaction.lockTime}
	if !anyoneCanPay {
		p.HashPrevOutputs = GetPreviousOutHash(transaction)
	}
	if !anyoneCanPay && !single && !none {
		p.HashSequence = GetSequenceHash(transaction)
	}
	if !single && !none {
		p.HashOutputs = GetOutputsHash(transaction.outs)
	} else if single && nIn < len(transaction.outs) {
		p.HashOutputs = GetOutputsHash(transaction.outs[nIn : nIn+1])
	}
	return p
}

// Hash serializes the BIP143 style digest used by Bitcoin Cash:
// version | hashPrevouts | hashSequence | outpoint | scriptCode | amount |
// sequence | hashOutputs | locktime | hashtype
func (p *SigHashPreimage) Hash(prevout *outpoint.OutPoint, scriptCode []byte, money amount.Amount,
	sequence uint32, hashType uint32) util.Hash {

	var hashBuffer bytes.Buffer
	util.BinarySerializer.PutUint32(&hashBuffer, binary.LittleEndian, uint32(p.Version))
	hashBuffer.Write(p.HashPrevOutputs[:])
	hashBuffer.Write(p.HashSequence[:])
	prevout.Serialize(&hashBuffer)
	util.WriteVarBytes(&hashBuffer, scriptCode)
	util.BinarySerializer.PutUint64(&hashBuffer, binary.LittleEndian, uint64(money))
	util.BinarySerializer.PutUint32(&hashBuffer, binary.LittleEndian, sequence)
	hashBuffer.Write(p.HashOutputs[:])
	util.BinarySerializer.PutUint32(&hashBuffer, binary.LittleEndian, p.LockTime)
	util.BinarySerializer.PutUint32(&hashBuffer, binary.LittleEndian, hashType)
	return util.DoubleSha256Hash(hashBuffer.Bytes())
}

// SignatureHash returns the fork id digest input nIn signs. Signatures
// without the fork id bit are not valid on this chain.
func SignatureHash(transaction *Tx, s *script.Script, hashType uint32, nIn int,
	money amount.Amount) (util.Hash, error) {

	if nIn < 0 || nIn >= len(transaction.ins) {
		return util.HashZero, errcode.New(errcode.TxErrNoPreviousOut)
	}
	if hashType&crypto.SigHashForkID == 0 {
		return util.HashZero, errcode.New(errcode.ScriptErrMustUseForkID)
	}
	preimage := NewSigHashPreimage(transaction, nIn, hashType)
	in := transaction.ins[nIn]
	return preimage.Hash(in.PreviousOutPoint, s.Bytes(), money, in.Sequence, hashType), nil
}

func pubKeyHash(pubKey []byte) []byte {
	return util.Hash160(pubKey)
}
