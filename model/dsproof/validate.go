package dsproof

import (
	"github.com/floweethehub/thehub-sub000/crypto"
	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/model/txout"
	"github.com/floweethehub/thehub-sub000/model/utxo"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/floweethehub/thehub-sub000/util/amount"
)

type Validity int

const (
	Valid Validity = iota
	MissingTransaction
	MissingUTXO
	Invalid
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "Valid"
	case MissingTransaction:
		return "MissingTransaction"
	case MissingUTXO:
		return "MissingUTXO"
	case Invalid:
		return "Invalid"
	}
	return "Unknown"
}

// MempoolView is the part of the pool a proof is checked against. The
// caller holds whatever lock protects it.
type MempoolView interface {
	GetTxByHash(hash util.Hash) *tx.Tx
	GetSpender(out *outpoint.OutPoint) *tx.Tx
}

// ScriptVerifier runs scriptSig against scriptPubKey.
type ScriptVerifier interface {
	VerifyScript(scriptSig, scriptPubKey *script.Script, checker tx.SignatureChecker, flags uint32) error
}

// Validate checks both spenders of the proof against the output they claim
// to spend.
func (p *DoubleSpendProof) Validate(pool MempoolView, coins utxo.CoinsView, verifier ScriptVerifier) Validity {
	if err := p.CheckSanity(); err != nil {
		log.Print("dsproof", "debug", "proof %s fails sanity: %v", p.GetHash().String(), err)
		return Invalid
	}

	prevout := p.OutPoint()
	var prevOut *txout.TxOut
	if prevTx := pool.GetTxByHash(p.prevTxID); prevTx != nil {
		if prevOut = prevTx.GetTxOut(int(p.prevOutIndex)); prevOut == nil {
			return Invalid
		}
	} else {
		coin := coins.GetCoin(prevout)
		if coin == nil {
			return MissingUTXO
		}
		prevOut = coin.GetTxOut()
	}

	spender := pool.GetSpender(prevout)
	if spender == nil {
		return MissingTransaction
	}
	pubKey := spenderPubKey(spender, prevout)
	if pubKey == nil {
		return Invalid
	}

	for _, s := range []*Spender{&p.spender1, &p.spender2} {
		scriptSig := script.NewEmptyScript()
		if err := scriptSig.PushMultData([][]byte{s.PushData[0], pubKey}); err != nil {
			return Invalid
		}
		checker := NewSpenderChecker(s, prevout, prevOut.GetValue())
		err := verifier.VerifyScript(scriptSig, prevOut.GetScriptPubKey(), checker, script.StandardScriptVerifyFlags)
		if err != nil {
			log.Print("dsproof", "debug", "proof %s spender fails script: %v", p.GetHash().String(), err)
			return Invalid
		}
	}
	return Valid
}

// spenderPubKey recovers the public key the pool spender of out revealed.
func spenderPubKey(spender *tx.Tx, out *outpoint.OutPoint) []byte {
	for _, in := range spender.GetIns() {
		if *in.PreviousOutPoint != *out {
			continue
		}
		pushes := in.GetScriptSig().PushedData()
		if len(pushes) != 2 || len(pushes[1]) == 0 {
			return nil
		}
		return pushes[1]
	}
	return nil
}

// SpenderChecker recomputes the signature hash from the cached components
// of a spender instead of a live transaction.
type SpenderChecker struct {
	spender *Spender
	prevout outpoint.OutPoint
	value   amount.Amount
}

func NewSpenderChecker(spender *Spender, prevout *outpoint.OutPoint, value amount.Amount) *SpenderChecker {
	return &SpenderChecker{spender: spender, prevout: *prevout, value: value}
}

func (c *SpenderChecker) CheckSig(signature []byte, pubKey []byte, scriptCode []byte, flags uint32) bool {
	if len(signature) == 0 {
		return false
	}
	pub, err := crypto.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	hashType := uint32(signature[len(signature)-1])
	if hashType&crypto.SigHashForkID == 0 {
		return false
	}
	preimage := tx.SigHashPreimage{
		Version:         int32(c.spender.TxVersion),
		HashPrevOutputs: c.spender.HashPrevOutputs,
		HashSequence:    c.spender.HashSequence,
		HashOutputs:     c.spender.HashOutputs,
		LockTime:        c.spender.LockTime,
	}
	hash := preimage.Hash(&c.prevout, scriptCode, c.value, c.spender.OutSequence, hashType)
	return crypto.VerifySignature(signature[:len(signature)-1], hash[:], pub)
}
