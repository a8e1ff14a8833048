package tx

import (
	"github.com/floweethehub/thehub-sub000/crypto"
	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/util/amount"
	"github.com/pkg/errors"
)

// SignatureChecker verifies a signature, hash type byte included, over the
// digest its implementation knows how to build.
type SignatureChecker interface {
	CheckSig(signature []byte, pubKey []byte, scriptCode []byte, flags uint32) bool
}

type TxSignatureChecker struct {
	tx    *Tx
	nIn   int
	value amount.Amount
}

func NewTxSignatureChecker(tx *Tx, nIn int, value amount.Amount) *TxSignatureChecker {
	return &TxSignatureChecker{tx: tx, nIn: nIn, value: value}
}

func (c *TxSignatureChecker) CheckSig(signature []byte, pubKey []byte, scriptCode []byte, flags uint32) bool {
	if len(signature) == 0 {
		return false
	}
	pub, err := crypto.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	hashType := uint32(signature[len(signature)-1])
	hash, err := SignatureHash(c.tx, script.NewScriptRaw(scriptCode), hashType, c.nIn, c.value)
	if err != nil {
		log.Debug("signature hash of input %d failed: %v", c.nIn, err)
		return false
	}
	return crypto.VerifySignature(signature[:len(signature)-1], hash[:], pub)
}

// SignP2PKH signs input nIn which spends a P2PKH output of the given value
// and installs the <sig> <pubkey> scriptSig.
func SignP2PKH(transaction *Tx, nIn int, key *crypto.PrivateKey, value amount.Amount,
	hashType uint32, schnorr bool) error {

	pubKey := key.PubKey().ToBytes()
	prevScript := script.NewP2PKHScript(pubKeyHash(pubKey))
	hash, err := SignatureHash(transaction, prevScript, hashType, nIn, value)
	if err != nil {
		return err
	}
	var sig []byte
	if schnorr {
		if sig, err = key.SignSchnorr(hash[:]); err != nil {
			return errors.Wrap(err, "schnorr sign")
		}
	} else {
		sig = key.SignECDSA(hash[:])
	}
	sig = append(sig, byte(hashType))

	scriptSig := script.NewEmptyScript()
	if err = scriptSig.PushMultData([][]byte{sig, pubKey}); err != nil {
		return err
	}
	return transaction.UpdateInScript(nIn, scriptSig)
}
