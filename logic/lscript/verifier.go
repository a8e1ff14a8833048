// Package lscript verifies the input scripts this node relays. Only the pay
// to public key hash template is understood, every other output script is
// reported as non standard.
package lscript

import (
	"bytes"

	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/model/utxo"
	"github.com/floweethehub/thehub-sub000/util"
)

type Verifier struct{}

func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifyScript evaluates <sig> <pubkey> against
// OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY OP_CHECKSIG.
func (v *Verifier) VerifyScript(scriptSig, scriptPubKey *script.Script, checker tx.SignatureChecker, flags uint32) error {
	if flags&script.ScriptVerifySigPushOnly != 0 && !scriptSig.IsPushOnly() {
		return errcode.New(errcode.ScriptErrSigPushOnly)
	}
	pubKeyHash, ok := scriptPubKey.ExtractPubKeyHash()
	if !ok {
		return errcode.New(errcode.ScriptErrNonStandardScript)
	}
	pushes := scriptSig.PushedData()
	if pushes == nil {
		return errcode.New(errcode.ScriptErrBadOpCode)
	}
	if len(pushes) != 2 {
		return errcode.New(errcode.ScriptErrInvalidStackOperation)
	}
	sig, pubKey := pushes[0], pushes[1]

	if !bytes.Equal(util.Hash160(pubKey), pubKeyHash) {
		return errcode.New(errcode.ScriptErrEqualVerify)
	}
	if err := script.CheckSignatureEncoding(sig, flags); err != nil {
		return err
	}
	if err := script.CheckPubKeyEncoding(pubKey, flags); err != nil {
		return err
	}
	if !checker.CheckSig(sig, pubKey, scriptPubKey.Bytes(), flags) {
		if flags&script.ScriptVerifyNullFail != 0 && len(sig) != 0 {
			return errcode.New(errcode.ScriptErrSigNullFail)
		}
		return errcode.New(errcode.ScriptErrEvalFalse)
	}
	return nil
}

// VerifyTransaction checks every input of txn against the coin it spends.
func (v *Verifier) VerifyTransaction(txn *tx.Tx, coins utxo.CoinsView, flags uint32) error {
	for i, in := range txn.GetIns() {
		coin := coins.GetCoin(in.PreviousOutPoint)
		if coin == nil {
			return errcode.New(errcode.MissParent)
		}
		checker := tx.NewTxSignatureChecker(txn, i, coin.GetAmount())
		if err := v.VerifyScript(in.GetScriptSig(), coin.GetScriptPubKey(), checker, flags); err != nil {
			return err
		}
	}
	return nil
}
