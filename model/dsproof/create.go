package dsproof

import (
	"github.com/floweethehub/thehub-sub000/crypto"
	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/model/txin"
)

// Create builds the proof that tx1 and tx2 spend the same output. Only
// P2PKH inputs signed with the fork id can be proven.
func Create(tx1, tx2 *tx.Tx) (*DoubleSpendProof, error) {
	if tx1.GetHash() == tx2.GetHash() {
		return nil, errcode.New(errcode.DSProofSameTransaction)
	}

	in1, in2 := -1, -1
	for i, a := range tx1.GetIns() {
		for j, b := range tx2.GetIns() {
			if *a.PreviousOutPoint == *b.PreviousOutPoint {
				in1, in2 = i, j
				break
			}
		}
		if in1 >= 0 {
			break
		}
	}
	if in1 < 0 {
		return nil, errcode.New(errcode.DSProofNoCommonInput)
	}

	proof := &DoubleSpendProof{
		prevTxID:     tx1.GetTxIn(in1).PreviousOutPoint.Hash,
		prevOutIndex: tx1.GetTxIn(in1).PreviousOutPoint.Index,
	}
	var err error
	if proof.spender1, err = newSpender(tx1, in1); err != nil {
		return nil, err
	}
	if proof.spender2, err = newSpender(tx2, in2); err != nil {
		return nil, err
	}

	switch c := compareSpenders(&proof.spender1, &proof.spender2); {
	case c > 0:
		proof.spender1, proof.spender2 = proof.spender2, proof.spender1
	case c == 0:
		// same signature over the same commitments, nothing to prove
		return nil, errcode.NewWithDesc(errcode.DSProofSameTransaction, "both spenders sign the same data")
	}

	if err := proof.CheckSanity(); err != nil {
		panic("double spend proof built from valid spenders fails sanity: " + err.Error())
	}
	return proof, nil
}

// signatureOf returns the first push of a P2PKH scriptSig.
func signatureOf(in *txin.TxIn) ([]byte, error) {
	pushes := in.GetScriptSig().PushedData()
	if len(pushes) != 2 {
		return nil, errcode.New(errcode.DSProofNotP2PKH)
	}
	return pushes[0], nil
}

func newSpender(txn *tx.Tx, nIn int) (Spender, error) {
	in := txn.GetTxIn(nIn)
	sig, err := signatureOf(in)
	if err != nil {
		return Spender{}, err
	}
	if len(sig) == 0 {
		return Spender{}, errcode.New(errcode.DSProofEmptySignature)
	}
	if len(sig) > MaxPushDataSize {
		return Spender{}, errcode.New(errcode.DSProofNotP2PKH)
	}
	hashType := uint32(sig[len(sig)-1])
	if hashType&crypto.SigHashForkID == 0 {
		return Spender{}, errcode.New(errcode.DSProofMissingForkID)
	}

	preimage := tx.NewSigHashPreimage(txn, nIn, hashType)
	pushData := make([]byte, len(sig))
	copy(pushData, sig)
	return Spender{
		TxVersion:       uint32(txn.GetVersion()),
		OutSequence:     in.Sequence,
		LockTime:        txn.GetLockTime(),
		HashPrevOutputs: preimage.HashPrevOutputs,
		HashSequence:    preimage.HashSequence,
		HashOutputs:     preimage.HashOutputs,
		PushData:        [][]byte{pushData},
	}, nil
}
