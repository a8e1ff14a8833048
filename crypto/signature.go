package crypto

import (
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/floweethehub/thehub-sub000/log"
)

// VerifySignature checks sig (without hash type byte) over hash. A 64 byte
// signature is a schnorr signature, anything else is DER encoded ECDSA.
func VerifySignature(sig []byte, hash []byte, pubKey *PublicKey) bool {
	if len(sig) == SchnorrSigSize {
		return VerifySchnorr(sig, hash, pubKey)
	}
	return VerifyECDSA(sig, hash, pubKey)
}

func VerifyECDSA(sig []byte, hash []byte, pubKey *PublicKey) bool {
	signature, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		log.Debug("ParseDERSignature failed: %v", err)
		return false
	}
	return signature.Verify(hash, pubKey.key)
}

// SignECDSA returns the DER encoding of a low-S signature of hash.
func (privateKey *PrivateKey) SignECDSA(hash []byte) []byte {
	return ecdsa.Sign(privateKey.key, hash).Serialize()
}
