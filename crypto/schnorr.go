package crypto

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
)

// VerifySchnorr verifies a Bitcoin Cash schnorr signature:
// e = sha256(r || compressed(P) || m), R = sG - eP, valid iff R is not
// infinity, y(R) is a quadratic residue and x(R) == r.
func VerifySchnorr(sig []byte, hash []byte, pubKey *PublicKey) bool {
	if len(sig) != SchnorrSigSize || len(hash) != 32 {
		return false
	}

	var r secp256k1.FieldVal
	if overflow := r.SetByteSlice(sig[:32]); overflow {
		return false
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(sig[32:]); overflow {
		return false
	}

	e := schnorrChallenge(sig[:32], pubKey.SerializeCompressed(), hash)
	e.Negate()

	var P, R, sG, eP secp256k1.JacobianPoint
	pubKey.key.AsJacobian(&P)
	secp256k1.ScalarBaseMultNonConst(&s, &sG)
	secp256k1.ScalarMultNonConst(e, &P, &eP)
	secp256k1.AddNonConst(&sG, &eP, &R)

	if (R.X.IsZero() && R.Y.IsZero()) || R.Z.IsZero() {
		return false
	}
	R.ToAffine()
	R.Y.Normalize()
	if !hasSquareY(&R.Y) {
		return false
	}
	R.X.Normalize()
	return r.Equals(&R.X)
}

func schnorrChallenge(r []byte, pubKey []byte, hash []byte) *secp256k1.ModNScalar {
	h := sha256.New()
	h.Write(r)
	h.Write(pubKey)
	h.Write(hash)
	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	var e secp256k1.ModNScalar
	e.SetBytes(&digest)
	return &e
}

func hasSquareY(y *secp256k1.FieldVal) bool {
	var root secp256k1.FieldVal
	return root.SquareRootVal(y)
}

// SignSchnorr produces a 64 byte signature of hash. The nonce is derived from
// the key and message so signing is deterministic.
func (privateKey *PrivateKey) SignSchnorr(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, errors.Errorf("wrong size for message hash %d", len(hash))
	}
	d := &privateKey.key.Key

	keyBytes := d.Bytes()
	for counter := byte(0); ; counter++ {
		seed := make([]byte, 0, 65)
		seed = append(seed, keyBytes[:]...)
		seed = append(seed, hash...)
		seed = append(seed, counter)
		digest := sha256.Sum256(seed)
		var k secp256k1.ModNScalar
		if overflow := k.SetBytes(&digest); overflow != 0 || k.IsZero() {
			continue
		}

		var R secp256k1.JacobianPoint
		secp256k1.ScalarBaseMultNonConst(&k, &R)
		R.ToAffine()
		R.Y.Normalize()
		if !hasSquareY(&R.Y) {
			k.Negate()
		}
		var rBytes [32]byte
		R.X.Normalize()
		R.X.PutBytes(&rBytes)

		pub := privateKey.PubKey()
		e := schnorrChallenge(rBytes[:], pub.SerializeCompressed(), hash)
		s := new(secp256k1.ModNScalar).Mul2(e, d).Add(&k)

		sig := make([]byte, SchnorrSigSize)
		copy(sig, rBytes[:])
		sBytes := s.Bytes()
		copy(sig[32:], sBytes[:])
		return sig, nil
	}
}
