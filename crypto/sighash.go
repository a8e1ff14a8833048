package crypto

const (
	SigHashAll          = 1
	SigHashNone         = 2
	SigHashSingle       = 3
	SigHashForkID       = 0x40
	SigHashAnyoneCanpay = 0x80

	// SigHashMask defines the number of bits of the hash type which is used
	// to identify which outputs are signed.
	SigHashMask = 0x1f
)

// SchnorrSigSize is the length of a schnorr signature without its hash type byte.
const SchnorrSigSize = 64

// BaseSigHashType strips the fork id and anyone-can-pay bits.
func BaseSigHashType(hashType uint32) uint32 {
	return hashType & SigHashMask
}

func IsDefineHashtypeSignature(vchSig []byte) bool {
	if len(vchSig) == 0 {
		return false
	}
	nHashType := vchSig[len(vchSig)-1] & (^byte(SigHashAnyoneCanpay | SigHashForkID))
	if nHashType < SigHashAll || nHashType > SigHashSingle {
		return false
	}
	return true
}

// IsValidSignatureEncoding checks strict DER of a signature that still carries
// its trailing hash type byte:
// 0x30 [total-length] 0x02 [R-length] [R] 0x02 [S-length] [S] [sighash]
func IsValidSignatureEncoding(signs []byte) bool {
	signsLen := len(signs)
	if signsLen < 9 || signsLen > 73 {
		return false
	}
	if signs[0] != 0x30 {
		return false
	}
	// total length excludes the header pair and the hash type byte
	if int(signs[1]) != signsLen-3 {
		return false
	}
	lenR := int(signs[3])
	if 5+lenR >= signsLen {
		return false
	}
	lenS := int(signs[5+lenR])
	if lenR+lenS+7 != signsLen {
		return false
	}

	if signs[2] != 0x02 || lenR == 0 || signs[4]&0x80 != 0 {
		return false
	}
	if lenR > 1 && signs[4] == 0x00 && signs[5]&0x80 == 0 {
		return false
	}

	if signs[lenR+4] != 0x02 || lenS == 0 || signs[lenR+6]&0x80 != 0 {
		return false
	}
	if lenS > 1 && signs[lenR+6] == 0x00 && signs[lenR+7]&0x80 == 0 {
		return false
	}
	return true
}
