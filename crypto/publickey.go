package crypto

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
)

type PublicKey struct {
	key        *btcec.PublicKey
	Compressed bool
}

func ParsePubKey(pubKeyStr []byte) (*PublicKey, error) {
	if !IsCompressedOrUncompressedPubKey(pubKeyStr) {
		return nil, errors.Errorf("invalid public key encoding of %d bytes", len(pubKeyStr))
	}
	key, err := btcec.ParsePubKey(pubKeyStr)
	if err != nil {
		return nil, errors.Wrap(err, "parse public key")
	}
	return &PublicKey{key: key, Compressed: len(pubKeyStr) == btcec.PubKeyBytesLenCompressed}, nil
}

func (publicKey *PublicKey) ToBytes() []byte {
	if publicKey.Compressed {
		return publicKey.SerializeCompressed()
	}
	return publicKey.SerializeUncompressed()
}

func (publicKey *PublicKey) SerializeUncompressed() []byte {
	return publicKey.key.SerializeUncompressed()
}

func (publicKey *PublicKey) SerializeCompressed() []byte {
	return publicKey.key.SerializeCompressed()
}

func (publicKey *PublicKey) IsEqual(other *PublicKey) bool {
	return bytes.Equal(publicKey.SerializeCompressed(), other.SerializeCompressed())
}

func IsCompressedOrUncompressedPubKey(bytes []byte) bool {
	if len(bytes) < btcec.PubKeyBytesLenCompressed {
		return false
	}
	switch bytes[0] {
	case 0x04:
		return len(bytes) == secp256k1.PubKeyBytesLenUncompressed
	case 0x02, 0x03:
		return len(bytes) == btcec.PubKeyBytesLenCompressed
	}
	return false
}
