package crypto

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pkg/errors"
)

type PrivateKey struct {
	key        *btcec.PrivateKey
	compressed bool
}

func NewPrivateKey() (*PrivateKey, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate private key")
	}
	return &PrivateKey{key: key, compressed: true}, nil
}

func PrivateKeyFromBytes(b []byte, compressed bool) *PrivateKey {
	key, _ := btcec.PrivKeyFromBytes(b)
	return &PrivateKey{key: key, compressed: compressed}
}

func (privateKey *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{key: privateKey.key.PubKey(), Compressed: privateKey.compressed}
}
