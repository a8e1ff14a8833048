package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/ripemd160"
)

const (
	Hash256Size       = 32
	MaxHashStringSize = Hash256Size * 2
	Hash160Size       = 20
)

type Hash [Hash256Size]byte

var HashZero = Hash{}

// DoubleSha256Hash is sha256(sha256(b)), the hash used for txids, signature
// hashes and proof ids.
func DoubleSha256Hash(b []byte) Hash {
	return Hash(chainhash.DoubleHashH(b))
}

// Hash160 calculates the hash ripemd160(sha256(b)).
func Hash160(buf []byte) []byte {
	sha := sha256.Sum256(buf)
	hasher := ripemd160.New()
	hasher.Write(sha[:])
	return hasher.Sum(nil)
}

// HashFromString parses the byte reversed hex form produced by String.
func HashFromString(hexString string) (*Hash, error) {
	if len(hexString) > MaxHashStringSize {
		return nil, fmt.Errorf("max hash string length is %v bytes", MaxHashStringSize)
	}
	if len(hexString)%2 != 0 {
		hexString = "0" + hexString
	}
	raw, err := hex.DecodeString(hexString)
	if err != nil {
		return nil, err
	}
	var h Hash
	for i, b := range raw {
		h[len(raw)-1-i] = b
	}
	return &h, nil
}

func (hash Hash) String() string {
	var reversed [Hash256Size]byte
	for i := 0; i < Hash256Size; i++ {
		reversed[i] = hash[Hash256Size-1-i]
	}
	return hex.EncodeToString(reversed[:])
}

func (hash *Hash) Serialize(w io.Writer) error {
	_, err := w.Write(hash[:])
	return err
}

func (hash *Hash) Unserialize(r io.Reader) error {
	_, err := io.ReadFull(r, hash[:])
	return err
}

func (hash *Hash) SetBytes(b []byte) error {
	if len(b) != Hash256Size {
		return fmt.Errorf("invalid hash length of %v , want %v", len(b), Hash256Size)
	}
	copy(hash[:], b)
	return nil
}

func (hash *Hash) IsEqual(target *Hash) bool {
	if hash == nil && target == nil {
		return true
	}
	if hash == nil || target == nil {
		return false
	}
	return *hash == *target
}

func (hash *Hash) IsNull() bool {
	return *hash == HashZero
}

// Cmp orders hashes by their serialized bytes.
func (hash *Hash) Cmp(other *Hash) int {
	return bytes.Compare(hash[:], other[:])
}

// CheapHash is the first 8 bytes read as a little endian integer. The bytes
// are already uniformly distributed so they make a fine map key.
func (hash *Hash) CheapHash() uint64 {
	return binary.LittleEndian.Uint64(hash[:8])
}
