package crypto

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *PrivateKey {
	seed := sha256.Sum256([]byte("thehub test key"))
	return PrivateKeyFromBytes(seed[:], true)
}

func TestSchnorrSignVerify(t *testing.T) {
	key := testKey(t)
	hash := sha256.Sum256([]byte("message"))

	sig, err := key.SignSchnorr(hash[:])
	require.NoError(t, err)
	assert.Len(t, sig, SchnorrSigSize)
	assert.True(t, VerifySchnorr(sig, hash[:], key.PubKey()))
	assert.True(t, VerifySignature(sig, hash[:], key.PubKey()))

	other := sha256.Sum256([]byte("other message"))
	assert.False(t, VerifySchnorr(sig, other[:], key.PubKey()))

	tampered := append([]byte(nil), sig...)
	tampered[40] ^= 0x01
	assert.False(t, VerifySchnorr(tampered, hash[:], key.PubKey()))

	otherKey, err := NewPrivateKey()
	require.NoError(t, err)
	assert.False(t, VerifySchnorr(sig, hash[:], otherKey.PubKey()))

	_, err = key.SignSchnorr([]byte{1, 2, 3})
	assert.Error(t, err)
	assert.False(t, VerifySchnorr(sig[:63], hash[:], key.PubKey()))
}

func TestECDSASignVerify(t *testing.T) {
	key := testKey(t)
	hash := sha256.Sum256([]byte("message"))

	sig := key.SignECDSA(hash[:])
	assert.True(t, VerifyECDSA(sig, hash[:], key.PubKey()))
	assert.True(t, VerifySignature(sig, hash[:], key.PubKey()))
	assert.True(t, IsValidSignatureEncoding(append(sig, SigHashAll|SigHashForkID)))

	other := sha256.Sum256([]byte("other message"))
	assert.False(t, VerifyECDSA(sig, other[:], key.PubKey()))
	assert.False(t, VerifyECDSA([]byte{0x30, 0x01}, hash[:], key.PubKey()))
}

func TestParsePubKey(t *testing.T) {
	key := testKey(t)
	compressed := key.PubKey().SerializeCompressed()
	pub, err := ParsePubKey(compressed)
	require.NoError(t, err)
	assert.True(t, pub.Compressed)
	assert.True(t, bytes.Equal(compressed, pub.ToBytes()))
	assert.True(t, pub.IsEqual(key.PubKey()))

	uncompressed := key.PubKey().SerializeUncompressed()
	pub, err = ParsePubKey(uncompressed)
	require.NoError(t, err)
	assert.False(t, pub.Compressed)
	assert.Len(t, pub.ToBytes(), 65)

	_, err = ParsePubKey(compressed[:20])
	assert.Error(t, err)
	bad := append([]byte{0x05}, compressed[1:]...)
	_, err = ParsePubKey(bad)
	assert.Error(t, err)
}

func TestIsDefineHashtypeSignature(t *testing.T) {
	assert.False(t, IsDefineHashtypeSignature(nil))
	assert.True(t, IsDefineHashtypeSignature([]byte{SigHashAll | SigHashForkID}))
	assert.True(t, IsDefineHashtypeSignature([]byte{SigHashSingle | SigHashAnyoneCanpay}))
	assert.False(t, IsDefineHashtypeSignature([]byte{0x04}))
	assert.Equal(t, uint32(SigHashNone), BaseSigHashType(SigHashNone|SigHashForkID|SigHashAnyoneCanpay))
}

func TestIsCompressedOrUncompressedPubKey(t *testing.T) {
	key := testKey(t)
	uncompressed := key.PubKey().SerializeUncompressed()
	compressed := key.PubKey().SerializeCompressed()

	assert.True(t, IsCompressedOrUncompressedPubKey(uncompressed))
	assert.True(t, IsCompressedOrUncompressedPubKey(compressed))
	assert.False(t, IsCompressedOrUncompressedPubKey(uncompressed[:64]))
	assert.False(t, IsCompressedOrUncompressedPubKey(append(compressed, 0)))
	assert.False(t, IsCompressedOrUncompressedPubKey(append([]byte{0x02}, uncompressed[1:]...)))
}
