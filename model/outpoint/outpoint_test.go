package outpoint

import (
	"bytes"
	"math"
	"testing"

	"github.com/floweethehub/thehub-sub000/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutPointSerialize(t *testing.T) {
	hash := util.DoubleSha256Hash([]byte("tx"))
	out := NewOutPoint(hash, 7)

	var buf bytes.Buffer
	require.NoError(t, out.Serialize(&buf))
	assert.Equal(t, SerializeSize, buf.Len())
	assert.Equal(t, byte(7), buf.Bytes()[32])

	var got OutPoint
	require.NoError(t, got.Unserialize(&buf))
	assert.Equal(t, *out, got)
	assert.Equal(t, hash.CheapHash(), got.CheapHash())
}

func TestOutPointIsNull(t *testing.T) {
	var nilOut *OutPoint
	assert.True(t, nilOut.IsNull())
	assert.True(t, NewOutPoint(util.HashZero, math.MaxUint32).IsNull())
	assert.False(t, NewOutPoint(util.HashZero, 0).IsNull())
}
