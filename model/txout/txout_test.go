package txout

import (
	"bytes"
	"testing"

	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/floweethehub/thehub-sub000/util/amount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxOutSerialize(t *testing.T) {
	out := NewTxOut(amount.Amount(5*amount.COIN), script.NewP2PKHScript(util.Hash160([]byte("a"))))
	var buf bytes.Buffer
	require.NoError(t, out.Serialize(&buf))
	assert.Equal(t, out.SerializeSize(), buf.Len())

	var got TxOut
	require.NoError(t, got.Unserialize(&buf))
	assert.Equal(t, out.GetValue(), got.GetValue())
	assert.True(t, got.GetScriptPubKey().IsPayToPubKeyHash())
	assert.False(t, got.IsNull())
}
