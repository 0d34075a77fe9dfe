package util

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fundme/meta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignTran(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	pt := meta.PostTran{Value: "100", Nonce: 3, Args: map[string]string{"b": "2", "a": "1"}}
	require.NoError(t, SignTran(&pt, key))
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Hex(), pt.From)

	signer, err := RecoverTranSender(pt)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer)

	// 修改任意字段后恢复出的地址不同
	tampered := pt
	tampered.Nonce = 4
	signer, err = RecoverTranSender(tampered)
	if err == nil {
		assert.NotEqual(t, crypto.PubkeyToAddress(key.PublicKey), signer)
	}

	_, err = RecoverTranSender(meta.PostTran{Signature: "0x00"})
	assert.ErrorIs(t, err, ErrBadSignature)
	_, err = RecoverTranSender(meta.PostTran{})
	assert.ErrorIs(t, err, ErrBadSignature)
}
