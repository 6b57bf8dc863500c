package bls12381_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightclients/crypto"
	"github.com/tendermint/lightclients/crypto/bls12381"
)

func TestSignAndValidateBLS12381(t *testing.T) {
	privKey := bls12381.GenPrivKey()
	pubKey := privKey.PubKey()
	require.Len(t, pubKey.Bytes(), bls12381.PubKeySize)

	msg := crypto.CRandBytes(128)
	sig, err := privKey.Sign(msg)
	require.NoError(t, err)
	require.Len(t, sig, bls12381.SignatureSize)

	assert.True(t, pubKey.VerifySignature(msg, sig))
	assert.False(t, pubKey.VerifySignature([]byte("other"), sig))
}

func TestAggregateSignatures(t *testing.T) {
	msg := []byte("precommit")
	var (
		pubKeys []crypto.PubKey
		sigs    [][]byte
	)
	for i := 0; i < 4; i++ {
		priv := bls12381.GenPrivKeyFromSecret([]byte{byte(i)})
		sig, err := priv.Sign(msg)
		require.NoError(t, err)
		pubKeys = append(pubKeys, priv.PubKey())
		sigs = append(sigs, sig)
	}

	agg, err := bls12381.AggregateSignatures(sigs)
	require.NoError(t, err)

	assert.True(t, bls12381.VerifyAggregateSignature(pubKeys, msg, agg))
	// a missing signer invalidates the aggregate
	assert.False(t, bls12381.VerifyAggregateSignature(pubKeys[:3], msg, agg))
	assert.False(t, bls12381.VerifyAggregateSignature(pubKeys, []byte("prevote"), agg))

	_, err = bls12381.AggregateSignatures(nil)
	require.ErrorIs(t, err, bls12381.ErrNoSignatures)
	_, err = bls12381.AggregateSignatures([][]byte{{1, 2, 3}})
	require.ErrorIs(t, err, bls12381.ErrInvalidSignature)
}
