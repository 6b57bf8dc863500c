package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightclients/crypto"
	"github.com/tendermint/lightclients/crypto/bls12381"
	"github.com/tendermint/lightclients/crypto/ed25519"
	"github.com/tendermint/lightclients/crypto/secp256k1"
	"github.com/tendermint/lightclients/types"
)

// PrivKeys is a helper type for testing.
//
// It lets us simulate signing with many keys. The main use case is to create
// a set, and call GenSignedHeader to get properly signed header for testing.
//
// You can set different weights of validators each time you call ToValidators,
// and can optionally extend the validator set later with Extend.
type PrivKeys []crypto.PrivKey

// GenPrivKeys produces an array of ed25519 private keys to generate commits.
func GenPrivKeys(n int) PrivKeys {
	res := make(PrivKeys, n)
	for i := range res {
		res[i] = ed25519.GenPrivKey()
	}
	return res
}

// GenSecp256k1PrivKeys produces n secp256k1 keys.
func GenSecp256k1PrivKeys(n int) PrivKeys {
	res := make(PrivKeys, n)
	for i := range res {
		res[i] = secp256k1.GenPrivKeySecp256k1(crypto.CRandBytes(32))
	}
	return res
}

// GenBLSPrivKeys produces n BLS12-381 keys for aggregated commits.
func GenBLSPrivKeys(n int) PrivKeys {
	res := make(PrivKeys, n)
	for i := range res {
		res[i] = bls12381.GenPrivKey()
	}
	return res
}

// Extend adds n more ed25519 keys (to remove, just take a slice).
func (pkz PrivKeys) Extend(n int) PrivKeys {
	extra := GenPrivKeys(n)
	return append(pkz, extra...)
}

// ToValidators produces a valset from the set of keys.
// The first key has weight `init` and it increases by `inc` every step
// so we can have all the same weight, or a simple linear distribution
// (should be enough for testing).
func (pkz PrivKeys) ToValidators(init, inc int64) *types.ValidatorSet {
	res := make([]*types.Validator, len(pkz))
	for i, k := range pkz {
		res[i] = types.NewValidator(k.PubKey(), init+int64(i)*inc)
	}
	return types.NewValidatorSet(res)
}

// SignHeader properly signs the header with all keys from first to last
// exclusive. Keys that are not part of valSet are skipped.
func (pkz PrivKeys) SignHeader(t testing.TB, header *types.Header, valSet *types.ValidatorSet, first, last int) *types.Commit {
	t.Helper()

	commit := newCommit(header, valSet)
	for i := first; i < last && i < len(pkz); i++ {
		idx, _ := valSet.GetByAddress(pkz[i].PubKey().Address())
		if idx < 0 {
			continue
		}
		commit.Signatures[idx] = types.CommitSig{
			BlockIDFlag:      types.BlockIDFlagCommit,
			ValidatorAddress: pkz[i].PubKey().Address(),
			Timestamp:        header.Time.Add(time.Duration(i+1) * time.Millisecond),
		}
		sig, err := pkz[i].Sign(commit.VoteSignBytes(header.ChainID, idx))
		require.NoError(t, err)
		commit.Signatures[idx].Signature = sig
	}
	return commit
}

// AggregateSignHeader is SignHeader for BLS keys: the precommits of keys
// first to last exclusive are aggregated into Commit.AggregatedSignature.
func (pkz PrivKeys) AggregateSignHeader(t testing.TB, header *types.Header, valSet *types.ValidatorSet, first, last int) *types.Commit {
	t.Helper()

	commit := newCommit(header, valSet)
	msg := commit.AggregatedSignBytes(header.ChainID)
	var sigs [][]byte
	for i := first; i < last && i < len(pkz); i++ {
		idx, _ := valSet.GetByAddress(pkz[i].PubKey().Address())
		if idx < 0 {
			continue
		}
		commit.Signatures[idx] = types.CommitSig{
			BlockIDFlag:      types.BlockIDFlagCommit,
			ValidatorAddress: pkz[i].PubKey().Address(),
			Timestamp:        header.Time,
		}
		sig, err := pkz[i].Sign(msg)
		require.NoError(t, err)
		sigs = append(sigs, sig)
	}
	agg, err := bls12381.AggregateSignatures(sigs)
	require.NoError(t, err)
	commit.AggregatedSignature = agg
	return commit
}

func newCommit(header *types.Header, valSet *types.ValidatorSet) *types.Commit {
	commitSigs := make([]types.CommitSig, valSet.Size())
	for i := range commitSigs {
		commitSigs[i] = types.NewCommitSigAbsent()
	}
	return &types.Commit{
		Height: header.Height,
		Round:  1,
		BlockID: types.BlockID{
			Hash:          header.Hash(),
			PartSetHeader: types.PartSetHeader{Total: 1, Hash: crypto.CRandBytes(32)},
		},
		Signatures: commitSigs,
	}
}

// GenHeader returns an unsigned header for valset at height.
func GenHeader(chainID string, height int64, bTime time.Time,
	valset, nextValset *types.ValidatorSet, appHash []byte) *types.Header {

	return &types.Header{
		ChainID:            chainID,
		Height:             height,
		Time:               bTime,
		ValidatorsHash:     valset.Hash(),
		NextValidatorsHash: nextValset.Hash(),
		ConsensusHash:      crypto.Checksum([]byte("consensus_params")),
		AppHash:            appHash,
		LastResultsHash:    crypto.Checksum([]byte("last_results")),
		ProposerAddress:    valset.Validators[0].Address,
	}
}

// GenSignedHeader calls GenHeader and SignHeader and combines them into a
// SignedHeader.
func (pkz PrivKeys) GenSignedHeader(t testing.TB, chainID string, height int64, bTime time.Time,
	valset, nextValset *types.ValidatorSet, appHash []byte, first, last int) *types.SignedHeader {

	t.Helper()

	header := GenHeader(chainID, height, bTime, valset, nextValset, appHash)
	return &types.SignedHeader{
		Header: header,
		Commit: pkz.SignHeader(t, header, valset, first, last),
	}
}

// GenAggregateSignedHeader is GenSignedHeader with an aggregated commit.
func (pkz PrivKeys) GenAggregateSignedHeader(t testing.TB, chainID string, height int64, bTime time.Time,
	valset, nextValset *types.ValidatorSet, appHash []byte, first, last int) *types.SignedHeader {

	t.Helper()

	header := GenHeader(chainID, height, bTime, valset, nextValset, appHash)
	return &types.SignedHeader{
		Header: header,
		Commit: pkz.AggregateSignHeader(t, header, valset, first, last),
	}
}
