package types

import (
	"errors"
	"fmt"

	"github.com/tendermint/lightclients/crypto"
	"github.com/tendermint/lightclients/crypto/batch"
	"github.com/tendermint/lightclients/crypto/bls12381"
)

// batchVerifyThreshold is the minimum number of signatures worth batching.
const batchVerifyThreshold = 2

// CommitSigner is a validator whose commit sig at Index is flagged for the
// block.
type CommitSigner struct {
	Index     int32
	Validator *Validator
}

// SignatureVerifier checks the signatures of the given signers of a commit.
// The voting power has already been tallied by the caller.
type SignatureVerifier interface {
	VerifySignatures(chainID string, commit *Commit, signers []CommitSigner) error
}

var (
	_ SignatureVerifier = IndividualSignatures{}
	_ SignatureVerifier = AggregateSignatures{}
)

// IndividualSignatures verifies one signature per validator over its own
// precommit. ed25519 signatures are batch verified when possible.
type IndividualSignatures struct{}

func (IndividualSignatures) VerifySignatures(chainID string, commit *Commit, signers []CommitSigner) error {
	if commit.IsAggregated() {
		return errors.New("commit carries an aggregated signature")
	}
	if len(signers) == 0 {
		return nil
	}

	if bv, ok := newCommitBatchVerifier(signers); ok {
		batched := true
		for _, s := range signers {
			err := bv.Add(s.Validator.PubKey, commit.VoteSignBytes(chainID, s.Index), commit.Signatures[s.Index].Signature)
			if err != nil {
				batched = false
				break
			}
		}
		if batched {
			if valid, _ := bv.Verify(); valid {
				return nil
			}
		}
		// fall through to find the culprit
	}

	for _, s := range signers {
		sig := commit.Signatures[s.Index].Signature
		if !s.Validator.PubKey.VerifySignature(commit.VoteSignBytes(chainID, s.Index), sig) {
			return ErrInvalidSignature{Index: s.Index, Address: s.Validator.Address}
		}
	}
	return nil
}

// newCommitBatchVerifier returns a batch verifier when every signer uses the
// same key type and that type supports batching.
func newCommitBatchVerifier(signers []CommitSigner) (crypto.BatchVerifier, bool) {
	if len(signers) < batchVerifyThreshold {
		return nil, false
	}
	first := signers[0].Validator.PubKey
	if !batch.SupportsBatchVerifier(first) {
		return nil, false
	}
	for _, s := range signers[1:] {
		if s.Validator.PubKey.Type() != first.Type() {
			return nil, false
		}
	}
	return batch.CreateBatchVerifier(first)
}

// AggregateSignatures verifies a single BLS12-381 signature aggregated over
// AggregatedSignBytes by all signers.
type AggregateSignatures struct{}

func (AggregateSignatures) VerifySignatures(chainID string, commit *Commit, signers []CommitSigner) error {
	if !commit.IsAggregated() {
		return errors.New("commit has no aggregated signature")
	}
	if len(signers) == 0 {
		return errors.New("aggregated signature without signers")
	}

	pubKeys := make([]crypto.PubKey, len(signers))
	for i, s := range signers {
		if s.Validator.PubKey.Type() != bls12381.KeyType {
			return fmt.Errorf("validator %v uses %s keys, aggregation needs %s",
				s.Validator.Address, s.Validator.PubKey.Type(), bls12381.KeyType)
		}
		pubKeys[i] = s.Validator.PubKey
	}

	if !bls12381.VerifyAggregateSignature(pubKeys, commit.AggregatedSignBytes(chainID), commit.AggregatedSignature) {
		return fmt.Errorf("wrong aggregated signature: %X", commit.AggregatedSignature)
	}
	return nil
}
