package types

import (
	"bytes"
	"errors"
	"fmt"

	tmmath "github.com/tendermint/lightclients/libs/math"
)

// VerifyCommitLight verifies +2/3 of the set had signed the given commit.
//
// Every signature flagged for the block is checked by verifier, not only
// the first +2/3, so that VerifyCommitLightTrusting can rely on it.
func VerifyCommitLight(
	chainID string,
	vals *ValidatorSet,
	blockID BlockID,
	height int64,
	commit *Commit,
	verifier SignatureVerifier,
) error {
	if vals == nil {
		return errors.New("nil validator set")
	}
	if commit == nil {
		return errors.New("nil commit")
	}
	if verifier == nil {
		return errors.New("nil signature verifier")
	}

	if vals.Size() != len(commit.Signatures) {
		return NewErrInvalidCommitSignatures(vals.Size(), len(commit.Signatures))
	}

	// Validate Height and BlockID.
	if height != commit.Height {
		return NewErrInvalidCommitHeight(height, commit.Height)
	}
	if !blockID.Equals(commit.BlockID) {
		return fmt.Errorf("invalid commit -- wrong block ID: want %v, got %v",
			blockID, commit.BlockID)
	}

	var (
		talliedVotingPower int64
		votingPowerNeeded  = vals.TotalVotingPower() * 2 / 3
		signers            = make([]CommitSigner, 0, len(commit.Signatures))
		overflow           bool
	)
	for idx, commitSig := range commit.Signatures {
		// No need to verify absent or nil votes.
		if !commitSig.ForBlock() {
			continue
		}

		// The vals and commit have a 1-to-1 correspondance.
		val := vals.Validators[idx]
		if !bytes.Equal(commitSig.ValidatorAddress, val.Address) {
			return fmt.Errorf("wrong validator address in commit sig #%d: expected %v, got %v",
				idx, val.Address, commitSig.ValidatorAddress)
		}

		talliedVotingPower, overflow = tmmath.SafeAdd(talliedVotingPower, val.VotingPower)
		if overflow {
			return errors.New("int64 overflow while tallying voting power")
		}
		signers = append(signers, CommitSigner{Index: int32(idx), Validator: val})
	}

	if talliedVotingPower <= votingPowerNeeded {
		return ErrNotEnoughVotingPowerSigned{Got: talliedVotingPower, Needed: votingPowerNeeded}
	}

	return verifier.VerifySignatures(chainID, commit, signers)
}

// VerifyCommitLightTrusting verifies that trustLevel of the validator set signed
// this commit.
//
// NOTE the given validators do not necessarily correspond to the validator set
// for this commit, but there may be some intersection.
//
// Only addresses are matched here. Signatures are not checked, so callers
// must also run VerifyCommitLight with the commit's own validator set, which
// verifies every signature counted here.
func VerifyCommitLightTrusting(vals *ValidatorSet, commit *Commit, trustLevel tmmath.Fraction) error {
	if vals == nil {
		return errors.New("nil validator set")
	}
	if commit == nil {
		return errors.New("nil commit")
	}
	// sanity check
	if trustLevel.Denominator == 0 {
		return errors.New("trustLevel has zero Denominator")
	}

	var (
		talliedVotingPower int64
		seenVals           = make(map[int32]int, len(commit.Signatures)) // validator index -> commit index
	)

	// Safely calculate voting power needed.
	totalVotingPowerMulByNumerator, overflow := tmmath.SafeMul(vals.TotalVotingPower(), int64(trustLevel.Numerator))
	if overflow {
		return errors.New("int64 overflow while calculating voting power needed. please provide" +
			" smaller trustLevel numerator")
	}
	votingPowerNeeded := totalVotingPowerMulByNumerator / int64(trustLevel.Denominator)

	for idx, commitSig := range commit.Signatures {
		// No need to verify absent or nil votes.
		if !commitSig.ForBlock() {
			continue
		}

		// We don't know the validators that committed this block, so we have to
		// check for each vote if its validator is already known.
		valIdx, val := vals.GetByAddress(commitSig.ValidatorAddress)
		if val == nil {
			continue
		}

		// check for double vote of validator on the same commit
		if firstIndex, ok := seenVals[valIdx]; ok {
			secondIndex := idx
			return fmt.Errorf("double vote from %v (%d and %d)", val, firstIndex, secondIndex)
		}
		seenVals[valIdx] = idx

		talliedVotingPower, overflow = tmmath.SafeAdd(talliedVotingPower, val.VotingPower)
		if overflow {
			return errors.New("int64 overflow while tallying voting power")
		}

		if talliedVotingPower > votingPowerNeeded {
			return nil
		}
	}

	return ErrNotEnoughVotingPowerSigned{Got: talliedVotingPower, Needed: votingPowerNeeded}
}

// VerifyAggregateSignersTrusted checks that every validator counted by an
// aggregated commit appears in trustedVals with the same key. An aggregate
// over keys taken from an unverified set can be forged with a single key, so
// non-adjacent verification must only accept aggregates built from trusted
// keys.
func VerifyAggregateSignersTrusted(trustedVals, vals *ValidatorSet, commit *Commit) error {
	if trustedVals == nil || vals == nil {
		return errors.New("nil validator set")
	}
	if commit == nil {
		return errors.New("nil commit")
	}
	if vals.Size() != len(commit.Signatures) {
		return NewErrInvalidCommitSignatures(vals.Size(), len(commit.Signatures))
	}

	for idx, commitSig := range commit.Signatures {
		if !commitSig.ForBlock() {
			continue
		}
		val := vals.Validators[idx]
		_, trusted := trustedVals.GetByAddress(val.Address)
		if trusted == nil || !trusted.PubKey.Equals(val.PubKey) {
			return ErrUntrustedAggregateSigner{Index: int32(idx), Address: val.Address}
		}
	}
	return nil
}
