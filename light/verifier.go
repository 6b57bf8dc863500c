package light

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	tmmath "github.com/tendermint/lightclients/libs/math"
	"github.com/tendermint/lightclients/types"
)

var (
	// DefaultTrustLevel - new header can be trusted if at least one correct
	// validator signed it.
	DefaultTrustLevel = tmmath.Fraction{Numerator: 1, Denominator: 3}
)

// VerifyNonAdjacent verifies non-adjacent untrustedHeader against
// trustedHeader. It ensures that:
//
//	a) trustedHeader can still be trusted (if not, ErrOldHeaderExpired is returned)
//	b) untrustedHeader is valid (if not, ErrInvalidHeader is returned)
//	c) trustLevel ([1/3, 1]) of trustedHeaderVals (or trustedHeaderNextVals)
//	   signed correctly (if not, ErrNewValSetCantBeTrusted is returned)
//	d) more than 2/3 of untrustedVals have signed h2
//	   (otherwise, ErrInvalidHeader is returned)
//	e) headers are non-adjacent.
//
// maxClockDrift defines how much untrustedHeader.Time can drift into the
// future.
//
// trustedHeader only needs ChainID, Height, Time and NextValidatorsHash: a
// light client keeps no more than that about the trusted height.
func VerifyNonAdjacent(
	trustedHeader *types.SignedHeader, // height=X
	trustedVals *types.ValidatorSet, // height=X or height=X+1
	untrustedHeader *types.SignedHeader, // height=Y
	untrustedVals *types.ValidatorSet, // height=Y
	trustingPeriod time.Duration,
	now time.Time,
	maxClockDrift time.Duration,
	trustLevel tmmath.Fraction,
	verifier types.SignatureVerifier) error {

	if untrustedHeader.Height == trustedHeader.Height+1 {
		return errors.New("headers must be non adjacent in height")
	}

	if err := verifyNewHeaderAndVals(
		untrustedHeader, untrustedVals,
		trustedHeader,
		trustingPeriod, now, maxClockDrift); err != nil {
		return err
	}

	// Ensure that +`trustLevel` (default 1/3) or more of last trusted validators signed.
	err := types.VerifyCommitLightTrusting(trustedVals, untrustedHeader.Commit, trustLevel)
	if err != nil {
		var e types.ErrNotEnoughVotingPowerSigned
		if errors.As(err, &e) {
			return ErrNewValSetCantBeTrusted{e}
		}
		return ErrInvalidHeader{err}
	}

	if untrustedHeader.Commit.IsAggregated() {
		if err := types.VerifyAggregateSignersTrusted(trustedVals, untrustedVals, untrustedHeader.Commit); err != nil {
			return ErrInvalidHeader{err}
		}
	}

	// Ensure that +2/3 of new validators signed correctly. This also checks
	// every signature counted above.
	//
	// NOTE: this should always be the last check because untrustedVals can be
	// intentionally made very large to DOS the light client. not the case for
	// VerifyAdjacent, where validator set is known in advance.
	if err := types.VerifyCommitLight(trustedHeader.ChainID, untrustedVals, untrustedHeader.Commit.BlockID,
		untrustedHeader.Height, untrustedHeader.Commit, verifier); err != nil {
		return ErrInvalidHeader{err}
	}

	return nil
}

// VerifyAdjacent verifies directly adjacent untrustedHeader against
// trustedHeader. It ensures that:
//
//	a) trustedHeader can still be trusted (if not, ErrOldHeaderExpired is returned)
//	b) untrustedHeader is valid (if not, ErrInvalidHeader is returned)
//	c) untrustedHeader.ValidatorsHash equals trustedHeader.NextValidatorsHash
//	d) more than 2/3 of new validators (untrustedVals) have signed h2
//	   (otherwise, ErrInvalidHeader is returned)
//	e) headers are adjacent.
//
// maxClockDrift defines how much untrustedHeader.Time can drift into the
// future.
func VerifyAdjacent(
	trustedHeader *types.SignedHeader, // height=X
	untrustedHeader *types.SignedHeader, // height=X+1
	untrustedVals *types.ValidatorSet, // height=X+1
	trustingPeriod time.Duration,
	now time.Time,
	maxClockDrift time.Duration,
	verifier types.SignatureVerifier) error {

	if untrustedHeader.Height != trustedHeader.Height+1 {
		return errors.New("headers must be adjacent in height")
	}

	if err := verifyNewHeaderAndVals(
		untrustedHeader, untrustedVals,
		trustedHeader,
		trustingPeriod, now, maxClockDrift); err != nil {
		return err
	}

	// Check the validator hashes are the same
	if !bytes.Equal(untrustedHeader.ValidatorsHash, trustedHeader.NextValidatorsHash) {
		err := fmt.Errorf("expected old header next validators (%X) to match those from new header (%X)",
			trustedHeader.NextValidatorsHash,
			untrustedHeader.ValidatorsHash,
		)
		return ErrInvalidHeader{err}
	}

	// Ensure that +2/3 of new validators signed correctly.
	if err := types.VerifyCommitLight(trustedHeader.ChainID, untrustedVals, untrustedHeader.Commit.BlockID,
		untrustedHeader.Height, untrustedHeader.Commit, verifier); err != nil {
		return ErrInvalidHeader{err}
	}

	return nil
}

// Verify combines both VerifyAdjacent and VerifyNonAdjacent functions.
func Verify(
	trustedHeader *types.SignedHeader, // height=X
	trustedVals *types.ValidatorSet, // height=X or height=X+1
	untrustedHeader *types.SignedHeader, // height=Y
	untrustedVals *types.ValidatorSet, // height=Y
	trustingPeriod time.Duration,
	now time.Time,
	maxClockDrift time.Duration,
	trustLevel tmmath.Fraction,
	verifier types.SignatureVerifier) error {

	if trustedHeader == nil || trustedHeader.Header == nil {
		return errors.New("nil trusted header")
	}
	if untrustedHeader == nil || untrustedHeader.Header == nil || untrustedHeader.Commit == nil {
		return ErrInvalidHeader{errors.New("nil untrusted header or commit")}
	}
	if untrustedVals == nil {
		return ErrInvalidHeader{errors.New("nil untrusted validator set")}
	}

	if untrustedHeader.Height != trustedHeader.Height+1 {
		if trustedVals == nil {
			return errors.New("nil trusted validator set")
		}
		return VerifyNonAdjacent(trustedHeader, trustedVals, untrustedHeader, untrustedVals,
			trustingPeriod, now, maxClockDrift, trustLevel, verifier)
	}

	return VerifyAdjacent(trustedHeader, untrustedHeader, untrustedVals, trustingPeriod, now, maxClockDrift, verifier)
}

func verifyNewHeaderAndVals(
	untrustedHeader *types.SignedHeader,
	untrustedVals *types.ValidatorSet,
	trustedHeader *types.SignedHeader,
	trustingPeriod time.Duration,
	now time.Time,
	maxClockDrift time.Duration) error {

	if untrustedHeader.Height <= trustedHeader.Height {
		return ErrHeaderHeightNotMoreRecent{Trusted: trustedHeader.Height, Untrusted: untrustedHeader.Height}
	}

	if HeaderExpired(trustedHeader, trustingPeriod, now) {
		return ErrOldHeaderExpired{trustedHeader.Time.Add(trustingPeriod), now}
	}

	if now.Before(trustedHeader.Time) {
		return ErrInvalidHostTimestamp{Trusted: trustedHeader.Time, Now: now}
	}

	if !untrustedHeader.Time.Before(now.Add(maxClockDrift)) {
		return ErrHeaderFromFuture{HeaderTime: untrustedHeader.Time, Now: now, MaxClockDrift: maxClockDrift}
	}

	if untrustedHeader.ChainID != trustedHeader.ChainID {
		return ErrInvalidChainID{Expected: trustedHeader.ChainID, Actual: untrustedHeader.ChainID}
	}

	if err := untrustedHeader.ValidateBasic(trustedHeader.ChainID); err != nil {
		return ErrInvalidHeader{fmt.Errorf("untrustedHeader.ValidateBasic failed: %w", err)}
	}

	if !untrustedHeader.Time.After(trustedHeader.Time) {
		return ErrInvalidHeader{fmt.Errorf("expected new header time %v to be after old header time %v",
			untrustedHeader.Time,
			trustedHeader.Time)}
	}

	if !bytes.Equal(untrustedHeader.ValidatorsHash, untrustedVals.Hash()) {
		return ErrInvalidHeader{fmt.Errorf("expected new header validators (%X) to match those that were supplied (%X) at height %d",
			untrustedHeader.ValidatorsHash,
			untrustedVals.Hash(),
			untrustedHeader.Height,
		)}
	}

	return nil
}

// ValidateTrustLevel checks that trustLevel is within the allowed range [1/3,
// 1]. If not, it returns an error. 1/3 is the minimum amount of trust needed
// which does not break the security model.
func ValidateTrustLevel(lvl tmmath.Fraction) error {
	if lvl.Numerator*3 < lvl.Denominator || // < 1/3
		lvl.Numerator > lvl.Denominator || // > 1
		lvl.Denominator == 0 {
		return fmt.Errorf("trustLevel must be within [1/3, 1], given %v", lvl)
	}
	return nil
}

// HeaderExpired return true if the given header expired.
func HeaderExpired(h *types.SignedHeader, trustingPeriod time.Duration, now time.Time) bool {
	expirationTime := h.Time.Add(trustingPeriod)
	return !expirationTime.After(now)
}
