package tendermint

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/tendermint/lightclients/client"
	tmmath "github.com/tendermint/lightclients/libs/math"
	"github.com/tendermint/lightclients/light"
	"github.com/tendermint/lightclients/types"
)

// VerifyHeader verifies h against the trusted snapshot stored at
// h.TrustedHeight, given by its block time and next validators hash.
// Errors wrap a client error kind as well as the light package error that
// caused them.
func VerifyHeader(opts TrustOptions, trusted *ConsensusState, h *Header, now time.Time) error {
	if err := h.ValidateBasic(); err != nil {
		return client.Wrap(client.ErrInvalidHeader, err)
	}
	if h.SignedHeader.ChainID != opts.ChainID {
		return fmt.Errorf("%w: expected %q, got %q", client.ErrInvalidChainID, opts.ChainID, h.SignedHeader.ChainID)
	}
	if !bytes.Equal(h.TrustedValidators.Hash(), trusted.NextValidatorsHash) {
		return fmt.Errorf("%w: trusted validators %X do not match next validators hash %X of trusted height %v",
			client.ErrVerificationFailed, h.TrustedValidators.Hash(), trusted.NextValidatorsHash, h.TrustedHeight)
	}

	trustedHeight, err := tmmath.SafeConvertInt64(h.TrustedHeight.RevisionHeight)
	if err != nil {
		return client.Wrap(client.ErrInvalidHeader, err)
	}
	trustedHeader := &types.SignedHeader{
		Header: &types.Header{
			ChainID:            opts.ChainID,
			Height:             trustedHeight,
			Time:               trusted.Time(),
			NextValidatorsHash: trusted.NextValidatorsHash,
		},
	}

	err = light.Verify(
		trustedHeader,
		h.TrustedValidators,
		h.SignedHeader,
		h.ValidatorSet,
		opts.TrustingPeriod,
		now,
		opts.MaxClockDrift,
		opts.TrustLevel,
		opts.Verifier(),
	)
	return wrapLightError(err)
}

// wrapLightError attaches the client error kind matching a light package
// error.
func wrapLightError(err error) error {
	if err == nil {
		return nil
	}

	var (
		expired   light.ErrOldHeaderExpired
		notRecent light.ErrHeaderHeightNotMoreRecent
		chainID   light.ErrInvalidChainID
		hostTime  light.ErrInvalidHostTimestamp
		future    light.ErrHeaderFromFuture
		sig       types.ErrInvalidSignature
		invalid   light.ErrInvalidHeader
	)
	switch {
	case errors.As(err, &expired):
		return fmt.Errorf("%w: %w", client.ErrExpired, err)
	case errors.As(err, &notRecent):
		return fmt.Errorf("%w: %w", client.ErrHeaderHeightNotMoreRecent, err)
	case errors.As(err, &chainID):
		return fmt.Errorf("%w: %w", client.ErrInvalidChainID, err)
	case errors.As(err, &hostTime):
		return fmt.Errorf("%w: %w", client.ErrInvalidHostTimestamp, err)
	case errors.As(err, &future):
		return fmt.Errorf("%w: %w", client.ErrInvalidHeader, err)
	case types.IsErrNotEnoughVotingPowerSigned(err):
		return fmt.Errorf("%w: %w", client.ErrInsufficientVotingPower, err)
	case errors.As(err, &sig):
		return fmt.Errorf("%w: %w", client.ErrVerificationFailed, err)
	case errors.As(err, &invalid):
		return fmt.Errorf("%w: %w", client.ErrInvalidHeader, err)
	default:
		return fmt.Errorf("%w: %w", client.ErrVerificationFailed, err)
	}
}
