package client

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a client wraps exactly one of these,
// so callers can decide between retrying and alerting with errors.Is or
// KindOf.
var (
	ErrNotFound                   = errors.New("not found")
	ErrDecode                     = errors.New("decode failed")
	ErrInvalidPath                = errors.New("invalid path")
	ErrInvalidCommitmentKeyLength = errors.New("invalid commitment key length")
	ErrVerificationFailed         = errors.New("verification failed")
	ErrFrozen                     = errors.New("client is frozen")
	ErrExpired                    = errors.New("client is expired")
	ErrUnimplemented              = errors.New("unimplemented")
	ErrInvalidHeader              = errors.New("invalid header")
	ErrInvalidClient              = errors.New("invalid client")
)

// Specific errors. Each wraps its kind.
var (
	ErrClientNotFound            = fmt.Errorf("client state %w", ErrNotFound)
	ErrConsensusStateNotFound    = fmt.Errorf("consensus state %w", ErrNotFound)
	ErrClientExists              = fmt.Errorf("%w: client already exists", ErrInvalidClient)
	ErrUnknownKind               = fmt.Errorf("%w: unknown client kind", ErrInvalidClient)
	ErrInvalidChainID            = fmt.Errorf("%w: chain id mismatch", ErrInvalidHeader)
	ErrRevisionNumberMismatch    = fmt.Errorf("%w: revision number mismatch", ErrInvalidHeader)
	ErrHeaderHeightNotMoreRecent = fmt.Errorf("%w: height not more recent than trusted height", ErrInvalidHeader)
	ErrInvalidHostTimestamp      = fmt.Errorf("%w: host timestamp before trusted header", ErrInvalidHeader)
	ErrInsufficientVotingPower   = fmt.Errorf("%w: insufficient voting power", ErrVerificationFailed)
	ErrInvalidMisbehaviour       = fmt.Errorf("%w: invalid misbehaviour", ErrVerificationFailed)
	ErrUnexpectedMessage         = fmt.Errorf("%w: unexpected client message type", ErrDecode)
)

// Terminal states take precedence.
var kinds = []error{
	ErrUnimplemented,
	ErrFrozen,
	ErrExpired,
	ErrNotFound,
	ErrDecode,
	ErrInvalidCommitmentKeyLength,
	ErrInvalidPath,
	ErrInvalidClient,
	ErrInvalidHeader,
	ErrVerificationFailed,
}

// KindOf returns the error kind wrapped by err, or nil if err does not wrap
// any kind.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsRetryable reports whether the caller may retry with fresh input.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case ErrDecode, ErrNotFound:
		return true
	default:
		return false
	}
}

// Wrap attaches kind to err unless err already wraps a kind.
func Wrap(kind, err error) error {
	if err == nil || KindOf(err) != nil {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
