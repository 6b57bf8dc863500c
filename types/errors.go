package types

import (
	"errors"
	"fmt"
)

// ErrInvalidCommitHeight is returned when we encounter a commit with an
// unexpected height.
type ErrInvalidCommitHeight struct {
	Expected int64
	Actual   int64
}

func NewErrInvalidCommitHeight(expected, actual int64) ErrInvalidCommitHeight {
	return ErrInvalidCommitHeight{
		Expected: expected,
		Actual:   actual,
	}
}

func (e ErrInvalidCommitHeight) Error() string {
	return fmt.Sprintf("invalid commit -- wrong height: %v vs %v", e.Expected, e.Actual)
}

// ErrInvalidCommitSignatures is returned when we encounter a commit where
// the number of signatures doesn't match the number of validators.
type ErrInvalidCommitSignatures struct {
	Expected int
	Actual   int
}

func NewErrInvalidCommitSignatures(expected, actual int) ErrInvalidCommitSignatures {
	return ErrInvalidCommitSignatures{
		Expected: expected,
		Actual:   actual,
	}
}

func (e ErrInvalidCommitSignatures) Error() string {
	return fmt.Sprintf("invalid commit -- wrong set size: %v vs %v", e.Expected, e.Actual)
}

// ErrNotEnoughVotingPowerSigned is returned when not enough validators signed
// a commit.
type ErrNotEnoughVotingPowerSigned struct {
	Got    int64
	Needed int64
}

func (e ErrNotEnoughVotingPowerSigned) Error() string {
	return fmt.Sprintf("invalid commit -- insufficient voting power: got %d, needed more than %d", e.Got, e.Needed)
}

// IsErrNotEnoughVotingPowerSigned returns true if err is
// ErrNotEnoughVotingPowerSigned.
func IsErrNotEnoughVotingPowerSigned(err error) bool {
	return errors.As(err, &ErrNotEnoughVotingPowerSigned{})
}

// ErrInvalidSignature is returned when a validator's signature over its
// precommit does not verify.
type ErrInvalidSignature struct {
	Index   int32
	Address Address
}

func (e ErrInvalidSignature) Error() string {
	return fmt.Sprintf("wrong signature (#%d/%X)", e.Index, e.Address)
}

// ErrUntrustedAggregateSigner is returned when an aggregated commit counts a
// validator whose key is not part of the trusted validator set.
type ErrUntrustedAggregateSigner struct {
	Index   int32
	Address Address
}

func (e ErrUntrustedAggregateSigner) Error() string {
	return fmt.Sprintf("aggregated commit signed by validator outside the trusted set (#%d/%X)", e.Index, e.Address)
}
