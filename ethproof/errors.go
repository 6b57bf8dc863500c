package ethproof

import "errors"

var (
	// ErrProofInvalid is returned when the proof nodes do not hash up to the
	// expected root or can't be decoded.
	ErrProofInvalid = errors.New("invalid trie proof")
	// ErrAccountMissing is returned when the account proof proves absence.
	ErrAccountMissing = errors.New("account not found in state trie")
	// ErrStorageRootMismatch is returned when the account's storage root is
	// not the declared one.
	ErrStorageRootMismatch = errors.New("storage root mismatch")
	// ErrValueMismatch is returned when the storage slot holds another value.
	ErrValueMismatch = errors.New("storage value mismatch")
	// ErrValueMissing is returned when a membership proof proves absence.
	ErrValueMissing = errors.New("storage value not found")
	// ErrValuePresent is returned when a non-membership proof finds a value.
	ErrValuePresent = errors.New("storage value present")
	// ErrInvalidCommitmentKeyLength is returned for commitment keys that are
	// not 32 bytes long.
	ErrInvalidCommitmentKeyLength = errors.New("commitment key must be 32 bytes")
)
