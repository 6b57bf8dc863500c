package commitment

import "errors"

var (
	// ErrInvalidProof is returned for a malformed proof or a proof step of
	// the wrong type.
	ErrInvalidProof = errors.New("invalid proof")
	// ErrInvalidMerkleProof is returned when proofs, specs and key path do
	// not have the same number of layers.
	ErrInvalidMerkleProof = errors.New("invalid merkle proof")
	// ErrInvalidProofSpecs is returned for an empty or unknown spec list.
	ErrInvalidProofSpecs = errors.New("invalid proof specs")
	// ErrVerifyMembershipFailed is returned when a layer does not hash to
	// the expected root.
	ErrVerifyMembershipFailed = errors.New("membership verification failed")
	// ErrVerifyNonMembershipFailed is returned when the absence proof does
	// not hold.
	ErrVerifyNonMembershipFailed = errors.New("non-membership verification failed")
)
