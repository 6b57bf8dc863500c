package commitment

import (
	"bytes"
	"fmt"

	ics23 "github.com/confio/ics23/go"
	"github.com/gogo/protobuf/proto"
)

// MerklePath is the key path of a value, outermost store key first.
type MerklePath struct {
	KeyPath [][]byte
}

// NewMerklePath returns a path over the given segments.
func NewMerklePath(keyPath ...[]byte) MerklePath {
	return MerklePath{KeyPath: keyPath}
}

// GetKey returns the segment at index i, counted from the outermost one.
func (mp MerklePath) GetKey(i uint64) ([]byte, error) {
	if i >= uint64(len(mp.KeyPath)) {
		return nil, fmt.Errorf("index out of range. %d (index) >= %d (len)", i, len(mp.KeyPath))
	}
	return mp.KeyPath[i], nil
}

// Empty returns true if the path has no segments.
func (mp MerklePath) Empty() bool {
	return len(mp.KeyPath) == 0
}

// String joins the segments with "/".
func (mp MerklePath) String() string {
	var buf bytes.Buffer
	for _, k := range mp.KeyPath {
		buf.WriteByte('/')
		buf.Write(k)
	}
	return buf.String()
}

// MerkleProof is a chain of commitment proofs, innermost store first. Each
// layer proves the root of the layer below it.
type MerkleProof struct {
	Proofs []*ics23.CommitmentProof
}

// VerifyMembership verifies that value is stored under path in the tree
// committed to by root.
func (proof MerkleProof) VerifyMembership(specs []*ics23.ProofSpec, root []byte, path MerklePath, value []byte) error {
	if err := proof.validateVerificationArgs(specs, root, path); err != nil {
		return err
	}
	if len(value) == 0 {
		return fmt.Errorf("%w: empty value in membership proof", ErrInvalidProof)
	}

	return verifyChainedMembershipProof(root, specs, proof.Proofs, path, value, 0)
}

// VerifyNonMembership verifies that nothing is stored under path in the
// tree committed to by root. The innermost proof must prove absence, the
// outer ones the existence of each store root.
func (proof MerkleProof) VerifyNonMembership(specs []*ics23.ProofSpec, root []byte, path MerklePath) error {
	if err := proof.validateVerificationArgs(specs, root, path); err != nil {
		return err
	}

	nonexist := proof.Proofs[0].GetNonexist()
	if nonexist == nil {
		return fmt.Errorf("%w: innermost proof must be a non-existence proof, got %T",
			ErrInvalidProof, proof.Proofs[0].GetProof())
	}

	// innermost key
	key, err := path.GetKey(uint64(len(path.KeyPath) - 1))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMerkleProof, err)
	}

	subroot, err := proof.Proofs[0].Calculate()
	if err != nil {
		return fmt.Errorf("%w: could not calculate root for proof index 0: %v", ErrInvalidProof, err)
	}
	if !ics23.VerifyNonMembership(specs[0], subroot, proof.Proofs[0], key) {
		return fmt.Errorf("%w: could not verify absence of key %X", ErrVerifyNonMembershipFailed, key)
	}

	if len(proof.Proofs) == 1 {
		if !bytes.Equal(root, subroot) {
			return fmt.Errorf("%w: proof did not commit to expected root: %X, got: %X",
				ErrVerifyNonMembershipFailed, root, subroot)
		}
		return nil
	}

	if err := verifyChainedMembershipProof(root, specs, proof.Proofs, path, subroot, 1); err != nil {
		return fmt.Errorf("%w: %v", ErrVerifyNonMembershipFailed, err)
	}
	return nil
}

// verifyChainedMembershipProof takes a list of proofs and specs and verifies
// each proof sequentially, starting at index, against the value supplied.
// The computed root of each layer is the value of the next one and the last
// computed root must equal root.
func verifyChainedMembershipProof(
	root []byte,
	specs []*ics23.ProofSpec,
	proofs []*ics23.CommitmentProof,
	keys MerklePath,
	value []byte,
	index int,
) error {
	var (
		subroot []byte
		err     error
	)
	// Initialize subroot to value since the proofs list may be empty.
	// This may happen if this call is verifying intermediate proofs after
	// the lowest proof has been executed.
	subroot = value
	for i := index; i < len(proofs); i++ {
		ep := proofs[i].GetExist()
		if ep == nil {
			return fmt.Errorf("%w: expected existence proof at index %d, got %T",
				ErrInvalidProof, i, proofs[i].GetProof())
		}

		subroot, err = ep.Calculate()
		if err != nil {
			return fmt.Errorf("%w: could not calculate proof root at index %d: %v", ErrInvalidProof, i, err)
		}
		// Since keys are passed in from highest to lowest, we must grab
		// their indices in reverse order from the proofs and specs which
		// are lowest to highest.
		key, err := keys.GetKey(uint64(len(keys.KeyPath) - 1 - i))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMerkleProof, err)
		}

		// verify membership of the proof at this index with appropriate
		// key and value
		if !ics23.VerifyMembership(specs[i], subroot, proofs[i], key, value) {
			return fmt.Errorf("%w: chained membership proof failed to verify membership of value %X in subroot %X at index %d",
				ErrVerifyMembershipFailed, value, subroot, i)
		}
		// Set value to subroot so that we verify next proof in chain
		// commits to this subroot.
		value = subroot
	}

	// Check that chained proof root equals passed-in root
	if !bytes.Equal(root, subroot) {
		return fmt.Errorf("%w: proof did not commit to expected root: %X, got: %X",
			ErrVerifyMembershipFailed, root, subroot)
	}
	return nil
}

func (proof MerkleProof) validateVerificationArgs(specs []*ics23.ProofSpec, root []byte, path MerklePath) error {
	if len(proof.Proofs) == 0 {
		return fmt.Errorf("%w: proof cannot be empty", ErrInvalidMerkleProof)
	}
	for i, p := range proof.Proofs {
		if p == nil || p.GetProof() == nil {
			return fmt.Errorf("%w: proof at index %d is empty", ErrInvalidProof, i)
		}
	}
	if len(root) == 0 {
		return fmt.Errorf("%w: root cannot be empty", ErrInvalidProof)
	}
	if len(specs) == 0 {
		return fmt.Errorf("%w: specs cannot be empty", ErrInvalidProofSpecs)
	}
	for i, spec := range specs {
		if spec == nil {
			return fmt.Errorf("%w: spec at index %d is nil", ErrInvalidProofSpecs, i)
		}
	}

	if len(specs) != len(proof.Proofs) {
		return fmt.Errorf("%w: length of specs: %d not equal to length of proof: %d",
			ErrInvalidMerkleProof, len(specs), len(proof.Proofs))
	}
	if len(path.KeyPath) != len(specs) {
		return fmt.Errorf("%w: path length %d not same as proof %d",
			ErrInvalidMerkleProof, len(path.KeyPath), len(specs))
	}
	return nil
}

//-------------------------------------

// merkleProofTag is field 1 (repeated CommitmentProof proofs) with wire
// type 2.
const merkleProofTag = 1<<3 | 2

// Marshal encodes the proof as the protobuf message
// `message MerkleProof { repeated CommitmentProof proofs = 1; }`.
func (proof MerkleProof) Marshal() ([]byte, error) {
	var bz []byte
	for i, p := range proof.Proofs {
		pbz, err := proto.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("proof %d: %w", i, err)
		}
		bz = append(bz, proto.EncodeVarint(merkleProofTag)...)
		bz = append(bz, proto.EncodeVarint(uint64(len(pbz)))...)
		bz = append(bz, pbz...)
	}
	return bz, nil
}

// UnmarshalMerkleProof decodes the output of MerkleProof.Marshal.
func UnmarshalMerkleProof(bz []byte) (MerkleProof, error) {
	var proof MerkleProof
	for len(bz) > 0 {
		tag, n := proto.DecodeVarint(bz)
		if n == 0 {
			return MerkleProof{}, fmt.Errorf("%w: bad field tag", ErrInvalidProof)
		}
		if tag != merkleProofTag {
			return MerkleProof{}, fmt.Errorf("%w: unexpected field tag %d", ErrInvalidProof, tag)
		}
		bz = bz[n:]

		l, n := proto.DecodeVarint(bz)
		if n == 0 || l > uint64(len(bz)-n) {
			return MerkleProof{}, fmt.Errorf("%w: bad proof length", ErrInvalidProof)
		}
		bz = bz[n:]

		p := new(ics23.CommitmentProof)
		if err := proto.Unmarshal(bz[:l], p); err != nil {
			return MerkleProof{}, fmt.Errorf("%w: %v", ErrInvalidProof, err)
		}
		proof.Proofs = append(proof.Proofs, p)
		bz = bz[l:]
	}
	if len(proof.Proofs) == 0 {
		return MerkleProof{}, fmt.Errorf("%w: no proofs", ErrInvalidProof)
	}
	return proof, nil
}
