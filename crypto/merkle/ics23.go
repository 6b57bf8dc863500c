package merkle

import (
	"fmt"

	ics23 "github.com/confio/ics23/go"
)

// leafOp matches ics23.TendermintSpec: the key is stored raw and the value
// as its sha256 digest, both varint length prefixed.
var leafOp = &ics23.LeafOp{
	Prefix:       leafPrefix,
	PrehashKey:   ics23.HashOp_NO_HASH,
	PrehashValue: ics23.HashOp_SHA256,
	Hash:         ics23.HashOp_SHA256,
	Length:       ics23.LengthOp_VAR_PROTO,
}

// ConvertExistenceProof converts a simple merkle proof of the key-value leaf
// into an ics23 existence proof verifiable against ics23.TendermintSpec.
func ConvertExistenceProof(p *Proof, key, value []byte) (*ics23.ExistenceProof, error) {
	path, err := convertInnerOps(p)
	if err != nil {
		return nil, err
	}

	return &ics23.ExistenceProof{
		Key:   key,
		Value: value,
		Leaf:  leafOp,
		Path:  path,
	}, nil
}

func convertInnerOps(p *Proof) ([]*ics23.InnerOp, error) {
	inners := make([]*ics23.InnerOp, 0, len(p.Aunts))
	path := buildPath(p.Index, p.Total)

	if len(p.Aunts) != len(path) {
		return nil, fmt.Errorf("calculated a path different length (%d) than provided by merkle.Proof (%d)", len(path), len(p.Aunts))
	}

	for i, aunt := range p.Aunts {
		auntRight := path[i]

		// combine with: 0x01 || lefthash || righthash
		inner := &ics23.InnerOp{Hash: ics23.HashOp_SHA256}
		if auntRight {
			inner.Prefix = innerPrefix
			inner.Suffix = aunt
		} else {
			inner.Prefix = append(append([]byte{}, innerPrefix...), aunt...)
		}
		inners = append(inners, inner)
	}
	return inners, nil
}

// buildPath returns a list of steps from leaf to root
// in each step, true means index is left side, false index is right side
func buildPath(idx int64, total int64) []bool {
	if total < 2 {
		return nil
	}
	numLeft := getSplitPoint(total)
	goLeft := idx < numLeft

	// we put goLeft at the end of the array, as we recurse from top to bottom,
	// and want the leaf to be first in array, root last
	if goLeft {
		return append(buildPath(idx, numLeft), goLeft)
	}
	return append(buildPath(idx-numLeft, total-numLeft), goLeft)
}
