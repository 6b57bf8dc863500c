package commitment

import (
	"fmt"

	ics23 "github.com/confio/ics23/go"
)

// SpecID names one of the store specs a counterparty may commit with. The
// set is fixed: specs are part of the compatibility contract and are never
// taken from the wire.
type SpecID string

const (
	SpecIAVL       SpecID = "iavl"
	SpecTendermint SpecID = "tendermint"
)

// SDKSpecIDs is the layering of a Cosmos SDK chain: an IAVL store proof
// inside a simple merkle proof of the multistore.
var SDKSpecIDs = []SpecID{SpecIAVL, SpecTendermint}

// Spec resolves id.
func (id SpecID) Spec() (*ics23.ProofSpec, error) {
	switch id {
	case SpecIAVL:
		return ics23.IavlSpec, nil
	case SpecTendermint:
		return ics23.TendermintSpec, nil
	default:
		return nil, fmt.Errorf("%w: unknown spec %q", ErrInvalidProofSpecs, string(id))
	}
}

// ProofSpecs resolves ids, innermost layer first.
func ProofSpecs(ids []SpecID) ([]*ics23.ProofSpec, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty spec list", ErrInvalidProofSpecs)
	}
	specs := make([]*ics23.ProofSpec, len(ids))
	for i, id := range ids {
		spec, err := id.Spec()
		if err != nil {
			return nil, err
		}
		specs[i] = spec
	}
	return specs, nil
}

// SDKSpecs returns the specs for SDKSpecIDs.
func SDKSpecs() []*ics23.ProofSpec {
	return []*ics23.ProofSpec{ics23.IavlSpec, ics23.TendermintSpec}
}
