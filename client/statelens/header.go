package statelens

import (
	"errors"
	"fmt"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/types"
)

// Header proves that the L1 chain at L1Height has committed the L2
// consensus state at L2Height.
type Header struct {
	L1Height types.Height
	L2Height types.Height
	// L2ConsensusState is encoded by the codec of the L2 client kind.
	L2ConsensusState []byte
	// L2InclusionProof proves L2ConsensusState under the consensus state
	// path of the L2 client in the L1 state.
	L2InclusionProof []byte
}

var _ client.ClientMessage = (*Header)(nil)

func (h *Header) ClientKind() client.Kind { return client.KindStateLens }

func (h *Header) ValidateBasic() error {
	if h.L1Height.IsZero() || h.L2Height.IsZero() {
		return fmt.Errorf("heights cannot be zero (l1 %v, l2 %v)", h.L1Height, h.L2Height)
	}
	if len(h.L2ConsensusState) == 0 {
		return errors.New("l2 consensus state cannot be empty")
	}
	if len(h.L2InclusionProof) == 0 {
		return errors.New("l2 inclusion proof cannot be empty")
	}
	return nil
}
