package evm

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/client/tendermint"
	"github.com/tendermint/lightclients/types"
)

// Header proves a new execution state: a consensus chain header, the
// execution header it commits, and the IBC contract account in that
// execution state.
type Header struct {
	ConsensusHeader *tendermint.Header
	ExecutionHeader *gethtypes.Header
	// ExecutionHeaderProof is a marshaled commitment.MerkleProof of the RLP
	// execution header against the consensus header app hash.
	ExecutionHeaderProof []byte
	// StorageRoot is the declared storage root of the IBC contract,
	// proven by AccountProof against the execution state root.
	StorageRoot  common.Hash
	AccountProof [][]byte
}

var _ client.ClientMessage = (*Header)(nil)

func (h *Header) ClientKind() client.Kind { return client.KindEVM }

// GetHeight returns the height of the consensus header.
func (h *Header) GetHeight() types.Height {
	return h.ConsensusHeader.GetHeight()
}

func (h *Header) ValidateBasic() error {
	if err := h.checkEncodable(); err != nil {
		return err
	}
	if err := h.ConsensusHeader.ValidateBasic(); err != nil {
		return err
	}
	if len(h.ExecutionHeaderProof) == 0 {
		return errors.New("execution header proof cannot be empty")
	}
	if len(h.AccountProof) == 0 {
		return errors.New("account proof cannot be empty")
	}
	return nil
}

func (h *Header) checkEncodable() error {
	if h.ConsensusHeader == nil || h.ConsensusHeader.SignedHeader == nil ||
		h.ConsensusHeader.SignedHeader.Header == nil || h.ConsensusHeader.SignedHeader.Commit == nil {
		return errors.New("consensus header cannot be nil")
	}
	if h.ConsensusHeader.ValidatorSet == nil || h.ConsensusHeader.TrustedValidators == nil {
		return errors.New("consensus header must carry both validator sets")
	}
	if h.ExecutionHeader == nil {
		return errors.New("execution header cannot be nil")
	}
	if h.ExecutionHeader.Number == nil || h.ExecutionHeader.Difficulty == nil {
		return errors.New("execution header number and difficulty cannot be nil")
	}
	return nil
}
