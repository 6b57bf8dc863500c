package statelens

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/commitment"
	"github.com/tendermint/lightclients/types"
)

// extra versions
const (
	extraV1 = uint8(1)
	extraV2 = uint8(2)
)

type clientStateWire struct {
	L2ChainID        string
	L1ClientID       string
	L2ClientID       string
	L2LatestHeight   types.Height
	L2Kind           client.Kind
	StoreKey         string
	KeyPrefixStorage []byte
	ProofSpecs       []commitment.SpecID
	Extra            uint8
}

func (cs *ClientState) Marshal() ([]byte, error) {
	w := clientStateWire{
		L2ChainID:        cs.L2ChainID,
		L1ClientID:       cs.L1ClientID,
		L2ClientID:       cs.L2ClientID,
		L2LatestHeight:   cs.L2LatestHeight,
		L2Kind:           cs.L2Kind,
		StoreKey:         cs.StoreKey,
		KeyPrefixStorage: cs.KeyPrefixStorage,
		ProofSpecs:       cs.ProofSpecs,
	}
	switch cs.Extra.(type) {
	case ExtraV1:
		w.Extra = extraV1
	case ExtraV2:
		w.Extra = extraV2
	default:
		return nil, fmt.Errorf("%w: unknown extra %T", client.ErrDecode, cs.Extra)
	}
	return rlp.EncodeToBytes(&w)
}

func DecodeClientState(bz []byte) (*ClientState, error) {
	var w clientStateWire
	if err := rlp.DecodeBytes(bz, &w); err != nil {
		return nil, fmt.Errorf("%w: client state: %w", client.ErrDecode, err)
	}
	cs := &ClientState{
		L2ChainID:        w.L2ChainID,
		L1ClientID:       w.L1ClientID,
		L2ClientID:       w.L2ClientID,
		L2LatestHeight:   w.L2LatestHeight,
		L2Kind:           w.L2Kind,
		StoreKey:         w.StoreKey,
		KeyPrefixStorage: w.KeyPrefixStorage,
		ProofSpecs:       w.ProofSpecs,
	}
	switch w.Extra {
	case extraV1:
		cs.Extra = ExtraV1{}
	case extraV2:
		cs.Extra = ExtraV2{}
	default:
		return nil, fmt.Errorf("%w: unknown extra version %d", client.ErrDecode, w.Extra)
	}
	return cs, nil
}

func (cs *ConsensusState) Marshal() ([]byte, error) {
	return rlp.EncodeToBytes(cs)
}

func DecodeConsensusState(bz []byte) (*ConsensusState, error) {
	cs := new(ConsensusState)
	if err := rlp.DecodeBytes(bz, cs); err != nil {
		return nil, fmt.Errorf("%w: consensus state: %w", client.ErrDecode, err)
	}
	return cs, nil
}

func MarshalHeader(h *Header) ([]byte, error) {
	return rlp.EncodeToBytes(h)
}

func DecodeHeader(bz []byte) (*Header, error) {
	h := new(Header)
	if err := rlp.DecodeBytes(bz, h); err != nil {
		return nil, fmt.Errorf("%w: header: %w", client.ErrDecode, err)
	}
	return h, nil
}
