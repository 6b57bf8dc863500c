package evm

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/commitment"
	"github.com/tendermint/lightclients/ethproof"
	tmmath "github.com/tendermint/lightclients/libs/math"
	"github.com/tendermint/lightclients/types"
)

// storage layout tags
const (
	layoutPathIndexed = uint8(0)
	layoutSlotIndexed = uint8(1)
)

type storageLayoutWire struct {
	Type uint8
	Slot *uint256.Int
}

type clientStateWire struct {
	ChainID            string
	TrustLevel         tmmath.Fraction
	TrustingPeriod     uint64
	UnbondingPeriod    uint64
	MaxClockDrift      uint64
	FrozenHeight       types.Height
	LatestHeight       types.Height
	ProofSpecs         []commitment.SpecID
	StoreKey           string
	ExecutionHeaderKey []byte
	IBCContractAddress common.Address
	StorageLayout      storageLayoutWire
	AggregatedCommits  bool
}

func (cs *ClientState) Marshal() ([]byte, error) {
	w := clientStateWire{
		ChainID:            cs.ChainID,
		TrustLevel:         cs.TrustLevel,
		TrustingPeriod:     uint64(cs.TrustingPeriod),
		UnbondingPeriod:    uint64(cs.UnbondingPeriod),
		MaxClockDrift:      uint64(cs.MaxClockDrift),
		FrozenHeight:       cs.FrozenHeight,
		LatestHeight:       cs.LatestHeight,
		ProofSpecs:         cs.ProofSpecs,
		StoreKey:           cs.StoreKey,
		ExecutionHeaderKey: cs.ExecutionHeaderKey,
		IBCContractAddress: cs.IBCContractAddress,
		AggregatedCommits:  cs.AggregatedCommits,
	}
	if cs.TrustingPeriod < 0 || cs.UnbondingPeriod < 0 || cs.MaxClockDrift < 0 {
		return nil, errors.New("negative duration")
	}
	switch l := cs.StorageLayout.(type) {
	case ethproof.PathIndexed:
		w.StorageLayout = storageLayoutWire{Type: layoutPathIndexed, Slot: new(uint256.Int)}
	case ethproof.SlotIndexed:
		slot := l.Slot
		w.StorageLayout = storageLayoutWire{Type: layoutSlotIndexed, Slot: &slot}
	default:
		return nil, fmt.Errorf("unknown storage layout %T", cs.StorageLayout)
	}
	return rlp.EncodeToBytes(&w)
}

func DecodeClientState(bz []byte) (*ClientState, error) {
	var w clientStateWire
	if err := rlp.DecodeBytes(bz, &w); err != nil {
		return nil, fmt.Errorf("%w: client state: %w", client.ErrDecode, err)
	}
	for _, d := range []uint64{w.TrustingPeriod, w.UnbondingPeriod, w.MaxClockDrift} {
		if d > 1<<63-1 {
			return nil, fmt.Errorf("%w: duration %d overflows", client.ErrDecode, d)
		}
	}
	cs := &ClientState{
		ChainID:            w.ChainID,
		TrustLevel:         w.TrustLevel,
		TrustingPeriod:     time.Duration(w.TrustingPeriod),
		UnbondingPeriod:    time.Duration(w.UnbondingPeriod),
		MaxClockDrift:      time.Duration(w.MaxClockDrift),
		FrozenHeight:       w.FrozenHeight,
		LatestHeight:       w.LatestHeight,
		ProofSpecs:         w.ProofSpecs,
		StoreKey:           w.StoreKey,
		ExecutionHeaderKey: w.ExecutionHeaderKey,
		IBCContractAddress: w.IBCContractAddress,
		AggregatedCommits:  w.AggregatedCommits,
	}
	switch w.StorageLayout.Type {
	case layoutPathIndexed:
		cs.StorageLayout = ethproof.PathIndexed{}
	case layoutSlotIndexed:
		if w.StorageLayout.Slot == nil {
			return nil, fmt.Errorf("%w: missing storage slot", client.ErrDecode)
		}
		cs.StorageLayout = ethproof.SlotIndexed{Slot: *w.StorageLayout.Slot}
	default:
		return nil, fmt.Errorf("%w: unknown storage layout %d", client.ErrDecode, w.StorageLayout.Type)
	}
	return cs, nil
}

func (cs *ConsensusState) Marshal() ([]byte, error) {
	return rlp.EncodeToBytes(cs)
}

func DecodeConsensusState(bz []byte) (*ConsensusState, error) {
	var cs ConsensusState
	if err := rlp.DecodeBytes(bz, &cs); err != nil {
		return nil, fmt.Errorf("%w: consensus state: %w", client.ErrDecode, err)
	}
	return &cs, nil
}

// MarshalHeader encodes h as RLP.
func MarshalHeader(h *Header) ([]byte, error) {
	if err := h.checkEncodable(); err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(h)
}

// DecodeHeader decodes bytes produced by MarshalHeader.
func DecodeHeader(bz []byte) (*Header, error) {
	var h Header
	if err := rlp.DecodeBytes(bz, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %w", client.ErrDecode, err)
	}
	return &h, nil
}

// MarshalStorageProof encodes the trie nodes of a storage proof.
func MarshalStorageProof(proof [][]byte) ([]byte, error) {
	return rlp.EncodeToBytes(proof)
}

func decodeStorageProof(bz []byte) ([][]byte, error) {
	var proof [][]byte
	if err := rlp.DecodeBytes(bz, &proof); err != nil {
		return nil, fmt.Errorf("%w: storage proof: %w", client.ErrDecode, err)
	}
	return proof, nil
}
