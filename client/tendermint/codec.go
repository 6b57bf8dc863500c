package tendermint

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/commitment"
	tmmath "github.com/tendermint/lightclients/libs/math"
	"github.com/tendermint/lightclients/types"
)

type clientStateWire struct {
	ChainID           string
	TrustLevel        tmmath.Fraction
	TrustingPeriod    uint64
	UnbondingPeriod   uint64
	MaxClockDrift     uint64
	FrozenHeight      types.Height
	LatestHeight      types.Height
	ProofSpecs        []commitment.SpecID
	StoreKey          string
	KeyPrefix         []byte
	AggregatedCommits bool
}

// Marshal encodes cs as RLP. Durations are encoded in nanoseconds.
func (cs *ClientState) Marshal() ([]byte, error) {
	w := clientStateWire{
		ChainID:           cs.ChainID,
		TrustLevel:        cs.TrustLevel,
		FrozenHeight:      cs.FrozenHeight,
		LatestHeight:      cs.LatestHeight,
		ProofSpecs:        cs.ProofSpecs,
		StoreKey:          cs.StoreKey,
		KeyPrefix:         cs.KeyPrefix,
		AggregatedCommits: cs.AggregatedCommits,
	}
	var err error
	if w.TrustingPeriod, err = durationToWire(cs.TrustingPeriod); err != nil {
		return nil, err
	}
	if w.UnbondingPeriod, err = durationToWire(cs.UnbondingPeriod); err != nil {
		return nil, err
	}
	if w.MaxClockDrift, err = durationToWire(cs.MaxClockDrift); err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(&w)
}

// DecodeClientState decodes a client state encoded by Marshal.
func DecodeClientState(bz []byte) (*ClientState, error) {
	var w clientStateWire
	if err := rlp.DecodeBytes(bz, &w); err != nil {
		return nil, fmt.Errorf("%w: client state: %w", client.ErrDecode, err)
	}
	cs := &ClientState{
		ChainID:           w.ChainID,
		TrustLevel:        w.TrustLevel,
		FrozenHeight:      w.FrozenHeight,
		LatestHeight:      w.LatestHeight,
		ProofSpecs:        w.ProofSpecs,
		StoreKey:          w.StoreKey,
		KeyPrefix:         w.KeyPrefix,
		AggregatedCommits: w.AggregatedCommits,
	}
	var err error
	if cs.TrustingPeriod, err = durationFromWire(w.TrustingPeriod); err != nil {
		return nil, fmt.Errorf("%w: trusting period: %w", client.ErrDecode, err)
	}
	if cs.UnbondingPeriod, err = durationFromWire(w.UnbondingPeriod); err != nil {
		return nil, fmt.Errorf("%w: unbonding period: %w", client.ErrDecode, err)
	}
	if cs.MaxClockDrift, err = durationFromWire(w.MaxClockDrift); err != nil {
		return nil, fmt.Errorf("%w: max clock drift: %w", client.ErrDecode, err)
	}
	return cs, nil
}

// Marshal encodes cs as RLP.
func (cs *ConsensusState) Marshal() ([]byte, error) {
	return rlp.EncodeToBytes(cs)
}

// DecodeConsensusState decodes a consensus state encoded by Marshal.
func DecodeConsensusState(bz []byte) (*ConsensusState, error) {
	var cs ConsensusState
	if err := rlp.DecodeBytes(bz, &cs); err != nil {
		return nil, fmt.Errorf("%w: consensus state: %w", client.ErrDecode, err)
	}
	return &cs, nil
}

// client message types
const (
	messageHeader       = uint8(1)
	messageMisbehaviour = uint8(2)
)

type messageEnvelope struct {
	Type    uint8
	Payload rlp.RawValue
}

// MarshalClientMessage encodes a Header or Misbehaviour.
func MarshalClientMessage(msg client.ClientMessage) ([]byte, error) {
	var env messageEnvelope
	switch m := msg.(type) {
	case *Header:
		if err := checkHeaderEncodable(m); err != nil {
			return nil, err
		}
		env.Type = messageHeader
	case *Misbehaviour:
		if m.Header1 == nil || m.Header2 == nil {
			return nil, errors.New("misbehaviour headers cannot be nil")
		}
		if err := checkHeaderEncodable(m.Header1); err != nil {
			return nil, err
		}
		if err := checkHeaderEncodable(m.Header2); err != nil {
			return nil, err
		}
		env.Type = messageMisbehaviour
	default:
		return nil, fmt.Errorf("%w: %T", client.ErrUnexpectedMessage, msg)
	}

	payload, err := rlp.EncodeToBytes(msg)
	if err != nil {
		return nil, err
	}
	env.Payload = payload
	return rlp.EncodeToBytes(&env)
}

// DecodeClientMessage decodes bytes produced by MarshalClientMessage.
func DecodeClientMessage(bz []byte) (client.ClientMessage, error) {
	var env messageEnvelope
	if err := rlp.DecodeBytes(bz, &env); err != nil {
		return nil, fmt.Errorf("%w: client message: %w", client.ErrDecode, err)
	}

	var msg client.ClientMessage
	switch env.Type {
	case messageHeader:
		msg = new(Header)
	case messageMisbehaviour:
		msg = new(Misbehaviour)
	default:
		return nil, fmt.Errorf("%w: unknown message type %d", client.ErrDecode, env.Type)
	}
	if err := rlp.DecodeBytes(env.Payload, msg); err != nil {
		return nil, fmt.Errorf("%w: client message: %w", client.ErrDecode, err)
	}
	return msg, nil
}

// rlp cannot encode nil pointers to types with their own encoder.
func checkHeaderEncodable(h *Header) error {
	if h.SignedHeader == nil || h.SignedHeader.Header == nil || h.SignedHeader.Commit == nil {
		return errors.New("header must carry a signed header and commit")
	}
	if h.ValidatorSet == nil || h.TrustedValidators == nil {
		return errors.New("header must carry both validator sets")
	}
	return nil
}

func durationToWire(d time.Duration) (uint64, error) {
	if d < 0 {
		return 0, fmt.Errorf("negative duration %v", d)
	}
	return uint64(d), nil
}

func durationFromWire(ns uint64) (time.Duration, error) {
	if ns > 1<<63-1 {
		return 0, fmt.Errorf("duration %d overflows", ns)
	}
	return time.Duration(ns), nil
}
