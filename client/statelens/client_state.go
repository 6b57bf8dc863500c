package statelens

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/commitment"
	"github.com/tendermint/lightclients/ethproof"
	"github.com/tendermint/lightclients/types"
)

// Extra selects how commitment keys are derived from host paths. It is
// either ExtraV1 or ExtraV2.
type Extra interface {
	isExtra()
}

// ExtraV1 uses paths as keys.
type ExtraV1 struct{}

// ExtraV2 uses the keccak256 commitment key of a path, the way EVM IBC
// contracts index their commitments.
type ExtraV2 struct{}

func (ExtraV1) isExtra() {}
func (ExtraV2) isExtra() {}

// commitmentKey maps a host path to the key it is committed under.
func commitmentKey(extra Extra, path []byte) ([]byte, error) {
	switch extra.(type) {
	case ExtraV1:
		return path, nil
	case ExtraV2:
		return ethproof.CommitmentKey(path).Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown extra %T", extra)
	}
}

// ClientState tracks an L2 chain through the client L1ClientID, which
// verifies the L1 chain the L2 consensus states are committed to. The L1
// chain runs a client L2ClientID of the L2 chain.
type ClientState struct {
	L2ChainID      string
	L1ClientID     string
	L2ClientID     string
	L2LatestHeight types.Height
	// L2Kind is the kind of L2ClientID, whose codec decodes the L2
	// consensus states.
	L2Kind           client.Kind
	StoreKey         string
	KeyPrefixStorage []byte
	ProofSpecs       []commitment.SpecID
	Extra            Extra
}

var _ client.ClientState = (*ClientState)(nil)

func (cs *ClientState) ClientKind() client.Kind { return client.KindStateLens }
func (cs *ClientState) GetChainID() string { return cs.L2ChainID }
func (cs *ClientState) GetLatestHeight() types.Height { return cs.L2LatestHeight }

// IsFrozen is always false: a lens client is only as trusted as its L1
// client, whose status it reports.
func (cs *ClientState) IsFrozen() bool { return false }

func (cs *ClientState) ValidateBasic() error {
	if cs.L2ChainID == "" {
		return errors.New("l2 chain id cannot be empty")
	}
	if cs.L1ClientID == "" || cs.L2ClientID == "" {
		return errors.New("l1 and l2 client ids cannot be empty")
	}
	if cs.L2LatestHeight.IsZero() {
		return errors.New("l2 latest height cannot be zero")
	}
	if err := cs.L2Kind.ValidateBasic(); err != nil {
		return fmt.Errorf("l2 kind: %w", err)
	}
	if cs.StoreKey == "" {
		return errors.New("store key cannot be empty")
	}
	if _, err := commitment.ProofSpecs(cs.ProofSpecs); err != nil {
		return err
	}
	if _, err := commitmentKey(cs.Extra, nil); err != nil {
		return err
	}
	return nil
}

// IsMatching reports whether cs and other differ at most in the fields a
// recovery may overwrite.
func (cs *ClientState) IsMatching(other *ClientState) bool {
	if cs.L1ClientID != other.L1ClientID ||
		cs.L2ClientID != other.L2ClientID ||
		cs.L2Kind != other.L2Kind ||
		cs.StoreKey != other.StoreKey ||
		!bytes.Equal(cs.KeyPrefixStorage, other.KeyPrefixStorage) ||
		cs.Extra != other.Extra ||
		len(cs.ProofSpecs) != len(other.ProofSpecs) {
		return false
	}
	for i := range cs.ProofSpecs {
		if cs.ProofSpecs[i] != other.ProofSpecs[i] {
			return false
		}
	}
	return true
}

func (cs *ClientState) Copy() *ClientState {
	c := *cs
	c.KeyPrefixStorage = append([]byte(nil), cs.KeyPrefixStorage...)
	c.ProofSpecs = append([]commitment.SpecID(nil), cs.ProofSpecs...)
	return &c
}

// ConsensusState is the part of an L2 consensus state the lens trusts.
type ConsensusState struct {
	// unix ns
	Timestamp uint64
	StateRoot []byte
}

var _ client.ConsensusState = (*ConsensusState)(nil)

func (cs *ConsensusState) ClientKind() client.Kind { return client.KindStateLens }
func (cs *ConsensusState) GetTimestamp() uint64 { return cs.Timestamp }
func (cs *ConsensusState) GetRoot() []byte { return cs.StateRoot }

func (cs *ConsensusState) ValidateBasic() error {
	if len(cs.StateRoot) == 0 {
		return errors.New("state root cannot be empty")
	}
	if cs.Timestamp == 0 || cs.Timestamp > 1<<63-1 {
		return fmt.Errorf("timestamp %d out of range", cs.Timestamp)
	}
	return nil
}
