package evm

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/client/tendermint"
	"github.com/tendermint/lightclients/commitment"
	"github.com/tendermint/lightclients/ethproof"
	tmmath "github.com/tendermint/lightclients/libs/math"
	"github.com/tendermint/lightclients/types"
)

// ClientState tracks an account-model execution chain finalized by a BFT
// consensus chain. The consensus chain commits every execution header under
// [StoreKey, ExecutionHeaderKey] of its app hash; IBC commitments live in
// the storage of IBCContractAddress.
type ClientState struct {
	ChainID            string
	TrustLevel         tmmath.Fraction
	TrustingPeriod     time.Duration
	UnbondingPeriod    time.Duration
	MaxClockDrift      time.Duration
	FrozenHeight       types.Height
	LatestHeight       types.Height
	ProofSpecs         []commitment.SpecID
	StoreKey           string
	ExecutionHeaderKey []byte
	IBCContractAddress common.Address
	StorageLayout      ethproof.StorageLayout
	AggregatedCommits  bool
}

var _ client.ClientState = (*ClientState)(nil)

func (cs *ClientState) ClientKind() client.Kind { return client.KindEVM }
func (cs *ClientState) GetChainID() string { return cs.ChainID }
func (cs *ClientState) GetLatestHeight() types.Height { return cs.LatestHeight }
func (cs *ClientState) IsFrozen() bool { return !cs.FrozenHeight.IsZero() }

// TrustOptions returns the parameters verifying the consensus chain.
func (cs *ClientState) TrustOptions() tendermint.TrustOptions {
	return tendermint.TrustOptions{
		ChainID:           cs.ChainID,
		TrustLevel:        cs.TrustLevel,
		TrustingPeriod:    cs.TrustingPeriod,
		MaxClockDrift:     cs.MaxClockDrift,
		AggregatedCommits: cs.AggregatedCommits,
	}
}

func (cs *ClientState) ValidateBasic() error {
	if err := cs.TrustOptions().ValidateBasic(cs.UnbondingPeriod); err != nil {
		return err
	}
	if cs.LatestHeight.RevisionHeight == 0 {
		return errors.New("latest height revision height cannot be zero")
	}
	if rev := types.ParseChainID(cs.ChainID); rev != cs.LatestHeight.RevisionNumber {
		return fmt.Errorf("latest height revision number must match chain id revision number (%d != %d)",
			cs.LatestHeight.RevisionNumber, rev)
	}
	if _, err := commitment.ProofSpecs(cs.ProofSpecs); err != nil {
		return err
	}
	if cs.StoreKey == "" || len(cs.ExecutionHeaderKey) == 0 {
		return errors.New("store key and execution header key cannot be empty")
	}
	if cs.IBCContractAddress == (common.Address{}) {
		return errors.New("ibc contract address cannot be zero")
	}
	switch cs.StorageLayout.(type) {
	case ethproof.PathIndexed, ethproof.SlotIndexed:
	default:
		return fmt.Errorf("unknown storage layout %T", cs.StorageLayout)
	}
	return nil
}

// IsMatching reports whether cs and other differ at most in the fields a
// recovery may overwrite.
func (cs *ClientState) IsMatching(other *ClientState) bool {
	if cs.TrustLevel != other.TrustLevel ||
		cs.UnbondingPeriod != other.UnbondingPeriod ||
		cs.MaxClockDrift != other.MaxClockDrift ||
		cs.StoreKey != other.StoreKey ||
		string(cs.ExecutionHeaderKey) != string(other.ExecutionHeaderKey) ||
		cs.IBCContractAddress != other.IBCContractAddress ||
		cs.StorageLayout != other.StorageLayout ||
		cs.AggregatedCommits != other.AggregatedCommits ||
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
	c.ProofSpecs = append([]commitment.SpecID(nil), cs.ProofSpecs...)
	c.ExecutionHeaderKey = append([]byte(nil), cs.ExecutionHeaderKey...)
	return &c
}

// ConsensusState is the trusted execution state at one height. Membership
// proofs are checked against StorageRoot, the root of the IBC contract
// storage.
type ConsensusState struct {
	// unix ns of the consensus block
	Timestamp          uint64
	StateRoot          common.Hash
	StorageRoot        common.Hash
	NextValidatorsHash []byte
}

var _ client.ConsensusState = (*ConsensusState)(nil)

func (cs *ConsensusState) ClientKind() client.Kind { return client.KindEVM }
func (cs *ConsensusState) GetTimestamp() uint64 { return cs.Timestamp }
func (cs *ConsensusState) GetRoot() []byte { return cs.StorageRoot.Bytes() }

func (cs *ConsensusState) ValidateBasic() error {
	if cs.StateRoot == (common.Hash{}) || cs.StorageRoot == (common.Hash{}) {
		return errors.New("state and storage roots cannot be empty")
	}
	if len(cs.NextValidatorsHash) == 0 {
		return errors.New("next validators hash cannot be empty")
	}
	if err := types.ValidateHash(cs.NextValidatorsHash); err != nil {
		return fmt.Errorf("next validators hash is invalid: %w", err)
	}
	if cs.Timestamp == 0 || cs.Timestamp > 1<<63-1 {
		return fmt.Errorf("timestamp %d out of range", cs.Timestamp)
	}
	return nil
}

func (cs *ConsensusState) Equal(other *ConsensusState) bool {
	return cs.Timestamp == other.Timestamp &&
		cs.StateRoot == other.StateRoot &&
		cs.StorageRoot == other.StorageRoot &&
		string(cs.NextValidatorsHash) == string(other.NextValidatorsHash)
}

// trusted returns the part of cs the consensus chain verification needs.
func (cs *ConsensusState) trusted() *tendermint.ConsensusState {
	return &tendermint.ConsensusState{
		Timestamp:          cs.Timestamp,
		Root:               cs.StateRoot.Bytes(),
		NextValidatorsHash: cs.NextValidatorsHash,
	}
}
