package tendermint

import (
	"errors"
	"fmt"
	"time"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/commitment"
	tmmath "github.com/tendermint/lightclients/libs/math"
	"github.com/tendermint/lightclients/light"
	"github.com/tendermint/lightclients/types"
)

// MaxChainIDLen bounds the counterparty chain id.
const MaxChainIDLen = 128

// FrozenHeight is the frozen height of a client that has seen misbehaviour.
var FrozenHeight = types.NewHeight(0, 1)

// TrustOptions are the parameters of BFT header verification.
type TrustOptions struct {
	ChainID           string
	TrustLevel        tmmath.Fraction
	TrustingPeriod    time.Duration
	MaxClockDrift     time.Duration
	AggregatedCommits bool
}

// Verifier returns the commit signature verifier of the counterparty.
func (opts TrustOptions) Verifier() types.SignatureVerifier {
	if opts.AggregatedCommits {
		return types.AggregateSignatures{}
	}
	return types.IndividualSignatures{}
}

// ValidateBasic checks the trust parameters. unbondingPeriod bounds the
// trusting period.
func (opts TrustOptions) ValidateBasic(unbondingPeriod time.Duration) error {
	if len(opts.ChainID) == 0 || len(opts.ChainID) > MaxChainIDLen {
		return fmt.Errorf("invalid chain id length %d", len(opts.ChainID))
	}
	if err := light.ValidateTrustLevel(opts.TrustLevel); err != nil {
		return err
	}
	if opts.TrustingPeriod <= 0 {
		return errors.New("trusting period must be positive")
	}
	if unbondingPeriod <= 0 {
		return errors.New("unbonding period must be positive")
	}
	if opts.TrustingPeriod >= unbondingPeriod {
		return fmt.Errorf("trusting period (%v) must be less than unbonding period (%v)",
			opts.TrustingPeriod, unbondingPeriod)
	}
	if opts.MaxClockDrift <= 0 {
		return errors.New("max clock drift must be positive")
	}
	return nil
}

// ClientState tracks a BFT chain. Membership proofs are checked against the
// app hash under [StoreKey, KeyPrefix ++ key].
type ClientState struct {
	ChainID           string
	TrustLevel        tmmath.Fraction
	TrustingPeriod    time.Duration
	UnbondingPeriod   time.Duration
	MaxClockDrift     time.Duration
	FrozenHeight      types.Height
	LatestHeight      types.Height
	ProofSpecs        []commitment.SpecID
	StoreKey          string
	KeyPrefix         []byte
	AggregatedCommits bool
}

var _ client.ClientState = (*ClientState)(nil)

// NewClientState returns an unfrozen client state.
func NewClientState(
	chainID string,
	trustLevel tmmath.Fraction,
	trustingPeriod, unbondingPeriod, maxClockDrift time.Duration,
	latestHeight types.Height,
	specs []commitment.SpecID,
	storeKey string,
	keyPrefix []byte,
) *ClientState {
	return &ClientState{
		ChainID:         chainID,
		TrustLevel:      trustLevel,
		TrustingPeriod:  trustingPeriod,
		UnbondingPeriod: unbondingPeriod,
		MaxClockDrift:   maxClockDrift,
		LatestHeight:    latestHeight,
		ProofSpecs:      specs,
		StoreKey:        storeKey,
		KeyPrefix:       keyPrefix,
	}
}

func (cs *ClientState) ClientKind() client.Kind { return client.KindTendermint }
func (cs *ClientState) GetChainID() string { return cs.ChainID }
func (cs *ClientState) GetLatestHeight() types.Height { return cs.LatestHeight }
func (cs *ClientState) IsFrozen() bool { return !cs.FrozenHeight.IsZero() }

// TrustOptions returns the verification parameters of the client.
func (cs *ClientState) TrustOptions() TrustOptions {
	return TrustOptions{
		ChainID:           cs.ChainID,
		TrustLevel:        cs.TrustLevel,
		TrustingPeriod:    cs.TrustingPeriod,
		MaxClockDrift:     cs.MaxClockDrift,
		AggregatedCommits: cs.AggregatedCommits,
	}
}

// ValidateBasic performs stateless checks.
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
	if cs.StoreKey == "" {
		return errors.New("store key cannot be empty")
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
		string(cs.KeyPrefix) != string(other.KeyPrefix) ||
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

// Copy returns a deep copy.
func (cs *ClientState) Copy() *ClientState {
	c := *cs
	c.ProofSpecs = append([]commitment.SpecID(nil), cs.ProofSpecs...)
	c.KeyPrefix = append([]byte(nil), cs.KeyPrefix...)
	return &c
}

// ConsensusState is the trusted snapshot of a BFT chain at one height.
type ConsensusState struct {
	// unix ns
	Timestamp          uint64
	Root               []byte
	NextValidatorsHash []byte
}

var _ client.ConsensusState = (*ConsensusState)(nil)

// NewConsensusState derives the consensus state committed by header.
func NewConsensusState(header *types.Header) (*ConsensusState, error) {
	ts, err := tmmath.SafeConvertUint64(header.Time.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("header time: %w", err)
	}
	return &ConsensusState{
		Timestamp:          ts,
		Root:               header.AppHash,
		NextValidatorsHash: header.NextValidatorsHash,
	}, nil
}

func (cs *ConsensusState) ClientKind() client.Kind { return client.KindTendermint }
func (cs *ConsensusState) GetTimestamp() uint64 { return cs.Timestamp }
func (cs *ConsensusState) GetRoot() []byte { return cs.Root }

// Time returns the block time.
func (cs *ConsensusState) Time() time.Time {
	return client.TimestampToTime(cs.Timestamp)
}

func (cs *ConsensusState) ValidateBasic() error {
	if len(cs.Root) == 0 {
		return errors.New("root cannot be empty")
	}
	if err := types.ValidateHash(cs.NextValidatorsHash); err != nil {
		return fmt.Errorf("next validators hash is invalid: %w", err)
	}
	if len(cs.NextValidatorsHash) == 0 {
		return errors.New("next validators hash cannot be empty")
	}
	if cs.Timestamp == 0 || cs.Timestamp > 1<<63-1 {
		return fmt.Errorf("timestamp %d out of range", cs.Timestamp)
	}
	return nil
}

// Equal reports whether both snapshots commit the same block.
func (cs *ConsensusState) Equal(other *ConsensusState) bool {
	return cs.Timestamp == other.Timestamp &&
		string(cs.Root) == string(other.Root) &&
		string(cs.NextValidatorsHash) == string(other.NextValidatorsHash)
}
