// Package client defines the framework shared by every light client kind:
// the LightClient interface, the per-call Context, the host store and the
// registry through which one client reaches another.
package client

import (
	"time"

	"github.com/tendermint/lightclients/libs/log"
	"github.com/tendermint/lightclients/types"
)

// ClientState is the decoded, kind-specific configuration of a client.
type ClientState interface {
	ClientKind() Kind
	GetChainID() string
	GetLatestHeight() types.Height
	IsFrozen() bool
	ValidateBasic() error
	Marshal() ([]byte, error)
}

// ConsensusState is the trusted snapshot of the counterparty at one height.
// Consensus states are immutable once written.
type ConsensusState interface {
	ClientKind() Kind
	// GetTimestamp returns the block time in unix nanoseconds.
	GetTimestamp() uint64
	// GetRoot returns the commitment root proofs are checked against.
	GetRoot() []byte
	ValidateBasic() error
	Marshal() ([]byte, error)
}

// ClientMessage is a header or misbehaviour evidence submitted by a relayer.
type ClientMessage interface {
	ClientKind() Kind
	ValidateBasic() error
}

// StateUpdate is the outcome of a successful header verification. Nothing is
// persisted until it is applied.
type StateUpdate struct {
	Height         types.Height
	ConsensusState ConsensusState
	// ClientState is nil when the client state does not change.
	ClientState ClientState
}

// Event is emitted by a client for the host to publish.
type Event struct {
	Type       string
	Attributes []EventAttribute
}

type EventAttribute struct {
	Key   string
	Value string
}

// CreationResult is returned by VerifyCreation.
type CreationResult struct {
	Events []Event
}

// ClientStore is the host storage of one client. Implementations return
// ErrClientNotFound and ErrConsensusStateNotFound for missing entries.
type ClientStore interface {
	ClientState() ([]byte, error)
	SetClientState(bz []byte) error
	ConsensusState(height types.Height) ([]byte, error)
	SetConsensusState(height types.Height, bz []byte) error
	// PreviousConsensusState returns the consensus state at the greatest
	// height strictly below height.
	PreviousConsensusState(height types.Height) (types.Height, []byte, error)
	// NextConsensusState returns the consensus state at the lowest height
	// strictly above height.
	NextConsensusState(height types.Height) (types.Height, []byte, error)
}

// Registry gives a client read access to other clients of the same host.
type Registry interface {
	VerifyMembership(clientID string, height types.Height, key, proof, value []byte) error
	Status(clientID string) Status
	LatestHeight(clientID string) (types.Height, error)
	DecodeConsensusState(kind Kind, bz []byte) (ConsensusState, error)
}

// Context carries everything a client needs for one call. Now is the host
// time; clients never read the wall clock.
type Context struct {
	ClientID string
	Store    ClientStore
	Clients  Registry
	Now      time.Time
	Logger   log.Logger
}

// LightClient is implemented once per Kind.
type LightClient interface {
	Kind() Kind

	DecodeClientState(bz []byte) (ClientState, error)
	DecodeConsensusState(bz []byte) (ConsensusState, error)
	DecodeClientMessage(bz []byte) (ClientMessage, error)

	// VerifyCreation checks the initial states before the host stores them.
	VerifyCreation(ctx Context, clientState ClientState, consensusState ConsensusState) (*CreationResult, error)

	// VerifyHeader checks msg against the stored trusted state without
	// writing anything.
	VerifyHeader(ctx Context, msg ClientMessage) (*StateUpdate, error)
	// UpdateState persists the state derived from a verified header. It is
	// idempotent: a header at an already stored height changes nothing.
	UpdateState(ctx Context, msg ClientMessage) ([]types.Height, error)

	CheckForMisbehaviour(ctx Context, msg ClientMessage) (bool, error)
	VerifyMisbehaviour(ctx Context, msg ClientMessage) error
	UpdateStateOnMisbehaviour(ctx Context, msg ClientMessage) error

	VerifyMembership(ctx Context, height types.Height, key, proof, value []byte) error
	VerifyNonMembership(ctx Context, height types.Height, key, proof []byte) error

	Status(ctx Context) Status

	// MigrateClientStore overwrites the client in ctx with the trusted
	// state of substitute.
	MigrateClientStore(ctx Context, substitute Context) error
	VerifyUpgrade(ctx Context, upgradedClient, upgradedConsensus, proofClient, proofConsensus []byte) error

	Timestamp(consensusState ConsensusState) uint64
	LatestHeight(clientState ClientState) types.Height
	CounterpartyChainID(clientState ClientState) string
}
