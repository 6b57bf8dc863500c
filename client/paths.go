package client

import (
	"fmt"

	"github.com/tendermint/lightclients/types"
)

// ICS-24 host paths.
const (
	KeyClientStorePrefix = "clients"
	KeyClientState       = "clientState"
	KeyConsensusStates   = "consensusStates"
)

// FullClientPath prefixes path with the client store of clientID.
func FullClientPath(clientID string, path string) string {
	return fmt.Sprintf("%s/%s/%s", KeyClientStorePrefix, clientID, path)
}

// ClientStatePath returns the path under which the client state of
// clientID is committed.
func ClientStatePath(clientID string) string {
	return FullClientPath(clientID, KeyClientState)
}

// ConsensusStatePath returns the path under which the consensus state of
// clientID at height is committed.
func ConsensusStatePath(clientID string, height types.Height) string {
	return FullClientPath(clientID, fmt.Sprintf("%s/%s", KeyConsensusStates, height))
}
