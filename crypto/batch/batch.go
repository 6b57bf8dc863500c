// Package batch selects a batch verifier for a validator key type.
package batch

import (
	"github.com/tendermint/lightclients/crypto"
	"github.com/tendermint/lightclients/crypto/ed25519"
)

// CreateBatchVerifier returns a batch verifier for keys of the type of pk.
// Only ed25519 keys can be batch verified; secp256k1 and bls12381 commits
// are checked one by one or aggregated.
func CreateBatchVerifier(pk crypto.PubKey) (crypto.BatchVerifier, bool) {
	if !SupportsBatchVerifier(pk) {
		return nil, false
	}
	return ed25519.NewBatchVerifier(), true
}

// SupportsBatchVerifier reports whether keys of the type of pk can be batch
// verified.
func SupportsBatchVerifier(pk crypto.PubKey) bool {
	return pk.Type() == ed25519.KeyType
}
