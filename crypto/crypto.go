// Package crypto defines the validator key interfaces used to check
// counterparty commits. Implementations live in the subpackages.
package crypto

import (
	"crypto/sha256"

	"github.com/tendermint/lightclients/libs/bytes"
)

const (
	// HashSize is the size of header, block and part set hashes.
	HashSize = sha256.Size

	// AddressSize is the size of a validator address.
	AddressSize = 20
)

// Address is the truncated hash identifying a validator in commits.
type Address = bytes.HexBytes

// AddressHash returns the first AddressSize bytes of sha256(bz).
func AddressHash(bz []byte) Address {
	h := sha256.Sum256(bz)
	return Address(h[:AddressSize])
}

// Checksum returns the SHA256 of the bz.
func Checksum(bz []byte) []byte {
	h := sha256.Sum256(bz)
	return h[:]
}

// PubKey is a validator key found in a counterparty validator set.
type PubKey interface {
	Address() Address
	Bytes() []byte
	VerifySignature(msg []byte, sig []byte) bool
	Equals(PubKey) bool
	Type() string
}

// PrivKey signs votes. Only test factories hold private keys.
type PrivKey interface {
	Bytes() []byte
	Sign(msg []byte) ([]byte, error)
	PubKey() PubKey
	Equals(PrivKey) bool
	Type() string
}

// BatchVerifier checks many signatures at once. Key types that support it
// are listed in crypto/batch.
type BatchVerifier interface {
	// Add queues a signature.
	Add(key PubKey, message, signature []byte) error
	// Verify reports whether every queued signature is valid, along with
	// the validity of each one in the order they were added.
	Verify() (bool, []bool)
}
