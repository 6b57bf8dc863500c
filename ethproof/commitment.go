package ethproof

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// CommitmentKey is the 32 byte key an IBC contract stores the commitment of
// path under.
func CommitmentKey(path []byte) common.Hash {
	return crypto.Keccak256Hash(path)
}

// StorageLayout says how a commitment key maps to a storage slot of the IBC
// contract. It is either PathIndexed or SlotIndexed.
type StorageLayout interface {
	isStorageLayout()
}

// PathIndexed contracts use the commitment key itself as the slot.
type PathIndexed struct{}

// SlotIndexed contracts keep commitments in a mapping(bytes32 => bytes32)
// declared at Slot, so the slot of key is keccak256(key || be32(Slot)).
type SlotIndexed struct {
	Slot uint256.Int
}

func (PathIndexed) isStorageLayout() {}
func (SlotIndexed) isStorageLayout() {}

// StorageSlot returns the storage slot holding the commitment stored under
// key.
func StorageSlot(layout StorageLayout, key []byte) (common.Hash, error) {
	if len(key) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: got %d", ErrInvalidCommitmentKeyLength, len(key))
	}
	switch l := layout.(type) {
	case PathIndexed:
		return common.BytesToHash(key), nil
	case SlotIndexed:
		slot := l.Slot.Bytes32()
		return crypto.Keccak256Hash(key, slot[:]), nil
	default:
		return common.Hash{}, fmt.Errorf("unknown storage layout %T", layout)
	}
}
