// Package ethproof verifies Merkle-Patricia trie proofs of accounts and
// their storage slots, as returned by eth_getProof.
package ethproof

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
)

// proofDB indexes the proof nodes by their hash, the way trie.VerifyProof
// looks them up.
func proofDB(proof [][]byte) *memorydb.Database {
	db := memorydb.New()
	for _, node := range proof {
		// memorydb never fails a Put
		_ = db.Put(crypto.Keccak256(node), node)
	}
	return db
}

// verifyProof returns the leaf stored under keccak256(key), nil when the
// proof shows the key is absent.
func verifyProof(root common.Hash, key []byte, proof [][]byte) ([]byte, error) {
	if len(proof) == 0 {
		return nil, fmt.Errorf("%w: empty proof", ErrProofInvalid)
	}
	value, err := trie.VerifyProof(root, crypto.Keccak256(key), proofDB(proof))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofInvalid, err)
	}
	return value, nil
}

// VerifyAccountStorageRoot proves the account at address in the state trie
// rooted at stateRoot and returns its storage root.
func VerifyAccountStorageRoot(stateRoot common.Hash, address common.Address, proof [][]byte) (common.Hash, error) {
	leaf, err := verifyProof(stateRoot, address.Bytes(), proof)
	if err != nil {
		return common.Hash{}, err
	}
	if leaf == nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrAccountMissing, address)
	}

	var account types.StateAccount
	if err := rlp.DecodeBytes(leaf, &account); err != nil {
		return common.Hash{}, fmt.Errorf("%w: decode account: %v", ErrProofInvalid, err)
	}
	return account.Root, nil
}

// VerifyAccount is VerifyAccountStorageRoot that also requires the storage
// root to be storageRoot.
func VerifyAccount(stateRoot common.Hash, address common.Address, storageRoot common.Hash, proof [][]byte) error {
	root, err := VerifyAccountStorageRoot(stateRoot, address, proof)
	if err != nil {
		return err
	}
	if root != storageRoot {
		return fmt.Errorf("%w: account %v has %v, expected %v", ErrStorageRootMismatch, address, root, storageRoot)
	}
	return nil
}

// VerifyStorageProof proves that slot holds value in the storage trie
// rooted at storageRoot. value is the 32 byte word stored in the slot.
func VerifyStorageProof(storageRoot common.Hash, slot common.Hash, value []byte, proof [][]byte) error {
	expected, err := EncodeStorageValue(value)
	if err != nil {
		return err
	}
	leaf, err := verifyProof(storageRoot, slot.Bytes(), proof)
	if err != nil {
		return err
	}
	if leaf == nil {
		return fmt.Errorf("%w: slot %v", ErrValueMissing, slot)
	}
	if !bytes.Equal(leaf, expected) {
		return fmt.Errorf("%w: slot %v holds %X, expected %X", ErrValueMismatch, slot, leaf, expected)
	}
	return nil
}

// VerifyStorageAbsence proves that slot is empty in the storage trie rooted
// at storageRoot.
func VerifyStorageAbsence(storageRoot common.Hash, slot common.Hash, proof [][]byte) error {
	leaf, err := verifyProof(storageRoot, slot.Bytes(), proof)
	if err != nil {
		return err
	}
	if leaf != nil {
		return fmt.Errorf("%w: slot %v holds %X", ErrValuePresent, slot, leaf)
	}
	return nil
}

// EncodeStorageValue returns the trie leaf of a storage word: the RLP string
// of the word without leading zeroes. An all-zero word is never stored.
func EncodeStorageValue(value []byte) ([]byte, error) {
	if len(value) > common.HashLength {
		return nil, fmt.Errorf("storage value is %d bytes, max %d", len(value), common.HashLength)
	}
	trimmed := common.TrimLeftZeroes(value)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: zero storage value", ErrValueMissing)
	}
	return rlp.EncodeToBytes(trimmed)
}
