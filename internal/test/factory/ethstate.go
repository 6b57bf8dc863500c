package factory

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// EthState is an account-model state holding one contract account with
// storage, next to a few plain accounts so proofs have some depth.
type EthState struct {
	Address common.Address
	storage map[common.Hash][]byte
}

func NewEthState(address common.Address) *EthState {
	return &EthState{Address: address, storage: make(map[common.Hash][]byte)}
}

// SetStorage sets the 32 byte word stored at slot.
func (s *EthState) SetStorage(slot common.Hash, word []byte) {
	s.storage[slot] = common.LeftPadBytes(word, common.HashLength)
}

func newTrie() *trie.Trie {
	return trie.NewEmpty(triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil))
}

func (s *EthState) storageTrie(t testing.TB) *trie.Trie {
	t.Helper()

	tr := newTrie()
	for slot, word := range s.storage {
		enc, err := rlp.EncodeToBytes(common.TrimLeftZeroes(word))
		require.NoError(t, err)
		tr.MustUpdate(crypto.Keccak256(slot.Bytes()), enc)
	}
	return tr
}

func (s *EthState) stateTrie(t testing.TB) *trie.Trie {
	t.Helper()

	tr := newTrie()
	put := func(addr common.Address, acc *types.StateAccount) {
		enc, err := rlp.EncodeToBytes(acc)
		require.NoError(t, err)
		tr.MustUpdate(crypto.Keccak256(addr.Bytes()), enc)
	}
	for i := byte(1); i <= 16; i++ {
		put(common.BytesToAddress([]byte{0xee, i}), &types.StateAccount{
			Nonce:    uint64(i),
			Balance:  uint256.NewInt(uint64(i) * 1e9),
			Root:     types.EmptyRootHash,
			CodeHash: types.EmptyCodeHash.Bytes(),
		})
	}
	put(s.Address, &types.StateAccount{
		Nonce:    1,
		Balance:  uint256.NewInt(0),
		Root:     s.StorageRoot(t),
		CodeHash: crypto.Keccak256([]byte("ibc handler")),
	})
	return tr
}

// StorageRoot returns the root of the contract's storage trie.
func (s *EthState) StorageRoot(t testing.TB) common.Hash {
	return s.storageTrie(t).Hash()
}

// StateRoot returns the root of the state trie.
func (s *EthState) StateRoot(t testing.TB) common.Hash {
	return s.stateTrie(t).Hash()
}

// AccountProof proves the contract account against StateRoot.
func (s *EthState) AccountProof(t testing.TB) [][]byte {
	t.Helper()

	var proof proofList
	require.NoError(t, s.stateTrie(t).Prove(crypto.Keccak256(s.Address.Bytes()), &proof))
	return proof
}

// StorageProof proves slot, present or not, against StorageRoot.
func (s *EthState) StorageProof(t testing.TB, slot common.Hash) [][]byte {
	t.Helper()

	var proof proofList
	require.NoError(t, s.storageTrie(t).Prove(crypto.Keccak256(slot.Bytes()), &proof))
	return proof
}

// proofList implements ethdb.KeyValueWriter and collects the proof nodes.
type proofList [][]byte

func (n *proofList) Put(key []byte, value []byte) error {
	*n = append(*n, value)
	return nil
}

func (n *proofList) Delete(key []byte) error {
	panic("not supported")
}
