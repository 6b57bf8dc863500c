package factory

import (
	"testing"

	ics23 "github.com/confio/ics23/go"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightclients/commitment"
	"github.com/tendermint/lightclients/crypto/merkle"
)

// MultiStore is a two-layer commitment tree: named merkle maps whose roots
// are committed by an outer merkle map. Proofs verify against
// MultiStoreSpecs.
type MultiStore struct {
	stores map[string]*merkle.Map
}

// MultiStoreSpecs are the specs of a MultiStore proof, innermost first.
var MultiStoreSpecs = []commitment.SpecID{commitment.SpecTendermint, commitment.SpecTendermint}

func NewMultiStore() *MultiStore {
	return &MultiStore{stores: make(map[string]*merkle.Map)}
}

// Set writes key/value into store, creating the store if needed.
func (ms *MultiStore) Set(store string, key, value []byte) {
	m, ok := ms.stores[store]
	if !ok {
		m = merkle.NewMap()
		ms.stores[store] = m
	}
	m.Set(key, value)
}

func (ms *MultiStore) outer() *merkle.Map {
	outer := merkle.NewMap()
	for name, m := range ms.stores {
		outer.Set([]byte(name), m.Hash())
	}
	return outer
}

// Root returns the app hash committing every store.
func (ms *MultiStore) Root() []byte {
	return ms.outer().Hash()
}

// Prove returns the two-layer proof of key in store. The inner proof is a
// non-existence proof when the key is absent.
func (ms *MultiStore) Prove(t testing.TB, store string, key []byte) commitment.MerkleProof {
	t.Helper()

	m, ok := ms.stores[store]
	require.True(t, ok, "unknown store %q", store)

	inner, err := m.Prove(key)
	require.NoError(t, err)
	outer, err := ms.outer().Prove([]byte(store))
	require.NoError(t, err)
	require.NotNil(t, outer.GetExist())

	return commitment.MerkleProof{Proofs: []*ics23.CommitmentProof{inner, outer}}
}

// ProveBytes is Prove followed by MerkleProof.Marshal.
func (ms *MultiStore) ProveBytes(t testing.TB, store string, key []byte) []byte {
	t.Helper()

	bz, err := ms.Prove(t, store, key).Marshal()
	require.NoError(t, err)
	return bz
}
