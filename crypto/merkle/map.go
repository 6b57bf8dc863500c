package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	ics23 "github.com/confio/ics23/go"
	"github.com/gogo/protobuf/proto"
)

var ErrEmptyMap = errors.New("merkle: map is empty")

// Map is a sorted key-value merkle tree. Each leaf is
// varint(len(key)) || key || varint(32) || sha256(value), so proofs over it
// verify against ics23.TendermintSpec.
type Map struct {
	values map[string][]byte
}

func NewMap() *Map {
	return &Map{values: make(map[string][]byte)}
}

// Set inserts or replaces the value stored under key.
func (m *Map) Set(key, value []byte) {
	m.values[string(key)] = value
}

// Get returns the value stored under key, if any.
func (m *Map) Get(key []byte) ([]byte, bool) {
	v, ok := m.values[string(key)]
	return v, ok
}

// Hash returns the merkle root of the sorted key-value leaves.
func (m *Map) Hash() []byte {
	_, leaves := m.leaves()
	return HashFromByteSlices(leaves)
}

// Prove returns an existence proof when key is present, a non-existence
// proof built from its neighbours otherwise.
func (m *Map) Prove(key []byte) (*ics23.CommitmentProof, error) {
	keys, leaves := m.leaves()
	if len(keys) == 0 {
		return nil, ErrEmptyMap
	}
	_, proofs := ProofsFromByteSlices(leaves)

	idx := sort.Search(len(keys), func(i int) bool { return bytes.Compare(keys[i], key) >= 0 })
	if idx < len(keys) && bytes.Equal(keys[idx], key) {
		ep, err := ConvertExistenceProof(proofs[idx], keys[idx], m.values[string(keys[idx])])
		if err != nil {
			return nil, err
		}
		return &ics23.CommitmentProof{Proof: &ics23.CommitmentProof_Exist{Exist: ep}}, nil
	}

	nonexist := &ics23.NonExistenceProof{Key: key}
	if idx > 0 {
		left, err := ConvertExistenceProof(proofs[idx-1], keys[idx-1], m.values[string(keys[idx-1])])
		if err != nil {
			return nil, err
		}
		nonexist.Left = left
	}
	if idx < len(keys) {
		right, err := ConvertExistenceProof(proofs[idx], keys[idx], m.values[string(keys[idx])])
		if err != nil {
			return nil, err
		}
		nonexist.Right = right
	}
	return &ics23.CommitmentProof{Proof: &ics23.CommitmentProof_Nonexist{Nonexist: nonexist}}, nil
}

func (m *Map) leaves() ([][]byte, [][]byte) {
	keys := make([][]byte, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, []byte(k))
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })

	leaves := make([][]byte, len(keys))
	for i, k := range keys {
		leaves[i] = kvLeaf(k, m.values[string(k)])
	}
	return keys, leaves
}

func kvLeaf(key, value []byte) []byte {
	vh := sha256.Sum256(value)
	bz := make([]byte, 0, len(key)+len(vh)+2*binary.MaxVarintLen64)
	bz = append(bz, proto.EncodeVarint(uint64(len(key)))...)
	bz = append(bz, key...)
	bz = append(bz, proto.EncodeVarint(uint64(len(vh)))...)
	bz = append(bz, vh[:]...)
	return bz
}

func (m *Map) String() string {
	return fmt.Sprintf("Map{%d entries}", len(m.values))
}
