// Package store persists light client state in a tm-db database. It is the
// reference host store: every call of the router runs in a Tx whose writes
// are buffered and flushed in one batch on commit.
package store

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/types"
)

// Store holds the client and consensus states of every client.
type Store struct {
	db dbm.DB
}

// New returns a Store backed by db.
func New(db dbm.DB) *Store {
	return &Store{db: db}
}

// NewMemStore returns a Store backed by an in-memory database.
func NewMemStore() *Store {
	return New(dbm.NewMemDB())
}

// NewTx starts a transaction. Reads through the transaction observe its own
// buffered writes.
func (s *Store) NewTx() *Tx {
	return &Tx{db: s.db, pending: dbm.NewMemDB()}
}

// ClientIDs returns the ids of all stored clients in key order.
func (s *Store) ClientIDs() ([]string, error) {
	start := prefixKey(prefixClientState)
	iter, err := s.db.Iterator(start, prefixEnd(start))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []string
	for ; iter.Valid(); iter.Next() {
		id, err := decodeClientStateKey(iter.Key())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, iter.Error()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx buffers writes until Commit.
type Tx struct {
	db      dbm.DB
	pending *dbm.MemDB
	done    bool
}

// ClientStore returns the view of one client inside the transaction.
func (tx *Tx) ClientStore(clientID string) client.ClientStore {
	return &clientStore{tx: tx, clientID: clientID}
}

// NextClientSequence returns the sequence number of the next client.
func (tx *Tx) NextClientSequence() (uint64, error) {
	bz, err := tx.get(nextSequenceKey())
	if err != nil || bz == nil {
		return 0, err
	}
	var seq uint64
	if _, err := orderedcode.Parse(string(bz), &seq); err != nil {
		return 0, fmt.Errorf("decode client sequence: %w", err)
	}
	return seq, nil
}

// SetNextClientSequence stores the sequence number of the next client.
func (tx *Tx) SetNextClientSequence(seq uint64) error {
	bz, err := orderedcode.Append(nil, seq)
	if err != nil {
		return err
	}
	return tx.set(nextSequenceKey(), bz)
}

// Commit writes all buffered writes in one synced batch. The transaction
// cannot be used afterwards.
func (tx *Tx) Commit() error {
	if tx.done {
		return errors.New("transaction already finished")
	}
	tx.done = true

	iter, err := tx.pending.Iterator(nil, nil)
	if err != nil {
		return err
	}
	defer iter.Close()

	batch := tx.db.NewBatch()
	defer batch.Close()

	for ; iter.Valid(); iter.Next() {
		if err := batch.Set(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return err
	}
	return batch.WriteSync()
}

// Discard drops all buffered writes.
func (tx *Tx) Discard() {
	tx.done = true
	tx.pending = dbm.NewMemDB()
}

func (tx *Tx) get(key []byte) ([]byte, error) {
	bz, err := tx.pending.Get(key)
	if err != nil || bz != nil {
		return bz, err
	}
	return tx.db.Get(key)
}

func (tx *Tx) set(key, value []byte) error {
	if tx.done {
		return errors.New("transaction already finished")
	}
	return tx.pending.Set(key, value)
}

// seek returns the first entry of [start, end) from both the buffered
// writes and the database, walking forward or backward.
func (tx *Tx) seek(start, end []byte, reverse bool) (key, value []byte, err error) {
	first := func(db dbm.DB) ([]byte, []byte, error) {
		var (
			iter dbm.Iterator
			err  error
		)
		if reverse {
			iter, err = db.ReverseIterator(start, end)
		} else {
			iter, err = db.Iterator(start, end)
		}
		if err != nil {
			return nil, nil, err
		}
		defer iter.Close()
		if !iter.Valid() {
			return nil, nil, iter.Error()
		}
		return copyBytes(iter.Key()), copyBytes(iter.Value()), nil
	}

	pk, pv, err := first(tx.pending)
	if err != nil {
		return nil, nil, err
	}
	dk, dv, err := first(tx.db)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case pk == nil:
		return dk, dv, nil
	case dk == nil:
		return pk, pv, nil
	}
	cmp := bytes.Compare(pk, dk)
	if reverse {
		cmp = -cmp
	}
	if cmp <= 0 {
		return pk, pv, nil
	}
	return dk, dv, nil
}

type clientStore struct {
	tx       *Tx
	clientID string
}

var _ client.ClientStore = (*clientStore)(nil)

func (cs *clientStore) ClientState() ([]byte, error) {
	bz, err := cs.tx.get(clientStateKey(cs.clientID))
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return nil, fmt.Errorf("%w: %s", client.ErrClientNotFound, cs.clientID)
	}
	return bz, nil
}

func (cs *clientStore) SetClientState(bz []byte) error {
	return cs.tx.set(clientStateKey(cs.clientID), bz)
}

func (cs *clientStore) ConsensusState(height types.Height) ([]byte, error) {
	bz, err := cs.tx.get(consensusStateKey(cs.clientID, height))
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return nil, fmt.Errorf("%w: %s at %v", client.ErrConsensusStateNotFound, cs.clientID, height)
	}
	return bz, nil
}

func (cs *clientStore) SetConsensusState(height types.Height, bz []byte) error {
	return cs.tx.set(consensusStateKey(cs.clientID, height), bz)
}

func (cs *clientStore) PreviousConsensusState(height types.Height) (types.Height, []byte, error) {
	start := consensusStatePrefix(cs.clientID)
	return cs.seekConsensusState(start, consensusStateKey(cs.clientID, height), true, height)
}

func (cs *clientStore) NextConsensusState(height types.Height) (types.Height, []byte, error) {
	if height.RevisionHeight == 1<<64-1 {
		return types.Height{}, nil, fmt.Errorf("%w: %s after %v", client.ErrConsensusStateNotFound, cs.clientID, height)
	}
	start := consensusStateKey(cs.clientID, height.Increment())
	return cs.seekConsensusState(start, prefixEnd(consensusStatePrefix(cs.clientID)), false, height)
}

func (cs *clientStore) seekConsensusState(start, end []byte, reverse bool, from types.Height) (types.Height, []byte, error) {
	key, value, err := cs.tx.seek(start, end, reverse)
	if err != nil {
		return types.Height{}, nil, err
	}
	if key == nil {
		return types.Height{}, nil, fmt.Errorf("%w: %s next to %v", client.ErrConsensusStateNotFound, cs.clientID, from)
	}
	_, height, err := decodeConsensusStateKey(key)
	if err != nil {
		return types.Height{}, nil, err
	}
	return height, value, nil
}

//---------------------------------- KEY ENCODING -----------------------------------------

// key prefixes
const (
	prefixClientState    = int64(0)
	prefixConsensusState = int64(1)
	prefixNextSequence   = int64(2)
)

func prefixKey(prefix int64) []byte {
	key, err := orderedcode.Append(nil, prefix)
	if err != nil {
		panic(err)
	}
	return key
}

// prefixEnd returns the exclusive upper bound of all keys starting with
// prefix. Components following a prefix are uint64s or ASCII client ids,
// neither of which encodes to a leading 0xff.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix), len(prefix)+1)
	copy(end, prefix)
	return append(end, 0xff)
}

func clientStateKey(clientID string) []byte {
	key, err := orderedcode.Append(nil, prefixClientState, clientID)
	if err != nil {
		panic(err)
	}
	return key
}

func decodeClientStateKey(key []byte) (clientID string, err error) {
	var prefix int64
	remaining, err := orderedcode.Parse(string(key), &prefix, &clientID)
	if err != nil {
		return "", err
	}
	if len(remaining) != 0 {
		return "", fmt.Errorf("expected complete key but got remainder: %s", remaining)
	}
	if prefix != prefixClientState {
		return "", fmt.Errorf("incorrect prefix. Expected %v, got %v", prefixClientState, prefix)
	}
	return clientID, nil
}

func consensusStatePrefix(clientID string) []byte {
	key, err := orderedcode.Append(nil, prefixConsensusState, clientID)
	if err != nil {
		panic(err)
	}
	return key
}

func consensusStateKey(clientID string, height types.Height) []byte {
	key, err := orderedcode.Append(nil, prefixConsensusState, clientID, height.RevisionNumber, height.RevisionHeight)
	if err != nil {
		panic(err)
	}
	return key
}

func decodeConsensusStateKey(key []byte) (clientID string, height types.Height, err error) {
	var prefix int64
	remaining, err := orderedcode.Parse(string(key), &prefix, &clientID, &height.RevisionNumber, &height.RevisionHeight)
	if err != nil {
		return "", types.Height{}, err
	}
	if len(remaining) != 0 {
		return "", types.Height{}, fmt.Errorf("expected complete key but got remainder: %s", remaining)
	}
	if prefix != prefixConsensusState {
		return "", types.Height{}, fmt.Errorf("incorrect prefix. Expected %v, got %v", prefixConsensusState, prefix)
	}
	return clientID, height, nil
}

func copyBytes(bz []byte) []byte {
	if bz == nil {
		return nil
	}
	c := make([]byte, len(bz))
	copy(c, bz)
	return c
}

func nextSequenceKey() []byte {
	return prefixKey(prefixNextSequence)
}
