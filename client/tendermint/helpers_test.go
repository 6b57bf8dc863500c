package tendermint_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/client/tendermint"
	"github.com/tendermint/lightclients/internal/store"
	"github.com/tendermint/lightclients/internal/test/factory"
	"github.com/tendermint/lightclients/libs/log"
	"github.com/tendermint/lightclients/light"
	"github.com/tendermint/lightclients/types"
)

const (
	chainID        = "testchain-1"
	clientID       = "07-tendermint-0"
	storeKey       = "ibc"
	trustingPeriod = 2 * time.Hour
	unbondPeriod   = 3 * time.Hour
	maxClockDrift  = 10 * time.Second
)

var (
	bTime     = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	keyPrefix = []byte("commitments/")
)

func height(h uint64) types.Height {
	return types.NewHeight(1, h)
}

type testChain struct {
	keys  factory.PrivKeys
	vals  *types.ValidatorSet
	state *factory.MultiStore
}

func newTestChain() *testChain {
	keys := factory.GenPrivKeys(4)
	c := &testChain{
		keys:  keys,
		vals:  keys.ToValidators(10, 0),
		state: factory.NewMultiStore(),
	}
	c.set([]byte("ports/transfer"), []byte("bound"))
	c.set([]byte("channels/channel-0"), []byte("open"))
	return c
}

func (c *testChain) set(key, value []byte) {
	c.state.Set(storeKey, append(append([]byte(nil), keyPrefix...), key...), value)
}

func (c *testChain) prove(t *testing.T, key []byte) []byte {
	return c.state.ProveBytes(t, storeKey, append(append([]byte(nil), keyPrefix...), key...))
}

// header returns a header at h signed by the first `signers` validators and
// trusting height trusted.
func (c *testChain) header(t *testing.T, h int64, tm time.Time, trusted types.Height, signers int) *tendermint.Header {
	return c.headerWithAppHash(t, h, tm, trusted, signers, c.state.Root())
}

func (c *testChain) headerWithAppHash(t *testing.T, h int64, tm time.Time, trusted types.Height, signers int, appHash []byte) *tendermint.Header {
	return &tendermint.Header{
		SignedHeader:      c.keys.GenSignedHeader(t, chainID, h, tm, c.vals, c.vals, appHash, 0, signers),
		ValidatorSet:      c.vals,
		TrustedHeight:     trusted,
		TrustedValidators: c.vals,
	}
}

func newClientState() *tendermint.ClientState {
	return tendermint.NewClientState(chainID, light.DefaultTrustLevel, trustingPeriod, unbondPeriod, maxClockDrift,
		height(1), factory.MultiStoreSpecs, storeKey, keyPrefix)
}

type suite struct {
	chain *testChain
	db    *store.Store
	tx    *store.Tx
	lc    tendermint.LightClient
	ctx   client.Context
}

// setup creates a client trusting height 1 of a fresh chain, with the host
// clock one hour after genesis.
func setup(t *testing.T) *suite {
	t.Helper()

	s := &suite{chain: newTestChain(), db: store.NewMemStore()}
	s.tx = s.db.NewTx()
	s.ctx = s.contextFor(clientID)

	genesis := s.chain.header(t, 1, bTime, height(1), len(s.chain.keys))
	cons, err := tendermint.NewConsensusState(genesis.SignedHeader.Header)
	require.NoError(t, err)
	s.create(t, s.ctx, newClientState(), cons)
	return s
}

func (s *suite) contextFor(id string) client.Context {
	return client.Context{
		ClientID: id,
		Store:    s.tx.ClientStore(id),
		Now:      bTime.Add(time.Hour),
		Logger:   log.TestingLogger(),
	}
}

func (s *suite) create(t *testing.T, ctx client.Context, cs *tendermint.ClientState, cons *tendermint.ConsensusState) {
	t.Helper()

	_, err := s.lc.VerifyCreation(ctx, cs, cons)
	require.NoError(t, err)

	bz, err := cs.Marshal()
	require.NoError(t, err)
	require.NoError(t, ctx.Store.SetClientState(bz))
	bz, err = cons.Marshal()
	require.NoError(t, err)
	require.NoError(t, ctx.Store.SetConsensusState(cs.LatestHeight, bz))
}

func (s *suite) clientState(t *testing.T, ctx client.Context) *tendermint.ClientState {
	t.Helper()

	bz, err := ctx.Store.ClientState()
	require.NoError(t, err)
	cs, err := tendermint.DecodeClientState(bz)
	require.NoError(t, err)
	return cs
}

// update verifies h and applies it.
func (s *suite) update(t *testing.T, h *tendermint.Header) {
	t.Helper()

	_, err := s.lc.VerifyHeader(s.ctx, h)
	require.NoError(t, err)
	_, err = s.lc.UpdateState(s.ctx, h)
	require.NoError(t, err)
}
