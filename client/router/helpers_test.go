package router_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/client/router"
	"github.com/tendermint/lightclients/client/tendermint"
	"github.com/tendermint/lightclients/internal/store"
	"github.com/tendermint/lightclients/internal/test/factory"
	"github.com/tendermint/lightclients/libs/log"
	"github.com/tendermint/lightclients/light"
	"github.com/tendermint/lightclients/types"
)

const (
	chainID  = "testchain-1"
	storeKey = "ibc"
)

var (
	bTime = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	now   = bTime.Add(time.Hour)
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
	c := &testChain{keys: keys, vals: keys.ToValidators(10, 0), state: factory.NewMultiStore()}
	c.state.Set(storeKey, []byte("ports/transfer"), []byte("bound"))
	return c
}

func (c *testChain) blockTime(h int64) time.Time {
	return bTime.Add(time.Duration(h) * time.Minute)
}

func (c *testChain) header(t *testing.T, h int64, trusted types.Height) *tendermint.Header {
	return &tendermint.Header{
		SignedHeader:      c.keys.GenSignedHeader(t, chainID, h, c.blockTime(h), c.vals, c.vals, c.state.Root(), 0, len(c.keys)),
		ValidatorSet:      c.vals,
		TrustedHeight:     trusted,
		TrustedValidators: c.vals,
	}
}

func (c *testChain) headerBytes(t *testing.T, h int64, trusted types.Height) []byte {
	t.Helper()

	bz, err := tendermint.MarshalClientMessage(c.header(t, h, trusted))
	require.NoError(t, err)
	return bz
}

// states returns the encoded bootstrap states of a client trusting the
// chain at height h.
func (c *testChain) states(t *testing.T, h int64) (cs, cons []byte) {
	t.Helper()

	clientState := tendermint.NewClientState(chainID, light.DefaultTrustLevel, 2*time.Hour, 3*time.Hour, 10*time.Second,
		height(uint64(h)), factory.MultiStoreSpecs, storeKey, nil)
	consensusState, err := tendermint.NewConsensusState(c.header(t, h, height(1)).SignedHeader.Header)
	require.NoError(t, err)

	cs, err = clientState.Marshal()
	require.NoError(t, err)
	cons, err = consensusState.Marshal()
	require.NoError(t, err)
	return cs, cons
}

func newRouter(options ...router.Option) *router.Router {
	return router.New(store.NewMemStore(), log.TestingLogger(), options...)
}

// createClient creates a BFT client of c trusting height h.
func createClient(t *testing.T, r *router.Router, c *testChain, h int64) string {
	t.Helper()

	cs, cons := c.states(t, h)
	id, _, err := r.CreateClient(client.KindTendermint, cs, cons, now)
	require.NoError(t, err)
	return id
}
