package router_test

import (
	"testing"
	"time"

	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/client/router"
	"github.com/tendermint/lightclients/client/statelens"
	"github.com/tendermint/lightclients/client/tendermint"
	"github.com/tendermint/lightclients/internal/test/factory"
	"github.com/tendermint/lightclients/types"
)

func TestLightClientFor(t *testing.T) {
	for _, kind := range client.Kinds {
		lc, err := router.LightClientFor(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, lc.Kind())
	}
	_, err := router.LightClientFor("06-solomachine")
	assert.ErrorIs(t, err, client.ErrUnknownKind)
}

func TestCreateClient(t *testing.T) {
	r := newRouter()
	c := newTestChain()
	cs, cons := c.states(t, 1)

	id, events, err := r.CreateClient(client.KindTendermint, cs, cons, now)
	require.NoError(t, err)
	assert.Equal(t, "07-tendermint-0", id)
	require.Len(t, events, 1)
	assert.Equal(t, router.EventTypeCreateClient, events[0].Type)
	assert.Contains(t, events[0].Attributes, client.EventAttribute{Key: router.AttributeKeyConsensusHeight, Value: "1-1"})

	id, _, err = r.CreateClient(client.KindTendermint, cs, cons, now)
	require.NoError(t, err)
	assert.Equal(t, "07-tendermint-1", id)

	ids, err := r.Clients()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"07-tendermint-0", "07-tendermint-1"}, ids)

	_, _, err = r.CreateClient(client.KindTendermint, []byte{0x01}, cons, now)
	assert.ErrorIs(t, err, client.ErrDecode)

	_, _, err = r.CreateClient("06-solomachine", cs, cons, now)
	assert.ErrorIs(t, err, client.ErrUnknownKind)

	// a bootstrap state outside the trusting period is rejected and does
	// not consume a sequence
	_, _, err = r.CreateClient(client.KindTendermint, cs, cons, now.Add(3*time.Hour))
	assert.ErrorIs(t, err, client.ErrInvalidClient)
	id, _, err = r.CreateClient(client.KindTendermint, cs, cons, now)
	require.NoError(t, err)
	assert.Equal(t, "07-tendermint-2", id)
}

func TestUpdateClient(t *testing.T) {
	r := newRouter()
	c := newTestChain()
	id := createClient(t, r, c, 1)

	res, err := r.UpdateClient(id, c.headerBytes(t, 2, height(1)), now)
	require.NoError(t, err)
	assert.False(t, res.Frozen)
	assert.Equal(t, []types.Height{height(2)}, res.Heights)
	require.Len(t, res.Events, 1)
	assert.Equal(t, router.EventTypeUpdateClient, res.Events[0].Type)

	latest, err := r.LatestHeight(id)
	require.NoError(t, err)
	assert.Equal(t, height(2), latest)

	ts, err := r.TimestampAtHeight(id, height(2))
	require.NoError(t, err)
	assert.Equal(t, uint64(c.blockTime(2).UnixNano()), ts)

	chain, err := r.CounterpartyChainID(id)
	require.NoError(t, err)
	assert.Equal(t, chainID, chain)

	// the same header again changes nothing and emits nothing
	res, err = r.UpdateClient(id, c.headerBytes(t, 2, height(1)), now)
	require.NoError(t, err)
	assert.Empty(t, res.Events)

	// a rejected header leaves the store untouched
	bad := c.header(t, 3, height(2))
	bad.SignedHeader = c.keys.GenSignedHeader(t, chainID, 3, c.blockTime(3), c.vals, c.vals, c.state.Root(), 0, 2)
	bz, err := tendermint.MarshalClientMessage(bad)
	require.NoError(t, err)
	_, err = r.UpdateClient(id, bz, now)
	assert.ErrorIs(t, err, client.ErrInsufficientVotingPower)
	_, err = r.TimestampAtHeight(id, height(3))
	assert.ErrorIs(t, err, client.ErrConsensusStateNotFound)

	_, err = r.UpdateClient(id, []byte{0x01, 0x02}, now)
	assert.ErrorIs(t, err, client.ErrDecode)

	_, err = r.UpdateClient("07-tendermint-7", c.headerBytes(t, 3, height(2)), now)
	assert.ErrorIs(t, err, client.ErrClientNotFound)

	_, err = r.UpdateClient(id, c.headerBytes(t, 3, height(2)), now.Add(3*time.Hour))
	assert.ErrorIs(t, err, client.ErrExpired)
}

func TestConflictingHeaderFreezes(t *testing.T) {
	r := newRouter()
	c := newTestChain()
	id := createClient(t, r, c, 1)
	_, err := r.UpdateClient(id, c.headerBytes(t, 2, height(1)), now)
	require.NoError(t, err)

	fork := c.header(t, 2, height(1))
	fork.SignedHeader = c.keys.GenSignedHeader(t, chainID, 2, c.blockTime(2), c.vals, c.vals, []byte("forked app hash"), 0, 4)
	bz, err := tendermint.MarshalClientMessage(fork)
	require.NoError(t, err)

	res, err := r.UpdateClient(id, bz, now)
	require.NoError(t, err)
	assert.True(t, res.Frozen)
	assert.Equal(t, router.EventTypeSubmitMisbehaviour, res.Events[0].Type)
	assert.Equal(t, client.Frozen, r.Status(id, now))

	_, err = r.UpdateClient(id, c.headerBytes(t, 3, height(2)), now)
	assert.ErrorIs(t, err, client.ErrFrozen)

	proof := c.state.ProveBytes(t, storeKey, []byte("ports/transfer"))
	err = r.VerifyMembership(id, height(2), []byte("ports/transfer"), proof, []byte("bound"), now)
	assert.ErrorIs(t, err, client.ErrFrozen)
}

func TestSubmitMisbehaviour(t *testing.T) {
	r := newRouter()
	c := newTestChain()
	id := createClient(t, r, c, 1)

	h1 := c.header(t, 3, height(1))
	h2 := c.header(t, 3, height(1))
	h2.SignedHeader = c.keys.GenSignedHeader(t, chainID, 3, c.blockTime(3), c.vals, c.vals, []byte("forked app hash"), 0, 4)
	bz, err := tendermint.MarshalClientMessage(&tendermint.Misbehaviour{Header1: h1, Header2: h2})
	require.NoError(t, err)

	// identical headers are not misbehaviour
	same, err := tendermint.MarshalClientMessage(&tendermint.Misbehaviour{Header1: h1, Header2: h1})
	require.NoError(t, err)
	assert.ErrorIs(t, r.SubmitMisbehaviour(id, same, now), client.ErrVerificationFailed)
	assert.Equal(t, client.Active, r.Status(id, now))

	require.NoError(t, r.SubmitMisbehaviour(id, bz, now))
	assert.Equal(t, client.Frozen, r.Status(id, now))
	assert.ErrorIs(t, r.SubmitMisbehaviour(id, bz, now), client.ErrFrozen)
}

func TestRecoverClient(t *testing.T) {
	r := newRouter()
	c := newTestChain()
	subject := createClient(t, r, c, 1)

	// an active subject cannot be recovered
	substitute := createClient(t, r, c, 3)
	assert.ErrorIs(t, r.RecoverClient(subject, substitute, now), client.ErrInvalidClient)

	later := now.Add(2 * time.Hour)
	assert.Equal(t, client.Expired, r.Status(subject, later))
	fresh := createLaterClient(t, r, c, 100)
	require.NoError(t, r.RecoverClient(subject, fresh, later))

	assert.Equal(t, client.Active, r.Status(subject, later))
	latest, err := r.LatestHeight(subject)
	require.NoError(t, err)
	assert.Equal(t, height(100), latest)
}

func TestRecoverClientRejectsLowerSubstitute(t *testing.T) {
	r := newRouter()
	c := newTestChain()
	subject := createClient(t, r, c, 5)

	h1 := c.header(t, 7, height(5))
	h2 := c.header(t, 7, height(5))
	h2.SignedHeader = c.keys.GenSignedHeader(t, chainID, 7, c.blockTime(7), c.vals, c.vals, []byte("forked app hash"), 0, 4)
	bz, err := tendermint.MarshalClientMessage(&tendermint.Misbehaviour{Header1: h1, Header2: h2})
	require.NoError(t, err)
	require.NoError(t, r.SubmitMisbehaviour(subject, bz, now))
	require.Equal(t, client.Frozen, r.Status(subject, now))

	testCases := []struct {
		name    string
		height  int64
		expPass bool
	}{
		{"lower substitute", 3, false},
		{"substitute at subject height", 5, false},
		{"higher substitute", 9, true},
	}

	for _, tc := range testCases {
		substitute := createClient(t, r, c, tc.height)
		err := r.RecoverClient(subject, substitute, now)
		if !tc.expPass {
			assert.ErrorIs(t, err, client.ErrInvalidClient, tc.name)
			assert.Equal(t, client.Frozen, r.Status(subject, now), tc.name)
			continue
		}
		require.NoError(t, err, tc.name)
	}

	assert.Equal(t, client.Active, r.Status(subject, now))
	latest, err := r.LatestHeight(subject)
	require.NoError(t, err)
	assert.Equal(t, height(9), latest)
}

// createLaterClient creates a client trusting height h, whose block
// time is far enough in the future to stay active after the other clients
// of the test expired.
func createLaterClient(t *testing.T, r *router.Router, c *testChain, h int64) string {
	t.Helper()

	cs, cons := c.states(t, h)
	id, _, err := r.CreateClient(client.KindTendermint, cs, cons, now.Add(2*time.Hour))
	require.NoError(t, err)
	return id
}

func TestVerifyMembership(t *testing.T) {
	r := newRouter()
	c := newTestChain()
	c.state.Set(storeKey, []byte("channels/channel-0"), []byte("open"))
	id := createClient(t, r, c, 1)
	_, err := r.UpdateClient(id, c.headerBytes(t, 2, height(1)), now)
	require.NoError(t, err)

	proof := c.state.ProveBytes(t, storeKey, []byte("channels/channel-0"))
	require.NoError(t, r.VerifyMembership(id, height(2), []byte("channels/channel-0"), proof, []byte("open"), now))
	err = r.VerifyMembership(id, height(2), []byte("channels/channel-0"), proof, []byte("closed"), now)
	assert.ErrorIs(t, err, client.ErrVerificationFailed)

	absent := c.state.ProveBytes(t, storeKey, []byte("channels/channel-1"))
	require.NoError(t, r.VerifyNonMembership(id, height(2), []byte("channels/channel-1"), absent, now))
	err = r.VerifyNonMembership(id, height(2), []byte("channels/channel-0"), proof, now)
	assert.ErrorIs(t, err, client.ErrVerificationFailed)

	err = r.VerifyMembership(id, height(2), []byte("channels/channel-0"), proof, []byte("open"), now.Add(3*time.Hour))
	assert.ErrorIs(t, err, client.ErrExpired)

	assert.ErrorIs(t, r.UpgradeClient(id, nil, nil, nil, nil, now), client.ErrUnimplemented)
}

func TestStateLensThroughRouter(t *testing.T) {
	const l2ClientID = "07-tendermint-5"

	r := newRouter()
	l1 := newTestChain()
	l1ID := createClient(t, r, l1, 1)

	l2 := factory.NewMultiStore()
	l2.Set(storeKey, []byte("commitments/channels/channel-0"), []byte("open"))
	l2cons := &tendermint.ConsensusState{
		Timestamp:          uint64(bTime.UnixNano()),
		Root:               l2.Root(),
		NextValidatorsHash: l1.vals.Hash(),
	}
	rawL2, err := l2cons.Marshal()
	require.NoError(t, err)

	lensState := &statelens.ClientState{
		L2ChainID:        "l2chain-0",
		L1ClientID:       l1ID,
		L2ClientID:       l2ClientID,
		L2LatestHeight:   types.NewHeight(0, 90),
		L2Kind:           client.KindTendermint,
		StoreKey:         storeKey,
		KeyPrefixStorage: []byte("commitments/"),
		ProofSpecs:       factory.MultiStoreSpecs,
		Extra:            statelens.ExtraV1{},
	}
	csBz, err := lensState.Marshal()
	require.NoError(t, err)
	consBz, err := (&statelens.ConsensusState{Timestamp: l2cons.Timestamp, StateRoot: l2cons.Root}).Marshal()
	require.NoError(t, err)

	lensID, events, err := r.CreateClient(client.KindStateLens, csBz, consBz, now)
	require.NoError(t, err)
	assert.Equal(t, "state-lens-0", lensID)
	assert.Equal(t, statelens.EventTypeCreateLensClient, events[0].Type)

	// L1 commits the L2 consensus state at 91, then the L1 client follows
	key := []byte(client.ConsensusStatePath(l2ClientID, types.NewHeight(0, 91)))
	l1.state.Set(storeKey, key, rawL2)
	_, err = r.UpdateClient(l1ID, l1.headerBytes(t, 2, height(1)), now)
	require.NoError(t, err)

	header, err := statelens.MarshalHeader(&statelens.Header{
		L1Height:         height(2),
		L2Height:         types.NewHeight(0, 91),
		L2ConsensusState: rawL2,
		L2InclusionProof: l1.state.ProveBytes(t, storeKey, key),
	})
	require.NoError(t, err)

	res, err := r.UpdateClient(lensID, header, now)
	require.NoError(t, err)
	assert.Len(t, res.Events, 1)
	latest, err := r.LatestHeight(lensID)
	require.NoError(t, err)
	assert.Equal(t, types.NewHeight(0, 91), latest)

	// proving 91 again is a no-op
	res, err = r.UpdateClient(lensID, header, now)
	require.NoError(t, err)
	assert.Empty(t, res.Events)

	proof := l2.ProveBytes(t, storeKey, []byte("commitments/channels/channel-0"))
	require.NoError(t, r.VerifyMembership(lensID, types.NewHeight(0, 91), []byte("channels/channel-0"), proof, []byte("open"), now))

	// the lens follows the status of its L1 client
	assert.Equal(t, client.Expired, r.Status(lensID, now.Add(3*time.Hour)))
}

func TestMetrics(t *testing.T) {
	r := newRouter(router.WithMetrics(router.PrometheusMetrics("lctest")))
	c := newTestChain()
	id := createClient(t, r, c, 1)
	_, err := r.UpdateClient(id, c.headerBytes(t, 2, height(1)), now)
	require.NoError(t, err)
	_, err = r.UpdateClient(id, []byte{0x01}, now)
	require.Error(t, err)

	// failed lookups are counted too
	_, err = r.UpdateClient("bogus", c.headerBytes(t, 3, height(2)), now)
	require.ErrorIs(t, err, client.ErrInvalidClient)
	require.ErrorIs(t, r.SubmitMisbehaviour("bogus", nil, now), client.ErrInvalidClient)

	mfs, err := stdprometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	results := map[string]float64{}
	for _, mf := range mfs {
		if mf.GetName() != "lctest_light_client_verifications" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			results[labels["operation"]+"/"+labels["result"]] += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, results["create_client/ok"])
	assert.Equal(t, 1.0, results["update_client/ok"])
	assert.Equal(t, 1.0, results["update_client/decode"])
	assert.Equal(t, 1.0, results["update_client/invalid_client"])
	assert.Equal(t, 1.0, results["submit_misbehaviour/invalid_client"])

	require.Equal(t, client.Active, r.Status(id, now))
	mfs, err = stdprometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	statuses := map[string]float64{}
	for _, mf := range mfs {
		if mf.GetName() != "lctest_light_client_client_status" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status" {
					statuses[l.GetValue()] = m.GetGauge().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{"Active": 1, "Frozen": 0, "Expired": 0, "Unknown": 0}, statuses)
}
