package tendermint_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/client/tendermint"
	"github.com/tendermint/lightclients/commitment"
	"github.com/tendermint/lightclients/internal/store"
	"github.com/tendermint/lightclients/internal/test/factory"
	tmmath "github.com/tendermint/lightclients/libs/math"
	"github.com/tendermint/lightclients/types"
)

func TestVerifyCreation(t *testing.T) {
	s := setup(t)
	genesis, err := tendermint.NewConsensusState(s.chain.header(t, 1, bTime, height(1), 4).SignedHeader.Header)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		malleate func(cs *tendermint.ClientState, cons *tendermint.ConsensusState, ctx *client.Context)
		expPass  bool
	}{
		{"valid", func(*tendermint.ClientState, *tendermint.ConsensusState, *client.Context) {}, true},
		{"trust level below 1/3", func(cs *tendermint.ClientState, _ *tendermint.ConsensusState, _ *client.Context) {
			cs.TrustLevel = tmmath.Fraction{Numerator: 1, Denominator: 4}
		}, false},
		{"trusting period not below unbonding period", func(cs *tendermint.ClientState, _ *tendermint.ConsensusState, _ *client.Context) {
			cs.TrustingPeriod = cs.UnbondingPeriod
		}, false},
		{"zero max clock drift", func(cs *tendermint.ClientState, _ *tendermint.ConsensusState, _ *client.Context) {
			cs.MaxClockDrift = 0
		}, false},
		{"empty chain id", func(cs *tendermint.ClientState, _ *tendermint.ConsensusState, _ *client.Context) {
			cs.ChainID = ""
		}, false},
		{"zero latest height", func(cs *tendermint.ClientState, _ *tendermint.ConsensusState, _ *client.Context) {
			cs.LatestHeight = types.NewHeight(1, 0)
		}, false},
		{"revision does not match chain id", func(cs *tendermint.ClientState, _ *tendermint.ConsensusState, _ *client.Context) {
			cs.LatestHeight = types.NewHeight(2, 1)
		}, false},
		{"unknown proof spec", func(cs *tendermint.ClientState, _ *tendermint.ConsensusState, _ *client.Context) {
			cs.ProofSpecs = []commitment.SpecID{"smt"}
		}, false},
		{"empty store key", func(cs *tendermint.ClientState, _ *tendermint.ConsensusState, _ *client.Context) {
			cs.StoreKey = ""
		}, false},
		{"frozen", func(cs *tendermint.ClientState, _ *tendermint.ConsensusState, _ *client.Context) {
			cs.FrozenHeight = tendermint.FrozenHeight
		}, false},
		{"empty root", func(_ *tendermint.ClientState, cons *tendermint.ConsensusState, _ *client.Context) {
			cons.Root = nil
		}, false},
		{"bad next validators hash", func(_ *tendermint.ClientState, cons *tendermint.ConsensusState, _ *client.Context) {
			cons.NextValidatorsHash = []byte("short")
		}, false},
		{"consensus state from the future", func(_ *tendermint.ClientState, _ *tendermint.ConsensusState, ctx *client.Context) {
			ctx.Now = bTime.Add(-time.Minute)
		}, false},
		{"consensus state within drift", func(_ *tendermint.ClientState, _ *tendermint.ConsensusState, ctx *client.Context) {
			ctx.Now = bTime.Add(-maxClockDrift)
		}, true},
		{"consensus state expired", func(_ *tendermint.ClientState, _ *tendermint.ConsensusState, ctx *client.Context) {
			ctx.Now = bTime.Add(trustingPeriod)
		}, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cs := newClientState()
			cons := *genesis
			ctx := s.ctx
			tc.malleate(cs, &cons, &ctx)

			_, err := s.lc.VerifyCreation(ctx, cs, &cons)
			if tc.expPass {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, client.ErrInvalidClient)
			}
		})
	}

	_, err = s.lc.VerifyCreation(s.ctx, newClientState(), nil)
	assert.ErrorIs(t, err, client.ErrInvalidClient)
}

func TestUpdateState(t *testing.T) {
	s := setup(t)
	c := s.chain

	// adjacent
	h2 := c.header(t, 2, bTime.Add(time.Minute), height(1), 4)
	update, err := s.lc.VerifyHeader(s.ctx, h2)
	require.NoError(t, err)
	assert.Equal(t, height(2), update.Height)
	require.NotNil(t, update.ClientState)
	assert.Equal(t, height(2), update.ClientState.GetLatestHeight())

	// nothing is written by verification
	assert.Equal(t, height(1), s.clientState(t, s.ctx).LatestHeight)

	heights, err := s.lc.UpdateState(s.ctx, h2)
	require.NoError(t, err)
	assert.Equal(t, []types.Height{height(2)}, heights)
	assert.Equal(t, height(2), s.clientState(t, s.ctx).LatestHeight)

	before, err := s.ctx.Store.ConsensusState(height(2))
	require.NoError(t, err)

	// same height again is a no-op
	heights, err = s.lc.UpdateState(s.ctx, h2)
	require.NoError(t, err)
	assert.Equal(t, []types.Height{height(2)}, heights)
	after, err := s.ctx.Store.ConsensusState(height(2))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// non adjacent
	s.update(t, c.header(t, 10, bTime.Add(10*time.Minute), height(2), 4))
	assert.Equal(t, height(10), s.clientState(t, s.ctx).LatestHeight)

	// filling a gap below the latest height keeps the latest height
	h5 := c.header(t, 5, bTime.Add(5*time.Minute), height(2), 4)
	update, err = s.lc.VerifyHeader(s.ctx, h5)
	require.NoError(t, err)
	assert.Nil(t, update.ClientState)
	_, err = s.lc.UpdateState(s.ctx, h5)
	require.NoError(t, err)
	assert.Equal(t, height(10), s.clientState(t, s.ctx).LatestHeight)

	bz, err := s.ctx.Store.ConsensusState(height(5))
	require.NoError(t, err)
	cons, err := tendermint.DecodeConsensusState(bz)
	require.NoError(t, err)
	assert.Equal(t, uint64(bTime.Add(5*time.Minute).UnixNano()), cons.Timestamp)
	assert.Equal(t, []byte(c.state.Root()), cons.Root)
}

func TestVerifyHeaderErrors(t *testing.T) {
	testCases := []struct {
		name     string
		malleate func(s *suite) client.ClientMessage
		expErr   error
	}{
		{
			"wrong chain id",
			func(s *suite) client.ClientMessage {
				h := s.chain.header(t, 2, bTime.Add(time.Minute), height(1), 4)
				h.SignedHeader = s.chain.keys.GenSignedHeader(t, "otherchain-1", 2, bTime.Add(time.Minute),
					s.chain.vals, s.chain.vals, s.chain.state.Root(), 0, 4)
				return h
			},
			client.ErrInvalidChainID,
		},
		{
			"trusted consensus state missing",
			func(s *suite) client.ClientMessage {
				return s.chain.header(t, 5, bTime.Add(time.Minute), height(3), 4)
			},
			client.ErrConsensusStateNotFound,
		},
		{
			"trusted revision differs",
			func(s *suite) client.ClientMessage {
				return s.chain.header(t, 5, bTime.Add(time.Minute), types.NewHeight(0, 1), 4)
			},
			client.ErrRevisionNumberMismatch,
		},
		{
			"header not above trusted height",
			func(s *suite) client.ClientMessage {
				return s.chain.header(t, 1, bTime.Add(time.Minute), height(1), 4)
			},
			client.ErrHeaderHeightNotMoreRecent,
		},
		{
			"less than 2/3 signed",
			func(s *suite) client.ClientMessage {
				return s.chain.header(t, 2, bTime.Add(time.Minute), height(1), 2)
			},
			client.ErrInsufficientVotingPower,
		},
		{
			"less than trust level of trusted validators signed",
			func(s *suite) client.ClientMessage {
				h := s.chain.header(t, 5, bTime.Add(time.Minute), height(1), 4)
				// the trusted set hashes to the stored next validators hash
				// but the header is signed by an unrelated set
				other := newTestChain()
				h.SignedHeader = other.keys.GenSignedHeader(t, chainID, 5, bTime.Add(time.Minute),
					other.vals, other.vals, s.chain.state.Root(), 0, 4)
				h.ValidatorSet = other.vals
				return h
			},
			client.ErrInsufficientVotingPower,
		},
		{
			"trusted validators do not match",
			func(s *suite) client.ClientMessage {
				h := s.chain.header(t, 2, bTime.Add(time.Minute), height(1), 4)
				h.TrustedValidators = newTestChain().vals
				return h
			},
			client.ErrVerificationFailed,
		},
		{
			"header from the future",
			func(s *suite) client.ClientMessage {
				return s.chain.header(t, 2, bTime.Add(2*time.Hour), height(1), 4)
			},
			client.ErrInvalidHeader,
		},
		{
			"header time not after trusted time",
			func(s *suite) client.ClientMessage {
				return s.chain.header(t, 2, bTime, height(1), 4)
			},
			client.ErrInvalidHeader,
		},
		{
			"trusted state expired",
			func(s *suite) client.ClientMessage {
				s.ctx.Now = bTime.Add(trustingPeriod + time.Minute)
				return s.chain.header(t, 2, bTime.Add(trustingPeriod), height(1), 4)
			},
			client.ErrExpired,
		},
		{
			"misbehaviour is not a header",
			func(s *suite) client.ClientMessage {
				h := s.chain.header(t, 2, bTime.Add(time.Minute), height(1), 4)
				return &tendermint.Misbehaviour{Header1: h, Header2: h}
			},
			client.ErrUnexpectedMessage,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := setup(t)
			msg := tc.malleate(s)

			_, err := s.lc.VerifyHeader(s.ctx, msg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.expErr)
			assert.NotNil(t, client.KindOf(err))
		})
	}
}

func TestVerifyHeaderAggregatedCommit(t *testing.T) {
	keys := factory.GenBLSPrivKeys(4)
	vals := keys.ToValidators(10, 0)
	appHash := []byte("app_hash")

	s := &suite{chain: &testChain{keys: keys, vals: vals}, db: store.NewMemStore()}
	s.tx = s.db.NewTx()
	s.ctx = s.contextFor(clientID)

	genesis := keys.GenAggregateSignedHeader(t, chainID, 1, bTime, vals, vals, appHash, 0, 4)
	cons, err := tendermint.NewConsensusState(genesis.Header)
	require.NoError(t, err)
	cs := newClientState()
	cs.AggregatedCommits = true
	s.create(t, s.ctx, cs, cons)

	h := &tendermint.Header{
		SignedHeader:      keys.GenAggregateSignedHeader(t, chainID, 3, bTime.Add(time.Minute), vals, vals, appHash, 0, 3),
		ValidatorSet:      vals,
		TrustedHeight:     height(1),
		TrustedValidators: vals,
	}
	_, err = s.lc.VerifyHeader(s.ctx, h)
	require.NoError(t, err)

	// an individually signed commit is rejected by an aggregating client
	h.SignedHeader = factory.GenPrivKeys(0).GenSignedHeader(t, chainID, 3, bTime.Add(time.Minute), vals, vals, appHash, 0, 0)
	_, err = s.lc.VerifyHeader(s.ctx, h)
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	s := setup(t)
	assert.Equal(t, client.Active, s.lc.Status(s.ctx))

	ctx := s.ctx
	ctx.Now = bTime.Add(trustingPeriod)
	assert.Equal(t, client.Expired, s.lc.Status(ctx))

	assert.Equal(t, client.Unknown, s.lc.Status(s.contextFor("07-tendermint-9")))

	require.NoError(t, s.lc.UpdateStateOnMisbehaviour(s.ctx, nil))
	assert.Equal(t, client.Frozen, s.lc.Status(s.ctx))
	assert.Equal(t, client.Frozen, s.lc.Status(ctx))
}

func TestVerifyMembership(t *testing.T) {
	s := setup(t)
	c := s.chain

	key := []byte("channels/channel-0")
	proof := c.prove(t, key)

	require.NoError(t, s.lc.VerifyMembership(s.ctx, height(1), key, proof, []byte("open")))

	err := s.lc.VerifyMembership(s.ctx, height(1), key, proof, []byte("closed"))
	assert.ErrorIs(t, err, client.ErrVerificationFailed)

	err = s.lc.VerifyMembership(s.ctx, height(1), []byte("channels/channel-1"), proof, []byte("open"))
	assert.ErrorIs(t, err, client.ErrVerificationFailed)

	err = s.lc.VerifyMembership(s.ctx, height(2), key, proof, []byte("open"))
	assert.ErrorIs(t, err, client.ErrConsensusStateNotFound)

	err = s.lc.VerifyMembership(s.ctx, height(1), key, []byte{0xde, 0xad}, []byte("open"))
	assert.ErrorIs(t, err, client.ErrDecode)

	absent := []byte("channels/channel-7")
	require.NoError(t, s.lc.VerifyNonMembership(s.ctx, height(1), absent, c.prove(t, absent)))

	err = s.lc.VerifyNonMembership(s.ctx, height(1), key, proof)
	assert.ErrorIs(t, err, client.ErrVerificationFailed)

	// proofs are checked against the root of the requested height
	c.set([]byte("channels/channel-1"), []byte("init"))
	s.update(t, c.header(t, 2, bTime.Add(time.Minute), height(1), 4))
	newKey := []byte("channels/channel-1")
	require.NoError(t, s.lc.VerifyMembership(s.ctx, height(2), newKey, c.prove(t, newKey), []byte("init")))
	err = s.lc.VerifyMembership(s.ctx, height(1), newKey, c.prove(t, newKey), []byte("init"))
	assert.ErrorIs(t, err, client.ErrVerificationFailed)
}

func TestMigrateClientStore(t *testing.T) {
	s := setup(t)
	c := s.chain

	require.NoError(t, s.lc.UpdateStateOnMisbehaviour(s.ctx, nil))
	require.Equal(t, client.Frozen, s.lc.Status(s.ctx))

	// substitute tracks the same chain from height 10
	subCtx := s.contextFor("07-tendermint-1")
	subHeader := c.header(t, 10, bTime.Add(30*time.Minute), height(1), 4)
	subCons, err := tendermint.NewConsensusState(subHeader.SignedHeader.Header)
	require.NoError(t, err)
	subState := newClientState()
	subState.LatestHeight = height(10)
	subState.TrustingPeriod = time.Hour
	s.create(t, subCtx, subState, subCons)

	mismatched := s.contextFor("07-tendermint-2")
	other := newClientState()
	other.StoreKey = "bank"
	s.create(t, mismatched, other, subCons)
	err = s.lc.MigrateClientStore(s.ctx, mismatched)
	assert.ErrorIs(t, err, client.ErrInvalidClient)

	// substitutes must be ahead of the subject
	stale := s.contextFor("07-tendermint-3")
	s.create(t, stale, newClientState(), subCons)
	err = s.lc.MigrateClientStore(s.ctx, stale)
	assert.ErrorIs(t, err, client.ErrInvalidClient)
	assert.Equal(t, client.Frozen, s.lc.Status(s.ctx))

	require.NoError(t, s.lc.MigrateClientStore(s.ctx, subCtx))

	migrated := s.clientState(t, s.ctx)
	assert.False(t, migrated.IsFrozen())
	assert.Equal(t, height(10), migrated.LatestHeight)
	assert.Equal(t, time.Hour, migrated.TrustingPeriod)
	assert.Equal(t, unbondPeriod, migrated.UnbondingPeriod)
	assert.Equal(t, client.Active, s.lc.Status(s.ctx))

	bz, err := s.ctx.Store.ConsensusState(height(10))
	require.NoError(t, err)
	cons, err := tendermint.DecodeConsensusState(bz)
	require.NoError(t, err)
	assert.True(t, cons.Equal(subCons))

	// frozen substitutes are refused
	require.NoError(t, s.lc.UpdateStateOnMisbehaviour(subCtx, nil))
	err = s.lc.MigrateClientStore(s.ctx, subCtx)
	assert.ErrorIs(t, err, client.ErrInvalidClient)
}

func TestQueries(t *testing.T) {
	s := setup(t)
	cs := s.clientState(t, s.ctx)
	assert.Equal(t, chainID, s.lc.CounterpartyChainID(cs))
	assert.Equal(t, height(1), s.lc.LatestHeight(cs))

	bz, err := s.ctx.Store.ConsensusState(height(1))
	require.NoError(t, err)
	cons, err := s.lc.DecodeConsensusState(bz)
	require.NoError(t, err)
	assert.Equal(t, uint64(bTime.UnixNano()), s.lc.Timestamp(cons))

	err = s.lc.VerifyUpgrade(s.ctx, nil, nil, nil, nil)
	assert.ErrorIs(t, err, client.ErrUnimplemented)
}
