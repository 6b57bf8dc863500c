package statelens_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/client/statelens"
	"github.com/tendermint/lightclients/client/tendermint"
	"github.com/tendermint/lightclients/ethproof"
	"github.com/tendermint/lightclients/internal/store"
	"github.com/tendermint/lightclients/internal/test/factory"
	"github.com/tendermint/lightclients/libs/log"
	"github.com/tendermint/lightclients/light"
	"github.com/tendermint/lightclients/types"
)

const (
	l1ChainID  = "l1chain-1"
	l2ChainID  = "l2chain-0"
	l1ClientID = "07-tendermint-0"
	l2ClientID = "07-tendermint-5"
	lensID     = "state-lens-0"
	storeKey   = "ibc"

	trustingPeriod = 2 * time.Hour
)

var (
	bTime     = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	keyPrefix = []byte("commitments/")
)

func l2Height(h uint64) types.Height {
	return types.NewHeight(0, h)
}

// registry dispatches to the clients stored in one transaction.
type registry struct {
	tx      *store.Tx
	now     time.Time
	clients map[string]client.LightClient
}

func (r *registry) context(id string) client.Context {
	return client.Context{
		ClientID: id,
		Store:    r.tx.ClientStore(id),
		Clients:  r,
		Now:      r.now,
		Logger:   log.TestingLogger(),
	}
}

func (r *registry) VerifyMembership(id string, height types.Height, key, proof, value []byte) error {
	lc, ok := r.clients[id]
	if !ok {
		return client.ErrClientNotFound
	}
	return lc.VerifyMembership(r.context(id), height, key, proof, value)
}

func (r *registry) Status(id string) client.Status {
	lc, ok := r.clients[id]
	if !ok {
		return client.Unknown
	}
	return lc.Status(r.context(id))
}

func (r *registry) LatestHeight(id string) (types.Height, error) {
	lc, ok := r.clients[id]
	if !ok {
		return types.Height{}, client.ErrClientNotFound
	}
	bz, err := r.tx.ClientStore(id).ClientState()
	if err != nil {
		return types.Height{}, err
	}
	cs, err := lc.DecodeClientState(bz)
	if err != nil {
		return types.Height{}, err
	}
	return cs.GetLatestHeight(), nil
}

func (r *registry) DecodeConsensusState(kind client.Kind, bz []byte) (client.ConsensusState, error) {
	switch kind {
	case client.KindTendermint:
		return tendermint.LightClient{}.DecodeConsensusState(bz)
	default:
		return nil, client.ErrUnknownKind
	}
}

// suite runs an L1 chain tracked by a BFT client and an L2 chain whose
// consensus states the L1 chain commits.
type suite struct {
	keys     factory.PrivKeys
	vals     *types.ValidatorSet
	l1       *factory.MultiStore
	l1Height int64
	l2       *factory.MultiStore
	extra    statelens.Extra
	reg      *registry
	lc       statelens.LightClient
	ctx      client.Context
}

func setup(t *testing.T, extra statelens.Extra) *suite {
	t.Helper()

	keys := factory.GenPrivKeys(4)
	s := &suite{
		keys:     keys,
		vals:     keys.ToValidators(10, 0),
		l1:       factory.NewMultiStore(),
		l1Height: 1,
		l2:       factory.NewMultiStore(),
		extra:    extra,
		reg: &registry{
			tx:  store.NewMemStore().NewTx(),
			now: bTime.Add(time.Hour),
			clients: map[string]client.LightClient{
				l1ClientID: tendermint.LightClient{},
			},
		},
	}
	s.l1.Set(storeKey, []byte("ports/transfer"), []byte("bound"))
	s.l2.Set(storeKey, s.l2Key([]byte("ports/transfer")), []byte("bound"))

	l1cs := tendermint.NewClientState(l1ChainID, light.DefaultTrustLevel, trustingPeriod, 3*time.Hour,
		10*time.Second, types.NewHeight(1, 1), factory.MultiStoreSpecs, storeKey, nil)
	genesis := keys.GenSignedHeader(t, l1ChainID, 1, bTime, s.vals, s.vals, s.l1.Root(), 0, 4)
	l1cons, err := tendermint.NewConsensusState(genesis.Header)
	require.NoError(t, err)
	l1ctx := s.reg.context(l1ClientID)
	_, err = tendermint.LightClient{}.VerifyCreation(l1ctx, l1cs, l1cons)
	require.NoError(t, err)
	storeStates(t, l1ctx, l1cs, l1cs.LatestHeight, l1cons)

	s.ctx = s.reg.context(lensID)
	cs := s.clientState(l2Height(90))
	cons := &statelens.ConsensusState{Timestamp: uint64(bTime.UnixNano()), StateRoot: s.l2.Root()}
	_, err = s.lc.VerifyCreation(s.ctx, cs, cons)
	require.NoError(t, err)
	storeStates(t, s.ctx, cs, cs.L2LatestHeight, cons)
	return s
}

func (s *suite) clientState(latest types.Height) *statelens.ClientState {
	return &statelens.ClientState{
		L2ChainID:        l2ChainID,
		L1ClientID:       l1ClientID,
		L2ClientID:       l2ClientID,
		L2LatestHeight:   latest,
		L2Kind:           client.KindTendermint,
		StoreKey:         storeKey,
		KeyPrefixStorage: keyPrefix,
		ProofSpecs:       factory.MultiStoreSpecs,
		Extra:            s.extra,
	}
}

type marshaler interface {
	Marshal() ([]byte, error)
}

// storeStates writes a client state and one consensus state.
func storeStates(t *testing.T, ctx client.Context, cs marshaler, h types.Height, cons marshaler) {
	t.Helper()

	bz, err := cs.Marshal()
	require.NoError(t, err)
	require.NoError(t, ctx.Store.SetClientState(bz))
	bz, err = cons.Marshal()
	require.NoError(t, err)
	require.NoError(t, ctx.Store.SetConsensusState(h, bz))
}

func (s *suite) commitmentKey(path []byte) []byte {
	if _, ok := s.extra.(statelens.ExtraV2); ok {
		return ethproof.CommitmentKey(path).Bytes()
	}
	return path
}

// l2Key is the key of path in the L2 store.
func (s *suite) l2Key(path []byte) []byte {
	return append(append([]byte(nil), keyPrefix...), s.commitmentKey(path)...)
}

// l2ConsensusState encodes the current L2 state as a consensus state of
// the L2 client running on L1.
func (s *suite) l2ConsensusState(t *testing.T, tm time.Time) []byte {
	t.Helper()

	cons := &tendermint.ConsensusState{
		Timestamp:          uint64(tm.UnixNano()),
		Root:               s.l2.Root(),
		NextValidatorsHash: s.vals.Hash(),
	}
	bz, err := cons.Marshal()
	require.NoError(t, err)
	return bz
}

// advanceL1 signs the next L1 block over the current L1 state and updates
// the L1 client with it.
func (s *suite) advanceL1(t *testing.T) types.Height {
	t.Helper()

	trusted := types.NewHeight(1, uint64(s.l1Height))
	s.l1Height++
	h := &tendermint.Header{
		SignedHeader: s.keys.GenSignedHeader(t, l1ChainID, s.l1Height, bTime.Add(time.Duration(s.l1Height)*time.Minute),
			s.vals, s.vals, s.l1.Root(), 0, 4),
		ValidatorSet:      s.vals,
		TrustedHeight:     trusted,
		TrustedValidators: s.vals,
	}
	ctx := s.reg.context(l1ClientID)
	_, err := tendermint.LightClient{}.VerifyHeader(ctx, h)
	require.NoError(t, err)
	_, err = tendermint.LightClient{}.UpdateState(ctx, h)
	require.NoError(t, err)
	return h.GetHeight()
}

// header commits the current L2 state at l2h into L1, advances L1 and
// returns the lens header proving it.
func (s *suite) header(t *testing.T, l2h types.Height) *statelens.Header {
	t.Helper()

	raw := s.l2ConsensusState(t, bTime.Add(time.Duration(l2h.RevisionHeight)*time.Second))
	key := s.commitmentKey([]byte(client.ConsensusStatePath(l2ClientID, l2h)))
	s.l1.Set(storeKey, key, raw)
	l1h := s.advanceL1(t)

	return &statelens.Header{
		L1Height:         l1h,
		L2Height:         l2h,
		L2ConsensusState: raw,
		L2InclusionProof: s.l1.ProveBytes(t, storeKey, key),
	}
}

func (s *suite) update(t *testing.T, h *statelens.Header) *client.StateUpdate {
	t.Helper()

	u, err := s.lc.VerifyHeader(s.ctx, h)
	require.NoError(t, err)
	_, err = s.lc.UpdateState(s.ctx, h)
	require.NoError(t, err)
	return u
}

func (s *suite) lensState(t *testing.T) *statelens.ClientState {
	t.Helper()

	bz, err := s.ctx.Store.ClientState()
	require.NoError(t, err)
	cs, err := statelens.DecodeClientState(bz)
	require.NoError(t, err)
	return cs
}

func (s *suite) freezeL1(t *testing.T) {
	t.Helper()

	st := s.reg.tx.ClientStore(l1ClientID)
	bz, err := st.ClientState()
	require.NoError(t, err)
	cs, err := tendermint.DecodeClientState(bz)
	require.NoError(t, err)
	cs.FrozenHeight = tendermint.FrozenHeight
	bz, err = cs.Marshal()
	require.NoError(t, err)
	require.NoError(t, st.SetClientState(bz))
}
