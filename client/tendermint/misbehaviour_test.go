package tendermint_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/client/tendermint"
)

func TestCheckForMisbehaviourHeader(t *testing.T) {
	s := setup(t)
	c := s.chain

	// stored: 1 at bTime, 5 at +5m, 9 at +9m
	s.update(t, c.header(t, 5, bTime.Add(5*time.Minute), height(1), 4))
	s.update(t, c.header(t, 9, bTime.Add(9*time.Minute), height(5), 4))

	testCases := []struct {
		name   string
		header *tendermint.Header
		expMis bool
	}{
		{"same header again", c.header(t, 5, bTime.Add(5*time.Minute), height(1), 4), false},
		{"different app hash at stored height",
			c.headerWithAppHash(t, 5, bTime.Add(5*time.Minute), height(1), 4, []byte("forged")), true},
		{"different time at stored height", c.header(t, 5, bTime.Add(6*time.Minute), height(1), 4), true},
		{"between neighbours", c.header(t, 7, bTime.Add(7*time.Minute), height(5), 4), false},
		{"not after previous", c.header(t, 7, bTime.Add(5*time.Minute), height(5), 4), true},
		{"not before next", c.header(t, 7, bTime.Add(9*time.Minute), height(5), 4), true},
		{"above latest", c.header(t, 12, bTime.Add(12*time.Minute), height(9), 4), false},
		{"above latest but older", c.header(t, 12, bTime.Add(8*time.Minute), height(9), 4), true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mis, err := s.lc.CheckForMisbehaviour(s.ctx, tc.header)
			require.NoError(t, err)
			assert.Equal(t, tc.expMis, mis)
		})
	}
}

func TestMisbehaviour(t *testing.T) {
	testCases := []struct {
		name     string
		evidence func(s *suite) *tendermint.Misbehaviour
		expMis   bool
		expErr   error
	}{
		{
			"two blocks at one height",
			func(s *suite) *tendermint.Misbehaviour {
				return &tendermint.Misbehaviour{
					Header1: s.chain.header(t, 3, bTime.Add(time.Minute), height(1), 4),
					Header2: s.chain.headerWithAppHash(t, 3, bTime.Add(time.Minute), height(1), 4, []byte("forged")),
				}
			},
			true,
			nil,
		},
		{
			"time does not advance with height",
			func(s *suite) *tendermint.Misbehaviour {
				return &tendermint.Misbehaviour{
					Header1: s.chain.header(t, 4, bTime.Add(time.Minute), height(1), 4),
					Header2: s.chain.header(t, 3, bTime.Add(2*time.Minute), height(1), 4),
				}
			},
			true,
			nil,
		},
		{
			"identical headers",
			func(s *suite) *tendermint.Misbehaviour {
				h := s.chain.header(t, 3, bTime.Add(time.Minute), height(1), 4)
				return &tendermint.Misbehaviour{Header1: h, Header2: h}
			},
			false,
			client.ErrInvalidMisbehaviour,
		},
		{
			"consistent headers",
			func(s *suite) *tendermint.Misbehaviour {
				return &tendermint.Misbehaviour{
					Header1: s.chain.header(t, 4, bTime.Add(2*time.Minute), height(1), 4),
					Header2: s.chain.header(t, 3, bTime.Add(time.Minute), height(1), 4),
				}
			},
			false,
			client.ErrInvalidMisbehaviour,
		},
		{
			"conflicting header not signed by the trusted set",
			func(s *suite) *tendermint.Misbehaviour {
				other := newTestChain()
				forged := s.chain.header(t, 3, bTime.Add(time.Minute), height(1), 4)
				forged.SignedHeader = other.keys.GenSignedHeader(t, chainID, 3, bTime.Add(time.Minute),
					other.vals, other.vals, []byte("forged"), 0, 4)
				forged.ValidatorSet = other.vals
				return &tendermint.Misbehaviour{
					Header1: s.chain.header(t, 3, bTime.Add(time.Minute), height(1), 4),
					Header2: forged,
				}
			},
			true,
			client.ErrInsufficientVotingPower,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := setup(t)
			m := tc.evidence(s)

			mis, _ := s.lc.CheckForMisbehaviour(s.ctx, m)
			assert.Equal(t, tc.expMis, mis)

			err := s.lc.VerifyMisbehaviour(s.ctx, m)
			if tc.expErr != nil {
				assert.ErrorIs(t, err, tc.expErr)
				assert.Equal(t, client.Active, s.lc.Status(s.ctx))
				return
			}
			require.NoError(t, err)

			require.NoError(t, s.lc.UpdateStateOnMisbehaviour(s.ctx, m))
			assert.Equal(t, client.Frozen, s.lc.Status(s.ctx))
			assert.Equal(t, tendermint.FrozenHeight, s.clientState(t, s.ctx).FrozenHeight)

			// a frozen client accepts nothing
			_, err = s.lc.VerifyHeader(s.ctx, s.chain.header(t, 2, bTime.Add(time.Minute), height(1), 4))
			assert.ErrorIs(t, err, client.ErrFrozen)
			key := []byte("ports/transfer")
			err = s.lc.VerifyMembership(s.ctx, height(1), key, s.chain.prove(t, key), []byte("bound"))
			assert.ErrorIs(t, err, client.ErrFrozen)
			err = s.lc.VerifyMisbehaviour(s.ctx, m)
			assert.ErrorIs(t, err, client.ErrFrozen)
		})
	}
}

func TestClientMessageCodec(t *testing.T) {
	c := newTestChain()
	h := c.header(t, 3, bTime.Add(time.Minute), height(1), 4)

	bz, err := tendermint.MarshalClientMessage(h)
	require.NoError(t, err)
	msg, err := tendermint.LightClient{}.DecodeClientMessage(bz)
	require.NoError(t, err)
	decoded, ok := msg.(*tendermint.Header)
	require.True(t, ok)
	assert.Equal(t, h.SignedHeader.Hash(), decoded.SignedHeader.Hash())
	assert.Equal(t, h.SignedHeader.Commit.BlockID, decoded.SignedHeader.Commit.BlockID)
	assert.Equal(t, h.ValidatorSet.Hash(), decoded.ValidatorSet.Hash())
	assert.Equal(t, h.TrustedHeight, decoded.TrustedHeight)
	assert.NoError(t, decoded.ValidateBasic())

	m := &tendermint.Misbehaviour{Header1: h, Header2: c.header(t, 3, bTime.Add(2*time.Minute), height(1), 4)}
	bz, err = tendermint.MarshalClientMessage(m)
	require.NoError(t, err)
	msg, err = tendermint.DecodeClientMessage(bz)
	require.NoError(t, err)
	dm, ok := msg.(*tendermint.Misbehaviour)
	require.True(t, ok)
	assert.True(t, dm.IsConflicting())

	_, err = tendermint.MarshalClientMessage(&tendermint.Header{})
	assert.Error(t, err)

	_, err = tendermint.DecodeClientMessage([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, client.ErrDecode)
}

func TestStateCodec(t *testing.T) {
	cs := newClientState()
	cs.FrozenHeight = tendermint.FrozenHeight
	cs.AggregatedCommits = true

	bz, err := cs.Marshal()
	require.NoError(t, err)
	decoded, err := tendermint.DecodeClientState(bz)
	require.NoError(t, err)
	assert.Equal(t, cs, decoded)

	cons := &tendermint.ConsensusState{
		Timestamp:          uint64(bTime.UnixNano()),
		Root:               []byte("root"),
		NextValidatorsHash: make([]byte, 32),
	}
	bz, err = cons.Marshal()
	require.NoError(t, err)
	decodedCons, err := tendermint.DecodeConsensusState(bz)
	require.NoError(t, err)
	assert.Equal(t, cons, decodedCons)

	_, err = tendermint.DecodeClientState([]byte("garbage"))
	assert.ErrorIs(t, err, client.ErrDecode)
}
