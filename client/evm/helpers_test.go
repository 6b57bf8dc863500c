package evm_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/client/evm"
	"github.com/tendermint/lightclients/client/tendermint"
	"github.com/tendermint/lightclients/ethproof"
	"github.com/tendermint/lightclients/internal/store"
	"github.com/tendermint/lightclients/internal/test/factory"
	"github.com/tendermint/lightclients/libs/log"
	"github.com/tendermint/lightclients/light"
	"github.com/tendermint/lightclients/types"
)

const (
	chainID        = "evmchain-1"
	clientID       = "evm-0"
	storeKey       = "evm"
	trustingPeriod = 2 * time.Hour
	unbondPeriod   = 3 * time.Hour
	maxClockDrift  = 10 * time.Second
)

var (
	bTime       = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	execKey     = []byte("latestHeader")
	ibcContract = common.HexToAddress("0x00000000000000000000000000000000000ac1bc")
)

func height(h uint64) types.Height {
	return types.NewHeight(1, h)
}

// testChain is a consensus chain committing the headers of an execution
// chain whose IBC contract keeps commitments in storage.
type testChain struct {
	keys   factory.PrivKeys
	vals   *types.ValidatorSet
	app    *factory.MultiStore
	eth    *factory.EthState
	layout ethproof.StorageLayout
}

func newTestChain(layout ethproof.StorageLayout) *testChain {
	keys := factory.GenPrivKeys(4)
	return &testChain{
		keys:   keys,
		vals:   keys.ToValidators(10, 0),
		app:    factory.NewMultiStore(),
		eth:    factory.NewEthState(ibcContract),
		layout: layout,
	}
}

// commit stores keccak256(value) under the commitment key of path.
func (c *testChain) commit(t *testing.T, path string, value []byte) common.Hash {
	t.Helper()

	key := ethproof.CommitmentKey([]byte(path))
	slot, err := ethproof.StorageSlot(c.layout, key.Bytes())
	require.NoError(t, err)
	c.eth.SetStorage(slot, crypto.Keccak256(value))
	return key
}

func (c *testChain) storageProof(t *testing.T, key common.Hash) []byte {
	t.Helper()

	slot, err := ethproof.StorageSlot(c.layout, key.Bytes())
	require.NoError(t, err)
	bz, err := evm.MarshalStorageProof(c.eth.StorageProof(t, slot))
	require.NoError(t, err)
	return bz
}

func (c *testChain) executionHeader(t *testing.T, number int64, tm time.Time) *gethtypes.Header {
	return &gethtypes.Header{
		ParentHash: common.BytesToHash([]byte{byte(number)}),
		Root:       c.eth.StateRoot(t),
		Number:     big.NewInt(number),
		Difficulty: big.NewInt(0),
		GasLimit:   30_000_000,
		Time:       uint64(tm.Unix()),
	}
}

// header builds the update at consensus height h: the execution header is
// committed into the app state before the consensus header is signed.
func (c *testChain) header(t *testing.T, h int64, tm time.Time, trusted types.Height, signers int) *evm.Header {
	t.Helper()

	exec := c.executionHeader(t, 100+h, tm)
	bz, err := rlp.EncodeToBytes(exec)
	require.NoError(t, err)
	c.app.Set(storeKey, execKey, bz)

	return &evm.Header{
		ConsensusHeader: &tendermint.Header{
			SignedHeader:      c.keys.GenSignedHeader(t, chainID, h, tm, c.vals, c.vals, c.app.Root(), 0, signers),
			ValidatorSet:      c.vals,
			TrustedHeight:     trusted,
			TrustedValidators: c.vals,
		},
		ExecutionHeader:      exec,
		ExecutionHeaderProof: c.app.ProveBytes(t, storeKey, execKey),
		StorageRoot:          c.eth.StorageRoot(t),
		AccountProof:         c.eth.AccountProof(t),
	}
}

func (c *testChain) consensusState(t *testing.T, tm time.Time) *evm.ConsensusState {
	return &evm.ConsensusState{
		Timestamp:          uint64(tm.UnixNano()),
		StateRoot:          c.eth.StateRoot(t),
		StorageRoot:        c.eth.StorageRoot(t),
		NextValidatorsHash: c.vals.Hash(),
	}
}

func newClientState(layout ethproof.StorageLayout) *evm.ClientState {
	return &evm.ClientState{
		ChainID:            chainID,
		TrustLevel:         light.DefaultTrustLevel,
		TrustingPeriod:     trustingPeriod,
		UnbondingPeriod:    unbondPeriod,
		MaxClockDrift:      maxClockDrift,
		LatestHeight:       height(1),
		ProofSpecs:         factory.MultiStoreSpecs,
		StoreKey:           storeKey,
		ExecutionHeaderKey: execKey,
		IBCContractAddress: ibcContract,
		StorageLayout:      layout,
	}
}

type suite struct {
	chain *testChain
	tx    *store.Tx
	lc    evm.LightClient
	ctx   client.Context
}

func setup(t *testing.T, layout ethproof.StorageLayout) *suite {
	t.Helper()

	s := &suite{chain: newTestChain(layout), tx: store.NewMemStore().NewTx()}
	s.ctx = client.Context{
		ClientID: clientID,
		Store:    s.tx.ClientStore(clientID),
		Now:      bTime.Add(time.Hour),
		Logger:   log.TestingLogger(),
	}

	cs := newClientState(layout)
	cons := s.chain.consensusState(t, bTime)
	_, err := s.lc.VerifyCreation(s.ctx, cs, cons)
	require.NoError(t, err)

	bz, err := cs.Marshal()
	require.NoError(t, err)
	require.NoError(t, s.ctx.Store.SetClientState(bz))
	bz, err = cons.Marshal()
	require.NoError(t, err)
	require.NoError(t, s.ctx.Store.SetConsensusState(cs.LatestHeight, bz))
	return s
}

func (s *suite) update(t *testing.T, h *evm.Header) {
	t.Helper()

	_, err := s.lc.VerifyHeader(s.ctx, h)
	require.NoError(t, err)
	_, err = s.lc.UpdateState(s.ctx, h)
	require.NoError(t, err)
}

func (s *suite) clientState(t *testing.T) *evm.ClientState {
	t.Helper()

	bz, err := s.ctx.Store.ClientState()
	require.NoError(t, err)
	cs, err := evm.DecodeClientState(bz)
	require.NoError(t, err)
	return cs
}
