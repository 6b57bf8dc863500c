// Package evm implements the light client of an account-model execution
// chain finalized by a BFT consensus chain.
package evm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/client/tendermint"
	"github.com/tendermint/lightclients/commitment"
	"github.com/tendermint/lightclients/ethproof"
	tmmath "github.com/tendermint/lightclients/libs/math"
	"github.com/tendermint/lightclients/types"
)

// LightClient implements client.LightClient for execution chains.
type LightClient struct{}

var _ client.LightClient = LightClient{}

func (LightClient) Kind() client.Kind { return client.KindEVM }

func (LightClient) DecodeClientState(bz []byte) (client.ClientState, error) {
	return DecodeClientState(bz)
}

func (LightClient) DecodeConsensusState(bz []byte) (client.ConsensusState, error) {
	return DecodeConsensusState(bz)
}

func (LightClient) DecodeClientMessage(bz []byte) (client.ClientMessage, error) {
	return DecodeHeader(bz)
}

func (LightClient) VerifyCreation(ctx client.Context, clientState client.ClientState, consensusState client.ConsensusState) (*client.CreationResult, error) {
	cs, ok := clientState.(*ClientState)
	if !ok {
		return nil, fmt.Errorf("%w: expected %T, got %T", client.ErrInvalidClient, &ClientState{}, clientState)
	}
	cons, ok := consensusState.(*ConsensusState)
	if !ok {
		return nil, fmt.Errorf("%w: expected %T, got %T", client.ErrInvalidClient, &ConsensusState{}, consensusState)
	}
	if err := tendermint.CheckCreation(ctx, cs, cs.TrustOptions(), cons); err != nil {
		return nil, err
	}
	return &client.CreationResult{}, nil
}

// VerifyHeader verifies the consensus header, then the execution header
// committed by its app hash, then the IBC contract account in the
// execution state.
func (LightClient) VerifyHeader(ctx client.Context, msg client.ClientMessage) (*client.StateUpdate, error) {
	h, ok := msg.(*Header)
	if !ok {
		return nil, fmt.Errorf("%w: %T", client.ErrUnexpectedMessage, msg)
	}
	cs, err := loadClientState(ctx)
	if err != nil {
		return nil, err
	}
	if cs.IsFrozen() {
		return nil, fmt.Errorf("%w: %s", client.ErrFrozen, ctx.ClientID)
	}
	if err := h.ValidateBasic(); err != nil {
		return nil, client.Wrap(client.ErrInvalidHeader, err)
	}
	if chainID := h.ConsensusHeader.SignedHeader.ChainID; chainID != cs.ChainID {
		return nil, fmt.Errorf("%w: expected %q, got %q", client.ErrInvalidChainID, cs.ChainID, chainID)
	}

	trusted, err := loadConsensusState(ctx, h.ConsensusHeader.TrustedHeight)
	if err != nil {
		return nil, err
	}
	if err := tendermint.VerifyHeader(cs.TrustOptions(), trusted.trusted(), h.ConsensusHeader, ctx.Now); err != nil {
		return nil, err
	}
	if err := verifyExecutionHeader(cs, h); err != nil {
		return nil, err
	}
	if err := ethproof.VerifyAccount(h.ExecutionHeader.Root, cs.IBCContractAddress, h.StorageRoot, h.AccountProof); err != nil {
		return nil, fmt.Errorf("%w: account %v: %w", client.ErrVerificationFailed, cs.IBCContractAddress, err)
	}

	return stateUpdate(cs, h)
}

func verifyExecutionHeader(cs *ClientState, h *Header) error {
	mp, err := commitment.UnmarshalMerkleProof(h.ExecutionHeaderProof)
	if err != nil {
		return fmt.Errorf("%w: execution header proof: %w", client.ErrDecode, err)
	}
	specs, err := commitment.ProofSpecs(cs.ProofSpecs)
	if err != nil {
		return fmt.Errorf("%w: %w", client.ErrInvalidClient, err)
	}
	value, err := rlp.EncodeToBytes(h.ExecutionHeader)
	if err != nil {
		return fmt.Errorf("%w: execution header: %w", client.ErrInvalidHeader, err)
	}
	path := commitment.NewMerklePath([]byte(cs.StoreKey), cs.ExecutionHeaderKey)
	appHash := h.ConsensusHeader.SignedHeader.AppHash
	if err := mp.VerifyMembership(specs, appHash, path, value); err != nil {
		return fmt.Errorf("%w: execution header %v: %w", client.ErrVerificationFailed, h.ExecutionHeader.Hash(), err)
	}
	return nil
}

func stateUpdate(cs *ClientState, h *Header) (*client.StateUpdate, error) {
	ts, err := tmmath.SafeConvertUint64(h.ConsensusHeader.SignedHeader.Time.UnixNano())
	if err != nil {
		return nil, client.Wrap(client.ErrInvalidHeader, err)
	}
	update := &client.StateUpdate{
		Height: h.GetHeight(),
		ConsensusState: &ConsensusState{
			Timestamp:          ts,
			StateRoot:          h.ExecutionHeader.Root,
			StorageRoot:        h.StorageRoot,
			NextValidatorsHash: h.ConsensusHeader.SignedHeader.NextValidatorsHash,
		},
	}
	if update.Height.GT(cs.LatestHeight) {
		next := cs.Copy()
		next.LatestHeight = update.Height
		update.ClientState = next
	}
	return update, nil
}

func (LightClient) UpdateState(ctx client.Context, msg client.ClientMessage) ([]types.Height, error) {
	h, ok := msg.(*Header)
	if !ok {
		return nil, fmt.Errorf("%w: %T", client.ErrUnexpectedMessage, msg)
	}
	if err := h.checkEncodable(); err != nil {
		return nil, client.Wrap(client.ErrInvalidHeader, err)
	}
	cs, err := loadClientState(ctx)
	if err != nil {
		return nil, err
	}
	update, err := stateUpdate(cs, h)
	if err != nil {
		return nil, err
	}
	return client.ApplyStateUpdate(ctx, update)
}

// CheckForMisbehaviour flags a header whose execution state differs from
// the consensus state already stored at its height, or whose time does not
// fit between the nearest stored states below and above it.
func (LightClient) CheckForMisbehaviour(ctx client.Context, msg client.ClientMessage) (bool, error) {
	h, ok := msg.(*Header)
	if !ok {
		return false, fmt.Errorf("%w: %T", client.ErrUnexpectedMessage, msg)
	}
	if err := h.checkEncodable(); err != nil {
		return false, client.Wrap(client.ErrInvalidHeader, err)
	}
	cs, err := loadClientState(ctx)
	if err != nil {
		return false, err
	}
	update, err := stateUpdate(cs, h)
	if err != nil {
		return false, err
	}
	cons := update.ConsensusState.(*ConsensusState)
	existing, err := loadConsensusState(ctx, h.GetHeight())
	switch {
	case err == nil:
		return !existing.Equal(cons), nil
	case !errors.Is(err, client.ErrNotFound):
		return false, err
	}
	return client.TimestampOutOfOrder(ctx, h.GetHeight(), cons.Timestamp, decodeConsensusState)
}

func decodeConsensusState(bz []byte) (client.ConsensusState, error) {
	return DecodeConsensusState(bz)
}

func (LightClient) VerifyMisbehaviour(client.Context, client.ClientMessage) error {
	return fmt.Errorf("%w: misbehaviour of %s clients", client.ErrUnimplemented, client.KindEVM)
}

func (LightClient) UpdateStateOnMisbehaviour(client.Context, client.ClientMessage) error {
	return fmt.Errorf("%w: misbehaviour of %s clients", client.ErrUnimplemented, client.KindEVM)
}

// VerifyMembership checks that the IBC contract stores keccak256(value) at
// the slot of the 32 byte commitment key.
func (LightClient) VerifyMembership(ctx client.Context, height types.Height, key, proof, value []byte) error {
	cons, slot, nodes, err := loadStorageProof(ctx, height, key, proof)
	if err != nil {
		return err
	}
	if len(value) == 0 {
		return fmt.Errorf("%w: empty value", client.ErrVerificationFailed)
	}
	if err := ethproof.VerifyStorageProof(cons.StorageRoot, slot, crypto.Keccak256(value), nodes); err != nil {
		return fmt.Errorf("%w: slot %v: %w", client.ErrVerificationFailed, slot, err)
	}
	return nil
}

// VerifyNonMembership checks that the slot of the commitment key is empty.
func (LightClient) VerifyNonMembership(ctx client.Context, height types.Height, key, proof []byte) error {
	cons, slot, nodes, err := loadStorageProof(ctx, height, key, proof)
	if err != nil {
		return err
	}
	if err := ethproof.VerifyStorageAbsence(cons.StorageRoot, slot, nodes); err != nil {
		return fmt.Errorf("%w: slot %v: %w", client.ErrVerificationFailed, slot, err)
	}
	return nil
}

func loadStorageProof(ctx client.Context, height types.Height, key, proof []byte) (*ConsensusState, common.Hash, [][]byte, error) {
	cs, err := loadClientState(ctx)
	if err != nil {
		return nil, common.Hash{}, nil, err
	}
	if cs.IsFrozen() {
		return nil, common.Hash{}, nil, fmt.Errorf("%w: %s", client.ErrFrozen, ctx.ClientID)
	}
	slot, err := ethproof.StorageSlot(cs.StorageLayout, key)
	switch {
	case errors.Is(err, ethproof.ErrInvalidCommitmentKeyLength):
		return nil, common.Hash{}, nil, fmt.Errorf("%w: %w", client.ErrInvalidCommitmentKeyLength, err)
	case err != nil:
		return nil, common.Hash{}, nil, client.Wrap(client.ErrInvalidClient, err)
	}
	cons, err := loadConsensusState(ctx, height)
	if err != nil {
		return nil, common.Hash{}, nil, err
	}
	nodes, err := decodeStorageProof(proof)
	if err != nil {
		return nil, common.Hash{}, nil, err
	}
	return cons, slot, nodes, nil
}

func (LightClient) Status(ctx client.Context) client.Status {
	cs, err := loadClientState(ctx)
	if err != nil {
		return client.Unknown
	}
	if cs.IsFrozen() {
		return client.Frozen
	}
	cons, err := loadConsensusState(ctx, cs.LatestHeight)
	if err != nil {
		return client.Unknown
	}
	return client.StatusAt(false, cons.Timestamp, cs.TrustingPeriod, ctx.Now)
}

// MigrateClientStore replaces the trusted state of the client in ctx with
// the latest state of substitute.
func (LightClient) MigrateClientStore(ctx client.Context, substitute client.Context) error {
	subject, err := loadClientState(ctx)
	if err != nil {
		return err
	}
	sub, err := loadClientState(substitute)
	if err != nil {
		return err
	}
	if sub.IsFrozen() {
		return fmt.Errorf("%w: substitute %s is frozen", client.ErrInvalidClient, substitute.ClientID)
	}
	if !subject.IsMatching(sub) {
		return fmt.Errorf("%w: substitute %s does not match subject %s", client.ErrInvalidClient, substitute.ClientID, ctx.ClientID)
	}
	if err := client.CheckSubstituteHeight(ctx, substitute, subject, sub); err != nil {
		return err
	}

	consBz, err := substitute.Store.ConsensusState(sub.LatestHeight)
	if err != nil {
		return err
	}
	if err := ctx.Store.SetConsensusState(sub.LatestHeight, consBz); err != nil {
		return err
	}

	migrated := subject.Copy()
	migrated.ChainID = sub.ChainID
	migrated.TrustingPeriod = sub.TrustingPeriod
	migrated.LatestHeight = sub.LatestHeight
	migrated.FrozenHeight = types.ZeroHeight
	bz, err := migrated.Marshal()
	if err != nil {
		return err
	}
	return ctx.Store.SetClientState(bz)
}

func (LightClient) VerifyUpgrade(client.Context, []byte, []byte, []byte, []byte) error {
	return fmt.Errorf("%w: upgrade of %s clients", client.ErrUnimplemented, client.KindEVM)
}

func (LightClient) Timestamp(consensusState client.ConsensusState) uint64 {
	return consensusState.GetTimestamp()
}

func (LightClient) LatestHeight(clientState client.ClientState) types.Height {
	return clientState.GetLatestHeight()
}

func (LightClient) CounterpartyChainID(clientState client.ClientState) string {
	return clientState.GetChainID()
}

func loadClientState(ctx client.Context) (*ClientState, error) {
	bz, err := ctx.Store.ClientState()
	if err != nil {
		return nil, err
	}
	return DecodeClientState(bz)
}

func loadConsensusState(ctx client.Context, height types.Height) (*ConsensusState, error) {
	bz, err := ctx.Store.ConsensusState(height)
	if err != nil {
		return nil, err
	}
	return DecodeConsensusState(bz)
}
