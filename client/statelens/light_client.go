// Package statelens implements a light client of an L2 chain that trusts L2
// consensus states committed by an L1 chain, itself tracked by another
// client of the same host.
package statelens

import (
	"fmt"

	ics23 "github.com/confio/ics23/go"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/commitment"
	"github.com/tendermint/lightclients/types"
)

// EventTypeCreateLensClient is emitted when a lens client is created.
const EventTypeCreateLensClient = "create_lens_client"

// event attribute keys
const (
	AttributeKeyClientID   = "client_id"
	AttributeKeyL1ClientID = "l1_client_id"
	AttributeKeyL2ClientID = "l2_client_id"
	AttributeKeyL2ChainID  = "l2_chain_id"
)

// LightClient implements client.LightClient for lens clients.
type LightClient struct{}

var _ client.LightClient = LightClient{}

func (LightClient) Kind() client.Kind { return client.KindStateLens }

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
	if err := cs.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("%w: %w", client.ErrInvalidClient, err)
	}
	if err := consensusState.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("%w: consensus state: %w", client.ErrInvalidClient, err)
	}
	if ctx.Clients == nil {
		return nil, fmt.Errorf("%w: no client registry", client.ErrInvalidClient)
	}
	if _, err := ctx.Clients.LatestHeight(cs.L1ClientID); err != nil {
		return nil, fmt.Errorf("%w: l1 client %s: %w", client.ErrInvalidClient, cs.L1ClientID, err)
	}

	return &client.CreationResult{
		Events: []client.Event{{
			Type: EventTypeCreateLensClient,
			Attributes: []client.EventAttribute{
				{Key: AttributeKeyClientID, Value: ctx.ClientID},
				{Key: AttributeKeyL1ClientID, Value: cs.L1ClientID},
				{Key: AttributeKeyL2ClientID, Value: cs.L2ClientID},
				{Key: AttributeKeyL2ChainID, Value: cs.L2ChainID},
			},
		}},
	}, nil
}

// VerifyHeader proves through the L1 client that the L1 chain committed
// the L2 consensus state carried by the header. Errors of the L1 client
// are returned with their kind intact.
func (LightClient) VerifyHeader(ctx client.Context, msg client.ClientMessage) (*client.StateUpdate, error) {
	h, ok := msg.(*Header)
	if !ok {
		return nil, fmt.Errorf("%w: %T", client.ErrUnexpectedMessage, msg)
	}
	if err := h.ValidateBasic(); err != nil {
		return nil, client.Wrap(client.ErrInvalidHeader, err)
	}
	cs, err := loadClientState(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkL1(ctx, cs); err != nil {
		return nil, err
	}

	path := []byte(client.ConsensusStatePath(cs.L2ClientID, h.L2Height))
	key, err := commitmentKey(cs.Extra, path)
	if err != nil {
		return nil, client.Wrap(client.ErrInvalidClient, err)
	}
	err = ctx.Clients.VerifyMembership(cs.L1ClientID, h.L1Height, key, h.L2InclusionProof, h.L2ConsensusState)
	if err != nil {
		return nil, fmt.Errorf("l1 client %s at %v: %w", cs.L1ClientID, h.L1Height, client.Wrap(client.ErrVerificationFailed, err))
	}

	return stateUpdate(ctx, cs, h)
}

// checkL1 rejects updates and proofs while the L1 client is not active.
func checkL1(ctx client.Context, cs *ClientState) error {
	if ctx.Clients == nil {
		return fmt.Errorf("%w: no client registry", client.ErrInvalidClient)
	}
	switch status := ctx.Clients.Status(cs.L1ClientID); status {
	case client.Active:
		return nil
	case client.Frozen:
		return fmt.Errorf("%w: l1 client %s", client.ErrFrozen, cs.L1ClientID)
	case client.Expired:
		return fmt.Errorf("%w: l1 client %s", client.ErrExpired, cs.L1ClientID)
	default:
		return fmt.Errorf("%w: l1 client %s is %s", client.ErrClientNotFound, cs.L1ClientID, status)
	}
}

func stateUpdate(ctx client.Context, cs *ClientState, h *Header) (*client.StateUpdate, error) {
	l2, err := ctx.Clients.DecodeConsensusState(cs.L2Kind, h.L2ConsensusState)
	if err != nil {
		return nil, client.Wrap(client.ErrDecode, err)
	}
	update := &client.StateUpdate{
		Height: h.L2Height,
		ConsensusState: &ConsensusState{
			Timestamp: l2.GetTimestamp(),
			StateRoot: l2.GetRoot(),
		},
	}
	if h.L2Height.GT(cs.L2LatestHeight) {
		next := cs.Copy()
		next.L2LatestHeight = h.L2Height
		update.ClientState = next
	}
	return update, nil
}

func (LightClient) UpdateState(ctx client.Context, msg client.ClientMessage) ([]types.Height, error) {
	h, ok := msg.(*Header)
	if !ok {
		return nil, fmt.Errorf("%w: %T", client.ErrUnexpectedMessage, msg)
	}
	cs, err := loadClientState(ctx)
	if err != nil {
		return nil, err
	}
	if ctx.Clients == nil {
		return nil, fmt.Errorf("%w: no client registry", client.ErrInvalidClient)
	}
	update, err := stateUpdate(ctx, cs, h)
	if err != nil {
		return nil, err
	}
	return client.ApplyStateUpdate(ctx, update)
}

// CheckForMisbehaviour always reports false: misbehaviour of the L2 chain
// is detected by the L1 client tracking it.
func (LightClient) CheckForMisbehaviour(client.Context, client.ClientMessage) (bool, error) {
	return false, nil
}

func (LightClient) VerifyMisbehaviour(client.Context, client.ClientMessage) error {
	return fmt.Errorf("%w: misbehaviour of %s clients", client.ErrUnimplemented, client.KindStateLens)
}

func (LightClient) UpdateStateOnMisbehaviour(client.Context, client.ClientMessage) error {
	return fmt.Errorf("%w: misbehaviour of %s clients", client.ErrUnimplemented, client.KindStateLens)
}

func (LightClient) VerifyMembership(ctx client.Context, height types.Height, key, proof, value []byte) error {
	mp, specs, root, path, err := loadProofState(ctx, height, key, proof)
	if err != nil {
		return err
	}
	if err := mp.VerifyMembership(specs, root, path, value); err != nil {
		return fmt.Errorf("%w: %w", client.ErrVerificationFailed, err)
	}
	return nil
}

func (LightClient) VerifyNonMembership(ctx client.Context, height types.Height, key, proof []byte) error {
	mp, specs, root, path, err := loadProofState(ctx, height, key, proof)
	if err != nil {
		return err
	}
	if err := mp.VerifyNonMembership(specs, root, path); err != nil {
		return fmt.Errorf("%w: %w", client.ErrVerificationFailed, err)
	}
	return nil
}

func loadProofState(ctx client.Context, height types.Height, key, proof []byte) (
	mp commitment.MerkleProof, specs []*ics23.ProofSpec, root []byte, path commitment.MerklePath, err error,
) {
	cs, err := loadClientState(ctx)
	if err != nil {
		return mp, nil, nil, path, err
	}
	if err = checkL1(ctx, cs); err != nil {
		return mp, nil, nil, path, err
	}
	cons, err := loadConsensusState(ctx, height)
	if err != nil {
		return mp, nil, nil, path, err
	}
	specs, err = commitment.ProofSpecs(cs.ProofSpecs)
	if err != nil {
		return mp, nil, nil, path, client.Wrap(client.ErrInvalidClient, err)
	}
	mp, err = commitment.UnmarshalMerkleProof(proof)
	if err != nil {
		return mp, nil, nil, path, fmt.Errorf("%w: %w", client.ErrDecode, err)
	}
	ck, err := commitmentKey(cs.Extra, key)
	if err != nil {
		return mp, nil, nil, path, client.Wrap(client.ErrInvalidClient, err)
	}
	path = commitment.NewMerklePath([]byte(cs.StoreKey), append(append([]byte(nil), cs.KeyPrefixStorage...), ck...))
	return mp, specs, cons.StateRoot, path, nil
}

// Status reports the status of the L1 client unless it is active, in which
// case the lens is active as long as its own state is readable.
func (LightClient) Status(ctx client.Context) client.Status {
	cs, err := loadClientState(ctx)
	if err != nil || ctx.Clients == nil {
		return client.Unknown
	}
	if status := ctx.Clients.Status(cs.L1ClientID); status != client.Active {
		return status
	}
	if _, err := loadConsensusState(ctx, cs.L2LatestHeight); err != nil {
		return client.Unknown
	}
	return client.Active
}

// MigrateClientStore replaces the L2 chain id, latest height and latest
// consensus state of the client in ctx with those of substitute.
func (LightClient) MigrateClientStore(ctx client.Context, substitute client.Context) error {
	subject, err := loadClientState(ctx)
	if err != nil {
		return err
	}
	sub, err := loadClientState(substitute)
	if err != nil {
		return err
	}
	if !subject.IsMatching(sub) {
		return fmt.Errorf("%w: substitute %s does not match subject %s", client.ErrInvalidClient, substitute.ClientID, ctx.ClientID)
	}
	if err := client.CheckSubstituteHeight(ctx, substitute, subject, sub); err != nil {
		return err
	}

	consBz, err := substitute.Store.ConsensusState(sub.L2LatestHeight)
	if err != nil {
		return err
	}
	if err := ctx.Store.SetConsensusState(sub.L2LatestHeight, consBz); err != nil {
		return err
	}

	migrated := subject.Copy()
	migrated.L2ChainID = sub.L2ChainID
	migrated.L2LatestHeight = sub.L2LatestHeight
	bz, err := migrated.Marshal()
	if err != nil {
		return err
	}
	return ctx.Store.SetClientState(bz)
}

func (LightClient) VerifyUpgrade(client.Context, []byte, []byte, []byte, []byte) error {
	return fmt.Errorf("%w: upgrade of %s clients", client.ErrUnimplemented, client.KindStateLens)
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
