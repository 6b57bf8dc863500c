// Package tendermint implements the light client of a BFT chain whose
// headers are signed by a validator set.
package tendermint

import (
	"fmt"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/commitment"
	"github.com/tendermint/lightclients/types"
)

// LightClient implements client.LightClient for BFT chains.
type LightClient struct{}

var _ client.LightClient = LightClient{}

func (LightClient) Kind() client.Kind { return client.KindTendermint }

func (LightClient) DecodeClientState(bz []byte) (client.ClientState, error) {
	return DecodeClientState(bz)
}

func (LightClient) DecodeConsensusState(bz []byte) (client.ConsensusState, error) {
	return DecodeConsensusState(bz)
}

func (LightClient) DecodeClientMessage(bz []byte) (client.ClientMessage, error) {
	return DecodeClientMessage(bz)
}

// VerifyCreation checks the initial client and consensus state. The
// consensus state must be within the trusting period and not ahead of the
// host clock by more than the allowed drift.
func (LightClient) VerifyCreation(ctx client.Context, clientState client.ClientState, consensusState client.ConsensusState) (*client.CreationResult, error) {
	cs, ok := clientState.(*ClientState)
	if !ok {
		return nil, fmt.Errorf("%w: expected %T, got %T", client.ErrInvalidClient, &ClientState{}, clientState)
	}
	cons, ok := consensusState.(*ConsensusState)
	if !ok {
		return nil, fmt.Errorf("%w: expected %T, got %T", client.ErrInvalidClient, &ConsensusState{}, consensusState)
	}
	if err := CheckCreation(ctx, cs, cs.TrustOptions(), cons); err != nil {
		return nil, err
	}
	return &client.CreationResult{}, nil
}

// CheckCreation validates the bootstrap states of a BFT based client.
func CheckCreation(ctx client.Context, cs client.ClientState, opts TrustOptions, cons client.ConsensusState) error {
	if err := cs.ValidateBasic(); err != nil {
		return fmt.Errorf("%w: %w", client.ErrInvalidClient, err)
	}
	if cs.IsFrozen() {
		return fmt.Errorf("%w: client cannot be created frozen", client.ErrInvalidClient)
	}
	if err := cons.ValidateBasic(); err != nil {
		return fmt.Errorf("%w: consensus state: %w", client.ErrInvalidClient, err)
	}

	consTime := client.TimestampToTime(cons.GetTimestamp())
	if maxTime := ctx.Now.Add(opts.MaxClockDrift); consTime.After(maxTime) {
		return fmt.Errorf("%w: bootstrap timestamp %v is after %v", client.ErrInvalidClient, consTime, maxTime)
	}
	if client.IsExpired(cons.GetTimestamp(), opts.TrustingPeriod, ctx.Now) {
		return fmt.Errorf("%w: bootstrap timestamp %v is older than the trusting period %v",
			client.ErrInvalidClient, consTime, opts.TrustingPeriod)
	}
	return nil
}

// VerifyHeader verifies a header against the consensus state stored at its
// trusted height.
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
	if err := verifyHeader(ctx, cs, h); err != nil {
		return nil, err
	}
	return stateUpdate(cs, h)
}

func verifyHeader(ctx client.Context, cs *ClientState, h *Header) error {
	if h.SignedHeader == nil || h.SignedHeader.Header == nil {
		return fmt.Errorf("%w: signed header cannot be nil", client.ErrInvalidHeader)
	}
	if h.SignedHeader.ChainID != cs.ChainID {
		return fmt.Errorf("%w: expected %q, got %q", client.ErrInvalidChainID, cs.ChainID, h.SignedHeader.ChainID)
	}
	if err := h.ValidateBasic(); err != nil {
		return client.Wrap(client.ErrInvalidHeader, err)
	}
	trusted, err := loadConsensusState(ctx, h.TrustedHeight)
	if err != nil {
		return err
	}
	return VerifyHeader(cs.TrustOptions(), trusted, h, ctx.Now)
}

func stateUpdate(cs *ClientState, h *Header) (*client.StateUpdate, error) {
	cons, err := NewConsensusState(h.SignedHeader.Header)
	if err != nil {
		return nil, client.Wrap(client.ErrInvalidHeader, err)
	}
	update := &client.StateUpdate{Height: h.GetHeight(), ConsensusState: cons}
	if update.Height.GT(cs.LatestHeight) {
		next := cs.Copy()
		next.LatestHeight = update.Height
		update.ClientState = next
	}
	return update, nil
}

// UpdateState stores the consensus state of a verified header and advances
// the latest height if the header is newer.
func (LightClient) UpdateState(ctx client.Context, msg client.ClientMessage) ([]types.Height, error) {
	h, ok := msg.(*Header)
	if !ok {
		return nil, fmt.Errorf("%w: %T", client.ErrUnexpectedMessage, msg)
	}
	if h.SignedHeader == nil || h.SignedHeader.Header == nil {
		return nil, fmt.Errorf("%w: signed header cannot be nil", client.ErrInvalidHeader)
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

// Status is Frozen after misbehaviour and Expired once the latest consensus
// state is older than the trusting period.
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

// VerifyMembership checks that value is stored under key at height.
func (LightClient) VerifyMembership(ctx client.Context, height types.Height, key, proof, value []byte) error {
	cs, cons, mp, err := loadProofState(ctx, height, proof)
	if err != nil {
		return err
	}
	specs, err := commitment.ProofSpecs(cs.ProofSpecs)
	if err != nil {
		return fmt.Errorf("%w: %w", client.ErrInvalidClient, err)
	}
	if err := mp.VerifyMembership(specs, cons.Root, cs.merklePath(key), value); err != nil {
		return fmt.Errorf("%w: %w", client.ErrVerificationFailed, err)
	}
	return nil
}

// VerifyNonMembership checks that nothing is stored under key at height.
func (LightClient) VerifyNonMembership(ctx client.Context, height types.Height, key, proof []byte) error {
	cs, cons, mp, err := loadProofState(ctx, height, proof)
	if err != nil {
		return err
	}
	specs, err := commitment.ProofSpecs(cs.ProofSpecs)
	if err != nil {
		return fmt.Errorf("%w: %w", client.ErrInvalidClient, err)
	}
	if err := mp.VerifyNonMembership(specs, cons.Root, cs.merklePath(key)); err != nil {
		return fmt.Errorf("%w: %w", client.ErrVerificationFailed, err)
	}
	return nil
}

func (cs *ClientState) merklePath(key []byte) commitment.MerklePath {
	prefixed := make([]byte, 0, len(cs.KeyPrefix)+len(key))
	prefixed = append(prefixed, cs.KeyPrefix...)
	prefixed = append(prefixed, key...)
	return commitment.NewMerklePath([]byte(cs.StoreKey), prefixed)
}

func loadProofState(ctx client.Context, height types.Height, proof []byte) (*ClientState, *ConsensusState, commitment.MerkleProof, error) {
	cs, err := loadClientState(ctx)
	if err != nil {
		return nil, nil, commitment.MerkleProof{}, err
	}
	if cs.IsFrozen() {
		return nil, nil, commitment.MerkleProof{}, fmt.Errorf("%w: %s", client.ErrFrozen, ctx.ClientID)
	}
	cons, err := loadConsensusState(ctx, height)
	if err != nil {
		return nil, nil, commitment.MerkleProof{}, err
	}
	mp, err := commitment.UnmarshalMerkleProof(proof)
	if err != nil {
		return nil, nil, commitment.MerkleProof{}, fmt.Errorf("%w: %w", client.ErrDecode, err)
	}
	return cs, cons, mp, nil
}

// MigrateClientStore replaces the trusted state of the client in ctx with
// the latest state of substitute. Only the chain id, trusting period and
// latest height are taken from the substitute; the subject is unfrozen.
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
	return saveClientState(ctx, migrated)
}

func (LightClient) VerifyUpgrade(client.Context, []byte, []byte, []byte, []byte) error {
	return fmt.Errorf("%w: upgrade of %s clients", client.ErrUnimplemented, client.KindTendermint)
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

func saveClientState(ctx client.Context, cs *ClientState) error {
	bz, err := cs.Marshal()
	if err != nil {
		return err
	}
	return ctx.Store.SetClientState(bz)
}

func loadConsensusState(ctx client.Context, height types.Height) (*ConsensusState, error) {
	bz, err := ctx.Store.ConsensusState(height)
	if err != nil {
		return nil, err
	}
	return DecodeConsensusState(bz)
}
