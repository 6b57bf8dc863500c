package tendermint

import (
	"errors"
	"fmt"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/types"
)

// CheckForMisbehaviour reports whether msg proves that the counterparty
// signed conflicting headers. A Header conflicts with the stored states if a
// different consensus state exists at its height, or if its time does not
// fit between the nearest stored states below and above it.
func (LightClient) CheckForMisbehaviour(ctx client.Context, msg client.ClientMessage) (bool, error) {
	switch m := msg.(type) {
	case *Misbehaviour:
		if err := m.ValidateBasic(); err != nil {
			return false, client.Wrap(client.ErrInvalidMisbehaviour, err)
		}
		return m.IsConflicting(), nil

	case *Header:
		if m.SignedHeader == nil || m.SignedHeader.Header == nil {
			return false, fmt.Errorf("%w: signed header cannot be nil", client.ErrInvalidHeader)
		}
		cons, err := NewConsensusState(m.SignedHeader.Header)
		if err != nil {
			return false, client.Wrap(client.ErrInvalidHeader, err)
		}
		return conflictsWithStored(ctx, m.GetHeight(), cons)

	default:
		return false, fmt.Errorf("%w: %T", client.ErrUnexpectedMessage, msg)
	}
}

func conflictsWithStored(ctx client.Context, height types.Height, cons *ConsensusState) (bool, error) {
	existing, err := loadConsensusState(ctx, height)
	switch {
	case err == nil:
		return !existing.Equal(cons), nil
	case !errors.Is(err, client.ErrNotFound):
		return false, err
	}

	return client.TimestampOutOfOrder(ctx, height, cons.Timestamp, decodeConsensusState)
}

func decodeConsensusState(bz []byte) (client.ConsensusState, error) {
	return DecodeConsensusState(bz)
}

// VerifyMisbehaviour verifies both headers of the evidence against the
// consensus states at their trusted heights.
func (LightClient) VerifyMisbehaviour(ctx client.Context, msg client.ClientMessage) error {
	m, ok := msg.(*Misbehaviour)
	if !ok {
		return fmt.Errorf("%w: %T", client.ErrUnexpectedMessage, msg)
	}
	cs, err := loadClientState(ctx)
	if err != nil {
		return err
	}
	if cs.IsFrozen() {
		return fmt.Errorf("%w: %s", client.ErrFrozen, ctx.ClientID)
	}
	if err := m.ValidateBasic(); err != nil {
		return client.Wrap(client.ErrInvalidMisbehaviour, err)
	}
	if !m.IsConflicting() {
		return fmt.Errorf("%w: headers at %v and %v do not conflict",
			client.ErrInvalidMisbehaviour, m.Header1.GetHeight(), m.Header2.GetHeight())
	}
	if err := verifyHeader(ctx, cs, m.Header1); err != nil {
		return fmt.Errorf("verify header 1: %w", err)
	}
	if err := verifyHeader(ctx, cs, m.Header2); err != nil {
		return fmt.Errorf("verify header 2: %w", err)
	}
	return nil
}

// UpdateStateOnMisbehaviour freezes the client.
func (LightClient) UpdateStateOnMisbehaviour(ctx client.Context, _ client.ClientMessage) error {
	cs, err := loadClientState(ctx)
	if err != nil {
		return err
	}
	frozen := cs.Copy()
	frozen.FrozenHeight = FrozenHeight
	ctx.Log().Error("client frozen on misbehaviour", "latest_height", cs.LatestHeight)
	return saveClientState(ctx, frozen)
}
