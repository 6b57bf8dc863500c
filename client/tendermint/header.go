package tendermint

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/types"
)

// Header is a signed header of the counterparty together with the
// validator sets needed to verify it from a trusted height.
type Header struct {
	SignedHeader      *types.SignedHeader
	ValidatorSet      *types.ValidatorSet
	TrustedHeight     types.Height
	TrustedValidators *types.ValidatorSet
}

var _ client.ClientMessage = (*Header)(nil)

func (h *Header) ClientKind() client.Kind { return client.KindTendermint }

// GetHeight returns the height of the signed header. The revision number
// is taken from the chain id.
func (h *Header) GetHeight() types.Height {
	return types.NewHeight(types.ParseChainID(h.SignedHeader.ChainID), uint64(h.SignedHeader.Height))
}

// ValidateBasic performs stateless checks.
func (h *Header) ValidateBasic() error {
	if h.SignedHeader == nil || h.SignedHeader.Header == nil {
		return errors.New("signed header cannot be nil")
	}
	if err := h.SignedHeader.ValidateBasic(h.SignedHeader.ChainID); err != nil {
		return fmt.Errorf("invalid signed header: %w", err)
	}
	if h.ValidatorSet.IsNilOrEmpty() {
		return errors.New("validator set cannot be empty")
	}
	if !bytes.Equal(h.SignedHeader.ValidatorsHash, h.ValidatorSet.Hash()) {
		return errors.New("validator set does not match hash")
	}
	if h.TrustedValidators.IsNilOrEmpty() {
		return errors.New("trusted validator set cannot be empty")
	}
	if h.TrustedHeight.RevisionNumber != h.GetHeight().RevisionNumber {
		return fmt.Errorf("%w: trusted height %v, header height %v",
			client.ErrRevisionNumberMismatch, h.TrustedHeight, h.GetHeight())
	}
	if h.TrustedHeight.GTE(h.GetHeight()) {
		return fmt.Errorf("%w: trusted height %v, header height %v",
			client.ErrHeaderHeightNotMoreRecent, h.TrustedHeight, h.GetHeight())
	}
	return nil
}

// Misbehaviour is evidence of two conflicting headers signed by the
// counterparty: either two different blocks at one height, or a later
// block whose time does not advance.
type Misbehaviour struct {
	Header1 *Header
	Header2 *Header
}

var _ client.ClientMessage = (*Misbehaviour)(nil)

func (m *Misbehaviour) ClientKind() client.Kind { return client.KindTendermint }

// ValidateBasic checks both headers and orders them: Header1 is never below
// Header2.
func (m *Misbehaviour) ValidateBasic() error {
	if m.Header1 == nil || m.Header2 == nil {
		return errors.New("misbehaviour headers cannot be nil")
	}
	if err := m.Header1.ValidateBasic(); err != nil {
		return fmt.Errorf("header 1: %w", err)
	}
	if err := m.Header2.ValidateBasic(); err != nil {
		return fmt.Errorf("header 2: %w", err)
	}
	if m.Header1.SignedHeader.ChainID != m.Header2.SignedHeader.ChainID {
		return errors.New("headers must have the same chain id")
	}
	if m.Header1.GetHeight().LT(m.Header2.GetHeight()) {
		return fmt.Errorf("header 1 height %v is less than header 2 height %v",
			m.Header1.GetHeight(), m.Header2.GetHeight())
	}
	return nil
}

// IsConflicting reports whether the two headers cannot both come from one
// honest chain.
func (m *Misbehaviour) IsConflicting() bool {
	h1, h2 := m.Header1.SignedHeader, m.Header2.SignedHeader
	if m.Header1.GetHeight().EQ(m.Header2.GetHeight()) {
		return !bytes.Equal(h1.Hash(), h2.Hash())
	}
	return !h1.Time.After(h2.Time)
}
