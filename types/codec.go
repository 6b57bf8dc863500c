package types

import (
	"fmt"
	"io"
	"math"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tendermint/lightclients/crypto/encoding"
	tmmath "github.com/tendermint/lightclients/libs/math"
)

// The counterparty ships headers, commits and validator sets as RLP lists.
// The *Wire structs below fix the field order of those lists; the domain
// types implement rlp.Encoder and rlp.Decoder on top of them.

type validatorWire struct {
	KeyType     string
	PubKey      []byte
	VotingPower uint64
}

type headerWire struct {
	ChainID            string
	Height             uint64
	Time               uint64
	LastBlockID        CanonicalBlockID
	LastCommitHash     []byte
	DataHash           []byte
	ValidatorsHash     []byte
	NextValidatorsHash []byte
	ConsensusHash      []byte
	AppHash            []byte
	LastResultsHash    []byte
	EvidenceHash       []byte
	ProposerAddress    []byte
}

type commitSigWire struct {
	BlockIDFlag      uint8
	ValidatorAddress []byte
	Timestamp        uint64
	Signature        []byte
}

type commitWire struct {
	Height              uint64
	Round               uint32
	BlockID             CanonicalBlockID
	Signatures          []commitSigWire
	AggregatedSignature []byte
}

func newValidatorWire(v *Validator) validatorWire {
	w := validatorWire{VotingPower: uint64(v.VotingPower)}
	if v.PubKey != nil {
		w.KeyType = v.PubKey.Type()
		w.PubKey = v.PubKey.Bytes()
	}
	return w
}

func blockIDFromWire(w CanonicalBlockID) BlockID {
	return BlockID{
		Hash: w.Hash,
		PartSetHeader: PartSetHeader{
			Total: w.PartSetHeader.Total,
			Hash:  w.PartSetHeader.Hash,
		},
	}
}

//-------------------------------------

// EncodeRLP implements rlp.Encoder.
func (v *Validator) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, newValidatorWire(v))
}

// DecodeRLP implements rlp.Decoder. The address is derived from the key.
func (v *Validator) DecodeRLP(s *rlp.Stream) error {
	var vw validatorWire
	if err := s.Decode(&vw); err != nil {
		return err
	}
	pk, err := encoding.PubKeyFromTypeAndBytes(vw.KeyType, vw.PubKey)
	if err != nil {
		return err
	}
	power, err := tmmath.SafeConvertInt64(vw.VotingPower)
	if err != nil {
		return fmt.Errorf("voting power: %w", err)
	}
	*v = Validator{
		Address:     pk.Address(),
		PubKey:      pk,
		VotingPower: power,
	}
	return nil
}

// EncodeRLP implements rlp.Encoder.
func (vals *ValidatorSet) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, vals.Validators)
}

// DecodeRLP implements rlp.Decoder. The order of the validators is kept
// and the set must pass ValidateBasic.
func (vals *ValidatorSet) DecodeRLP(s *rlp.Stream) error {
	var valz []*Validator
	if err := s.Decode(&valz); err != nil {
		return err
	}
	vs, err := ValidatorSetFromExistingValidators(valz)
	if err != nil {
		return err
	}
	*vals = *vs
	return nil
}

// EncodeRLP implements rlp.Encoder.
func (h *Header) EncodeRLP(w io.Writer) error {
	if h.Height < 0 {
		return fmt.Errorf("negative height %d", h.Height)
	}
	ts, err := timeToWire(h.Time)
	if err != nil {
		return err
	}
	return rlp.Encode(w, headerWire{
		ChainID:            h.ChainID,
		Height:             uint64(h.Height),
		Time:               ts,
		LastBlockID:        CanonicalizeBlockID(h.LastBlockID),
		LastCommitHash:     h.LastCommitHash,
		DataHash:           h.DataHash,
		ValidatorsHash:     h.ValidatorsHash,
		NextValidatorsHash: h.NextValidatorsHash,
		ConsensusHash:      h.ConsensusHash,
		AppHash:            h.AppHash,
		LastResultsHash:    h.LastResultsHash,
		EvidenceHash:       h.EvidenceHash,
		ProposerAddress:    h.ProposerAddress,
	})
}

// DecodeRLP implements rlp.Decoder.
func (h *Header) DecodeRLP(s *rlp.Stream) error {
	var hw headerWire
	if err := s.Decode(&hw); err != nil {
		return err
	}
	height, err := tmmath.SafeConvertInt64(hw.Height)
	if err != nil {
		return fmt.Errorf("height: %w", err)
	}
	ts, err := timeFromWire(hw.Time)
	if err != nil {
		return err
	}
	*h = Header{
		ChainID:            hw.ChainID,
		Height:             height,
		Time:               ts,
		LastBlockID:        blockIDFromWire(hw.LastBlockID),
		LastCommitHash:     hw.LastCommitHash,
		DataHash:           hw.DataHash,
		ValidatorsHash:     hw.ValidatorsHash,
		NextValidatorsHash: hw.NextValidatorsHash,
		ConsensusHash:      hw.ConsensusHash,
		AppHash:            hw.AppHash,
		LastResultsHash:    hw.LastResultsHash,
		EvidenceHash:       hw.EvidenceHash,
		ProposerAddress:    hw.ProposerAddress,
	}
	return nil
}

// EncodeRLP implements rlp.Encoder.
func (commit *Commit) EncodeRLP(w io.Writer) error {
	if commit.Height < 0 || commit.Round < 0 {
		return fmt.Errorf("negative height or round: %d/%d", commit.Height, commit.Round)
	}
	cw := commitWire{
		Height:              uint64(commit.Height),
		Round:               uint32(commit.Round),
		BlockID:             CanonicalizeBlockID(commit.BlockID),
		Signatures:          make([]commitSigWire, len(commit.Signatures)),
		AggregatedSignature: commit.AggregatedSignature,
	}
	for i, cs := range commit.Signatures {
		ts, err := timeToWire(cs.Timestamp)
		if err != nil {
			return fmt.Errorf("signature #%d: %w", i, err)
		}
		cw.Signatures[i] = commitSigWire{
			BlockIDFlag:      uint8(cs.BlockIDFlag),
			ValidatorAddress: cs.ValidatorAddress,
			Timestamp:        ts,
			Signature:        cs.Signature,
		}
	}
	return rlp.Encode(w, cw)
}

// DecodeRLP implements rlp.Decoder.
func (commit *Commit) DecodeRLP(s *rlp.Stream) error {
	var cw commitWire
	if err := s.Decode(&cw); err != nil {
		return err
	}
	height, err := tmmath.SafeConvertInt64(cw.Height)
	if err != nil {
		return fmt.Errorf("height: %w", err)
	}
	if cw.Round > math.MaxInt32 {
		return fmt.Errorf("round %d overflows int32", cw.Round)
	}
	c := Commit{
		Height:              height,
		Round:               int32(cw.Round),
		BlockID:             blockIDFromWire(cw.BlockID),
		Signatures:          make([]CommitSig, len(cw.Signatures)),
		AggregatedSignature: cw.AggregatedSignature,
	}
	for i, sw := range cw.Signatures {
		ts, err := timeFromWire(sw.Timestamp)
		if err != nil {
			return fmt.Errorf("signature #%d: %w", i, err)
		}
		c.Signatures[i] = CommitSig{
			BlockIDFlag:      BlockIDFlag(sw.BlockIDFlag),
			ValidatorAddress: sw.ValidatorAddress,
			Timestamp:        ts,
			Signature:        sw.Signature,
		}
	}
	*commit = c
	return nil
}

// EncodeRLP implements rlp.Encoder. It has a value receiver so that it
// shadows the method promoted from the embedded *Header.
func (sh SignedHeader) EncodeRLP(w io.Writer) error {
	if sh.Header == nil || sh.Commit == nil {
		return fmt.Errorf("signed header is missing its header or commit")
	}
	return rlp.Encode(w, []interface{}{sh.Header, sh.Commit})
}

// DecodeRLP implements rlp.Decoder.
func (sh *SignedHeader) DecodeRLP(s *rlp.Stream) error {
	if _, err := s.List(); err != nil {
		return err
	}
	h := new(Header)
	if err := s.Decode(h); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	c := new(Commit)
	if err := s.Decode(c); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if err := s.ListEnd(); err != nil {
		return err
	}
	sh.Header = h
	sh.Commit = c
	return nil
}
