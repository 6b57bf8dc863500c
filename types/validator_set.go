package types

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tendermint/lightclients/crypto/merkle"
	tmmath "github.com/tendermint/lightclients/libs/math"
)

const (
	// MaxTotalVotingPower - the maximum allowed total voting power.
	// It needs to be sufficiently small to, in all cases, multiply a trust
	// level numerator by it without overflowing int64.
	MaxTotalVotingPower = int64(math.MaxInt64) / 8
)

// ValidatorSet represent a set of *Validator at a given height.
//
// The validators are kept in the order the counterparty committed them
// (voting power descending, then address ascending), because commit
// signatures are aligned with it by index.
type ValidatorSet struct {
	Validators []*Validator `json:"validators"`

	// cached (unexported)
	totalVotingPower int64
}

// NewValidatorSet initializes a ValidatorSet by copying over the values from
// `valz` and sorting them in commit order.
//
// The addresses of validators in `valz` must be unique and the total voting
// power must not exceed MaxTotalVotingPower, otherwise the function panics.
func NewValidatorSet(valz []*Validator) *ValidatorSet {
	vals := &ValidatorSet{Validators: validatorListCopy(valz)}
	sort.Sort(ValidatorsByVotingPower(vals.Validators))
	if err := vals.checkAddressesAndPower(); err != nil {
		panic(fmt.Sprintf("Cannot create validator set: %v", err))
	}
	return vals
}

// ValidatorSetFromExistingValidators keeps the order of valz as given and
// validates it.
func ValidatorSetFromExistingValidators(valz []*Validator) (*ValidatorSet, error) {
	vals := &ValidatorSet{Validators: validatorListCopy(valz)}
	if err := vals.ValidateBasic(); err != nil {
		return nil, err
	}
	return vals, nil
}

// ValidateBasic checks every validator, address uniqueness and the total
// voting power bound.
func (vals *ValidatorSet) ValidateBasic() error {
	if vals.IsNilOrEmpty() {
		return errors.New("validator set is nil or empty")
	}

	for idx, val := range vals.Validators {
		if err := val.ValidateBasic(); err != nil {
			return fmt.Errorf("invalid validator #%d: %w", idx, err)
		}
	}

	return vals.checkAddressesAndPower()
}

func (vals *ValidatorSet) checkAddressesAndPower() error {
	seen := make(map[string]struct{}, len(vals.Validators))
	var sum int64
	for _, val := range vals.Validators {
		if _, ok := seen[string(val.Address)]; ok {
			return fmt.Errorf("duplicate validator %v", val.Address)
		}
		seen[string(val.Address)] = struct{}{}

		var overflow bool
		sum, overflow = tmmath.SafeAdd(sum, val.VotingPower)
		if overflow || sum > MaxTotalVotingPower {
			return fmt.Errorf("total voting power of resulting valset exceeds max %d", MaxTotalVotingPower)
		}
	}
	vals.totalVotingPower = sum
	return nil
}

// IsNilOrEmpty returns true if validator set is nil or empty.
func (vals *ValidatorSet) IsNilOrEmpty() bool {
	return vals == nil || len(vals.Validators) == 0
}

// Size returns the length of the validator set.
func (vals *ValidatorSet) Size() int {
	if vals == nil {
		return 0
	}
	return len(vals.Validators)
}

// HasAddress returns true if address given is in the validator set, false -
// otherwise.
func (vals *ValidatorSet) HasAddress(address []byte) bool {
	idx, _ := vals.GetByAddress(address)
	return idx != -1
}

// GetByAddress returns an index of the validator with address and validator
// itself (copy) if found. Otherwise, -1 and nil are returned.
func (vals *ValidatorSet) GetByAddress(address []byte) (index int32, val *Validator) {
	for idx, val := range vals.Validators {
		if bytes.Equal(val.Address, address) {
			return int32(idx), val.Copy()
		}
	}
	return -1, nil
}

// GetByIndex returns the validator's address and validator itself (copy) by
// index. It returns nil values if index is less than 0 or greater or equal to
// len(ValidatorSet.Validators).
func (vals *ValidatorSet) GetByIndex(index int32) (address []byte, val *Validator) {
	if index < 0 || int(index) >= len(vals.Validators) {
		return nil, nil
	}
	val = vals.Validators[index]
	return val.Address, val.Copy()
}

// TotalVotingPower returns the sum of the voting powers of all validators.
// It recomputes the total voting power if required.
func (vals *ValidatorSet) TotalVotingPower() int64 {
	if vals.totalVotingPower == 0 {
		var sum int64
		for _, val := range vals.Validators {
			// mind overflow
			sum, _ = tmmath.SafeAdd(sum, val.VotingPower)
		}
		vals.totalVotingPower = sum
	}
	return vals.totalVotingPower
}

// Hash returns the Merkle root hash build using validators (as leaves) in the
// set.
func (vals *ValidatorSet) Hash() []byte {
	bzs := make([][]byte, len(vals.Validators))
	for i, val := range vals.Validators {
		bzs[i] = val.Bytes()
	}
	return merkle.HashFromByteSlices(bzs)
}

// Copy each validator into a new ValidatorSet.
func (vals *ValidatorSet) Copy() *ValidatorSet {
	return &ValidatorSet{
		Validators:       validatorListCopy(vals.Validators),
		totalVotingPower: vals.totalVotingPower,
	}
}

// Equals reports whether both sets hash the same validators in the same
// order.
func (vals *ValidatorSet) Equals(other *ValidatorSet) bool {
	if vals.Size() != other.Size() {
		return false
	}
	for i, val := range vals.Validators {
		if !bytes.Equal(val.Bytes(), other.Validators[i].Bytes()) {
			return false
		}
	}
	return true
}

func validatorListCopy(valsList []*Validator) []*Validator {
	if valsList == nil {
		return nil
	}
	valsCopy := make([]*Validator, len(valsList))
	for i, val := range valsList {
		valsCopy[i] = val.Copy()
	}
	return valsCopy
}

// String returns a string representation of ValidatorSet.
func (vals *ValidatorSet) String() string {
	if vals == nil {
		return "nil-ValidatorSet"
	}
	var valStrings []string
	for _, val := range vals.Validators {
		valStrings = append(valStrings, val.String())
	}
	return fmt.Sprintf("ValidatorSet{%s}", strings.Join(valStrings, ", "))
}

//-------------------------------------

// ValidatorsByVotingPower implements sort.Interface for []*Validator based on
// the VotingPower and Address fields.
type ValidatorsByVotingPower []*Validator

func (valz ValidatorsByVotingPower) Len() int { return len(valz) }

func (valz ValidatorsByVotingPower) Less(i, j int) bool {
	if valz[i].VotingPower == valz[j].VotingPower {
		return bytes.Compare(valz[i].Address, valz[j].Address) == -1
	}
	return valz[i].VotingPower > valz[j].VotingPower
}

func (valz ValidatorsByVotingPower) Swap(i, j int) {
	valz[i], valz[j] = valz[j], valz[i]
}
