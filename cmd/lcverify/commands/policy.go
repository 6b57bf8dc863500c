package commands

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/tendermint/lightclients/client"
	"github.com/tendermint/lightclients/client/router"
	"github.com/tendermint/lightclients/client/tendermint"
	"github.com/tendermint/lightclients/config"
	tmmath "github.com/tendermint/lightclients/libs/math"
)

// trustOptioner is implemented by the client states verified with BFT
// commits.
type trustOptioner interface {
	TrustOptions() tendermint.TrustOptions
}

// checkTrustPolicy rejects client states that trust the counterparty more
// than the host is configured to: a lower trust level, or a longer trusting
// period or clock drift. Kinds without trust options pass.
func checkTrustPolicy(policy *config.VerifierConfig, kind client.Kind, clientState []byte) error {
	lc, err := router.LightClientFor(kind)
	if err != nil {
		return err
	}
	cs, err := lc.DecodeClientState(clientState)
	if err != nil {
		return client.Wrap(client.ErrDecode, err)
	}
	to, ok := cs.(trustOptioner)
	if !ok {
		return nil
	}
	opts := to.TrustOptions()

	minLevel, err := policy.ParseTrustLevel()
	if err != nil {
		return err
	}
	if lessFraction(opts.TrustLevel, minLevel) {
		return fmt.Errorf("%w: trust level %v is below the configured %v",
			client.ErrInvalidClient, opts.TrustLevel, minLevel)
	}
	if opts.TrustingPeriod > policy.TrustingPeriod {
		return fmt.Errorf("%w: trusting period %v exceeds the configured %v",
			client.ErrInvalidClient, opts.TrustingPeriod, policy.TrustingPeriod)
	}
	if opts.MaxClockDrift > policy.MaxClockDrift {
		return fmt.Errorf("%w: max clock drift %v exceeds the configured %v",
			client.ErrInvalidClient, opts.MaxClockDrift, policy.MaxClockDrift)
	}
	return nil
}

// lessFraction reports a < b.
func lessFraction(a, b tmmath.Fraction) bool {
	lhs := new(uint256.Int).Mul(uint256.NewInt(a.Numerator), uint256.NewInt(b.Denominator))
	rhs := new(uint256.Int).Mul(uint256.NewInt(b.Numerator), uint256.NewInt(a.Denominator))
	return lhs.Lt(rhs)
}
