package light

import (
	"fmt"
	"time"

	"github.com/tendermint/lightclients/types"
)

// ErrOldHeaderExpired means the old (trusted) header has expired according to
// the given trustingPeriod and current time. If so, the light client must be
// reset subjectively.
type ErrOldHeaderExpired struct {
	At  time.Time
	Now time.Time
}

func (e ErrOldHeaderExpired) Error() string {
	return fmt.Sprintf("old header has expired at %v (now: %v)", e.At, e.Now)
}

// ErrNewValSetCantBeTrusted means the new validator set cannot be trusted
// because < 1/3rd (+trustLevel+) of the old validator set has signed.
type ErrNewValSetCantBeTrusted struct {
	Reason types.ErrNotEnoughVotingPowerSigned
}

func (e ErrNewValSetCantBeTrusted) Error() string {
	return fmt.Sprintf("cant trust new val set: %v", e.Reason)
}

// Unwrap returns underlying reason.
func (e ErrNewValSetCantBeTrusted) Unwrap() error {
	return e.Reason
}

// ErrInvalidHeader means the header either failed the basic validation or
// commit is not signed by 2/3+.
type ErrInvalidHeader struct {
	Reason error
}

func (e ErrInvalidHeader) Error() string {
	return fmt.Sprintf("invalid header: %v", e.Reason)
}

// Unwrap returns underlying reason.
func (e ErrInvalidHeader) Unwrap() error {
	return e.Reason
}

// ErrHeaderHeightNotMoreRecent means the new header does not advance the
// trusted one.
type ErrHeaderHeightNotMoreRecent struct {
	Trusted   int64
	Untrusted int64
}

func (e ErrHeaderHeightNotMoreRecent) Error() string {
	return fmt.Sprintf("expected new header height %d to be greater than one of old header %d",
		e.Untrusted, e.Trusted)
}

// ErrInvalidChainID means the new header belongs to another chain.
type ErrInvalidChainID struct {
	Expected string
	Actual   string
}

func (e ErrInvalidChainID) Error() string {
	return fmt.Sprintf("header belongs to another chain %q, not %q", e.Actual, e.Expected)
}

// ErrInvalidHostTimestamp means the host clock reads a time before the
// trusted header, which no honest host can observe.
type ErrInvalidHostTimestamp struct {
	Trusted time.Time
	Now     time.Time
}

func (e ErrInvalidHostTimestamp) Error() string {
	return fmt.Sprintf("host time %v is before trusted header time %v", e.Now, e.Trusted)
}

// ErrHeaderFromFuture means the new header is further ahead of the host
// clock than the allowed drift.
type ErrHeaderFromFuture struct {
	HeaderTime    time.Time
	Now           time.Time
	MaxClockDrift time.Duration
}

func (e ErrHeaderFromFuture) Error() string {
	return fmt.Sprintf("new header has a time from the future %v (now: %v; max clock drift: %v)",
		e.HeaderTime, e.Now, e.MaxClockDrift)
}
