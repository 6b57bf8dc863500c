package client

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies a light client implementation. Client ids are the kind
// followed by a sequence number, e.g. "07-tendermint-0".
type Kind string

const (
	KindTendermint Kind = "07-tendermint"
	KindEVM        Kind = "evm"
	KindStateLens  Kind = "state-lens"
)

// Kinds lists every known client kind.
var Kinds = []Kind{KindTendermint, KindEVM, KindStateLens}

// ValidateBasic returns an error if k is not a known kind.
func (k Kind) ValidateBasic() error {
	switch k {
	case KindTendermint, KindEVM, KindStateLens:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
	}
}

// ClientID formats the id of the sequence-th client of kind k.
func (k Kind) ClientID(sequence uint64) string {
	return fmt.Sprintf("%s-%d", k, sequence)
}

// ParseClientID splits a client id into its kind and sequence.
func ParseClientID(clientID string) (Kind, uint64, error) {
	i := strings.LastIndexByte(clientID, '-')
	if i <= 0 {
		return "", 0, fmt.Errorf("%w: malformed client id %q", ErrInvalidClient, clientID)
	}
	seq, err := strconv.ParseUint(clientID[i+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: malformed client id %q: %w", ErrInvalidClient, clientID, err)
	}
	kind := Kind(clientID[:i])
	if err := kind.ValidateBasic(); err != nil {
		return "", 0, err
	}
	return kind, seq, nil
}

// Status of a client.
type Status string

const (
	// Active clients accept headers and proofs.
	Active Status = "Active"
	// Frozen clients have seen misbehaviour and are permanently untrusted
	// until recovered.
	Frozen Status = "Frozen"
	// Expired clients have a latest consensus state older than the trusting
	// period.
	Expired Status = "Expired"
	// Unknown is returned when the client or its latest consensus state
	// cannot be read.
	Unknown Status = "Unknown"
)

func (s Status) String() string {
	return string(s)
}

// StatusAt derives the status of a client from its frozen flag and the
// timestamp (unix ns) of its latest consensus state.
func StatusAt(frozen bool, latestTimestamp uint64, trustingPeriod time.Duration, now time.Time) Status {
	if frozen {
		return Frozen
	}
	if IsExpired(latestTimestamp, trustingPeriod, now) {
		return Expired
	}
	return Active
}

// IsExpired reports whether a consensus state with the given timestamp
// (unix ns) is outside the trusting period at now.
func IsExpired(timestamp uint64, trustingPeriod time.Duration, now time.Time) bool {
	expiry := TimestampToTime(timestamp).Add(trustingPeriod)
	return !expiry.After(now)
}

// TimestampToTime converts a consensus state timestamp (unix ns) to a UTC
// time. Timestamps beyond the int64 range saturate.
func TimestampToTime(ns uint64) time.Time {
	if ns > 1<<63-1 {
		ns = 1<<63 - 1
	}
	return time.Unix(0, int64(ns)).UTC()
}
