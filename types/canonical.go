package types

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
)

// PrecommitType is the only vote type a light client ever checks.
const PrecommitType uint8 = 0x02

// CanonicalPartSetHeader is the signed form of PartSetHeader.
type CanonicalPartSetHeader struct {
	Total uint32
	Hash  []byte
}

// CanonicalBlockID is the signed form of BlockID.
type CanonicalBlockID struct {
	Hash          []byte
	PartSetHeader CanonicalPartSetHeader
}

// CanonicalVote is the RLP list a validator signs when it precommits.
type CanonicalVote struct {
	Type      uint8
	Height    uint64
	Round     uint64
	BlockID   CanonicalBlockID
	Timestamp uint64 // unix nanoseconds, 0 for the zero time
	ChainID   string
}

// CanonicalizeBlockID returns the signed form of blockID.
func CanonicalizeBlockID(blockID BlockID) CanonicalBlockID {
	return CanonicalBlockID{
		Hash: blockID.Hash,
		PartSetHeader: CanonicalPartSetHeader{
			Total: blockID.PartSetHeader.Total,
			Hash:  blockID.PartSetHeader.Hash,
		},
	}
}

func canonicalVoteSignBytes(chainID string, height int64, round int32, blockID BlockID, ts time.Time) []byte {
	tsNanos, err := timeToWire(ts)
	if err != nil {
		return nil
	}
	return rlpEncode(CanonicalVote{
		Type:      PrecommitType,
		Height:    uint64(height),
		Round:     uint64(round),
		BlockID:   CanonicalizeBlockID(blockID),
		Timestamp: tsNanos,
		ChainID:   chainID,
	})
}

var errTimeBeforeEpoch = errors.New("time before unix epoch")

// timeToWire converts t to unix nanoseconds. The zero time maps to 0.
func timeToWire(t time.Time) (uint64, error) {
	if t.IsZero() {
		return 0, nil
	}
	ns := t.UnixNano()
	if ns < 0 {
		return 0, errTimeBeforeEpoch
	}
	return uint64(ns), nil
}

func timeFromWire(ns uint64) (time.Time, error) {
	if ns == 0 {
		return time.Time{}, nil
	}
	if ns > uint64(1<<63-1) {
		return time.Time{}, errors.New("timestamp overflows int64")
	}
	return time.Unix(0, int64(ns)).UTC(), nil
}

// rlpEncode returns nil if item cannot be encoded.
func rlpEncode(item interface{}) []byte {
	bz, err := rlp.EncodeToBytes(item)
	if err != nil {
		return nil
	}
	return bz
}
