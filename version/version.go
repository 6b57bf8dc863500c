package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version string = LCSemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// LCSemVer is the current version of the light clients.
	// It's the Semantic Version of the software.
	LCSemVer = "0.3.0"

	// ICSVersion is the version of the client interface implemented by the
	// light clients.
	ICSVersion = "ics-02"
)

// Protocol is used for implementation agnostic versioning.
type Protocol uint64

// Uint64 returns the Protocol version as a uint64.
func (p Protocol) Uint64() uint64 {
	return uint64(p)
}

var (
	// StoreProtocol versions the host store key layout.
	StoreProtocol Protocol = 1
)

// Info is reported by the version command.
type Info struct {
	Version       string   `json:"version"`
	ICS           string   `json:"ics"`
	StoreProtocol uint64   `json:"store_protocol"`
	ClientKinds   []string `json:"client_kinds"`
}
