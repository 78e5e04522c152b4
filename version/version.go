package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = ThinRelaySemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// ThinRelaySemVer is the semantic version of thinrelay.
	ThinRelaySemVer = "0.1.0"

	// ThinBlockProtocol is the BIP37 protocol version thin blocks are
	// requested with.
	ThinBlockProtocol uint32 = 70002
)
