package config

var (
	// Version is the soroban-gateway version number, set at build time with
	// -ldflags "-X github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/config.Version=x.y.z"
	Version = "0.0.0"

	// CommitHash is the commit the binary was built from, also set at build
	// time.
	CommitHash = ""

	// BuildTimestamp is the timestamp the binary was built at, also set at
	// build time.
	BuildTimestamp = ""

	// Branch is the git branch the binary was built from, also set at build
	// time.
	Branch = ""
)
