// Package version exposes build metadata. Values are overridden at link time:
//
//	go build -ldflags "-X github.com/farcloser/tympanum/version.version=v0.1.0 -X github.com/farcloser/tympanum/version.commit=abc123"
package version

//nolint:gochecknoglobals // link-time variables
var (
	name    = "tympanum"
	version = "dev"
	commit  = "unknown"
)

// Name returns the binary name.
func Name() string {
	return name
}

// Version returns the release version.
func Version() string {
	return version
}

// Commit returns the source commit the binary was built from.
func Commit() string {
	return commit
}
