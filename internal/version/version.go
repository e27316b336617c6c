// Package version provides build-time version information for marketd.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/live-market/internal/version.Version=0.3.0 \
//	                   -X github.com/rickgao/live-market/internal/version.Commit=$(git rev-parse --short HEAD)" \
//	         ./cmd/marketd
package version

// Build-time variables (set via ldflags)
var (
	Version = "dev"
	Commit  = "unknown"
)

// Info is the version block reported by /health.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// Get returns the build information.
func Get() Info {
	return Info{Version: Version, Commit: Commit}
}

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ")"
}
