// Package version exposes the build metadata stamped into the binary by the
// release ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Stamped via -ldflags "-X github.com/genexomics/runpack/version.Version=..."
// and friends; unstamped dev builds keep the zero defaults.
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

// Info is the version payload the CLI prints, also serialized for --json.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get snapshots the stamped build metadata plus the runtime environment.
func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders the one-line banner, e.g.
// "runpack v0.3.0 (a1b2c3d, built 2026-08-31)".
func (i Info) String() string {
	return fmt.Sprintf("runpack %s (%s, built %s)", i.Version, i.Short(), i.BuildTime)
}

// Short is the abbreviated commit hash used in log stamps.
func (i Info) Short() string {
	if len(i.CommitHash) > 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}
