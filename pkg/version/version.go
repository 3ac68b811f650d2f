// Package version exposes the build identity of the toolkit.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags "-X github.com/dimagi-rad/scout-widget/pkg/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is a snapshot of the build identity.
type Info struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
}

// Get returns the build identity of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// String renders the identity on one line.
func (i Info) String() string {
	return fmt.Sprintf("scout-widget %s (commit %s, built %s, %s)",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}

// UserAgent is the identity the SDK presents when dialing an embed server.
func UserAgent() string {
	return "scout-widget/" + Version
}
