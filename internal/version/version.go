// Package version holds build information injected with ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is set via -ldflags "-X github.com/jmylchreest/moodify/internal/version.Version=x.y.z".
	Version = "dev"

	// Commit is set via -ldflags "-X github.com/jmylchreest/moodify/internal/version.Commit=$(git rev-parse HEAD)".
	Commit = "unknown"

	// Date is the RFC3339 build time.
	Date = "unknown"
)

// Info is the build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns the build information.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a one-line description for `moodify version`.
func String() string {
	info := GetInfo()
	if info.Commit != "unknown" && info.Date != "unknown" {
		commit := info.Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		return fmt.Sprintf("moodify %s (commit %s, built %s, %s, %s)",
			info.Version, commit, info.Date, info.GoVersion, info.Platform)
	}
	return fmt.Sprintf("moodify %s (%s, %s)", info.Version, info.GoVersion, info.Platform)
}
