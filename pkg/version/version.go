// pkg/version/version.go
// Package version provides version metadata for the application.
package version

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"
)

// These variables are typically injected at build time using -ldflags
var (
	// Version holds the current version of botkit.
	Version = "dev"
	// Commit holds the current version commit of botkit.
	Commit = "none"
	// BuildDate holds the build date of botkit.
	BuildDate = "unknown"
)

// Struct returns version information in a structured format.
type Struct struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
	Release   bool   `json:"release"`
}

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("botkit %s (commit: %s, date: %s)", Version, Commit, BuildDate)
}

// Get returns the build's version information.
func Get() Struct {
	return Struct{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Release:   IsRelease(Version),
	}
}

// IsRelease reports whether v is a semantic version without a prerelease
// suffix. "dev" builds and "1.2.0-rc.1" are not releases.
func IsRelease(v string) bool {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	return sv.Prerelease() == ""
}
