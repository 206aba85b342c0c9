// Package misc keeps build identification helpers used across the program.
package misc

import (
	"runtime/debug"
	"sync"
)

const appName = "zavit"

// set by the release builder via -ldflags, empty for source builds
var (
	version string
	gitHash string
)

// GetAppName returns short program name used in logs, temp files and reports.
func GetAppName() string {
	return appName
}

var readBuildInfo = sync.OnceValues(func() (string, string) {
	ver, hash := version, gitHash
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ver, hash
	}
	if len(ver) == 0 {
		ver = bi.Main.Version
	}
	if len(hash) == 0 {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				hash = s.Value
				break
			}
		}
	}
	return ver, hash
})

// GetVersion returns program version, either embedded during release build
// or taken from the module information.
func GetVersion() string {
	ver, _ := readBuildInfo()
	if len(ver) == 0 {
		return "(devel)"
	}
	return ver
}

// GetGitHash returns VCS revision the program was built from.
func GetGitHash() string {
	_, hash := readBuildInfo()
	if len(hash) == 0 {
		return "unknown"
	}
	return hash
}
