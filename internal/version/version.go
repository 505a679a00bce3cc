package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version of the hub. Overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA. Falls back to the VCS stamp of the binary.
	Commit = ""
	// BuildTime is the UTC build timestamp. Falls back to the VCS commit time.
	BuildTime = ""
)

const (
	unknownValue = "unknown"
	shortSHALen  = 7
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version line for CLI output and startup logs.
func Full() string {
	commit, builtAt := resolveBuildInfo()

	return fmt.Sprintf("alarm-hub %s (commit %s, built %s, %s)", Version, commit, builtAt, runtime.Version())
}

func resolveBuildInfo() (string, string) {
	commit, builtAt := Commit, BuildTime

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if commit == "" {
					commit = setting.Value
				}
			case "vcs.time":
				if builtAt == "" {
					builtAt = setting.Value
				}
			}
		}
	}

	if len(commit) > shortSHALen {
		commit = commit[:shortSHALen]
	}

	if commit == "" {
		commit = unknownValue
	}

	if builtAt == "" {
		builtAt = unknownValue
	}

	return commit, builtAt
}
