package config

import (
	"fmt"
	"runtime/debug"
)

// Set via -ldflags "-X github.com/bobmcallan/openapi-mcp/internal/config.Version=...".
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// BuildInfo describes the running binary. It is reported by -version,
// /api/version and the MCP server handshake.
type BuildInfo struct {
	Version   string `json:"version"`
	Build     string `json:"build"`
	GitCommit string `json:"git_commit"`
}

// GetBuildInfo returns the ldflags values. When no commit was injected the
// VCS revision stamped by the Go toolchain is used instead, if any.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{Version: Version, Build: Build, GitCommit: GitCommit}
	if info.GitCommit == "unknown" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			if rev := vcsRevision(bi.Settings); rev != "" {
				info.GitCommit = rev
			}
		}
	}
	return info
}

// GetVersion returns the release version.
func GetVersion() string {
	return Version
}

// GetFullVersion formats the build info on one line.
func GetFullVersion() string {
	info := GetBuildInfo()
	return fmt.Sprintf("%s (build: %s, commit: %s)", info.Version, info.Build, info.GitCommit)
}

func vcsRevision(settings []debug.BuildSetting) string {
	var rev string
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}
