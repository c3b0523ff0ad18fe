// Package buildinfo holds version information injected at build time, e.g.
//
//	-ldflags "-X github.com/AdbAutoPlayer/shell/internal/buildinfo.Version=9.1.0"
package buildinfo

import "runtime/debug"

var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// Commit returns CommitHash, falling back to the VCS revision the Go
// toolchain stamped into the binary.
func Commit() string {
	if CommitHash != "unknown" {
		return CommitHash
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return CommitHash
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return CommitHash
}
