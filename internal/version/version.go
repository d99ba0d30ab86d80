// Package version resolves build identification for the CLI.
package version

import "runtime/debug"

var (
	// Version is the release version (set via -ldflags).
	Version = ""
	// Commit is the git commit hash (set via -ldflags).
	Commit = ""
)

type Info struct {
	Version string
	Commit  string
}

// Resolve returns the linked-in version, falling back to the module build
// info when the binary was built without ldflags.
func Resolve() Info {
	info := Info{Version: Version, Commit: Commit}
	if info.Version != "" {
		return info
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		info.Version = "devel"
		return info
	}
	info.Version = bi.Main.Version
	if info.Version == "" || info.Version == "(devel)" {
		info.Version = "devel"
	}
	if info.Commit == "" {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				info.Commit = s.Value
				break
			}
		}
	}
	return info
}

func String() string {
	info := Resolve()
	if info.Commit == "" {
		return info.Version
	}
	return info.Version + " (" + shortCommit(info.Commit) + ")"
}

func shortCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}
