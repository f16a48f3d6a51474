// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version provides build-time version information.
package version

import (
	"fmt"
	"runtime/debug"
)

// Info contains build-time version information injected via ldflags.
type Info struct {
	Version   string `json:"version"`              // Semantic version from git tags (e.g., "v1.2.3")
	GitCommit string `json:"git_commit,omitempty"` // Short git commit hash (e.g., "abc1234")
	BuildTime string `json:"build_time,omitempty"` // Build timestamp in RFC3339 format
}

// String formats the info for the -version flag and the User-Agent.
func (i Info) String() string {
	v := i.Version
	if v == "" {
		v = "dev"
	}
	switch {
	case i.GitCommit != "" && i.BuildTime != "":
		return fmt.Sprintf("%s (commit %s, built %s)", v, i.GitCommit, i.BuildTime)
	case i.GitCommit != "":
		return fmt.Sprintf("%s (commit %s)", v, i.GitCommit)
	default:
		return v
	}
}

// WithBuildInfo fills empty fields from the module build info embedded by
// the Go toolchain, so "go install" builds still report a revision.
func (i Info) WithBuildInfo() Info {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return i
	}
	if i.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		i.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if i.GitCommit == "" && len(s.Value) >= 7 {
				i.GitCommit = s.Value[:7]
			}
		case "vcs.time":
			if i.BuildTime == "" {
				i.BuildTime = s.Value
			}
		}
	}
	return i
}
