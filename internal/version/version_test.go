// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package version

import "testing"

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"zero value", Info{}, "dev"},
		{"version only", Info{Version: "v1.0.0"}, "v1.0.0"},
		{"with commit", Info{Version: "v1.0.0", GitCommit: "abc1234"}, "v1.0.0 (commit abc1234)"},
		{
			"full",
			Info{Version: "v1.0.0", GitCommit: "abc1234", BuildTime: "2025-01-30T12:00:00Z"},
			"v1.0.0 (commit abc1234, built 2025-01-30T12:00:00Z)",
		},
		{"commit without version", Info{GitCommit: "abc1234"}, "dev (commit abc1234)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithBuildInfoKeepsExplicitValues(t *testing.T) {
	info := Info{Version: "v1.0.0", GitCommit: "abc1234", BuildTime: "2025-01-30T12:00:00Z"}

	if got := info.WithBuildInfo(); got != info {
		t.Errorf("WithBuildInfo() = %+v, want %+v", got, info)
	}
}
