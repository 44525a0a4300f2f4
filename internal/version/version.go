// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X pan-scan/internal/version.Version=..." at release.
var (
	Version   = "0.0.0-development"
	GitCommit = ""
	BuildDate = ""
)

// Info returns the one-line version banner printed by `pan-scan version`.
func Info() string {
	commit, date := GitCommit, BuildDate
	if commit == "" || date == "" {
		vcsCommit, vcsTime := vcsStamp()
		if commit == "" {
			commit = vcsCommit
		}
		if date == "" {
			date = vcsTime
		}
	}
	return fmt.Sprintf("pan-scan %s (commit: %s, built: %s, go: %s, platform: %s/%s)",
		Version, orUnknown(commit), orUnknown(date), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number
func Short() string {
	return Version
}

// vcsStamp reads the revision and commit time the go command embeds when
// building from a checkout.
func vcsStamp() (commit, date string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
			if len(commit) > 12 {
				commit = commit[:12]
			}
		case "vcs.time":
			date = s.Value
		}
	}
	return commit, date
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
