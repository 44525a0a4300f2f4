// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"pan-scan/internal/parallel"
)

func terminalFd(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

func isTerminal(w io.Writer) bool {
	_, ok := terminalFd(w)
	return ok
}

// noColor reports whether the text report must be plain: requested, sent
// to a file, or stdout is not a terminal.
func (a *app) noColor() bool {
	return a.cfg.Defaults.NoColor || a.cfg.Defaults.Output != "" || !isTerminal(a.opts.Stdout)
}

// progress returns a callback that redraws one status line on stderr, and
// a function that clears it. Both are no-ops unless stderr is a terminal
// and debug logging is off.
func (a *app) progress() (parallel.ProgressCallback, func()) {
	fd, ok := terminalFd(a.opts.Stderr)
	if !ok || a.cfg.Defaults.Debug {
		return nil, func() {}
	}

	width := 80
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}

	drawn := false
	callback := func(completed, total int, current string) {
		status := fmt.Sprintf("[%d/%d] ", completed, total)
		fmt.Fprintf(a.opts.Stderr, "\r\033[K%s%s", status, truncateLeft(current, width-len(status)-1))
		drawn = true
	}
	finish := func() {
		if drawn {
			fmt.Fprint(a.opts.Stderr, "\r\033[K")
		}
	}
	return callback, finish
}

// truncateLeft keeps the end of s, which for paths is the useful part.
func truncateLeft(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[len(r)-width:])
	}
	return "..." + string(r[len(r)-width+3:])
}
