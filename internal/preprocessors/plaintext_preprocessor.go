// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pan-scan/internal/detector"
	"pan-scan/internal/observability"
)

// maxLineLength bounds a single line; longer lines fail the file.
const maxLineLength = 16 * 1024 * 1024

// PlainTextPreprocessor emits one unit per line of a text file
type PlainTextPreprocessor struct {
	observer   *observability.StandardObserver
	extensions []string
	sniff      bool
}

// DefaultTextExtensions are the extensions handled as plain text.
var DefaultTextExtensions = []string{
	".txt", ".log", ".json", ".xml", ".sql", ".md",
	".yaml", ".yml", ".ini", ".conf", ".html", ".htm",
}

// NewPlainTextPreprocessor creates a plain text preprocessor. When sniff is
// set, files with other extensions are accepted if their content looks
// like text.
func NewPlainTextPreprocessor(extensions []string, sniff bool) *PlainTextPreprocessor {
	if len(extensions) == 0 {
		extensions = DefaultTextExtensions
	}
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if ext != "" {
			normalized = append(normalized, ext)
		}
	}
	return &PlainTextPreprocessor{extensions: normalized, sniff: sniff}
}

// SetObserver sets the observability component
func (ptp *PlainTextPreprocessor) SetObserver(observer *observability.StandardObserver) {
	ptp.observer = observer
}

// GetName returns the name of this preprocessor
func (ptp *PlainTextPreprocessor) GetName() string {
	return "plaintext"
}

// GetSupportedExtensions returns the file extensions this preprocessor supports
func (ptp *PlainTextPreprocessor) GetSupportedExtensions() []string {
	return ptp.extensions
}

// CanProcess checks if this preprocessor can handle the given file
func (ptp *PlainTextPreprocessor) CanProcess(filePath string) bool {
	if hasExtension(filePath, ptp.extensions) {
		return true
	}
	if !ptp.sniff {
		return false
	}
	isText, err := IsTextFile(filePath)
	return err == nil && isText
}

// Process emits every line of the file with its 1-based line number
func (ptp *PlainTextPreprocessor) Process(ctx context.Context, filePath string, emit EmitFunc) error {
	finishTiming, finishStep := startTiming(ptp.observer, "plaintext_preprocessor", filePath)

	file, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error()})
		finishStep(false, fmt.Sprintf("failed to open file: %v", err))
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	lines, err := emitLines(ctx, file, emit, func(n int) detector.Location {
		return fileLocation(filePath, detector.LocLine, n)
	})
	if err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error(), "line_count": lines})
		finishStep(false, err.Error())
		return err
	}

	finishTiming(true, map[string]interface{}{"line_count": lines})
	finishStep(true, fmt.Sprintf("read %d lines", lines))
	return nil
}

// emitLines emits one context-carrying unit per line of r and returns the
// number of lines read.
func emitLines(ctx context.Context, r io.Reader, emit EmitFunc, locate func(line int) detector.Location) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)

	n := 0
	for scanner.Scan() {
		n++
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		line := strings.ToValidUTF8(scanner.Text(), "")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := emit(Unit{Text: line, Location: locate(n), SnippetKey: detector.LocContext}); err != nil {
			return n, err
		}
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("failed to read line %d: %w", n+1, err)
	}
	return n, nil
}

// IsTextFile reports whether the first 8 KiB of the file look like text:
// no NUL byte and more than 95% printable characters.
func IsTextFile(filePath string) (bool, error) {
	file, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		return false, err
	}
	defer file.Close()

	buffer := make([]byte, 8*1024)
	n, err := io.ReadFull(file, buffer)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	return looksLikeText(buffer[:n]), nil
}

func looksLikeText(buffer []byte) bool {
	if len(buffer) == 0 {
		return false
	}

	printableCount := 0
	for _, b := range buffer {
		if b == 0 {
			return false
		}
		// UTF-8 continuation and lead bytes count as printable
		if (b >= 32 && b <= 126) || b == 9 || b == 10 || b == 13 || b >= 0x80 {
			printableCount++
		}
	}

	return float64(printableCount)/float64(len(buffer)) > 0.95
}
