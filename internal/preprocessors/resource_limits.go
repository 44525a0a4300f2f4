// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultMaxFileSize is the largest file the preprocessors read (100 MB).
const DefaultMaxFileSize = int64(100 * 1024 * 1024)

// ErrFileTooLarge is wrapped by the error returned for oversized files.
var ErrFileTooLarge = errors.New("file too large")

// ValidateFileSize checks that the file exists and is within maxSize bytes.
// A non-positive maxSize disables the check.
func ValidateFileSize(filePath string, maxSize int64) error {
	info, err := os.Stat(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", filePath)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return fmt.Errorf("%w: %d bytes (max %d bytes)", ErrFileTooLarge, info.Size(), maxSize)
	}
	return nil
}

// ProcessingError represents an error that occurred while extracting text
type ProcessingError struct {
	FilePath string
	FileType string
	Reason   string
	Err      error
}

// Error implements the error interface
func (pe *ProcessingError) Error() string {
	if pe.Err != nil {
		return fmt.Sprintf("processing failed for %s (%s): %s: %v",
			pe.FilePath, pe.FileType, pe.Reason, pe.Err)
	}
	return fmt.Sprintf("processing failed for %s (%s): %s",
		pe.FilePath, pe.FileType, pe.Reason)
}

// Unwrap returns the underlying error
func (pe *ProcessingError) Unwrap() error {
	return pe.Err
}

// NewProcessingError creates a new processing error
func NewProcessingError(filePath, fileType, reason string, err error) *ProcessingError {
	return &ProcessingError{
		FilePath: filePath,
		FileType: fileType,
		Reason:   reason,
		Err:      err,
	}
}

// IsFileSizeError checks if the error is a file size limit error
func IsFileSizeError(err error) bool {
	return errors.Is(err, ErrFileTooLarge)
}
