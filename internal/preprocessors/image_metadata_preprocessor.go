// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"pan-scan/internal/detector"
	"pan-scan/internal/observability"
)

// ImageMetadataPreprocessor emits one unit per EXIF text tag
type ImageMetadataPreprocessor struct {
	observer *observability.StandardObserver
}

// NewImageMetadataPreprocessor creates an EXIF preprocessor
func NewImageMetadataPreprocessor() *ImageMetadataPreprocessor {
	return &ImageMetadataPreprocessor{}
}

// SetObserver sets the observability component
func (imp *ImageMetadataPreprocessor) SetObserver(observer *observability.StandardObserver) {
	imp.observer = observer
}

// GetName returns the name of this preprocessor
func (imp *ImageMetadataPreprocessor) GetName() string {
	return "image"
}

// GetSupportedExtensions returns the file extensions this preprocessor supports
func (imp *ImageMetadataPreprocessor) GetSupportedExtensions() []string {
	return []string{".jpg", ".jpeg", ".tif", ".tiff"}
}

// CanProcess checks if this preprocessor can handle the given file
func (imp *ImageMetadataPreprocessor) CanProcess(filePath string) bool {
	return hasExtension(filePath, imp.GetSupportedExtensions())
}

// Process emits text tags in name order. An image without EXIF data yields
// no units and no error.
func (imp *ImageMetadataPreprocessor) Process(ctx context.Context, filePath string, emit EmitFunc) error {
	finishTiming, finishStep := startTiming(imp.observer, "image_metadata_preprocessor", filePath)

	f, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error()})
		finishStep(false, fmt.Sprintf("error opening file: %v", err))
		return fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		finishTiming(true, map[string]interface{}{"tags": 0})
		finishStep(true, fmt.Sprintf("no EXIF data: %v", err))
		return nil
	}

	walker := &textTagWalker{tags: make(map[string]string)}
	if err := x.Walk(walker); err != nil {
		return NewProcessingError(filePath, "image", "unreadable EXIF data", err)
	}

	names := make([]string, 0, len(walker.tags))
	for name := range walker.tags {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		unit := Unit{
			Text:     walker.tags[name],
			Location: fileLocation(filePath, detector.LocField, name),
		}
		if err := emit(unit); err != nil {
			return err
		}
	}

	finishTiming(true, map[string]interface{}{"tags": len(names)})
	finishStep(true, fmt.Sprintf("read %d text tags", len(names)))
	return nil
}

// textTagWalker keeps ASCII tags and the UserComment blob
type textTagWalker struct {
	tags map[string]string
}

// Walk implements the exif.Walker interface
func (w *textTagWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag == nil {
		return nil
	}

	var value string
	switch {
	case tag.Format() == tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return nil
		}
		value = s
	case name == exif.UserComment && len(tag.Val) > 8:
		// first 8 bytes name the character code
		value = string(tag.Val[8:])
	default:
		return nil
	}

	value = strings.TrimRight(strings.ToValidUTF8(value, ""), "\x00 ")
	if strings.TrimSpace(value) != "" {
		w.tags[string(name)] = value
	}
	return nil
}
