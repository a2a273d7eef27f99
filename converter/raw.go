package converter

import (
	"path/filepath"
	"strings"
)

// rawExtensions is the camera RAW formats the external converter understands.
var rawExtensions = map[string]bool{
	"cr2": true,
	"cr3": true,
	"nef": true,
	"arw": true,
	"dng": true,
	"raf": true,
	"orf": true,
	"rw2": true,
	"pef": true,
	"srw": true,
}

// IsRawFormat reports whether the filename carries a camera RAW extension.
// Matching is case-insensitive and tolerates a missing leading dot.
func IsRawFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	ext = strings.TrimPrefix(ext, ".")
	return rawExtensions[ext]
}

// SourceFormatLabel returns the upper-cased extension recorded on converted
// assets, e.g. "CR2".
func SourceFormatLabel(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return strings.ToUpper(ext)
}
