package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Rules is the admission policy applied to every file before any network
// attempt. Checks are pure: extension-derived MIME type against an allow-list
// (wildcard subtypes like "image/*" are supported) and a byte-size ceiling.
type Rules struct {
	AllowedTypes []string
	MaxFileSize  int64
}

func DefaultRules() Rules {
	return Rules{
		AllowedTypes: []string{"image/*"},
		MaxFileSize:  100 * 1024 * 1024,
	}
}

func (r Rules) Validate(filename string, size int64) error {
	if strings.TrimSpace(filename) == "" {
		return ErrEmptyFilename
	}

	if r.MaxFileSize > 0 && size > r.MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, maximum is %d bytes",
			ErrFileTooLarge, filename, size, r.MaxFileSize)
	}

	mimeType := MimeTypeFor(filename)
	for _, allowed := range r.AllowedTypes {
		if matchesType(mimeType, allowed) {
			return nil
		}
	}

	return fmt.Errorf("%w: %s (%s)", ErrInvalidFileType, filename, mimeType)
}

func matchesType(mimeType, allowed string) bool {
	if allowed == mimeType || allowed == "*/*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(allowed, "/*"); ok {
		return strings.HasPrefix(mimeType, prefix+"/")
	}
	return false
}

var mimeByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".pdf":  "application/pdf",
	".mp4":  "video/mp4",
	".cr2":  "image/x-canon-cr2",
	".cr3":  "image/x-canon-cr3",
	".nef":  "image/x-nikon-nef",
	".arw":  "image/x-sony-arw",
	".dng":  "image/x-adobe-dng",
	".raf":  "image/x-fuji-raf",
	".orf":  "image/x-olympus-orf",
	".rw2":  "image/x-panasonic-rw2",
	".pef":  "image/x-pentax-pef",
	".srw":  "image/x-samsung-srw",
}

func MimeTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if mimeType, ok := mimeByExtension[ext]; ok {
		return mimeType
	}
	return "application/octet-stream"
}
