package processor

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"mediaUploader/converter"
	"mediaUploader/models"
	"mediaUploader/storage"
	"mediaUploader/uploader"
	"mediaUploader/validation"
)

const previewQuality = 80

// PreviewGenerator derives a bounded JPEG preview for uploaded non-RAW
// images and stores it next to the original under a previews/ key. Like
// conversion, preview failure is a warning: the upload stands on its own.
type PreviewGenerator struct {
	store        storage.BlobStore
	maxDimension int
	logger       *zap.Logger
}

func NewPreviewGenerator(store storage.BlobStore, maxDimension int, logger *zap.Logger) *PreviewGenerator {
	if maxDimension < 1 {
		maxDimension = 800
	}
	return &PreviewGenerator{
		store:        store,
		maxDimension: maxDimension,
		logger:       logger,
	}
}

// AfterUpload is wired as a post-success hook of the upload orchestrator.
func (g *PreviewGenerator) AfterUpload(ctx context.Context, asset *models.MediaAsset, file uploader.FileInput, storedPath string) (*models.MediaAsset, []string) {
	if converter.IsRawFormat(file.Filename) {
		// RAW previews come out of the conversion pipeline, not from here.
		return asset, nil
	}
	if !strings.HasPrefix(validation.MimeTypeFor(file.Filename), "image/") {
		return asset, nil
	}

	if err := g.generate(ctx, file.Data, storedPath); err != nil {
		g.logger.Warn("Preview generation failed",
			zap.String("filename", file.Filename),
			zap.Error(err),
		)
		return asset, []string{fmt.Sprintf("preview for %s not generated: %v", file.Filename, err)}
	}
	return asset, nil
}

func (g *PreviewGenerator) generate(ctx context.Context, data []byte, storedPath string) error {
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	preview := imaging.Fit(src, g.maxDimension, g.maxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, preview, imaging.JPEG, imaging.JPEGQuality(previewQuality)); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}

	key := PreviewKey(storedPath)
	if err := g.store.Put(ctx, key, buf.Bytes(), "image/jpeg"); err != nil {
		return fmt.Errorf("store preview: %w", err)
	}
	return nil
}

// PreviewKey maps an original object key to its preview key, always with a
// .jpg extension.
func PreviewKey(storedPath string) string {
	ext := filepath.Ext(storedPath)
	return "previews/" + strings.TrimSuffix(storedPath, ext) + ".jpg"
}
