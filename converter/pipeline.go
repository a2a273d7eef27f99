package converter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mediaUploader/events"
	"mediaUploader/models"
	"mediaUploader/repository"
	"mediaUploader/storage"
	"mediaUploader/uploader"
)

// StatusCache mirrors conversion state transitions into a fast store so
// status polls don't hit postgres. Failures to write it are logged only.
type StatusCache interface {
	Set(ctx context.Context, assetID string, status models.ConversionStatus) error
}

// Pipeline drives the RAW-to-JPEG conversion of an uploaded asset. A failed
// conversion never invalidates the upload: the asset keeps pointing at the
// original RAW object and stays flagged requires_conversion=true with
// conversion_status=failed so the reconciler can retry it later.
type Pipeline struct {
	store    storage.BlobStore
	repo     repository.Repository
	service  ServiceClient
	cache    StatusCache
	producer events.Producer
	signTTL  time.Duration
	logger   *zap.Logger
}

func NewPipeline(
	store storage.BlobStore,
	repo repository.Repository,
	service ServiceClient,
	cache StatusCache,
	producer events.Producer,
	signTTL time.Duration,
	logger *zap.Logger,
) *Pipeline {
	if signTTL <= 0 {
		signTTL = 60 * time.Second
	}
	return &Pipeline{
		store:    store,
		repo:     repo,
		service:  service,
		cache:    cache,
		producer: producer,
		signTTL:  signTTL,
		logger:   logger,
	}
}

// AfterUpload is the post-success hook wired into the upload orchestrator.
// Non-RAW files pass through untouched; RAW files are converted in place and
// a conversion failure comes back as a batch warning, never a task failure.
func (p *Pipeline) AfterUpload(ctx context.Context, asset *models.MediaAsset, file uploader.FileInput, storedPath string) (*models.MediaAsset, []string) {
	if !IsRawFormat(file.Filename) {
		return asset, nil
	}

	updated, err := p.Convert(ctx, asset, storedPath)
	if err != nil {
		warning := fmt.Sprintf("conversion of %s failed: %v (original file remains usable)", file.Filename, err)
		return asset, []string{warning}
	}
	return updated, nil
}

// Convert runs one conversion attempt for a RAW asset whose original object
// lives at rawStoredPath.
func (p *Pipeline) Convert(ctx context.Context, asset *models.MediaAsset, rawStoredPath string) (*models.MediaAsset, error) {
	p.setCacheStatus(ctx, asset.ID, models.ConversionProcessing)

	jpegPath, err := p.convertRemote(ctx, rawStoredPath)
	if err != nil {
		p.logger.Warn("RAW conversion failed",
			zap.String("asset_id", asset.ID),
			zap.String("raw_path", rawStoredPath),
			zap.Error(err),
		)
		p.recordFailure(ctx, asset)
		return nil, err
	}

	filename := ""
	if asset.SourceFilename != nil {
		filename = *asset.SourceFilename
	}
	sourceFormat := SourceFormatLabel(filename)
	targetFormat := "JPEG"
	completed := models.ConversionCompleted
	requires := true

	updated, err := p.repo.UpdateAsset(ctx, asset.ID, models.AssetPatch{
		FileURL:            &jpegPath,
		SourceFileURL:      &rawStoredPath,
		SourceFormat:       &sourceFormat,
		TargetFormat:       &targetFormat,
		RequiresConversion: &requires,
		ConversionStatus:   &completed,
	})
	if err != nil {
		p.recordFailure(ctx, asset)
		return nil, fmt.Errorf("record converted asset: %w", err)
	}

	p.setCacheStatus(ctx, asset.ID, models.ConversionCompleted)
	p.publish(ctx, events.TypeConversionCompleted, updated)

	p.logger.Info("RAW conversion completed",
		zap.String("asset_id", asset.ID),
		zap.String("jpeg_path", jpegPath),
	)
	return updated, nil
}

func (p *Pipeline) convertRemote(ctx context.Context, rawStoredPath string) (string, error) {
	signedURL, err := p.store.Sign(ctx, rawStoredPath, p.signTTL)
	if err != nil {
		return "", fmt.Errorf("sign source url: %w", err)
	}
	return p.service.Convert(ctx, signedURL)
}

// recordFailure marks the asset failed without touching its URLs: the record
// stays a valid reference to the original object, and requires_conversion
// stays true so a later sweep can find it.
func (p *Pipeline) recordFailure(ctx context.Context, asset *models.MediaAsset) {
	failed := models.ConversionFailed
	if _, err := p.repo.UpdateAsset(ctx, asset.ID, models.AssetPatch{ConversionStatus: &failed}); err != nil {
		p.logger.Warn("Failed to record conversion failure",
			zap.String("asset_id", asset.ID),
			zap.Error(err),
		)
	}
	p.setCacheStatus(ctx, asset.ID, models.ConversionFailed)
	p.publish(ctx, events.TypeConversionFailed, asset)
}

func (p *Pipeline) setCacheStatus(ctx context.Context, assetID string, status models.ConversionStatus) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, assetID, status); err != nil {
		p.logger.Warn("Failed to cache conversion status",
			zap.String("asset_id", assetID),
			zap.Error(err),
		)
	}
}

func (p *Pipeline) publish(ctx context.Context, eventType string, asset *models.MediaAsset) {
	if p.producer == nil {
		return
	}
	err := p.producer.SendAssetEvent(ctx, &events.AssetEvent{
		Type:           eventType,
		AssetID:        asset.ID,
		ParentEntityID: asset.ParentEntityID,
		FileURL:        asset.FileURL,
	})
	if err != nil {
		p.logger.Warn("Failed to publish conversion event",
			zap.String("asset_id", asset.ID),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}
