package service

import (
	"context"

	"go.uber.org/zap"

	"mediaUploader/models"
	"mediaUploader/repository"
	"mediaUploader/uploader"
)

// ConversionStatusCache is the read side of the conversion status cache;
// cache.ConversionCache implements it.
type ConversionStatusCache interface {
	Get(ctx context.Context, assetID string) (models.ConversionStatus, error)
	Set(ctx context.Context, assetID string, status models.ConversionStatus) error
}

// MediaService is the only surface the rest of the portal talks to for media
// writes. It fronts the upload orchestrator and the conversion status lookup;
// nothing outside this package constructs MediaAsset records.
type MediaService struct {
	orchestrator *uploader.Orchestrator
	repo         repository.Repository
	statusCache  ConversionStatusCache
	logger       *zap.Logger
}

func NewMediaService(
	orchestrator *uploader.Orchestrator,
	repo repository.Repository,
	statusCache ConversionStatusCache,
	logger *zap.Logger,
) *MediaService {
	return &MediaService{
		orchestrator: orchestrator,
		repo:         repo,
		statusCache:  statusCache,
		logger:       logger,
	}
}

func (s *MediaService) UploadBatch(ctx context.Context, entityID string, files []uploader.FileInput, opts uploader.BatchOptions) (*uploader.BatchResult, error) {
	result, err := s.orchestrator.UploadBatch(ctx, entityID, files, opts)

	s.logger.Info("Upload batch finished",
		zap.String("entity_id", entityID),
		zap.Int("attempted", result.TotalAttempted),
		zap.Int("succeeded", result.TotalSucceeded),
		zap.Int("failed", result.TotalFailed),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result, err
}

// GetConversionStatus reads through the cache to postgres, warming the cache
// on a miss. Assets that never needed conversion report completed.
func (s *MediaService) GetConversionStatus(ctx context.Context, assetID string) (models.ConversionStatus, error) {
	if s.statusCache != nil {
		if status, err := s.statusCache.Get(ctx, assetID); err == nil {
			return status, nil
		}
	}

	asset, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return "", err
	}

	status := models.ConversionCompleted
	if asset.ConversionStatus != nil {
		status = *asset.ConversionStatus
	}

	if s.statusCache != nil {
		if err := s.statusCache.Set(ctx, assetID, status); err != nil {
			s.logger.Warn("Failed to warm conversion status cache",
				zap.String("asset_id", assetID),
				zap.Error(err),
			)
		}
	}
	return status, nil
}
