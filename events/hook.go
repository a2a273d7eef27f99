package events

import (
	"context"

	"go.uber.org/zap"

	"mediaUploader/models"
	"mediaUploader/uploader"
)

// PublishCreatedHook returns a post-upload hook that announces every created
// asset on the event topic. Publish failures are logged and swallowed; event
// delivery is best effort and never affects the upload outcome.
func PublishCreatedHook(producer Producer, logger *zap.Logger) uploader.PostUploadHook {
	return func(ctx context.Context, asset *models.MediaAsset, file uploader.FileInput, storedPath string) (*models.MediaAsset, []string) {
		err := producer.SendAssetEvent(ctx, &AssetEvent{
			Type:           TypeAssetCreated,
			AssetID:        asset.ID,
			ParentEntityID: asset.ParentEntityID,
			FileURL:        asset.FileURL,
		})
		if err != nil {
			logger.Warn("Failed to publish asset created event",
				zap.String("asset_id", asset.ID),
				zap.Error(err),
			)
		}
		return asset, nil
	}
}
