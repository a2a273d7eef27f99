package repository

import (
	"context"
	"errors"

	"mediaUploader/models"
)

var (
	ErrAssetNotFound = errors.New("asset not found")
)

// Repository persists media-asset records. The pipeline is the only writer;
// the rest of the portal reads assets through it.
type Repository interface {
	CreateAsset(ctx context.Context, asset *models.MediaAsset) error
	GetAsset(ctx context.Context, id string) (*models.MediaAsset, error)
	UpdateAsset(ctx context.Context, id string, patch models.AssetPatch) (*models.MediaAsset, error)
	ListPendingConversions(ctx context.Context, limit int) ([]*models.MediaAsset, error)
}
