package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"mediaUploader/database"
	"mediaUploader/models"
)

const assetColumns = `
	id, parent_entity_id, file_url, source_file_url, source_filename,
	source_format, target_format, requires_conversion, conversion_status,
	created_at, updated_at
`

type PostgresRepo struct {
	db *database.DB
}

func NewPostgresRepo(db *database.DB) Repository {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateAsset(ctx context.Context, asset *models.MediaAsset) error {
	query := `
		INSERT INTO media_assets (
			parent_entity_id, file_url, source_file_url, source_filename,
			source_format, target_format, requires_conversion, conversion_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		asset.ParentEntityID,
		asset.FileURL,
		asset.SourceFileURL,
		asset.SourceFilename,
		asset.SourceFormat,
		asset.TargetFormat,
		asset.RequiresConversion,
		asset.ConversionStatus,
	).Scan(&asset.ID, &asset.CreatedAt, &asset.UpdatedAt)

	if err != nil {
		return fmt.Errorf("insert media asset: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetAsset(ctx context.Context, id string) (*models.MediaAsset, error) {
	query := `SELECT ` + assetColumns + ` FROM media_assets WHERE id = $1`

	asset, err := scanAsset(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return asset, nil
}

func (r *PostgresRepo) UpdateAsset(ctx context.Context, id string, patch models.AssetPatch) (*models.MediaAsset, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}

	addSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.FileURL != nil {
		addSet("file_url", *patch.FileURL)
	}
	if patch.SourceFileURL != nil {
		addSet("source_file_url", *patch.SourceFileURL)
	}
	if patch.SourceFormat != nil {
		addSet("source_format", *patch.SourceFormat)
	}
	if patch.TargetFormat != nil {
		addSet("target_format", *patch.TargetFormat)
	}
	if patch.RequiresConversion != nil {
		addSet("requires_conversion", *patch.RequiresConversion)
	}
	if patch.ConversionStatus != nil {
		addSet("conversion_status", *patch.ConversionStatus)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE media_assets SET %s WHERE id = $%d RETURNING `+assetColumns,
		strings.Join(sets, ", "), len(args),
	)

	asset, err := scanAsset(r.db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return asset, nil
}

func (r *PostgresRepo) ListPendingConversions(ctx context.Context, limit int) ([]*models.MediaAsset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM media_assets
		WHERE requires_conversion AND conversion_status IN ('pending', 'failed')
		ORDER BY updated_at ASC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending conversions: %w", err)
	}
	defer rows.Close()

	var assets []*models.MediaAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row rowScanner) (*models.MediaAsset, error) {
	var asset models.MediaAsset
	err := row.Scan(
		&asset.ID,
		&asset.ParentEntityID,
		&asset.FileURL,
		&asset.SourceFileURL,
		&asset.SourceFilename,
		&asset.SourceFormat,
		&asset.TargetFormat,
		&asset.RequiresConversion,
		&asset.ConversionStatus,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}
