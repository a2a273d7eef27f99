package dto

import (
	"time"

	"mediaUploader/models"
	"mediaUploader/uploader"
)

type AssetResponse struct {
	ID                 string  `json:"id"`
	ParentEntityID     string  `json:"parent_entity_id"`
	FileURL            string  `json:"file_url"`
	SourceFileURL      *string `json:"source_file_url,omitempty"`
	SourceFilename     *string `json:"source_filename,omitempty"`
	SourceFormat       *string `json:"source_format,omitempty"`
	TargetFormat       *string `json:"target_format,omitempty"`
	RequiresConversion bool    `json:"requires_conversion"`
	ConversionStatus   *string `json:"conversion_status,omitempty"`
	CreatedAt          string  `json:"created_at"`
}

type FailureResponse struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type BatchUploadResponse struct {
	Success        bool              `json:"success"`
	Assets         []AssetResponse   `json:"assets"`
	Failures       []FailureResponse `json:"failures,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
	TotalAttempted int               `json:"total_attempted"`
	TotalSucceeded int               `json:"total_succeeded"`
	TotalFailed    int               `json:"total_failed"`
}

type ConversionStatusResponse struct {
	AssetID string `json:"asset_id"`
	Status  string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func ToAssetResponse(asset *models.MediaAsset) AssetResponse {
	resp := AssetResponse{
		ID:                 asset.ID,
		ParentEntityID:     asset.ParentEntityID,
		FileURL:            asset.FileURL,
		SourceFileURL:      asset.SourceFileURL,
		SourceFilename:     asset.SourceFilename,
		SourceFormat:       asset.SourceFormat,
		TargetFormat:       asset.TargetFormat,
		RequiresConversion: asset.RequiresConversion,
		CreatedAt:          asset.CreatedAt.Format(time.RFC3339),
	}
	if asset.ConversionStatus != nil {
		status := string(*asset.ConversionStatus)
		resp.ConversionStatus = &status
	}
	return resp
}

func ToBatchUploadResponse(result *uploader.BatchResult) BatchUploadResponse {
	resp := BatchUploadResponse{
		Success:        result.Success,
		Assets:         make([]AssetResponse, 0, len(result.CreatedAssets)),
		Warnings:       result.Warnings,
		TotalAttempted: result.TotalAttempted,
		TotalSucceeded: result.TotalSucceeded,
		TotalFailed:    result.TotalFailed,
	}
	for _, asset := range result.CreatedAssets {
		resp.Assets = append(resp.Assets, ToAssetResponse(asset))
	}
	for _, failure := range result.Failures {
		resp.Failures = append(resp.Failures, FailureResponse{
			Filename: failure.Filename,
			Error:    failure.Message,
		})
	}
	return resp
}
