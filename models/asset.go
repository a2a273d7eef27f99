package models

import (
	"time"
)

type ConversionStatus string

const (
	ConversionPending    ConversionStatus = "pending"
	ConversionQueued     ConversionStatus = "queued"
	ConversionProcessing ConversionStatus = "processing"
	ConversionCompleted  ConversionStatus = "completed"
	ConversionFailed     ConversionStatus = "failed"
	ConversionRetrying   ConversionStatus = "retrying"
	ConversionCancelled  ConversionStatus = "cancelled"
)

// MediaAsset is the persisted record for one uploaded file. FileURL always
// points at a usable object: the original upload at creation time, the JPEG
// derivative once a RAW conversion has completed.
type MediaAsset struct {
	ID                 string
	ParentEntityID     string
	FileURL            string
	SourceFileURL      *string
	SourceFilename     *string
	SourceFormat       *string
	TargetFormat       *string
	RequiresConversion bool
	ConversionStatus   *ConversionStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AssetPatch carries the fields an update may change. Nil fields are left
// untouched by the repository.
type AssetPatch struct {
	FileURL            *string
	SourceFileURL      *string
	SourceFormat       *string
	TargetFormat       *string
	RequiresConversion *bool
	ConversionStatus   *ConversionStatus
}
