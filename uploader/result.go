package uploader

import (
	"errors"
	"fmt"
	"strings"

	"mediaUploader/models"
)

// ErrAllUploadsFailed is returned only when a non-empty batch produced zero
// assets. Partial failure is reported through the result, never the error.
var ErrAllUploadsFailed = errors.New("all uploads failed")

type FileFailure struct {
	Filename string
	Message  string
}

// BatchResult summarizes one UploadBatch call. Success means at least one
// asset was created; warnings carry non-fatal issues such as failed RAW
// conversions or preview generation.
type BatchResult struct {
	Success        bool
	CreatedAssets  []*models.MediaAsset
	Failures       []FileFailure
	Warnings       []string
	TotalAttempted int
	TotalSucceeded int
	TotalFailed    int
}

func (r *BatchResult) failureError() error {
	if r.TotalAttempted == 0 || r.TotalSucceeded > 0 {
		return nil
	}

	reasons := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		reasons = append(reasons, fmt.Sprintf("%s: %s", f.Filename, f.Message))
	}
	return fmt.Errorf("%w (%d of %d): %s",
		ErrAllUploadsFailed, r.TotalFailed, r.TotalAttempted, strings.Join(reasons, "; "))
}
