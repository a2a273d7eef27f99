package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"mediaUploader/dto"
	"mediaUploader/middleware"
	"mediaUploader/models"
	"mediaUploader/repository"
	"mediaUploader/uploader"
)

const maxMultipartMemory = 64 << 20

type MediaService interface {
	UploadBatch(ctx context.Context, entityID string, files []uploader.FileInput, opts uploader.BatchOptions) (*uploader.BatchResult, error)
	GetConversionStatus(ctx context.Context, assetID string) (models.ConversionStatus, error)
}

type MediaHandler struct {
	service       MediaService
	maxConcurrent int
	maxRetries    int
	logger        *zap.Logger
}

func NewMediaHandler(service MediaService, maxConcurrent, maxRetries int, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		service:       service,
		maxConcurrent: maxConcurrent,
		maxRetries:    maxRetries,
		logger:        logger,
	}
}

// Upload handles POST /entities/{id}/media with one or more "files" parts.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	entityID := parseEntityID(r.URL.Path)
	if entityID == "" {
		h.handleError(w, "Entity ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		h.handleError(w, "Failed to parse form", err, traceID, http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.handleError(w, "No files provided", nil, traceID, http.StatusBadRequest)
		return
	}

	files := make([]uploader.FileInput, 0, len(headers))
	for _, header := range headers {
		part, err := header.Open()
		if err != nil {
			h.handleError(w, "Failed to open file", err, traceID, http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			h.handleError(w, "Failed to read file", err, traceID, http.StatusBadRequest)
			return
		}
		files = append(files, uploader.FileInput{
			Filename: filepath.Base(header.Filename),
			Data:     data,
		})
	}

	result, err := h.service.UploadBatch(r.Context(), entityID, files, uploader.BatchOptions{
		MaxConcurrent: h.maxConcurrent,
		MaxRetries:    h.maxRetries,
	})
	if err != nil {
		h.handleError(w, err.Error(), err, traceID, http.StatusUnprocessableEntity)
		return
	}

	h.logger.Info("Batch uploaded",
		zap.String("trace_id", traceID),
		zap.String("entity_id", entityID),
		zap.Int("succeeded", result.TotalSucceeded),
		zap.Int("failed", result.TotalFailed),
	)

	h.respondJSON(w, http.StatusCreated, dto.ToBatchUploadResponse(result))
}

// ConversionStatus handles GET /assets/{id}/conversion.
func (h *MediaHandler) ConversionStatus(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	assetID := parseAssetID(r.URL.Path)
	if assetID == "" {
		h.handleError(w, "Asset ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	status, err := h.service.GetConversionStatus(r.Context(), assetID)
	if err != nil {
		if errors.Is(err, repository.ErrAssetNotFound) {
			h.handleError(w, "Asset not found", err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get conversion status", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.ConversionStatusResponse{
		AssetID: assetID,
		Status:  string(status),
	})
}

func parseEntityID(path string) string {
	rest := strings.TrimPrefix(path, "/entities/")
	entityID, tail, found := strings.Cut(rest, "/")
	if !found || tail != "media" {
		return ""
	}
	return entityID
}

func parseAssetID(path string) string {
	rest := strings.TrimPrefix(path, "/assets/")
	assetID, tail, found := strings.Cut(rest, "/")
	if !found || tail != "conversion" {
		return ""
	}
	return assetID
}

func (h *MediaHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *MediaHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
