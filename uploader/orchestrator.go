package uploader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"mediaUploader/models"
	"mediaUploader/pool"
	"mediaUploader/repository"
	"mediaUploader/storage"
	"mediaUploader/validation"
)

// PostUploadHook runs after a task's upload has succeeded. It may return an
// updated asset (e.g. after a RAW conversion rewrote the record) and any
// non-fatal warnings. A hook can never fail the task: by the time it runs,
// the upload already counts as a success.
type PostUploadHook func(ctx context.Context, asset *models.MediaAsset, file FileInput, storedPath string) (*models.MediaAsset, []string)

type BatchOptions struct {
	MaxConcurrent  int
	MaxRetries     int
	RetryBackoff   time.Duration
	OnProgress     func(BatchProgress)
	OnFileComplete func(UploadTask)
}

func (o BatchOptions) normalized() BatchOptions {
	if o.MaxConcurrent < 1 {
		o.MaxConcurrent = 3
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
	return o
}

// Orchestrator is the single entry point for persisting a batch of files.
// Files are processed in consecutive chunks of MaxConcurrent: within a chunk
// every task runs concurrently, and the next chunk starts only once the whole
// chunk is terminal. One slow file therefore delays the following chunk; the
// trade-off keeps peak in-flight network operations trivially bounded.
type Orchestrator struct {
	rules  validation.Rules
	store  storage.BlobStore
	repo   repository.Repository
	isRaw  func(filename string) bool
	hooks  []PostUploadHook
	logger *zap.Logger
}

func NewOrchestrator(
	rules validation.Rules,
	store storage.BlobStore,
	repo repository.Repository,
	isRaw func(string) bool,
	hooks []PostUploadHook,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		rules:  rules,
		store:  store,
		repo:   repo,
		isRaw:  isRaw,
		hooks:  hooks,
		logger: logger,
	}
}

type batchState struct {
	entityID  string
	opts      BatchOptions
	allocator *storage.PathAllocator
	progress  *ProgressAggregator

	mu     sync.Mutex
	result *BatchResult
}

// UploadBatch uploads every file and returns the aggregate outcome. The
// returned error is non-nil only when a non-empty batch produced zero assets;
// partial failure is visible on the result instead. Cancellation via ctx is
// cooperative: tasks already mid-attempt run to completion, tasks not yet
// started terminate as cancelled without touching the network.
func (o *Orchestrator) UploadBatch(ctx context.Context, entityID string, files []FileInput, opts BatchOptions) (*BatchResult, error) {
	opts = opts.normalized()

	tasks := make([]*UploadTask, len(files))
	for i, file := range files {
		tasks[i] = &UploadTask{Filename: file.Filename, Status: TaskPending}
	}

	state := &batchState{
		entityID:  entityID,
		opts:      opts,
		allocator: storage.NewPathAllocator(o.store),
		progress:  NewProgressAggregator(len(files)),
		result:    &BatchResult{TotalAttempted: len(files)},
	}

	if opts.OnProgress != nil {
		opts.OnProgress(state.progress.Snapshot())
	}

	workers := pool.NewWorkerPool(opts.MaxConcurrent)
	for start := 0; start < len(files); start += opts.MaxConcurrent {
		end := min(start+opts.MaxConcurrent, len(files))
		for i := start; i < end; i++ {
			task, file := tasks[i], files[i]
			workers.Submit(ctx, func(taskCtx context.Context) {
				o.runTask(taskCtx, state, task, file)
			})
		}
		workers.Wait()
	}

	state.result.Success = state.result.TotalSucceeded > 0
	return state.result, state.result.failureError()
}

func (o *Orchestrator) runTask(ctx context.Context, st *batchState, task *UploadTask, file FileInput) {
	if ctx.Err() != nil {
		o.finishTask(st, task, TaskCancelled, "upload cancelled before start")
		return
	}

	if err := o.rules.Validate(file.Filename, int64(len(file.Data))); err != nil {
		o.finishTask(st, task, TaskError, err.Error())
		return
	}

	task.Status = TaskUploading

	var lastErr error
	for attempt := 0; attempt <= st.opts.MaxRetries; attempt++ {
		task.RetryCount = attempt

		asset, err := o.attemptUpload(ctx, st, task, file)
		if err == nil {
			o.handleSuccess(ctx, st, task, file, asset)
			return
		}
		lastErr = err

		o.logger.Warn("Upload attempt failed",
			zap.String("filename", file.Filename),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt < st.opts.MaxRetries {
			delay := st.opts.RetryBackoff << attempt
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				o.finishTask(st, task, TaskCancelled, "upload cancelled during retry wait")
				return
			}
		}
	}

	o.finishTask(st, task, TaskError, lastErr.Error())
}

func (o *Orchestrator) attemptUpload(ctx context.Context, st *batchState, task *UploadTask, file FileInput) (*models.MediaAsset, error) {
	key, err := st.allocator.Allocate(ctx, st.entityID, file.Filename)
	if err != nil {
		return nil, fmt.Errorf("allocate storage path: %w", err)
	}

	if err := o.store.Put(ctx, key, file.Data, validation.MimeTypeFor(file.Filename)); err != nil {
		return nil, fmt.Errorf("store object: %w", err)
	}

	filename := file.Filename
	asset := &models.MediaAsset{
		ParentEntityID: st.entityID,
		FileURL:        key,
		SourceFilename: &filename,
	}
	if o.isRaw != nil && o.isRaw(file.Filename) {
		pending := models.ConversionPending
		asset.RequiresConversion = true
		asset.ConversionStatus = &pending
	}

	if err := o.repo.CreateAsset(ctx, asset); err != nil {
		// Best effort: don't leave an orphan object behind a failed record.
		if delErr := o.store.Delete(ctx, key); delErr != nil {
			o.logger.Warn("Failed to delete orphan object",
				zap.String("key", key),
				zap.Error(delErr),
			)
		}
		return nil, fmt.Errorf("create asset record: %w", err)
	}

	task.StoredPath = key
	return asset, nil
}

func (o *Orchestrator) handleSuccess(ctx context.Context, st *batchState, task *UploadTask, file FileInput, asset *models.MediaAsset) {
	var warnings []string
	for _, hook := range o.hooks {
		updated, hookWarnings := hook(ctx, asset, file, task.StoredPath)
		if updated != nil {
			asset = updated
		}
		warnings = append(warnings, hookWarnings...)
	}

	task.ProgressPercent = 100

	st.mu.Lock()
	defer st.mu.Unlock()
	st.result.CreatedAssets = append(st.result.CreatedAssets, asset)
	st.result.Warnings = append(st.result.Warnings, warnings...)
	st.result.TotalSucceeded++
	st.progress.TaskSucceeded()
	o.emitLocked(st, task, TaskSuccess, "")
}

func (o *Orchestrator) finishTask(st *batchState, task *UploadTask, status TaskStatus, errMsg string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch status {
	case TaskCancelled:
		st.progress.TaskCancelled()
	case TaskError:
		st.progress.TaskFailed()
	}
	st.result.Failures = append(st.result.Failures, FileFailure{Filename: task.Filename, Message: errMsg})
	st.result.TotalFailed++

	o.emitLocked(st, task, status, errMsg)
}

// emitLocked records the terminal status and fires the callbacks while the
// batch lock is held, so observers see snapshots in a consistent order.
func (o *Orchestrator) emitLocked(st *batchState, task *UploadTask, status TaskStatus, errMsg string) {
	task.Status = status
	task.ErrorMessage = errMsg

	if st.opts.OnProgress != nil {
		st.opts.OnProgress(st.progress.Snapshot())
	}
	if st.opts.OnFileComplete != nil && task.terminal() {
		st.opts.OnFileComplete(*task)
	}
}
