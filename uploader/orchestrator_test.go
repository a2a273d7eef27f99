package uploader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"mediaUploader/models"
	"mediaUploader/validation"
)

type fakeStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	putCalls    int
	putErr      func(key string) error
	putDelay    time.Duration
	inFlight    int
	maxInFlight int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	f.putCalls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	errFn := f.putErr
	f.mu.Unlock()

	if f.putDelay > 0 {
		time.Sleep(f.putDelay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if errFn != nil {
		if err := errFn(key); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.objects[key] = data
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (f *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

type fakeRepo struct {
	mu          sync.Mutex
	nextID      int
	assets      map[string]*models.MediaAsset
	createErr   error
	createCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{assets: make(map[string]*models.MediaAsset)}
}

func (f *fakeRepo) CreateAsset(ctx context.Context, asset *models.MediaAsset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	asset.ID = fmt.Sprintf("asset-%d", f.nextID)
	asset.CreatedAt = time.Now()
	asset.UpdatedAt = asset.CreatedAt
	stored := *asset
	f.assets[asset.ID] = &stored
	return nil
}

func (f *fakeRepo) GetAsset(ctx context.Context, id string) (*models.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[id]
	if !ok {
		return nil, errors.New("asset not found")
	}
	copied := *asset
	return &copied, nil
}

func (f *fakeRepo) UpdateAsset(ctx context.Context, id string, patch models.AssetPatch) (*models.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[id]
	if !ok {
		return nil, errors.New("asset not found")
	}
	if patch.FileURL != nil {
		asset.FileURL = *patch.FileURL
	}
	if patch.ConversionStatus != nil {
		asset.ConversionStatus = patch.ConversionStatus
	}
	copied := *asset
	return &copied, nil
}

func (f *fakeRepo) ListPendingConversions(ctx context.Context, limit int) ([]*models.MediaAsset, error) {
	return nil, nil
}

func testRules() validation.Rules {
	return validation.Rules{AllowedTypes: []string{"image/*"}, MaxFileSize: 1 << 20}
}

func testOrchestrator(t *testing.T, store *fakeStore, repo *fakeRepo, isRaw func(string) bool, hooks []PostUploadHook) *Orchestrator {
	return NewOrchestrator(testRules(), store, repo, isRaw, hooks, zaptest.NewLogger(t))
}

func imageFiles(names ...string) []FileInput {
	files := make([]FileInput, 0, len(names))
	for _, name := range names {
		files = append(files, FileInput{Filename: name, Data: []byte("image-bytes")})
	}
	return files
}

func TestUploadBatch_AllSucceed(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	o := testOrchestrator(t, store, repo, nil, nil)

	var snapshots []BatchProgress
	var completions []UploadTask

	result, err := o.UploadBatch(context.Background(), "moodboard-1",
		imageFiles("a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"),
		BatchOptions{
			MaxConcurrent:  4,
			MaxRetries:     2,
			OnProgress:     func(p BatchProgress) { snapshots = append(snapshots, p) },
			OnFileComplete: func(task UploadTask) { completions = append(completions, task) },
		})
	if err != nil {
		t.Fatalf("UploadBatch failed: %v", err)
	}

	if !result.Success || result.TotalSucceeded != 5 || result.TotalFailed != 0 {
		t.Fatalf("Unexpected result: %+v", result)
	}
	if len(result.CreatedAssets) != 5 {
		t.Fatalf("Expected 5 created assets, got %d", len(result.CreatedAssets))
	}
	if len(completions) != 5 {
		t.Errorf("Expected 5 completion callbacks, got %d", len(completions))
	}

	final := snapshots[len(snapshots)-1]
	if final.OverallProgressPercent != 100 {
		t.Errorf("Expected final progress 100, got %d", final.OverallProgressPercent)
	}
	for i := 1; i < len(snapshots); i++ {
		if snapshots[i].OverallProgressPercent < snapshots[i-1].OverallProgressPercent {
			t.Errorf("Progress decreased: %d -> %d",
				snapshots[i-1].OverallProgressPercent, snapshots[i].OverallProgressPercent)
		}
	}
}

func TestUploadBatch_ConcurrencyBounded(t *testing.T) {
	store := newFakeStore()
	store.putDelay = 20 * time.Millisecond
	repo := newFakeRepo()
	o := testOrchestrator(t, store, repo, nil, nil)

	_, err := o.UploadBatch(context.Background(), "gallery-1",
		imageFiles("1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg"),
		BatchOptions{MaxConcurrent: 2})
	if err != nil {
		t.Fatalf("UploadBatch failed: %v", err)
	}

	if store.maxInFlight > 2 {
		t.Errorf("Concurrency limit violated: %d uploads in flight", store.maxInFlight)
	}
}

func TestUploadBatch_RetriesThenFails(t *testing.T) {
	store := newFakeStore()
	store.putErr = func(key string) error {
		if strings.Contains(key, "broken") {
			return errors.New("connection reset")
		}
		return nil
	}
	repo := newFakeRepo()
	o := testOrchestrator(t, store, repo, nil, nil)

	var failedTask *UploadTask
	result, err := o.UploadBatch(context.Background(), "sel-1",
		imageFiles("a.jpg", "broken.jpg", "c.jpg"),
		BatchOptions{
			MaxConcurrent: 3,
			MaxRetries:    2,
			RetryBackoff:  time.Millisecond,
			OnFileComplete: func(task UploadTask) {
				if task.Status == TaskError {
					copied := task
					failedTask = &copied
				}
			},
		})
	if err != nil {
		t.Fatalf("UploadBatch should not error on partial failure: %v", err)
	}

	if !result.Success || result.TotalSucceeded != 2 || result.TotalFailed != 1 {
		t.Fatalf("Unexpected result: %+v", result)
	}
	if failedTask == nil {
		t.Fatal("Expected a failed task callback")
	}
	if failedTask.RetryCount != 2 {
		t.Errorf("Expected retry count 2, got %d", failedTask.RetryCount)
	}
	if len(result.Failures) != 1 || result.Failures[0].Filename != "broken.jpg" {
		t.Errorf("Unexpected failures: %+v", result.Failures)
	}

	// 1 attempt + 2 retries for the broken file.
	brokenPuts := 0
	store.mu.Lock()
	brokenPuts = store.putCalls - 2
	store.mu.Unlock()
	if brokenPuts != 3 {
		t.Errorf("Expected 3 put attempts for broken file, got %d", brokenPuts)
	}
}

func TestUploadBatch_OversizedFileNoNetwork(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	o := testOrchestrator(t, store, repo, nil, nil)

	big := FileInput{Filename: "huge.jpg", Data: make([]byte, 2<<20)}
	result, err := o.UploadBatch(context.Background(), "mb-1", []FileInput{big},
		BatchOptions{MaxRetries: 3, RetryBackoff: time.Millisecond})

	if !errors.Is(err, ErrAllUploadsFailed) {
		t.Fatalf("Expected ErrAllUploadsFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "1048576") {
		t.Errorf("Error should mention the configured maximum size, got %q", err.Error())
	}
	if result.Success {
		t.Error("Result should not be successful")
	}
	if store.putCalls != 0 {
		t.Errorf("Validation failure must not reach the blob store, got %d puts", store.putCalls)
	}
	if repo.createCalls != 0 {
		t.Errorf("Validation failure must not reach the repository, got %d creates", repo.createCalls)
	}
}

func TestUploadBatch_PreCancelled(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	o := testOrchestrator(t, store, repo, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var statuses []TaskStatus
	result, err := o.UploadBatch(ctx, "mb-2", imageFiles("a.jpg", "b.jpg", "c.jpg"),
		BatchOptions{
			MaxConcurrent:  2,
			OnFileComplete: func(task UploadTask) { statuses = append(statuses, task.Status) },
		})

	if !errors.Is(err, ErrAllUploadsFailed) {
		t.Fatalf("Expected ErrAllUploadsFailed for fully cancelled batch, got %v", err)
	}
	if result.TotalSucceeded != 0 {
		t.Errorf("Expected zero successes, got %d", result.TotalSucceeded)
	}
	if store.putCalls != 0 || repo.createCalls != 0 {
		t.Errorf("Cancelled batch must not touch the network: %d puts, %d creates",
			store.putCalls, repo.createCalls)
	}
	if len(statuses) != 3 {
		t.Fatalf("Expected 3 terminal callbacks, got %d", len(statuses))
	}
	for _, status := range statuses {
		if status != TaskCancelled {
			t.Errorf("Expected cancelled status, got %s", status)
		}
	}
}

func TestUploadBatch_CancelledDuringRetryWait(t *testing.T) {
	store := newFakeStore()
	store.putErr = func(key string) error { return errors.New("unavailable") }
	repo := newFakeRepo()
	o := testOrchestrator(t, store, repo, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	var last UploadTask
	_, err := o.UploadBatch(ctx, "mb-3", imageFiles("a.jpg"),
		BatchOptions{
			MaxRetries:     5,
			RetryBackoff:   time.Second,
			OnFileComplete: func(task UploadTask) { last = task },
		})

	if !errors.Is(err, ErrAllUploadsFailed) {
		t.Fatalf("Expected ErrAllUploadsFailed, got %v", err)
	}
	if last.Status != TaskCancelled {
		t.Errorf("Expected cancelled status after cancel mid-backoff, got %s", last.Status)
	}
	if store.putCalls != 1 {
		t.Errorf("Expected exactly one attempt before the backoff cancel, got %d", store.putCalls)
	}
}

func TestUploadBatch_RawAssetFlaggedForConversion(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	isRaw := func(name string) bool { return strings.HasSuffix(name, ".cr2") }
	o := testOrchestrator(t, store, repo, isRaw, nil)

	result, err := o.UploadBatch(context.Background(), "mb-4",
		imageFiles("shoot.cr2", "plain.jpg"), BatchOptions{})
	if err != nil {
		t.Fatalf("UploadBatch failed: %v", err)
	}

	var raw, plain *models.MediaAsset
	for _, asset := range result.CreatedAssets {
		if strings.HasSuffix(*asset.SourceFilename, ".cr2") {
			raw = asset
		} else {
			plain = asset
		}
	}
	if raw == nil || plain == nil {
		t.Fatalf("Expected both assets, got %+v", result.CreatedAssets)
	}
	if !raw.RequiresConversion || raw.ConversionStatus == nil || *raw.ConversionStatus != models.ConversionPending {
		t.Errorf("RAW asset should be created pending conversion: %+v", raw)
	}
	if plain.RequiresConversion || plain.ConversionStatus != nil {
		t.Errorf("Plain asset should not be flagged for conversion: %+v", plain)
	}
}

func TestUploadBatch_HookWarningsAndAssetRewrite(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()

	rewrite := func(ctx context.Context, asset *models.MediaAsset, file FileInput, storedPath string) (*models.MediaAsset, []string) {
		updated := *asset
		updated.FileURL = "converted/" + storedPath
		return &updated, []string{"conversion warning for " + file.Filename}
	}
	o := testOrchestrator(t, store, repo, nil, []PostUploadHook{rewrite})

	result, err := o.UploadBatch(context.Background(), "mb-5", imageFiles("x.jpg"), BatchOptions{})
	if err != nil {
		t.Fatalf("UploadBatch failed: %v", err)
	}

	if len(result.Warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(result.Warnings))
	}
	if !result.Success {
		t.Error("Hook warnings must not fail the batch")
	}
	if !strings.HasPrefix(result.CreatedAssets[0].FileURL, "converted/") {
		t.Errorf("Hook asset rewrite was dropped: %s", result.CreatedAssets[0].FileURL)
	}
}

func TestUploadBatch_EmptyBatch(t *testing.T) {
	o := testOrchestrator(t, newFakeStore(), newFakeRepo(), nil, nil)

	result, err := o.UploadBatch(context.Background(), "mb-6", nil, BatchOptions{})
	if err != nil {
		t.Fatalf("Empty batch should not error: %v", err)
	}
	if result.Success {
		t.Error("Empty batch cannot be successful")
	}
}

func TestUploadBatch_DuplicateNamesGetDistinctPaths(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	o := testOrchestrator(t, store, repo, nil, nil)

	result, err := o.UploadBatch(context.Background(), "mb-7",
		imageFiles("same.jpg", "same.jpg", "same.jpg"),
		BatchOptions{MaxConcurrent: 3})
	if err != nil {
		t.Fatalf("UploadBatch failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, asset := range result.CreatedAssets {
		if seen[asset.FileURL] {
			t.Errorf("Duplicate storage path: %s", asset.FileURL)
		}
		seen[asset.FileURL] = true
	}
}
