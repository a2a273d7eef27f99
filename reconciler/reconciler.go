package reconciler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"mediaUploader/converter"
	"mediaUploader/repository"
)

const sweepTimeout = 5 * time.Minute

// Reconciler periodically re-drives conversion for RAW assets whose earlier
// attempt failed or never ran. Without it, an asset marked failed would stay
// unconverted forever even though its original object is intact.
type Reconciler struct {
	repo      repository.Repository
	pipeline  *converter.Pipeline
	batchSize int
	logger    *zap.Logger
	cron      *cron.Cron
}

func New(repo repository.Repository, pipeline *converter.Pipeline, batchSize int, logger *zap.Logger) *Reconciler {
	if batchSize < 1 {
		batchSize = 20
	}
	return &Reconciler{
		repo:      repo,
		pipeline:  pipeline,
		batchSize: batchSize,
		logger:    logger,
		cron:      cron.New(),
	}
}

// Start schedules the sweep; schedule uses cron syntax ("@every 15m").
func (r *Reconciler) Start(schedule string) error {
	_, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		converted, err := r.Sweep(ctx)
		if err != nil {
			r.logger.Error("Conversion sweep failed", zap.Error(err))
			return
		}
		if converted > 0 {
			r.logger.Info("Conversion sweep finished", zap.Int("converted", converted))
		}
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	return nil
}

func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}

// Sweep retries conversion for up to batchSize pending or failed assets and
// returns how many converted. Per-asset failures are logged and skipped; they
// stay flagged for the next sweep.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	assets, err := r.repo.ListPendingConversions(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	converted := 0
	for _, asset := range assets {
		if ctx.Err() != nil {
			return converted, ctx.Err()
		}

		// For an unconverted asset FileURL still addresses the RAW object;
		// SourceFileURL is only set once a conversion has completed.
		rawPath := asset.FileURL
		if asset.SourceFileURL != nil && *asset.SourceFileURL != "" {
			rawPath = *asset.SourceFileURL
		}

		if _, err := r.pipeline.Convert(ctx, asset, rawPath); err != nil {
			r.logger.Warn("Reconcile conversion failed",
				zap.String("asset_id", asset.ID),
				zap.Error(err),
			)
			continue
		}
		converted++
	}

	return converted, nil
}
