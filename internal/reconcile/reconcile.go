// Package reconcile repairs drift between the blob store and the metadata store:
// blobs no record points at, and records whose blob is gone.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Niyati251208/sports-performance-analyzer/internal/blob"
	"github.com/Niyati251208/sports-performance-analyzer/internal/metrics"
	"github.com/Niyati251208/sports-performance-analyzer/internal/storage"
)

const (
	KindOrphanBlob     = "orphan_blob"
	KindDanglingRecord = "dangling_record"
	KindStaleTemp      = "stale_temp"
)

// tempSweeper is implemented by stores that stage writes in temp files.
type tempSweeper interface {
	RemoveStaleTemp(ctx context.Context, cutoff time.Time) (int, error)
}

type Options struct {
	Interval time.Duration
	// GracePeriod keeps young unreferenced blobs, which may belong to uploads still inserting their record.
	GracePeriod   time.Duration
	PruneDangling bool
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// Report is the outcome of one pass.
type Report struct {
	OrphanBlobs     []string `json:"orphan_blobs"`
	RemovedBlobs    int      `json:"removed_blobs"`
	DanglingRecords []int64  `json:"dangling_records"`
	PrunedRecords   int      `json:"pruned_records"`
	RemovedTemp     int      `json:"removed_temp"`
}

type Worker struct {
	store   storage.Storage
	blobs   blob.Store
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewWorker(store storage.Storage, blobs blob.Store, opts Options) *Worker {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:   store,
		blobs:   blobs,
		opts:    opts,
		logger:  logger,
		metrics: opts.Metrics,
		now:     time.Now,
	}
}

func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	w.logger.Info("Reconcile worker started",
		"interval", w.opts.Interval.String(),
		"grace_period", w.opts.GracePeriod.String(),
		"prune_dangling", w.opts.PruneDangling)

	// Run once immediately on startup
	w.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Reconcile worker shutting down")
			return
		case <-ticker.C:
			w.runLogged(ctx)
		}
	}
}

func (w *Worker) runLogged(ctx context.Context) {
	startTime := time.Now()

	report, err := w.RunOnce(ctx)
	if err != nil {
		w.logger.Error("Reconcile pass failed",
			"error", err.Error(),
			"duration_ms", time.Since(startTime).Milliseconds())
		return
	}

	w.logger.Info("Completed reconcile pass",
		"orphan_blobs", len(report.OrphanBlobs),
		"removed_blobs", report.RemovedBlobs,
		"dangling_records", len(report.DanglingRecords),
		"pruned_records", report.PrunedRecords,
		"removed_temp", report.RemovedTemp,
		"duration_ms", time.Since(startTime).Milliseconds())
}

// RunOnce makes a single pass. Records are listed before blobs, so an upload that lands
// in between shows up as a young unreferenced blob and is spared by the grace period.
func (w *Worker) RunOnce(ctx context.Context) (Report, error) {
	report := Report{OrphanBlobs: []string{}, DanglingRecords: []int64{}}

	records, err := w.store.ListAllUploads(ctx)
	if err != nil {
		return report, fmt.Errorf("list records: %w", err)
	}
	infos, err := w.blobs.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list blobs: %w", err)
	}

	referenced := make(map[string]struct{}, len(records))
	for _, rec := range records {
		referenced[rec.Filepath] = struct{}{}
	}
	present := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		present[info.Path] = struct{}{}
	}

	cutoff := w.now().Add(-w.opts.GracePeriod)
	for _, info := range infos {
		if _, ok := referenced[info.Path]; ok || info.ModTime.After(cutoff) {
			continue
		}
		report.OrphanBlobs = append(report.OrphanBlobs, info.Path)

		removed, err := w.blobs.Remove(ctx, info.Path)
		if err != nil {
			w.logger.Warn("Failed to remove orphan blob", "path", info.Path, "error", err.Error())
			continue
		}
		if removed {
			report.RemovedBlobs++
		}
	}

	for _, rec := range records {
		if _, ok := present[rec.Filepath]; ok {
			continue
		}
		report.DanglingRecords = append(report.DanglingRecords, rec.ID)
		if !w.opts.PruneDangling {
			w.logger.Warn("Record points at a missing blob", "id", rec.ID, "path", rec.Filepath)
			continue
		}

		deleted, err := w.store.DeleteUploadByID(ctx, rec.ID)
		if err != nil {
			w.logger.Warn("Failed to prune dangling record", "id", rec.ID, "error", err.Error())
			continue
		}
		if deleted {
			report.PrunedRecords++
		}
	}

	// Temp files older than the grace period belong to writes that died mid-way.
	if sweeper, ok := w.blobs.(tempSweeper); ok {
		n, err := sweeper.RemoveStaleTemp(ctx, cutoff)
		if err != nil {
			w.logger.Warn("Failed to remove stale temp files", "error", err.Error())
		}
		report.RemovedTemp = n
	}

	w.metrics.Reconciled(KindOrphanBlob, report.RemovedBlobs)
	w.metrics.Reconciled(KindDanglingRecord, report.PrunedRecords)
	w.metrics.Reconciled(KindStaleTemp, report.RemovedTemp)
	return report, nil
}
