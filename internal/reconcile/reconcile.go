package reconcile

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/MTGMAD/ai-media-gallery/internal/blobstore"
	"github.com/MTGMAD/ai-media-gallery/internal/database"
	"github.com/MTGMAD/ai-media-gallery/internal/logging"
	"github.com/MTGMAD/ai-media-gallery/internal/metrics"
	"github.com/MTGMAD/ai-media-gallery/internal/workers"
)

// maxStatWorkers caps the stat pool so a scan over a huge catalogue
// does not saturate the backing filesystem.
const maxStatWorkers = 16

// Blobs is the slice of the blob store the engine needs.
type Blobs interface {
	ListAll() ([]blobstore.FileInfo, error)
	Stat(relPath string) (blobstore.FileInfo, error)
	Delete(relPath string) error
}

// Records is the slice of the metadata store the engine needs.
type Records interface {
	ListAll(ctx context.Context) ([]database.MediaItem, error)
}

// DanglingRecord is a metadata row whose server path no longer
// resolves to a file.
type DanglingRecord struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	ServerPath string `json:"serverPath"`
	Reason     string `json:"reason"`
}

// Report is the outcome of one scan.
type Report struct {
	TotalFiles      int                  `json:"totalFiles"`
	TotalRecords    int                  `json:"totalRecords"`
	OrphanFiles     []blobstore.FileInfo `json:"orphanFiles"`
	DanglingRecords []DanglingRecord     `json:"danglingRecords"`
	IntegrityScore  int                  `json:"integrityScore"`
}

// CleanupReport partitions an orphan deletion pass.
type CleanupReport struct {
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// Engine compares the two stores.
type Engine struct {
	blobs   Blobs
	records Records
}

func New(blobs Blobs, records Records) *Engine {
	return &Engine{blobs: blobs, records: records}
}

// Scan walks both stores and reports the drift between them. Either
// listing failing aborts the scan; a partial view would misreport
// healthy entries as drift.
func (e *Engine) Scan(ctx context.Context) (*Report, error) {
	files, err := e.blobs.ListAll()
	if err != nil {
		return nil, fmt.Errorf("listing blob tree: %w", err)
	}
	items, err := e.records.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	referenced := make(map[string]bool, len(items))
	for _, item := range items {
		if item.ServerPath != "" {
			referenced[blobstore.Normalize(item.ServerPath)] = true
		}
	}

	report := &Report{
		TotalFiles:   len(files),
		TotalRecords: len(items),
	}

	for _, f := range files {
		if !referenced[f.Path] {
			report.OrphanFiles = append(report.OrphanFiles, f)
		}
	}

	// Stat checks dominate scan time on slow mounts, so they run on a
	// small pool. Errors are collected per index to keep record order.
	statErrs := make([]error, len(items))
	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers.ForIO(maxStatWorkers); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				if _, err := e.blobs.Stat(items[i].ServerPath); err != nil {
					statErrs[i] = err
				}
			}
		}()
	}
	for i := range items {
		if items[i].ServerPath != "" {
			idx <- i
		}
	}
	close(idx)
	wg.Wait()

	for i, item := range items {
		// Any stat failure counts as dangling. A transient error may
		// flag a healthy record for one scan, but the alternative is
		// silently passing records whose bytes are gone.
		if statErrs[i] != nil {
			report.DanglingRecords = append(report.DanglingRecords, DanglingRecord{
				ID:         item.ID,
				Title:      item.Title,
				ServerPath: item.ServerPath,
				Reason:     statErrs[i].Error(),
			})
		}
	}

	report.IntegrityScore = integrityScore(
		report.TotalFiles, report.TotalRecords,
		len(report.OrphanFiles)+len(report.DanglingRecords),
	)

	metrics.ReconcileRunsTotal.Inc()
	metrics.ReconcileOrphanFiles.Set(float64(len(report.OrphanFiles)))
	metrics.ReconcileDanglingRecords.Set(float64(len(report.DanglingRecords)))
	metrics.ReconcileIntegrityScore.Set(float64(report.IntegrityScore))

	logging.Info("reconciliation scan: %d files, %d records, %d orphans, %d dangling, score %d",
		report.TotalFiles, report.TotalRecords,
		len(report.OrphanFiles), len(report.DanglingRecords), report.IntegrityScore)
	return report, nil
}

// CleanupOrphans re-scans and deletes every orphan file. Deletions are
// independent, one failed path is reported and the pass continues.
func (e *Engine) CleanupOrphans(ctx context.Context) (*CleanupReport, error) {
	report, err := e.Scan(ctx)
	if err != nil {
		return nil, err
	}

	cleanup := &CleanupReport{}
	for _, f := range report.OrphanFiles {
		if err := e.blobs.Delete(f.Path); err != nil {
			if cleanup.Failed == nil {
				cleanup.Failed = make(map[string]string)
			}
			cleanup.Failed[f.Path] = err.Error()
			logging.Warn("orphan cleanup: could not delete %s: %v", f.Path, err)
			continue
		}
		cleanup.Deleted = append(cleanup.Deleted, f.Path)
	}

	logging.Info("orphan cleanup: %d deleted, %d failed", len(cleanup.Deleted), len(cleanup.Failed))
	return cleanup, nil
}

// integrityScore maps drift to a 0..100 health figure. The larger
// store bounds the denominator so a lopsided tree cannot push the
// score above 100.
func integrityScore(files, records, issues int) int {
	total := files
	if records > total {
		total = records
	}
	if total == 0 {
		return 100
	}
	score := int(math.Round(float64(total-issues) / float64(total) * 100))
	if score < 0 {
		return 0
	}
	return score
}
