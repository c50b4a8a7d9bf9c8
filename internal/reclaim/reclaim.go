package reclaim

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/MTGMAD/ai-media-gallery/internal/database"
	"github.com/MTGMAD/ai-media-gallery/internal/logging"
	"github.com/MTGMAD/ai-media-gallery/internal/metrics"
)

// minInlineSize is the threshold below which an inline payload is not
// worth reclaiming. Small values also cover records whose image_data
// holds a thumbnail-sized leftover rather than a full file.
const minInlineSize = 1000

// Records is the slice of the metadata store the reclaimer needs.
type Records interface {
	ListAll(ctx context.Context) ([]database.MediaItem, error)
	Update(ctx context.Context, id int64, fields database.UpdateFields) (int64, error)
}

// ThumbFunc synthesizes a small JPEG preview from raw image bytes.
type ThumbFunc func(data []byte) ([]byte, error)

// Backpressure gates memory-heavy work. WaitIfPaused blocks while the
// process is under memory pressure and returns false on shutdown.
type Backpressure interface {
	WaitIfPaused() bool
}

// Report is the outcome of one reclaim pass.
type Report struct {
	Scanned    int      `json:"scanned"`
	Cleaned    int      `json:"cleaned"`
	SpaceSaved int64    `json:"spaceSaved"`
	Errors     []string `json:"errors,omitempty"`
}

// Reclaimer strips redundant inline payloads from records that have a
// server-side copy.
type Reclaimer struct {
	records  Records
	thumb    ThumbFunc    // optional; nil skips records that would need a synthesized preview
	pressure Backpressure // optional; nil disables memory gating
}

func New(records Records, thumb ThumbFunc) *Reclaimer {
	return &Reclaimer{records: records, thumb: thumb}
}

// SetBackpressure installs a memory gate consulted before each record.
// Decoding an inline payload holds the whole file in memory twice, so a
// pass over a large catalogue is paced by the monitor.
func (r *Reclaimer) SetBackpressure(p Backpressure) {
	r.pressure = p
}

// Run processes every record once. Records fail independently; an
// error on one is collected and the pass continues. A second run over
// the same data is a no-op because cleaned records no longer qualify.
func (r *Reclaimer) Run(ctx context.Context) (*Report, error) {
	metrics.ReclaimRunsTotal.Inc()

	items, err := r.records.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	report := &Report{Scanned: len(items)}
	for i := range items {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		item := &items[i]
		if item.ServerPath == "" || len(item.ImageData) <= minInlineSize {
			continue
		}
		if r.pressure != nil && !r.pressure.WaitIfPaused() {
			logging.Info("reclaim pass interrupted by shutdown after %d records", i)
			return report, nil
		}
		if err := r.clean(ctx, item, report); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("item %d: %v", item.ID, err))
			metrics.ReclaimErrors.Inc()
			logging.Warn("reclaim: item %d skipped: %v", item.ID, err)
		}
	}

	logging.Info("reclaim pass: %d scanned, %d cleaned, %d bytes saved, %d errors",
		report.Scanned, report.Cleaned, report.SpaceSaved, len(report.Errors))
	return report, nil
}

// clean replaces one record's inline payload with a thumbnail. The
// record is only modified after every step that can fail has
// succeeded, so a failed record keeps its inline copy intact.
func (r *Reclaimer) clean(ctx context.Context, item *database.MediaItem, report *Report) error {
	saved := int64(len(item.ImageData))

	empty := ""
	fields := database.UpdateFields{ImageData: &empty}

	// A missing thumbnail, or one that is a copy of the full payload,
	// must be replaced before the payload goes away. A record is never
	// left with neither an inline copy nor a usable thumbnail, so
	// without a synthesizer the record stays as it is.
	if item.ThumbnailData == "" || item.ThumbnailData == item.ImageData {
		if r.thumb == nil {
			return fmt.Errorf("no thumbnail synthesizer, payload kept")
		}
		if item.ThumbnailData == item.ImageData {
			saved += int64(len(item.ThumbnailData))
		}
		raw, err := base64.StdEncoding.DecodeString(item.ImageData)
		if err != nil {
			return fmt.Errorf("inline payload is not valid base64: %w", err)
		}
		thumbBytes, err := r.thumb(raw)
		if err != nil {
			return fmt.Errorf("thumbnail synthesis: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(thumbBytes)
		fields.ThumbnailData = &encoded
		saved -= int64(len(encoded))
	}

	if _, err := r.records.Update(ctx, item.ID, fields); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	report.Cleaned++
	report.SpaceSaved += saved
	metrics.ReclaimRecordsCleaned.Inc()
	metrics.ReclaimBytesSaved.Add(float64(saved))
	logging.Debug("reclaim: item %d cleaned, %d bytes saved", item.ID, saved)
	return nil
}
