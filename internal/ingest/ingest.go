package ingest

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/MTGMAD/ai-media-gallery/internal/database"
	"github.com/MTGMAD/ai-media-gallery/internal/interpret"
	"github.com/MTGMAD/ai-media-gallery/internal/logging"
	"github.com/MTGMAD/ai-media-gallery/internal/mediatypes"
	"github.com/MTGMAD/ai-media-gallery/internal/metrics"
	"github.com/MTGMAD/ai-media-gallery/internal/pngmeta"
)

// BlobWriter is the slice of the blob store the coordinator needs.
type BlobWriter interface {
	Write(kind mediatypes.MediaKind, originalName string, data []byte) (string, error)
	Delete(relPath string) error
}

// Recorder is the slice of the metadata store the coordinator needs.
type Recorder interface {
	Insert(ctx context.Context, item *database.MediaItem) (int64, error)
}

// ThumbFunc synthesizes a small JPEG preview from raw image bytes.
type ThumbFunc func(data []byte) ([]byte, error)

// Upload is one file handed to the coordinator.
type Upload struct {
	Name   string
	Kind   mediatypes.MediaKind
	Data   []byte
	Source interpret.Source
}

// Result reports a completed ingest. Degraded is set when the blob
// write failed and the bytes were preserved inline instead.
type Result struct {
	Item     *database.MediaItem `json:"item"`
	Degraded bool                `json:"degraded,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
}

// Coordinator performs the blob-then-metadata dual write.
type Coordinator struct {
	blobs   BlobWriter
	records Recorder
	thumb   ThumbFunc // optional; nil skips preview generation
}

// New creates a Coordinator. thumb may be nil.
func New(blobs BlobWriter, records Recorder, thumb ThumbFunc) *Coordinator {
	return &Coordinator{blobs: blobs, records: records, thumb: thumb}
}

// SourceForFilename derives the interpreter variant from the upload
// filename convention: ChatGPT exports are named "ChatGPT Image ...".
func SourceForFilename(name string) interpret.Source {
	if strings.HasPrefix(strings.ToLower(name), "chatgpt") {
		return interpret.SourceChatGPT
	}
	return interpret.SourceGeneric
}

// Ingest catalogues one file. The two writes are strictly ordered:
// the metadata insert never starts until the blob write's outcome is
// known, because the record's shape depends on it.
func (c *Coordinator) Ingest(ctx context.Context, up Upload) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}()

	if len(up.Data) == 0 {
		metrics.IngestTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("empty upload %q", up.Name)
	}
	if !up.Kind.Valid() {
		metrics.IngestTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("invalid media kind %q", up.Kind)
	}

	item, warnings := c.buildItem(up)

	relPath, blobErr := c.blobs.Write(up.Kind, up.Name, up.Data)
	if blobErr != nil {
		return c.ingestDegraded(ctx, up, item, warnings, blobErr)
	}

	// Blob write succeeded: the file on disk is the authoritative byte
	// source, the record carries only the path.
	item.ServerPath = relPath
	item.ImageData = ""

	if _, err := c.records.Insert(ctx, item); err != nil {
		c.compensate(relPath)
		metrics.IngestTotal.WithLabelValues("rollback").Inc()
		return nil, fmt.Errorf("metadata insert failed for %q: %w", up.Name, err)
	}

	metrics.IngestTotal.WithLabelValues("success").Inc()
	metrics.IngestBytesTotal.Add(float64(len(up.Data)))
	logging.Info("ingested %q as item %d (%s)", up.Name, item.ID, relPath)
	return &Result{Item: item, Warnings: warnings}, nil
}

// ingestDegraded is the fallback path when the blob store is
// unavailable: keep the full payload inline so no bytes are lost.
func (c *Coordinator) ingestDegraded(ctx context.Context, up Upload, item *database.MediaItem, warnings []string, blobErr error) (*Result, error) {
	logging.Warn("blob write failed for %q, storing inline: %v", up.Name, blobErr)

	item.ServerPath = ""
	item.ImageData = base64.StdEncoding.EncodeToString(up.Data)

	if _, err := c.records.Insert(ctx, item); err != nil {
		metrics.IngestTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("ingest failed for %q: blob store: %v; metadata store: %w", up.Name, blobErr, err)
	}

	metrics.IngestTotal.WithLabelValues("fallback").Inc()
	metrics.IngestBytesTotal.Add(float64(len(up.Data)))
	warnings = append(warnings, fmt.Sprintf("stored inline, no server-side copy: %v", blobErr))
	return &Result{Item: item, Degraded: true, Warnings: warnings}, nil
}

// compensate undoes the blob write after a failed metadata insert.
// Best-effort: a failed delete leaves a residual orphan that the
// reconciliation engine can detect later, so the original error is
// surfaced unchanged either way.
func (c *Coordinator) compensate(relPath string) {
	if err := c.blobs.Delete(relPath); err != nil {
		metrics.CompensatingDeleteFailures.Inc()
		logging.Error("compensating delete of %s failed, orphan left for reconciliation: %v", relPath, err)
		return
	}
	logging.Info("rolled back blob %s after metadata failure", relPath)
}

// buildItem runs the parser and interpreter and assembles the record
// shared by both write paths.
func (c *Coordinator) buildItem(up Upload) (*database.MediaItem, []string) {
	item := &database.MediaItem{
		Title:             strings.TrimSuffix(up.Name, filepath.Ext(up.Name)),
		MediaType:         up.Kind,
		DateAdded:         time.Now().UTC().Format(time.RFC3339),
		ThumbnailPosition: database.DefaultThumbnailPosition,
	}

	var warnings []string

	switch up.Kind {
	case mediatypes.KindImage:
		chunks := pngmeta.Parse(up.Data)
		res := interpret.Interpret(chunks, up.Source)
		warnings = res.Warnings

		item.Prompt = res.Info.Prompt
		item.Model = res.Info.Model
		item.Tags = res.Info.Tags
		item.Notes = res.Info.Notes
		if len(chunks) > 0 {
			item.Metadata = chunks
		}

		if c.thumb != nil {
			if thumb, err := c.thumb(up.Data); err == nil {
				item.ThumbnailData = base64.StdEncoding.EncodeToString(thumb)
			} else {
				logging.Debug("thumbnail generation failed for %q: %v", up.Name, err)
			}
		}

	case mediatypes.KindVideo:
		item.Metadata = map[string]string{
			"fileName": up.Name,
			"fileSize": fmt.Sprintf("%d", len(up.Data)),
			"mimeType": mediatypes.MimeForFilename(up.Name),
		}
	}

	for _, w := range warnings {
		logging.Warn("ingest %q: %s", up.Name, w)
	}
	return item, warnings
}
