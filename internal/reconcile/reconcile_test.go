package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/MTGMAD/ai-media-gallery/internal/blobstore"
	"github.com/MTGMAD/ai-media-gallery/internal/database"
)

type stubBlobs struct {
	files     []blobstore.FileInfo
	listErr   error
	deleteErr map[string]error

	deleted []string
}

func (s *stubBlobs) ListAll() ([]blobstore.FileInfo, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.files, nil
}

func (s *stubBlobs) Stat(relPath string) (blobstore.FileInfo, error) {
	rel := blobstore.Normalize(relPath)
	for _, f := range s.files {
		if f.Path == rel {
			return f, nil
		}
	}
	return blobstore.FileInfo{}, blobstore.ErrNotFound
}

func (s *stubBlobs) Delete(relPath string) error {
	if err := s.deleteErr[relPath]; err != nil {
		return err
	}
	s.deleted = append(s.deleted, relPath)
	for i, f := range s.files {
		if f.Path == relPath {
			s.files = append(s.files[:i], s.files[i+1:]...)
			break
		}
	}
	return nil
}

type stubRecords struct {
	items   []database.MediaItem
	listErr error
}

func (s *stubRecords) ListAll(context.Context) ([]database.MediaItem, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.items, nil
}

func files(paths ...string) []blobstore.FileInfo {
	out := make([]blobstore.FileInfo, len(paths))
	for i, p := range paths {
		out[i] = blobstore.FileInfo{Path: p, Size: 100}
	}
	return out
}

func TestScanDrift(t *testing.T) {
	t.Parallel()

	blobs := &stubBlobs{files: files(
		"image/2025-06-01/1_a.png",
		"image/2025-06-01/2_b.png",
		"image/2025-06-01/3_c.png",
		"image/2025-06-02/4_d.png",
		"video/2025-06-02/5_e.mp4",
	)}
	records := &stubRecords{items: []database.MediaItem{
		{ID: 1, Title: "a", ServerPath: "image/2025-06-01/1_a.png"},
		{ID: 2, Title: "b", ServerPath: "image/2025-06-01/2_b.png"},
		{ID: 3, Title: "inline only"},
	}}

	report, err := New(blobs, records).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if report.TotalFiles != 5 || report.TotalRecords != 3 {
		t.Errorf("totals = %d files, %d records", report.TotalFiles, report.TotalRecords)
	}
	if len(report.OrphanFiles) != 3 {
		t.Errorf("orphans = %d, want 3", len(report.OrphanFiles))
	}
	if len(report.DanglingRecords) != 0 {
		t.Errorf("dangling = %d, want 0", len(report.DanglingRecords))
	}
	// 5 entries in the larger store, 3 drifted: (5-3)/5 = 40.
	if report.IntegrityScore != 40 {
		t.Errorf("IntegrityScore = %d, want 40", report.IntegrityScore)
	}
}

func TestScanDanglingRecord(t *testing.T) {
	t.Parallel()

	blobs := &stubBlobs{files: files("image/2025-06-01/1_a.png")}
	records := &stubRecords{items: []database.MediaItem{
		{ID: 1, Title: "a", ServerPath: "image/2025-06-01/1_a.png"},
		{ID: 2, Title: "gone", ServerPath: "image/2025-06-01/9_gone.png"},
	}}

	report, err := New(blobs, records).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(report.DanglingRecords) != 1 {
		t.Fatalf("dangling = %d, want 1", len(report.DanglingRecords))
	}
	d := report.DanglingRecords[0]
	if d.ID != 2 || d.ServerPath != "image/2025-06-01/9_gone.png" {
		t.Errorf("dangling record = %+v", d)
	}
	if d.Reason == "" {
		t.Error("dangling record carries no reason")
	}
	// 2 entries, 1 issue: score 50.
	if report.IntegrityScore != 50 {
		t.Errorf("IntegrityScore = %d, want 50", report.IntegrityScore)
	}
}

func TestScanEmptyStoresIsHealthy(t *testing.T) {
	t.Parallel()

	report, err := New(&stubBlobs{}, &stubRecords{}).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if report.IntegrityScore != 100 {
		t.Errorf("IntegrityScore = %d, want 100 for empty stores", report.IntegrityScore)
	}
}

func TestScanNormalizesRecordPaths(t *testing.T) {
	t.Parallel()

	blobs := &stubBlobs{files: files("image/2025-06-01/1_a.png")}
	records := &stubRecords{items: []database.MediaItem{
		{ID: 1, ServerPath: `/image\2025-06-01\1_a.png`},
	}}

	report, err := New(blobs, records).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(report.OrphanFiles) != 0 {
		t.Errorf("orphans = %d, windows-style path should still match", len(report.OrphanFiles))
	}
}

func TestScanAbortsOnListFailure(t *testing.T) {
	t.Parallel()

	if _, err := New(&stubBlobs{listErr: errors.New("io error")}, &stubRecords{}).Scan(context.Background()); err == nil {
		t.Error("Scan() ignored a blob list failure")
	}
	if _, err := New(&stubBlobs{}, &stubRecords{listErr: errors.New("db locked")}).Scan(context.Background()); err == nil {
		t.Error("Scan() ignored a record list failure")
	}
}

func TestCleanupOrphans(t *testing.T) {
	t.Parallel()

	blobs := &stubBlobs{
		files: files(
			"image/2025-06-01/1_keep.png",
			"image/2025-06-01/2_orphan.png",
			"image/2025-06-01/3_stuck.png",
		),
		deleteErr: map[string]error{
			"image/2025-06-01/3_stuck.png": errors.New("permission denied"),
		},
	}
	records := &stubRecords{items: []database.MediaItem{
		{ID: 1, ServerPath: "image/2025-06-01/1_keep.png"},
	}}

	cleanup, err := New(blobs, records).CleanupOrphans(context.Background())
	if err != nil {
		t.Fatalf("CleanupOrphans() error = %v", err)
	}

	if len(cleanup.Deleted) != 1 || cleanup.Deleted[0] != "image/2025-06-01/2_orphan.png" {
		t.Errorf("Deleted = %v", cleanup.Deleted)
	}
	if _, ok := cleanup.Failed["image/2025-06-01/3_stuck.png"]; !ok {
		t.Errorf("Failed = %v, stuck path missing", cleanup.Failed)
	}
	for _, p := range blobs.deleted {
		if p == "image/2025-06-01/1_keep.png" {
			t.Error("cleanup deleted a referenced file")
		}
	}
}

func TestIntegrityScoreFloorsAtZero(t *testing.T) {
	t.Parallel()

	if got := integrityScore(2, 3, 10); got != 0 {
		t.Errorf("integrityScore(2, 3, 10) = %d, want 0", got)
	}
}
