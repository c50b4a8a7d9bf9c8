package blobstore

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/MTGMAD/ai-media-gallery/internal/logging"
	"github.com/MTGMAD/ai-media-gallery/internal/mediatypes"
	"github.com/MTGMAD/ai-media-gallery/internal/metrics"
)

// ErrNotFound is returned when a blob path does not exist.
var ErrNotFound = errors.New("blob not found")

// FileInfo describes a stored blob.
type FileInfo struct {
	Path    string    `json:"path"` // canonical relative path
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modifiedTime"`
}

// Store is a date-partitioned filesystem blob store rooted at a single
// directory. It is the only component that touches disk for media bytes.
type Store struct {
	root string
	// now is swappable so tests get deterministic filenames.
	now func() time.Time
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &Store{root: abs, now: time.Now}, nil
}

// Root returns the absolute root directory of the store.
func (s *Store) Root() string {
	return s.root
}

// Write stores data under <kind>/<YYYY-MM-DD>/<unixMillis>_<sanitizedName>
// and returns the canonical relative path.
func (s *Store) Write(kind mediatypes.MediaKind, originalName string, data []byte) (string, error) {
	start := time.Now()
	if !kind.Valid() {
		return "", fmt.Errorf("invalid media kind %q", kind)
	}

	now := s.now()
	rel := path.Join(
		string(kind),
		now.Format("2006-01-02"),
		fmt.Sprintf("%d_%s", now.UnixMilli(), SanitizeName(originalName)),
	)

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		recordOp("write", start, err)
		return "", fmt.Errorf("failed to create date directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		recordOp("write", start, err)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	logging.Debug("blobstore: wrote %s (%d bytes)", rel, len(data))
	recordOp("write", start, nil)
	return rel, nil
}

// Delete removes a blob by canonical relative path. Returns ErrNotFound
// when the file does not exist.
func (s *Store) Delete(relPath string) error {
	start := time.Now()
	full, err := s.resolve(relPath)
	if err != nil {
		recordOp("delete", start, err)
		return err
	}

	err = os.Remove(full)
	if errors.Is(err, os.ErrNotExist) {
		recordOp("delete", start, err)
		return ErrNotFound
	}
	if err != nil {
		recordOp("delete", start, err)
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	logging.Debug("blobstore: deleted %s", relPath)
	recordOp("delete", start, nil)
	return nil
}

// Stat reports a blob's size and modification time. Returns ErrNotFound
// when the path does not exist. This is the existence check used for
// dangling-record detection.
func (s *Store) Stat(relPath string) (FileInfo, error) {
	start := time.Now()
	full, err := s.resolve(relPath)
	if err != nil {
		recordOp("stat", start, err)
		return FileInfo{}, err
	}

	info, err := statWithRetry(full)
	if errors.Is(err, os.ErrNotExist) {
		recordOp("stat", start, err)
		return FileInfo{}, ErrNotFound
	}
	if err != nil {
		recordOp("stat", start, err)
		return FileInfo{}, fmt.Errorf("failed to stat blob: %w", err)
	}

	recordOp("stat", start, nil)
	return FileInfo{Path: Normalize(relPath), Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Open returns a reader over a blob's bytes.
func (s *Store) Open(relPath string) (*os.File, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// List walks one kind's subtree (one level of date subdirectories) and
// returns every stored file with stat info.
func (s *Store) List(kind mediatypes.MediaKind) ([]FileInfo, error) {
	start := time.Now()
	kindDir := filepath.Join(s.root, string(kind))

	dates, err := os.ReadDir(kindDir)
	if errors.Is(err, os.ErrNotExist) {
		recordOp("list", start, nil)
		return []FileInfo{}, nil
	}
	if err != nil {
		recordOp("list", start, err)
		return nil, fmt.Errorf("failed to list %s tree: %w", kind, err)
	}

	var files []FileInfo
	for _, dateEntry := range dates {
		if !dateEntry.IsDir() {
			continue
		}
		dateDir := filepath.Join(kindDir, dateEntry.Name())
		entries, err := os.ReadDir(dateDir)
		if err != nil {
			recordOp("list", start, err)
			return nil, fmt.Errorf("failed to list %s: %w", dateEntry.Name(), err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				recordOp("list", start, err)
				return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
			}
			files = append(files, FileInfo{
				Path:    path.Join(string(kind), dateEntry.Name(), entry.Name()),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
		}
	}

	recordOp("list", start, nil)
	return files, nil
}

// ListAll lists every blob across all media kinds.
func (s *Store) ListAll() ([]FileInfo, error) {
	var all []FileInfo
	for _, kind := range []mediatypes.MediaKind{mediatypes.KindImage, mediatypes.KindVideo} {
		files, err := s.List(kind)
		if err != nil {
			return nil, err
		}
		all = append(all, files...)
	}
	return all, nil
}

// resolve maps a canonical relative path to an absolute one, rejecting
// anything that would escape the store root.
func (s *Store) resolve(relPath string) (string, error) {
	rel := Normalize(relPath)
	if rel == "" {
		return "", fmt.Errorf("empty blob path")
	}
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("blob path %q escapes store root", relPath)
	}
	return full, nil
}

// Normalize converts any path representation to the canonical one:
// forward slashes, no leading slash, no internal "." or ".." segments.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// SanitizeName replaces every byte outside [A-Za-z0-9.-] with an
// underscore, keeping stored filenames shell- and URL-safe.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func recordOp(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.BlobOperationsTotal.WithLabelValues(operation, status).Inc()
	metrics.BlobOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
