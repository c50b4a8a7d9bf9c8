package blobstore

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/MTGMAD/ai-media-gallery/internal/logging"
	"github.com/MTGMAD/ai-media-gallery/internal/metrics"
)

// Blob roots frequently live on NFS mounts, where a rename on another
// client can leave this process holding a stale file handle. Stat calls
// retry on ESTALE with a short exponential backoff; all other errors
// surface immediately.
const (
	maxStatRetries = 3
	initialBackoff = 50 * time.Millisecond
	maxBackoff     = 500 * time.Millisecond
)

func isStaleHandle(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

func statWithRetry(path string) (os.FileInfo, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= maxStatRetries; attempt++ {
		info, err := os.Stat(path)
		if err == nil {
			if attempt > 0 {
				logging.Info("blobstore: stat succeeded on retry %d for %s", attempt, path)
			}
			return info, nil
		}

		lastErr = err
		if !isStaleHandle(err) {
			return nil, err
		}

		metrics.BlobStaleErrors.WithLabelValues("stat").Inc()
		if attempt < maxStatRetries {
			metrics.BlobRetryAttempts.WithLabelValues("stat").Inc()
			logging.Debug("blobstore: stale file handle for %s, retrying in %v (attempt %d/%d)",
				path, backoff, attempt+1, maxStatRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	logging.Warn("blobstore: stat failed after %d retries for %s: %v", maxStatRetries, path, lastErr)
	return nil, lastErr
}
