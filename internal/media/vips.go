package media

import (
	"fmt"
	"sync"

	"github.com/MTGMAD/ai-media-gallery/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitMutex   sync.Mutex
	vipsInitialized bool
	vipsAvailable   bool
)

// InitVips initializes libvips. Call once at startup; safe to call
// repeatedly. When vips cannot start, thumbnail generation silently
// uses the pure-Go pipeline instead.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Forward vips internal logging to our logger, suppressing noise
	// below warning level unless debug logging is on.
	vipsLevel := vips.LogLevelWarning
	if logging.IsDebugEnabled() {
		vipsLevel = vips.LogLevelInfo
	}
	vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
		switch {
		case level <= vips.LogLevelError:
			logging.Error("[vips:%s] %s", domain, msg)
		case level == vips.LogLevelWarning:
			logging.Warn("[vips:%s] %s", domain, msg)
		default:
			logging.Debug("[vips:%s] %s", domain, msg)
		}
	}, vipsLevel)

	// Conservative memory settings: thumbnails are small and sequential.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
	return nil
}

// ShutdownVips releases libvips resources.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable reports whether the vips fast path can be used.
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// vipsThumbnail shrinks at decode time, which avoids materializing the
// full-resolution image in memory.
func vipsThumbnail(data []byte, size int) ([]byte, error) {
	ref, err := vips.NewThumbnailFromBuffer(data, size, size, vips.InterestingNone)
	if err != nil {
		return nil, fmt.Errorf("vips thumbnail failed: %w", err)
	}
	defer ref.Close()

	out, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:       thumbnailQuality,
		StripMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}
	return out, nil
}
