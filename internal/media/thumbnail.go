package media

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"time"

	"github.com/MTGMAD/ai-media-gallery/internal/logging"
	"github.com/MTGMAD/ai-media-gallery/internal/metrics"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// ThumbnailSize bounds both thumbnail dimensions.
	ThumbnailSize = 200

	// thumbnailQuality is deliberately low; the preview only has to
	// survive a 200px cell in the gallery grid.
	thumbnailQuality = 60
)

// Thumbnail produces a bounded, aspect-preserving JPEG preview from raw
// image bytes. The vips fast path is tried first when initialized; any
// vips failure falls through to the pure-Go pipeline.
func Thumbnail(data []byte) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds())
	}()

	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}

	if IsVipsAvailable() {
		thumb, err := vipsThumbnail(data, ThumbnailSize)
		if err == nil {
			metrics.ThumbnailGenerationsTotal.WithLabelValues("vips", "success").Inc()
			return thumb, nil
		}
		metrics.ThumbnailGenerationsTotal.WithLabelValues("vips", "error").Inc()
		logging.Debug("vips thumbnail failed (%s input): %v, falling back to imaging", DetectFormat(data), err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("imaging", "error").Inc()
		return nil, fmt.Errorf("failed to decode image (%s): %w", DetectFormat(data), err)
	}

	thumb := imaging.Fit(img, ThumbnailSize, ThumbnailSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("imaging", "error").Inc()
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues("imaging", "success").Inc()
	return buf.Bytes(), nil
}

// DetectFormat sniffs the image format from magic bytes. Used only for
// diagnostics; decoding relies on the registered image decoders.
func DetectFormat(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "jpeg"

	case len(data) >= 4 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return "png"

	case len(data) >= 4 && data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38:
		return "gif"

	case len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50:
		return "webp"

	case len(data) >= 2 && data[0] == 0x42 && data[1] == 0x4D:
		return "bmp"

	case len(data) >= 4 && ((data[0] == 0x49 && data[1] == 0x49 && data[2] == 0x2A && data[3] == 0x00) ||
		(data[0] == 0x4D && data[1] == 0x4D && data[2] == 0x00 && data[3] == 0x2A)):
		return "tiff"
	}

	return "unknown"
}
