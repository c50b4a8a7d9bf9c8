package database

import "github.com/MTGMAD/ai-media-gallery/internal/mediatypes"

// ThumbnailPosition is the focal point for cropped gallery display, as
// percentages of the image dimensions. The default is top-weighted
// rather than centered since faces and subjects usually sit in the
// upper part of generated images.
type ThumbnailPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DefaultThumbnailPosition is applied to new items.
var DefaultThumbnailPosition = ThumbnailPosition{X: 50, Y: 25}

// MediaItem is one catalogued media file.
//
// Exactly one byte source is authoritative at any time: ServerPath when
// a blob file exists, ImageData (inline base64) otherwise.
// ThumbnailData is an independent small preview that is always safe to
// drop and regenerate.
type MediaItem struct {
	ID                int64                `json:"id"`
	Title             string               `json:"title"`
	Prompt            string               `json:"prompt"`
	Model             string               `json:"model"`
	Tags              string               `json:"tags"`
	Notes             string               `json:"notes"`
	DateAdded         string               `json:"dateAdded"` // ISO-8601
	MediaType         mediatypes.MediaKind `json:"mediaType"`
	ImageData         string               `json:"imageData,omitempty"`
	ThumbnailData     string               `json:"thumbnailData,omitempty"`
	ServerPath        string               `json:"serverPath,omitempty"`
	ThumbnailPosition ThumbnailPosition    `json:"thumbnailPosition"`
	Metadata          map[string]string    `json:"metadata,omitempty"`
}

// UpdateFields is a partial update: only non-nil fields are written.
// Updates are last-write-wins at the field-set level; there is no
// record versioning.
type UpdateFields struct {
	Title             *string
	Prompt            *string
	Model             *string
	Tags              *string
	Notes             *string
	ImageData         *string
	ThumbnailData     *string
	ServerPath        *string
	ThumbnailPosition *ThumbnailPosition
}

// Stats summarizes the metadata store contents.
type Stats struct {
	Total       int   `json:"total"`
	Images      int   `json:"images"`
	Videos      int   `json:"videos"`
	InlineBytes int64 `json:"inlineBytes"`
}

// ExportDocument is the full-corpus export/import format.
type ExportDocument struct {
	Version    string      `json:"version"`
	ExportDate string      `json:"exportDate"`
	TotalItems int         `json:"totalItems"`
	Images     []MediaItem `json:"images"`
}
