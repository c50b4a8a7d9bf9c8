package mediatypes

import (
	"path/filepath"
	"strings"
)

// MediaKind classifies an uploaded file. It doubles as the top-level
// directory name of the blob tree, so the values are load-bearing.
type MediaKind string

const (
	// KindImage represents a still image.
	KindImage MediaKind = "image"
	// KindVideo represents a video file.
	KindVideo MediaKind = "video"
)

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	return k == KindImage || k == KindVideo
}

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
	".avif": true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
}

// KindForFilename classifies a filename by extension. Unknown extensions
// default to KindImage since the upload page only accepts media files.
func KindForFilename(name string) MediaKind {
	ext := strings.ToLower(filepath.Ext(name))
	if VideoExtensions[ext] {
		return KindVideo
	}
	return KindImage
}

// MimeForFilename returns the MIME type for a filename, or
// "application/octet-stream" when the extension is unknown.
func MimeForFilename(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
