// Package media generates small preview thumbnails from in-memory
// image bytes.
//
// Thumbnails are bounded to 200x200 pixels, aspect-preserving, and
// re-encoded as low-quality JPEG. When libvips is available it is used
// for decode-time shrinking; otherwise a pure-Go pipeline based on
// disintegration/imaging takes over.
package media
