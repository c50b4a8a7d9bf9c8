// Package mediatypes defines the media kinds handled by the gallery
// and the mappings from file extensions to kinds and MIME types.
package mediatypes
