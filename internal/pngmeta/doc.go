// Package pngmeta extracts textual metadata from PNG files.
//
// AI image generators (ComfyUI, Automatic1111, ChatGPT exports) embed
// their generation parameters in PNG text chunks. Parse walks the chunk
// stream and decodes tEXt, zTXt and iTXt chunks into a keyword-to-text
// map without requiring the file to be a structurally valid PNG.
package pngmeta
