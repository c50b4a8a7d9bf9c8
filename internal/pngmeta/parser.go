package pngmeta

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/MTGMAD/ai-media-gallery/internal/logging"
)

// pngSignature is the start of every PNG file. Only the first four bytes
// are checked, matching the lenient behavior of the upload page: the tail
// of the signature carries line-ending sentinels that some exporters mangle.
var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47}

// maxInflatedChunk caps the inflated size of a compressed text chunk so a
// hostile zlib stream cannot balloon memory. Workflow JSON payloads run to
// a few megabytes at most.
const maxInflatedChunk = 32 << 20

// Parse decodes the text chunks of a PNG buffer into a keyword-to-value
// map. A buffer that does not start with the PNG signature yields an
// empty map. Repeated keywords are last-wins. Malformed chunks, including
// declared lengths that run past the end of the buffer, never cause an
// error; parsing simply stops or skips.
func Parse(data []byte) map[string]string {
	chunks := make(map[string]string)

	if len(data) < len(pngSignature) || !bytes.Equal(data[:4], pngSignature) {
		return chunks
	}

	offset := 8
	for offset+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		chunkType := string(data[offset+4 : offset+8])

		// Clamp to the available bytes so a lying length field cannot
		// send the slice out of bounds.
		dataStart := offset + 8
		dataEnd := dataStart + length
		if length < 0 || dataEnd < dataStart || dataEnd > len(data) {
			dataEnd = len(data)
		}
		payload := data[dataStart:dataEnd]

		switch chunkType {
		case "tEXt":
			if keyword, text, ok := decodeTEXt(payload); ok {
				chunks[keyword] = text
			}
		case "zTXt":
			if keyword, text, ok := decodeZTXt(payload); ok {
				chunks[keyword] = text
			}
		case "iTXt":
			if keyword, text, ok := decodeITXt(payload); ok {
				chunks[keyword] = text
			}
		}

		// Header + data + CRC, regardless of chunk type.
		offset += 8 + length + 4
		if length < 0 || offset < 0 {
			break
		}
	}

	return chunks
}

// decodeTEXt splits a tEXt payload at its null separator.
func decodeTEXt(payload []byte) (string, string, bool) {
	sep := bytes.IndexByte(payload, 0)
	if sep < 0 {
		return "", "", false
	}
	return string(payload[:sep]), string(payload[sep+1:]), true
}

// decodeZTXt decodes keyword, compression method byte and zlib stream.
func decodeZTXt(payload []byte) (string, string, bool) {
	sep := bytes.IndexByte(payload, 0)
	if sep < 0 || sep+2 > len(payload) {
		return "", "", false
	}
	keyword := string(payload[:sep])

	// Only compression method 0 (zlib) is defined.
	if payload[sep+1] != 0 {
		return "", "", false
	}

	text, err := inflate(payload[sep+2:])
	if err != nil {
		logging.Debug("pngmeta: dropping zTXt chunk %q: %v", keyword, err)
		return "", "", false
	}
	return keyword, text, true
}

// decodeITXt decodes an international text chunk:
// keyword \0 compression-flag compression-method language \0
// translated-keyword \0 text. The language and translated keyword are
// read past but not kept; keys are matched on the raw keyword.
func decodeITXt(payload []byte) (string, string, bool) {
	sep := bytes.IndexByte(payload, 0)
	if sep < 0 || sep+3 > len(payload) {
		return "", "", false
	}
	keyword := string(payload[:sep])
	compressed := payload[sep+1] == 1
	rest := payload[sep+3:]

	// Language tag.
	langEnd := bytes.IndexByte(rest, 0)
	if langEnd < 0 {
		return "", "", false
	}
	rest = rest[langEnd+1:]

	// Translated keyword.
	transEnd := bytes.IndexByte(rest, 0)
	if transEnd < 0 {
		return "", "", false
	}
	rest = rest[transEnd+1:]

	if !compressed {
		return keyword, string(rest), true
	}

	text, err := inflate(rest)
	if err != nil {
		logging.Debug("pngmeta: dropping iTXt chunk %q: %v", keyword, err)
		return "", "", false
	}
	return keyword, text, true
}

func inflate(compressed []byte) (string, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", err
	}
	defer zr.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(zr, maxInflatedChunk)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
