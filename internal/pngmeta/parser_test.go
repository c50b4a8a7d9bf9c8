package pngmeta

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"
)

// buildChunk assembles a single PNG chunk with a correct length header.
// The CRC is zeroed; the parser never validates it.
func buildChunk(chunkType string, payload []byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(len(payload)))
	buf.WriteString(chunkType)
	buf.Write(payload)
	buf.Write([]byte{0, 0, 0, 0})
	return buf.Bytes()
}

func buildPNG(chunks ...[]byte) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	for _, c := range chunks {
		buf.Write(c)
	}
	return buf.Bytes()
}

func textChunk(keyword, text string) []byte {
	payload := append([]byte(keyword), 0)
	payload = append(payload, []byte(text)...)
	return buildChunk("tEXt", payload)
}

func deflate(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write([]byte(text)); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

// TestParseRoundTrip verifies that known keyword/value pairs written as
// tEXt chunks come back exactly.
func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	data := buildPNG(
		textChunk("prompt", `{"1":{"class_type":"KSampler"}}`),
		textChunk("workflow", `{"nodes":[]}`),
		textChunk("Software", "ComfyUI"),
	)

	chunks := Parse(data)

	expected := map[string]string{
		"prompt":   `{"1":{"class_type":"KSampler"}}`,
		"workflow": `{"nodes":[]}`,
		"Software": "ComfyUI",
	}
	if len(chunks) != len(expected) {
		t.Fatalf("got %d chunks, want %d: %v", len(chunks), len(expected), chunks)
	}
	for k, v := range expected {
		if chunks[k] != v {
			t.Errorf("chunks[%q] = %q, want %q", k, chunks[k], v)
		}
	}
}

// TestParseLastWins verifies repeated keywords overwrite earlier values.
func TestParseLastWins(t *testing.T) {
	t.Parallel()

	data := buildPNG(
		textChunk("prompt", "first"),
		textChunk("prompt", "second"),
	)

	chunks := Parse(data)
	if chunks["prompt"] != "second" {
		t.Errorf("chunks[prompt] = %q, want %q", chunks["prompt"], "second")
	}
}

// TestParseNonPNG verifies non-PNG input yields an empty map, not a panic.
func TestParseNonPNG(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte{0x89, 0x50}},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0, 0, 0}},
		{"text", []byte("definitely not a png file at all")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			chunks := Parse(tt.data)
			if chunks == nil {
				t.Fatal("Parse returned nil map")
			}
			if len(chunks) != 0 {
				t.Errorf("got %d chunks, want 0", len(chunks))
			}
		})
	}
}

// TestParseTruncated verifies a declared length running past the buffer
// end stops parsing gracefully.
func TestParseTruncated(t *testing.T) {
	t.Parallel()

	// A chunk claiming 1MB of data but carrying only a few bytes.
	var lying bytes.Buffer
	binary.Write(&lying, binary.BigEndian, uint32(1<<20))
	lying.WriteString("tEXt")
	lying.Write([]byte("key\x00val"))

	data := buildPNG(
		textChunk("before", "survives"),
		lying.Bytes(),
	)

	chunks := Parse(data)
	if chunks["before"] != "survives" {
		t.Errorf("chunk before truncation lost: %v", chunks)
	}
	// The truncated chunk's clamped payload still splits at the null.
	if chunks["key"] != "val" {
		t.Errorf("clamped chunk not recovered: %v", chunks)
	}
}

// TestParseMegabytePayload verifies large values survive intact.
func TestParseMegabytePayload(t *testing.T) {
	t.Parallel()

	big := bytes.Repeat([]byte("x"), 2<<20)
	data := buildPNG(textChunk("workflow", string(big)))

	chunks := Parse(data)
	if len(chunks["workflow"]) != len(big) {
		t.Errorf("workflow length = %d, want %d", len(chunks["workflow"]), len(big))
	}
}

// TestParseZTXt verifies compressed zTXt chunks are inflated.
func TestParseZTXt(t *testing.T) {
	t.Parallel()

	payload := append([]byte("parameters"), 0, 0)
	payload = append(payload, deflate(t, "steps: 20, cfg: 7")...)
	data := buildPNG(buildChunk("zTXt", payload))

	chunks := Parse(data)
	if chunks["parameters"] != "steps: 20, cfg: 7" {
		t.Errorf("chunks[parameters] = %q", chunks["parameters"])
	}
}

// TestParseZTXtCorruptStream verifies a broken zlib stream drops only
// that chunk.
func TestParseZTXtCorruptStream(t *testing.T) {
	t.Parallel()

	payload := append([]byte("parameters"), 0, 0)
	payload = append(payload, []byte{0xde, 0xad, 0xbe, 0xef}...)
	data := buildPNG(
		buildChunk("zTXt", payload),
		textChunk("prompt", "still here"),
	)

	chunks := Parse(data)
	if _, ok := chunks["parameters"]; ok {
		t.Error("corrupt zTXt chunk should be dropped")
	}
	if chunks["prompt"] != "still here" {
		t.Errorf("later chunk lost: %v", chunks)
	}
}

// TestParseITXt covers both uncompressed and compressed iTXt chunks.
func TestParseITXt(t *testing.T) {
	t.Parallel()

	t.Run("uncompressed", func(t *testing.T) {
		t.Parallel()
		payload := append([]byte("Description"), 0, 0, 0) // keyword, flag=0, method=0
		payload = append(payload, []byte("en\x00\x00a starry night")...)
		data := buildPNG(buildChunk("iTXt", payload))

		chunks := Parse(data)
		if chunks["Description"] != "a starry night" {
			t.Errorf("chunks[Description] = %q", chunks["Description"])
		}
	})

	t.Run("compressed", func(t *testing.T) {
		t.Parallel()
		payload := append([]byte("workflow"), 0, 1, 0) // keyword, flag=1, method=0
		payload = append(payload, []byte("\x00\x00")...)
		payload = append(payload, deflate(t, `{"nodes":[]}`)...)
		data := buildPNG(buildChunk("iTXt", payload))

		chunks := Parse(data)
		if chunks["workflow"] != `{"nodes":[]}` {
			t.Errorf("chunks[workflow] = %q", chunks["workflow"])
		}
	})
}

// TestParseSkipsNonTextChunks verifies IHDR/IDAT chunks are passed over
// without affecting text extraction.
func TestParseSkipsNonTextChunks(t *testing.T) {
	t.Parallel()

	ihdr := buildChunk("IHDR", make([]byte, 13))
	idat := buildChunk("IDAT", bytes.Repeat([]byte{0xAB}, 64))
	data := buildPNG(ihdr, idat, textChunk("title", "night sky"))

	chunks := Parse(data)
	if len(chunks) != 1 || chunks["title"] != "night sky" {
		t.Errorf("unexpected chunks: %v", chunks)
	}
}

// TestParseMissingNullSeparator verifies a tEXt payload with no null
// separator is ignored.
func TestParseMissingNullSeparator(t *testing.T) {
	t.Parallel()

	data := buildPNG(buildChunk("tEXt", []byte("no-separator-here")))
	chunks := Parse(data)
	if len(chunks) != 0 {
		t.Errorf("got %d chunks, want 0", len(chunks))
	}
}
