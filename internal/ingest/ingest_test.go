package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
	"testing"

	"github.com/MTGMAD/ai-media-gallery/internal/database"
	"github.com/MTGMAD/ai-media-gallery/internal/interpret"
	"github.com/MTGMAD/ai-media-gallery/internal/mediatypes"
)

type stubBlobs struct {
	writeErr  error
	deleteErr error

	written []string
	deleted []string
}

func (s *stubBlobs) Write(kind mediatypes.MediaKind, name string, data []byte) (string, error) {
	if s.writeErr != nil {
		return "", s.writeErr
	}
	rel := fmt.Sprintf("%s/2025-06-01/1748779200000_%s", kind, name)
	s.written = append(s.written, rel)
	return rel, nil
}

func (s *stubBlobs) Delete(relPath string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, relPath)
	return nil
}

type stubRecords struct {
	insertErr error
	items     []*database.MediaItem
}

func (s *stubRecords) Insert(_ context.Context, item *database.MediaItem) (int64, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	item.ID = int64(len(s.items) + 1)
	s.items = append(s.items, item)
	return item.ID, nil
}

// pngWithText builds a minimal PNG carrying one tEXt chunk.
func pngWithText(t *testing.T, keyword, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})

	data := append([]byte(keyword), 0)
	data = append(data, []byte(text)...)

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	buf.Write(length[:])
	chunk := append([]byte("tEXt"), data...)
	buf.Write(chunk)
	var crc [4]byte
	binary.BigEndian.PutUint32(crc[:], crc32.ChecksumIEEE(chunk))
	buf.Write(crc[:])
	return buf.Bytes()
}

func TestIngestSuccess(t *testing.T) {
	t.Parallel()

	blobs := &stubBlobs{}
	records := &stubRecords{}
	c := New(blobs, records, nil)

	payload := pngWithText(t, "parameters", "a castle at dawn\nSteps: 20")
	res, err := c.Ingest(context.Background(), Upload{
		Name:   "castle.png",
		Kind:   mediatypes.KindImage,
		Data:   payload,
		Source: interpret.SourceGeneric,
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if res.Degraded {
		t.Error("Degraded = true on the happy path")
	}
	if res.Item.Title != "castle" {
		t.Errorf("Title = %q, want %q", res.Item.Title, "castle")
	}
	if res.Item.ServerPath == "" {
		t.Error("ServerPath empty after successful blob write")
	}
	if res.Item.ImageData != "" {
		t.Error("ImageData set alongside ServerPath; bytes stored twice")
	}
	if !strings.Contains(res.Item.Prompt, "a castle at dawn") {
		t.Errorf("Prompt = %q, expected A1111 parameters mined", res.Item.Prompt)
	}
	if len(blobs.written) != 1 || len(records.items) != 1 {
		t.Errorf("writes = %d blob, %d record; want exactly one of each", len(blobs.written), len(records.items))
	}
}

func TestIngestRollbackOnMetadataFailure(t *testing.T) {
	t.Parallel()

	blobs := &stubBlobs{}
	records := &stubRecords{insertErr: errors.New("disk full")}
	c := New(blobs, records, nil)

	_, err := c.Ingest(context.Background(), Upload{
		Name: "cat.png",
		Kind: mediatypes.KindImage,
		Data: pngWithText(t, "Software", "ComfyUI"),
	})
	if err == nil {
		t.Fatal("Ingest() succeeded despite metadata failure")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error %q does not surface the insert failure", err)
	}

	if len(blobs.written) != 1 {
		t.Fatalf("blob writes = %d, want 1", len(blobs.written))
	}
	if len(blobs.deleted) != 1 || blobs.deleted[0] != blobs.written[0] {
		t.Errorf("compensating delete targeted %v, want %v", blobs.deleted, blobs.written)
	}
}

func TestIngestRollbackDeleteFailureLeavesOrphan(t *testing.T) {
	t.Parallel()

	blobs := &stubBlobs{deleteErr: errors.New("stale handle")}
	records := &stubRecords{insertErr: errors.New("constraint violated")}
	c := New(blobs, records, nil)

	_, err := c.Ingest(context.Background(), Upload{
		Name: "dog.png",
		Kind: mediatypes.KindImage,
		Data: pngWithText(t, "prompt", `{"1":{"class_type":"CLIPTextEncode","inputs":{"text":"a golden retriever"}}}`),
	})
	if err == nil {
		t.Fatal("Ingest() succeeded despite metadata failure")
	}
	// The original insert error must win over the delete failure.
	if !strings.Contains(err.Error(), "constraint violated") {
		t.Errorf("error %q does not carry the insert failure", err)
	}
	if len(blobs.written) != 1 {
		t.Errorf("blob writes = %d, want 1 residual orphan", len(blobs.written))
	}
}

func TestIngestFallbackInline(t *testing.T) {
	t.Parallel()

	blobs := &stubBlobs{writeErr: errors.New("mount gone")}
	records := &stubRecords{}
	c := New(blobs, records, nil)

	payload := pngWithText(t, "workflow", `{"nodes":[{"type":"KSampler"}]}`)
	res, err := c.Ingest(context.Background(), Upload{
		Name: "render.png",
		Kind: mediatypes.KindImage,
		Data: payload,
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v, want degraded success", err)
	}

	if !res.Degraded {
		t.Error("Degraded = false on the fallback path")
	}
	if res.Item.ServerPath != "" {
		t.Errorf("ServerPath = %q, want empty on fallback", res.Item.ServerPath)
	}
	got, decErr := base64.StdEncoding.DecodeString(res.Item.ImageData)
	if decErr != nil {
		t.Fatalf("ImageData is not valid base64: %v", decErr)
	}
	if !bytes.Equal(got, payload) {
		t.Error("inline ImageData does not round-trip to the original payload")
	}
	if len(res.Warnings) == 0 {
		t.Error("fallback produced no warning")
	}
}

func TestIngestBothStoresFail(t *testing.T) {
	t.Parallel()

	blobs := &stubBlobs{writeErr: errors.New("mount gone")}
	records := &stubRecords{insertErr: errors.New("db locked")}
	c := New(blobs, records, nil)

	_, err := c.Ingest(context.Background(), Upload{
		Name: "lost.png",
		Kind: mediatypes.KindImage,
		Data: []byte("not even a png"),
	})
	if err == nil {
		t.Fatal("Ingest() succeeded with both stores down")
	}
	for _, want := range []string{"mount gone", "db locked"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestIngestVideoMetadata(t *testing.T) {
	t.Parallel()

	blobs := &stubBlobs{}
	records := &stubRecords{}
	c := New(blobs, records, nil)

	data := []byte("fake mp4 bytes")
	res, err := c.Ingest(context.Background(), Upload{
		Name: "clip.mp4",
		Kind: mediatypes.KindVideo,
		Data: data,
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	meta := res.Item.Metadata
	if meta["fileName"] != "clip.mp4" {
		t.Errorf("fileName = %q", meta["fileName"])
	}
	if meta["fileSize"] != fmt.Sprintf("%d", len(data)) {
		t.Errorf("fileSize = %q", meta["fileSize"])
	}
	if meta["mimeType"] != "video/mp4" {
		t.Errorf("mimeType = %q", meta["mimeType"])
	}
}

func TestIngestRejectsEmptyUpload(t *testing.T) {
	t.Parallel()

	c := New(&stubBlobs{}, &stubRecords{}, nil)
	if _, err := c.Ingest(context.Background(), Upload{Name: "void.png", Kind: mediatypes.KindImage}); err == nil {
		t.Error("Ingest() accepted an empty payload")
	}
}

func TestIngestThumbnailBestEffort(t *testing.T) {
	t.Parallel()

	blobs := &stubBlobs{}
	records := &stubRecords{}
	thumb := func(data []byte) ([]byte, error) {
		return []byte("jpeg-bytes"), nil
	}
	c := New(blobs, records, thumb)

	res, err := c.Ingest(context.Background(), Upload{
		Name: "art.png",
		Kind: mediatypes.KindImage,
		Data: pngWithText(t, "Software", "ComfyUI"),
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if res.Item.ThumbnailData != base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")) {
		t.Errorf("ThumbnailData = %q", res.Item.ThumbnailData)
	}

	// A failing generator must not fail the ingest.
	failing := New(&stubBlobs{}, &stubRecords{}, func([]byte) ([]byte, error) {
		return nil, errors.New("decode failed")
	})
	res, err = failing.Ingest(context.Background(), Upload{
		Name: "art2.png",
		Kind: mediatypes.KindImage,
		Data: pngWithText(t, "Software", "ComfyUI"),
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v with failing thumbnailer", err)
	}
	if res.Item.ThumbnailData != "" {
		t.Errorf("ThumbnailData = %q, want empty", res.Item.ThumbnailData)
	}
}

func TestSourceForFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want interpret.Source
	}{
		{"ChatGPT Image Jun 1 2025.png", interpret.SourceChatGPT},
		{"chatgpt-export.png", interpret.SourceChatGPT},
		{"ComfyUI_00042_.png", interpret.SourceGeneric},
		{"photo.png", interpret.SourceGeneric},
	}
	for _, tt := range tests {
		if got := SourceForFilename(tt.name); got != tt.want {
			t.Errorf("SourceForFilename(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
