package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/MTGMAD/ai-media-gallery/internal/database"
	"github.com/MTGMAD/ai-media-gallery/internal/ingest"
	"github.com/MTGMAD/ai-media-gallery/internal/interpret"
	"github.com/MTGMAD/ai-media-gallery/internal/logging"
	"github.com/MTGMAD/ai-media-gallery/internal/mediatypes"

	"github.com/gorilla/mux"
)

// maxUploadSize bounds a single multipart request body.
const maxUploadSize = 512 << 20

// UploadResponse summarizes a batch upload.
type UploadResponse struct {
	Results    []UploadResult `json:"results"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
}

// UploadResult is the outcome for one file in a batch.
type UploadResult struct {
	Filename string         `json:"filename"`
	Error    string         `json:"error,omitempty"`
	Ingest   *ingest.Result `json:"ingest,omitempty"`
}

// Upload accepts one or more files in a multipart form. Files are
// processed sequentially; one failing file does not abort the batch.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONError(w, "Failed to parse upload form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeJSONError(w, "No files in upload", http.StatusBadRequest)
		return
	}

	// An explicit source field overrides the filename heuristic for the
	// whole batch.
	formSource := interpret.Source(r.FormValue("source"))

	response := UploadResponse{Results: make([]UploadResult, 0, len(files))}
	for _, header := range files {
		result := UploadResult{Filename: header.Filename}

		data, err := readMultipartFile(header)
		if err != nil {
			result.Error = fmt.Sprintf("failed to read file: %v", err)
			response.Failed++
			response.Results = append(response.Results, result)
			continue
		}

		source := formSource
		if source == "" {
			source = ingest.SourceForFilename(header.Filename)
		}

		ingested, err := h.ingestor.Ingest(r.Context(), ingest.Upload{
			Name:   header.Filename,
			Kind:   mediatypes.KindForFilename(header.Filename),
			Data:   data,
			Source: source,
		})
		if err != nil {
			logging.Error("upload of %q failed: %v", header.Filename, err)
			result.Error = err.Error()
			response.Failed++
		} else {
			result.Ingest = ingested
			response.Successful++
		}
		response.Results = append(response.Results, result)
	}

	w.Header().Set("Content-Type", "application/json")
	if response.Successful == 0 {
		w.WriteHeader(http.StatusInternalServerError)
	}
	writeJSON(w, response)
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ListMedia returns every catalogued item, newest first.
func (h *Handlers) ListMedia(w http.ResponseWriter, r *http.Request) {
	items, err := h.db.ListAll(r.Context())
	if err != nil {
		logging.Error("list media failed: %v", err)
		writeJSONError(w, "Failed to list media", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, items)
}

// SearchMedia runs a substring search over titles, prompts, models,
// tags, and notes.
func (h *Handlers) SearchMedia(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeJSONError(w, "Query parameter q is required", http.StatusBadRequest)
		return
	}

	items, err := h.db.Search(r.Context(), term)
	if err != nil {
		logging.Error("search %q failed: %v", term, err)
		writeJSONError(w, "Search failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, items)
}

// GetMedia returns one item by id.
func (h *Handlers) GetMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	item, err := h.db.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "Item not found", http.StatusNotFound)
		} else {
			logging.Error("get item %d failed: %v", id, err)
			writeJSONError(w, "Failed to load item", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, item)
}

// updateRequest carries the editable fields of an item. Absent fields
// are left unchanged.
type updateRequest struct {
	Title             *string                     `json:"title"`
	Prompt            *string                     `json:"prompt"`
	Model             *string                     `json:"model"`
	Tags              *string                     `json:"tags"`
	Notes             *string                     `json:"notes"`
	ThumbnailPosition *database.ThumbnailPosition `json:"thumbnailPosition"`
}

// UpdateMedia applies a partial update to one item.
func (h *Handlers) UpdateMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	affected, err := h.db.Update(r.Context(), id, database.UpdateFields{
		Title:             req.Title,
		Prompt:            req.Prompt,
		Model:             req.Model,
		Tags:              req.Tags,
		Notes:             req.Notes,
		ThumbnailPosition: req.ThumbnailPosition,
	})
	if err != nil {
		logging.Error("update item %d failed: %v", id, err)
		writeJSONError(w, "Failed to update item", http.StatusInternalServerError)
		return
	}
	if affected == 0 {
		writeJSONError(w, "Item not found", http.StatusNotFound)
		return
	}

	writeJSONStatus(w, "updated")
}

// DeleteMedia removes an item and its server-side file. The record is
// deleted first; a failed blob delete leaves an orphan the
// reconciliation engine will find.
func (h *Handlers) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	item, err := h.db.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "Item not found", http.StatusNotFound)
		} else {
			logging.Error("delete: load item %d failed: %v", id, err)
			writeJSONError(w, "Failed to load item", http.StatusInternalServerError)
		}
		return
	}

	if _, err := h.db.Delete(r.Context(), id); err != nil {
		logging.Error("delete item %d failed: %v", id, err)
		writeJSONError(w, "Failed to delete item", http.StatusInternalServerError)
		return
	}

	if item.ServerPath != "" {
		if err := h.blobs.Delete(item.ServerPath); err != nil {
			logging.Warn("delete item %d: blob %s not removed: %v", id, item.ServerPath, err)
		}
	}

	writeJSONStatus(w, "deleted")
}

// GetThumbnail serves an item's stored thumbnail.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	item, err := h.db.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "Item not found", http.StatusNotFound)
		} else {
			writeJSONError(w, "Failed to load item", http.StatusInternalServerError)
		}
		return
	}

	// A record without a stored thumbnail falls back to the full image,
	// inline copy first, then the blob file.
	if item.ThumbnailData == "" {
		h.serveFile(w, item)
		return
	}

	thumb, err := base64.StdEncoding.DecodeString(item.ThumbnailData)
	if err != nil {
		logging.Error("item %d thumbnail is not valid base64: %v", id, err)
		writeJSONError(w, "Corrupt thumbnail data", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(thumb)
}

// serveFile writes the item's full bytes, inline copy first, then the
// blob file.
func (h *Handlers) serveFile(w http.ResponseWriter, item *database.MediaItem) {
	if item.ImageData != "" {
		data, err := base64.StdEncoding.DecodeString(item.ImageData)
		if err == nil {
			w.Header().Set("Content-Type", http.DetectContentType(data))
			w.Header().Set("Cache-Control", "public, max-age=86400")
			w.Write(data)
			return
		}
		logging.Error("item %d inline data is not valid base64: %v", item.ID, err)
	}

	if item.ServerPath != "" {
		f, err := h.blobs.Open(item.ServerPath)
		if err != nil {
			logging.Error("item %d: open blob %s failed: %v", item.ID, item.ServerPath, err)
			writeJSONError(w, "Stored file unavailable", http.StatusNotFound)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", mediatypes.MimeForFilename(item.ServerPath))
		w.Header().Set("Cache-Control", "public, max-age=86400")
		io.Copy(w, f)
		return
	}

	writeJSONError(w, "No thumbnail for item", http.StatusNotFound)
}

// GetFile serves an item's original bytes, from the blob tree when a
// server path exists, from the inline copy otherwise.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	item, err := h.db.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "Item not found", http.StatusNotFound)
		} else {
			writeJSONError(w, "Failed to load item", http.StatusInternalServerError)
		}
		return
	}

	if item.ServerPath != "" {
		f, err := h.blobs.Open(item.ServerPath)
		if err != nil {
			logging.Error("item %d: open blob %s failed: %v", id, item.ServerPath, err)
			writeJSONError(w, "Stored file unavailable", http.StatusNotFound)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", mediatypes.MimeForFilename(item.ServerPath))
		w.Header().Set("Cache-Control", "public, max-age=86400")
		io.Copy(w, f)
		return
	}

	if item.ImageData == "" {
		writeJSONError(w, "Item has no stored bytes", http.StatusNotFound)
		return
	}

	data, err := base64.StdEncoding.DecodeString(item.ImageData)
	if err != nil {
		logging.Error("item %d inline data is not valid base64: %v", id, err)
		writeJSONError(w, "Corrupt inline data", http.StatusInternalServerError)
		return
	}

	// Inline payloads carry no filename, so sniff the content type.
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

// StatsResponse combines metadata store and blob tree figures.
type StatsResponse struct {
	database.Stats
	BlobFiles int   `json:"blobFiles"`
	BlobBytes int64 `json:"blobBytes"`
}

// GetStats reports catalogue and storage statistics.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.Stats(r.Context())
	if err != nil {
		logging.Error("stats query failed: %v", err)
		writeJSONError(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}

	response := StatsResponse{Stats: stats}
	if files, err := h.blobs.ListAll(); err == nil {
		response.BlobFiles = len(files)
		for _, f := range files {
			response.BlobBytes += f.Size
		}
	} else {
		logging.Warn("stats: blob tree listing failed: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

func itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, "Invalid item id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
