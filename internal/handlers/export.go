package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MTGMAD/ai-media-gallery/internal/database"
	"github.com/MTGMAD/ai-media-gallery/internal/logging"
)

const exportVersion = "1.0"

// ExportDatabase streams the whole catalogue as a JSON document.
func (h *Handlers) ExportDatabase(w http.ResponseWriter, r *http.Request) {
	items, err := h.db.ListAll(r.Context())
	if err != nil {
		logging.Error("export: listing failed: %v", err)
		writeJSONError(w, "Export failed", http.StatusInternalServerError)
		return
	}

	doc := database.ExportDocument{
		Version:    exportVersion,
		ExportDate: time.Now().UTC().Format(time.RFC3339),
		TotalItems: len(items),
		Images:     items,
	}

	filename := fmt.Sprintf("gallery-export-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	writeJSON(w, doc)
}

// ImportResponse summarizes an import run.
type ImportResponse struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportDatabase inserts items from an export document. Ids from the
// source database are discarded so imports append instead of clobber;
// a failing item is reported and the rest continue.
func (h *Handlers) ImportDatabase(w http.ResponseWriter, r *http.Request) {
	var doc database.ExportDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSONError(w, "Invalid export document", http.StatusBadRequest)
		return
	}

	response := ImportResponse{}
	for i := range doc.Images {
		item := doc.Images[i]
		item.ID = 0
		if _, err := h.db.Insert(r.Context(), &item); err != nil {
			logging.Warn("import: item %q failed: %v", item.Title, err)
			response.Errors = append(response.Errors, fmt.Sprintf("%s: %v", item.Title, err))
			continue
		}
		response.Imported++
	}

	logging.Info("import: %d items imported, %d errors", response.Imported, len(response.Errors))
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}
