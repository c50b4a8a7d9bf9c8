package handlers

import (
	"net/http"

	"github.com/MTGMAD/ai-media-gallery/internal/logging"
)

// ReconcileScan audits the blob tree against the metadata store and
// reports drift without modifying anything.
func (h *Handlers) ReconcileScan(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.Scan(r.Context())
	if err != nil {
		logging.Error("reconciliation scan failed: %v", err)
		writeJSONError(w, "Reconciliation scan failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, report)
}

// CleanupOrphans deletes blob files no record references.
func (h *Handlers) CleanupOrphans(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.CleanupOrphans(r.Context())
	if err != nil {
		logging.Error("orphan cleanup failed: %v", err)
		writeJSONError(w, "Orphan cleanup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, report)
}

// RunReclaim strips redundant inline payloads from records that have
// a server-side copy.
func (h *Handlers) RunReclaim(w http.ResponseWriter, r *http.Request) {
	report, err := h.reclaimer.Run(r.Context())
	if err != nil {
		logging.Error("reclaim pass failed: %v", err)
		writeJSONError(w, "Reclaim pass failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, report)
}
