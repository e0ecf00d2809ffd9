package handler

import (
	"errors"
	"fmt"
	"net/http"
)

var errArchiveDisabled = errors.New("export archiving is not configured")

// Export returns the caller's export document as a download
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.services.Exports.Build(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err, "build export")
		return
	}
	filename := fmt.Sprintf("climbs-%s.json", doc.ExportedAt.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	h.writeJSON(w, http.StatusOK, doc)
}

// ArchiveExport stores the caller's export document in S3
func (h *Handler) ArchiveExport(w http.ResponseWriter, r *http.Request) {
	if h.services.Archiver == nil {
		h.writeError(w, http.StatusServiceUnavailable, errArchiveDisabled)
		return
	}
	doc, err := h.services.Exports.Build(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err, "build export")
		return
	}
	res, err := h.services.Archiver.Archive(r.Context(), doc)
	if err != nil {
		h.writeServiceError(w, r, err, "archive export")
		return
	}
	h.writeCreated(w, res)
}
