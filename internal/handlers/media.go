package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"media-vault/internal/apperr"
	"media-vault/internal/database"
	"media-vault/internal/ingest"
)

// IngestRequest is the body of POST /api/media/ingest.
type IngestRequest struct {
	Paths      []string `json:"paths"`
	Concurrent bool     `json:"concurrent"`
}

// IngestResponse summarizes a batch ingest.
type IngestResponse struct {
	Outcomes   []ingest.Outcome `json:"outcomes"`
	Ingested   int              `json:"ingested"`
	Duplicates int              `json:"duplicates"`
	Failed     int              `json:"failed"`
}

// IngestMedia runs the ingest pipeline over the requested paths.
func (h *Handlers) IngestMedia(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Paths) == 0 {
		writeJSONError(w, "paths must not be empty", http.StatusBadRequest)
		return
	}

	var outcomes []ingest.Outcome
	if req.Concurrent {
		outcomes = h.pipeline.IngestMany(r.Context(), req.Paths)
	} else {
		outcomes = make([]ingest.Outcome, 0, len(req.Paths))
		for _, path := range req.Paths {
			outcomes = append(outcomes, h.pipeline.IngestOne(r.Context(), path))
		}
	}

	resp := IngestResponse{Outcomes: outcomes}
	for _, out := range outcomes {
		switch out.Status {
		case ingest.StatusIngested:
			resp.Ingested++
		case ingest.StatusDuplicate:
			resp.Duplicates++
		case ingest.StatusFailed:
			resp.Failed++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

// ListMedia returns all active media records, newest first.
func (h *Handlers) ListMedia(w http.ResponseWriter, r *http.Request) {
	records, err := h.db.ListMedia(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []database.MediaRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, records)
}

// GetMedia returns a single active media record by id.
func (h *Handlers) GetMedia(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.db.GetMedia(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, rec)
}

// UpdateMedia applies a metadata patch to a media record.
func (h *Handlers) UpdateMedia(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var patch database.MediaUpdate
	if err := decodeJSON(r, &patch); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Filing into a directory goes through existence validation; the media
	// table has no foreign key on directoryId.
	if patch.DirectoryID != nil && !patch.ClearDirectory {
		if _, err := h.db.GetDirectory(r.Context(), *patch.DirectoryID); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	rec, err := h.db.UpdateMedia(r.Context(), id, patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, rec)
}

// DeleteMedia soft-deletes a media record. The container and fingerprint
// stay behind so the content cannot be re-ingested.
func (h *Handlers) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.db.SoftDeleteMedia(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
