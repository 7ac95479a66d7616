package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// CreateDirectoryRequest is the body of POST /api/directories.
type CreateDirectoryRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

// RenameDirectoryRequest is the body of PATCH /api/directories/{id}.
type RenameDirectoryRequest struct {
	Name string `json:"name"`
}

// MoveDirectoryRequest is the body of POST /api/directories/{id}/move.
// A null newParentId moves the node to root level.
type MoveDirectoryRequest struct {
	NewParentID *string `json:"newParentId"`
}

// CreateDirectory creates a directory node.
func (h *Handlers) CreateDirectory(w http.ResponseWriter, r *http.Request) {
	var req CreateDirectoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.tree.CreateNode(r.Context(), req.Name, req.ParentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, rec)
}

// GetDirectoryTree returns the reconstructed directory forest.
func (h *Handlers) GetDirectoryTree(w http.ResponseWriter, r *http.Request) {
	roots, err := h.tree.BuildTree(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, roots)
}

// RenameDirectory changes a node's name.
func (h *Handlers) RenameDirectory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req RenameDirectoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.tree.RenameNode(r.Context(), id, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, rec)
}

// MoveDirectory re-parents a node.
func (h *Handlers) MoveDirectory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req MoveDirectoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.tree.MoveNode(r.Context(), id, req.NewParentID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteDirectory removes a node and its whole subtree transactionally.
func (h *Handlers) DeleteDirectory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.tree.DeleteNode(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
