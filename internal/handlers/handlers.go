package handlers

import (
	"time"

	"media-vault/internal/database"
	"media-vault/internal/dirtree"
	"media-vault/internal/ingest"
	"media-vault/internal/store"
)

// Handlers bundles the API dependencies: the catalog, the content store,
// the ingest pipeline, and the directory lifecycle manager.
type Handlers struct {
	db        *database.Database
	store     *store.Store
	pipeline  *ingest.Pipeline
	tree      *dirtree.Manager
	startTime time.Time
}

// New creates the handler set over fully initialized components.
func New(db *database.Database, st *store.Store, pipeline *ingest.Pipeline, tree *dirtree.Manager) *Handlers {
	return &Handlers{
		db:        db,
		store:     st,
		pipeline:  pipeline,
		tree:      tree,
		startTime: time.Now(),
	}
}
