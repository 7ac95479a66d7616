// Package handlers implements the HTTP JSON API over the vault core:
// media ingest and catalog operations, directory lifecycle operations,
// and health/version endpoints.
package handlers
