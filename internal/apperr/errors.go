// Package apperr defines the sentinel errors shared across the media vault
// core. Callers branch on error kind with errors.Is rather than matching
// message strings.
package apperr

import "errors"

var (
	// ErrUnsupportedType indicates an ingest source that is not a regular,
	// readable file of an accepted image type.
	ErrUnsupportedType = errors.New("unsupported media type")

	// ErrMetadataExtraction indicates a file that passed the type sniff but
	// could not be decoded as an image.
	ErrMetadataExtraction = errors.New("metadata extraction failed")

	// ErrDuplicateRace indicates the fingerprint uniqueness constraint fired
	// at insert time despite a prior negative dedup check.
	ErrDuplicateRace = errors.New("duplicate fingerprint at insert")

	// ErrNotFound indicates an operation referenced a nonexistent media or
	// directory id.
	ErrNotFound = errors.New("not found")

	// ErrStorageIO indicates a filesystem copy, write, or remove failure.
	ErrStorageIO = errors.New("storage i/o failure")

	// ErrTransactionAbort indicates a cascading delete failed partway and the
	// whole operation was rolled back.
	ErrTransactionAbort = errors.New("transaction aborted")

	// ErrInvalidArgument indicates a request that is structurally wrong, such
	// as an empty directory name or a move that would create a cycle.
	ErrInvalidArgument = errors.New("invalid argument")
)
