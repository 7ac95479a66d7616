package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP decode support

	"media-vault/internal/apperr"
	"media-vault/internal/database"
	"media-vault/internal/filesystem"
	"media-vault/internal/logging"
	"media-vault/internal/mediatypes"
	"media-vault/internal/metrics"
	"media-vault/internal/preview"
	"media-vault/internal/store"
)

// Status classifies the outcome of a single-path ingest.
type Status string

const (
	// StatusIngested means a new media record was created.
	StatusIngested Status = "ingested"
	// StatusDuplicate means the content already exists in the catalog.
	// Duplicate detection is a recognized outcome, not an error.
	StatusDuplicate Status = "duplicate"
	// StatusFailed means the ingest failed; Err carries the cause.
	StatusFailed Status = "failed"
)

// Outcome is the per-path result of an ingest.
type Outcome struct {
	Path       string                `json:"path"`
	Status     Status                `json:"status"`
	Record     *database.MediaRecord `json:"record,omitempty"`     // set when ingested
	ExistingID string                `json:"existingId,omitempty"` // set when duplicate
	Err        error                 `json:"-"`
	Error      string                `json:"error,omitempty"` // string form of Err for the adapter layer
}

// Pipeline turns source file paths into validated, stored, indexed media
// records. Each call is independent; concurrent calls never contend on the
// same container because the namespace is partitioned by generated id.
type Pipeline struct {
	db     *database.Database
	store  *store.Store
	thumbs *preview.Generator
	retry  filesystem.RetryConfig
}

// New creates a Pipeline over the given catalog, content store, and
// thumbnail generator.
func New(db *database.Database, st *store.Store, thumbs *preview.Generator) *Pipeline {
	return &Pipeline{
		db:     db,
		store:  st,
		thumbs: thumbs,
		retry:  filesystem.DefaultRetryConfig(),
	}
}

// IngestOne runs the full ingest pipeline for a single source path:
// validate, fingerprint, dedup-check, copy, extract, thumbnail, persist.
// Once the on-disk container is created the pipeline either completes or
// rolls the container back; a failed ingest never leaves an orphan behind.
func (p *Pipeline) IngestOne(ctx context.Context, path string) Outcome {
	start := time.Now()
	out := p.ingestOne(ctx, path)
	metrics.IngestDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	metrics.IngestTotal.WithLabelValues(string(out.Status)).Inc()
	if out.Err != nil {
		out.Error = out.Err.Error()
	}
	return out
}

func (p *Pipeline) ingestOne(ctx context.Context, path string) Outcome {
	fail := func(err error) Outcome {
		logging.Debug("ingest failed for %s: %v", path, err)
		return Outcome{Path: path, Status: StatusFailed, Err: err}
	}

	// Step 1: the source must be a regular, readable file of an accepted
	// image type. Nothing has side effects yet.
	info, err := filesystem.StatWithRetry(path, p.retry)
	if err != nil {
		return fail(fmt.Errorf("%s: %w: %w", path, apperr.ErrUnsupportedType, err))
	}
	if !info.Mode().IsRegular() {
		return fail(fmt.Errorf("%s is not a regular file: %w", path, apperr.ErrUnsupportedType))
	}

	data, err := filesystem.ReadFileWithRetry(path, p.retry)
	if err != nil {
		return fail(fmt.Errorf("%s: %w: %w", path, apperr.ErrUnsupportedType, err))
	}

	format := mediatypes.Sniff(data)
	if !mediatypes.IsAccepted(format) {
		return fail(fmt.Errorf("%s: %w", path, apperr.ErrUnsupportedType))
	}

	// Step 2: content fingerprint over the full byte content.
	hashStart := time.Now()
	sum := sha256.Sum256(data)
	fingerprint := hex.EncodeToString(sum[:])
	metrics.IngestDuration.WithLabelValues("fingerprint").Observe(time.Since(hashStart).Seconds())

	// Step 3: dedup fast path. The lookup spans soft-deleted records; the
	// dedup key is global. This check is an optimization only — the unique
	// constraint at insert time is what actually serializes a race.
	existing, err := p.db.FindMediaByFingerprint(ctx, fingerprint)
	if err == nil {
		logging.Debug("duplicate content for %s: existing record %s", path, existing.ID)
		return Outcome{Path: path, Status: StatusDuplicate, ExistingID: existing.ID}
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return fail(fmt.Errorf("dedup lookup for %s: %w", path, err))
	}

	// Step 4: new id, independent of the fingerprint.
	id := NewMediaID()
	originalFileName := filepath.Base(path)

	// Step 5: dedicated on-disk container with a verbatim copy. From here
	// on, every failure must tear the container down again.
	copyStart := time.Now()
	if err := p.store.CreateContainer(id); err != nil {
		return fail(err)
	}
	originalPath, err := p.store.WriteOriginal(id, originalFileName, data)
	if err != nil {
		p.cleanup(id)
		return fail(err)
	}
	metrics.IngestDuration.WithLabelValues("copy").Observe(time.Since(copyStart).Seconds())

	// Step 6: decode for intrinsic properties. A file can pass the type
	// sniff and still be corrupt; that aborts with no partial catalog entry.
	extractStart := time.Now()
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		p.cleanup(id)
		return fail(fmt.Errorf("decode %s: %w: %w", path, apperr.ErrMetadataExtraction, err))
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		p.cleanup(id)
		return fail(fmt.Errorf("decode %s: empty image: %w", path, apperr.ErrMetadataExtraction))
	}
	metrics.IngestDuration.WithLabelValues("extract").Observe(time.Since(extractStart).Seconds())

	// Step 7: thumbnail next to the original.
	thumbStart := time.Now()
	thumbData, err := p.thumbs.Render(img, originalPath)
	if err != nil {
		p.cleanup(id)
		return fail(fmt.Errorf("thumbnail for %s: %w: %w", path, apperr.ErrMetadataExtraction, err))
	}
	thumbnailPath, err := p.store.WriteThumbnail(id, thumbData)
	if err != nil {
		p.cleanup(id)
		return fail(err)
	}
	metrics.IngestDuration.WithLabelValues("thumbnail").Observe(time.Since(thumbStart).Seconds())

	// Step 8: persist. The insert is the serialization point for concurrent
	// ingestions of identical content; losing the race fails explicitly.
	now := time.Now()
	ext := mediatypes.Ext(originalFileName)
	rec := &database.MediaRecord{
		ID:                 id,
		ContentFingerprint: fingerprint,
		Name:               strings.TrimSuffix(originalFileName, filepath.Ext(originalFileName)),
		OriginalFileName:   originalFileName,
		Ext:                ext,
		MimeType:           mediatypes.MimeType(format),
		Width:              width,
		Height:             height,
		Size:               int64(len(data)),
		CreatedAt:          now,
		RevisionTime:       now,
		URL:                originalPath,
		ThumbnailURL:       thumbnailPath,
		PerceptualHash:     averageHash(img),
	}

	insertStart := time.Now()
	if err := p.db.CreateMedia(ctx, rec); err != nil {
		p.cleanup(id)
		return fail(fmt.Errorf("persist %s: %w", path, err))
	}
	metrics.IngestDuration.WithLabelValues("insert").Observe(time.Since(insertStart).Seconds())

	logging.Info("ingested %s as %s (%dx%d, %d bytes)", path, id, width, height, len(data))
	return Outcome{Path: path, Status: StatusIngested, Record: rec}
}

// cleanup removes a partially created container. Removal is idempotent and
// best-effort; a failure here is logged, not propagated, so the original
// ingest error stays visible to the caller.
func (p *Pipeline) cleanup(id string) {
	if err := p.store.RemoveContainer(id); err != nil {
		logging.Error("failed to clean up container %s: %v", id, err)
	}
}
