package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"media-vault/internal/apperr"
)

const mediaColumns = `id, contentFingerprint, directoryId, name, originalFileName, ext,
	mimeType, width, height, size, score, createdAt, revisionTime, note, url,
	thumbnailUrl, palettes, author, comments, isDeleted, usageCount,
	perceptualHash, durationSeconds`

// CreateMedia inserts a new media record. The fingerprint uniqueness
// constraint is enforced by the store itself: a violation here means a
// concurrent ingest of identical content won the race, reported as
// apperr.ErrDuplicateRace.
func (d *Database) CreateMedia(ctx context.Context, rec *MediaRecord) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_media", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	INSERT INTO media (` + mediaColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = d.db.ExecContext(ctx, query,
		rec.ID,
		rec.ContentFingerprint,
		rec.DirectoryID,
		rec.Name,
		nullString(rec.OriginalFileName),
		rec.Ext,
		nullString(rec.MimeType),
		rec.Width,
		rec.Height,
		rec.Size,
		rec.Score,
		rec.CreatedAt.UnixMilli(),
		rec.RevisionTime.UnixMilli(),
		nullString(rec.Note),
		nullString(rec.URL),
		nullString(rec.ThumbnailURL),
		nullString(rec.Palettes),
		nullString(rec.Author),
		nullString(rec.Comments),
		boolToInt(rec.IsDeleted),
		rec.UsageCount,
		nullString(rec.PerceptualHash),
		rec.DurationSeconds,
	)
	if err != nil {
		if isUniqueViolation(err, "media.contentFingerprint") {
			err = fmt.Errorf("fingerprint %s: %w", rec.ContentFingerprint, apperr.ErrDuplicateRace)
			return err
		}
		err = fmt.Errorf("insert media %s: %w", rec.ID, err)
		return err
	}
	return nil
}

// UpdateMedia applies a partial patch to a media record and refreshes the
// revision timestamp. Returns the updated record, or apperr.ErrNotFound if
// the id does not reference an active record.
func (d *Database) UpdateMedia(ctx context.Context, id string, patch MediaUpdate) (*MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_media", start, err) }()

	sets := []string{"revisionTime = ?"}
	args := []interface{}{time.Now().UnixMilli()}

	if patch.ClearDirectory {
		sets = append(sets, "directoryId = NULL")
	} else if patch.DirectoryID != nil {
		sets = append(sets, "directoryId = ?")
		args = append(args, *patch.DirectoryID)
	}
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Score != nil {
		sets = append(sets, "score = ?")
		args = append(args, *patch.Score)
	}
	if patch.Note != nil {
		sets = append(sets, "note = ?")
		args = append(args, *patch.Note)
	}
	if patch.Author != nil {
		sets = append(sets, "author = ?")
		args = append(args, *patch.Author)
	}
	if patch.Comments != nil {
		sets = append(sets, "comments = ?")
		args = append(args, *patch.Comments)
	}
	if patch.Palettes != nil {
		sets = append(sets, "palettes = ?")
		args = append(args, *patch.Palettes)
	}
	if patch.UsageCount != nil {
		sets = append(sets, "usageCount = ?")
		args = append(args, *patch.UsageCount)
	}

	args = append(args, id)

	d.mu.Lock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := "UPDATE media SET " + strings.Join(sets, ", ") + " WHERE id = ? AND isDeleted = 0"
	result, execErr := d.db.ExecContext(ctx, query, args...)
	d.mu.Unlock()

	if execErr != nil {
		err = fmt.Errorf("update media %s: %w", id, execErr)
		return nil, err
	}
	rows, raErr := result.RowsAffected()
	if raErr != nil {
		err = raErr
		return nil, err
	}
	if rows == 0 {
		err = fmt.Errorf("media %s: %w", id, apperr.ErrNotFound)
		return nil, err
	}

	return d.GetMedia(ctx, id)
}

// GetMedia retrieves a media record by id, excluding soft-deleted records.
func (d *Database) GetMedia(ctx context.Context, id string) (*MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_media", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = ? AND isDeleted = 0`

	rec, scanErr := scanMedia(d.db.QueryRowContext(ctx, query, id))
	if scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			err = fmt.Errorf("media %s: %w", id, apperr.ErrNotFound)
			return nil, err
		}
		err = fmt.Errorf("get media %s: %w", id, scanErr)
		return nil, err
	}
	return rec, nil
}

// ListMedia returns all active (non-deleted) media records, newest first.
func (d *Database) ListMedia(ctx context.Context) ([]MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_media", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `SELECT ` + mediaColumns + ` FROM media WHERE isDeleted = 0 ORDER BY createdAt DESC, id`

	rows, queryErr := d.db.QueryContext(ctx, query)
	if queryErr != nil {
		err = fmt.Errorf("list media: %w", queryErr)
		return nil, err
	}
	defer rows.Close()

	var records []MediaRecord
	for rows.Next() {
		rec, scanErr := scanMedia(rows)
		if scanErr != nil {
			err = fmt.Errorf("scan media row: %w", scanErr)
			return nil, err
		}
		records = append(records, *rec)
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FindMediaByFingerprint looks up a record by content fingerprint. The dedup
// key is global: soft-deleted records are included so re-ingesting deleted
// content still short-circuits as a duplicate.
func (d *Database) FindMediaByFingerprint(ctx context.Context, fingerprint string) (*MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("find_fingerprint", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `SELECT ` + mediaColumns + ` FROM media WHERE contentFingerprint = ?`

	rec, scanErr := scanMedia(d.db.QueryRowContext(ctx, query, fingerprint))
	if scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			err = fmt.Errorf("fingerprint %s: %w", fingerprint, apperr.ErrNotFound)
			return nil, err
		}
		err = fmt.Errorf("find fingerprint %s: %w", fingerprint, scanErr)
		return nil, err
	}
	return rec, nil
}

// SoftDeleteMedia marks a record deleted without removing it, preserving the
// fingerprint for dedup history and potential restore.
func (d *Database) SoftDeleteMedia(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("soft_delete_media", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, execErr := d.db.ExecContext(ctx,
		`UPDATE media SET isDeleted = 1, revisionTime = ? WHERE id = ? AND isDeleted = 0`,
		time.Now().UnixMilli(), id)
	if execErr != nil {
		err = fmt.Errorf("soft delete media %s: %w", id, execErr)
		return err
	}
	rows, raErr := result.RowsAffected()
	if raErr != nil {
		err = raErr
		return err
	}
	if rows == 0 {
		err = fmt.Errorf("media %s: %w", id, apperr.ErrNotFound)
		return err
	}
	return nil
}

// HardDeleteMedia removes a row unconditionally. Cleanup and testing only;
// normal deletion is the soft-delete path.
func (d *Database) HardDeleteMedia(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("hard_delete_media", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, execErr := d.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	if execErr != nil {
		err = fmt.Errorf("hard delete media %s: %w", id, execErr)
		return err
	}
	rows, raErr := result.RowsAffected()
	if raErr != nil {
		err = raErr
		return err
	}
	if rows == 0 {
		err = fmt.Errorf("media %s: %w", id, apperr.ErrNotFound)
		return err
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanMedia.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMedia(row rowScanner) (*MediaRecord, error) {
	var rec MediaRecord
	var (
		directoryID      sql.NullString
		originalFileName sql.NullString
		mimeType         sql.NullString
		note             sql.NullString
		url              sql.NullString
		thumbnailURL     sql.NullString
		palettes         sql.NullString
		author           sql.NullString
		comments         sql.NullString
		perceptualHash   sql.NullString
		fingerprint      sql.NullString
		createdAt        int64
		revisionTime     int64
		isDeleted        int
	)

	err := row.Scan(
		&rec.ID, &fingerprint, &directoryID, &rec.Name, &originalFileName, &rec.Ext,
		&mimeType, &rec.Width, &rec.Height, &rec.Size, &rec.Score, &createdAt,
		&revisionTime, &note, &url, &thumbnailURL, &palettes, &author, &comments,
		&isDeleted, &rec.UsageCount, &perceptualHash, &rec.DurationSeconds,
	)
	if err != nil {
		return nil, err
	}

	rec.ContentFingerprint = fingerprint.String
	if directoryID.Valid {
		rec.DirectoryID = &directoryID.String
	}
	rec.OriginalFileName = originalFileName.String
	rec.MimeType = mimeType.String
	rec.Note = note.String
	rec.URL = url.String
	rec.ThumbnailURL = thumbnailURL.String
	rec.Palettes = palettes.String
	rec.Author = author.String
	rec.Comments = comments.String
	rec.PerceptualHash = perceptualHash.String
	rec.CreatedAt = time.UnixMilli(createdAt)
	rec.RevisionTime = time.UnixMilli(revisionTime)
	rec.IsDeleted = isDeleted != 0

	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
