package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"media-vault/internal/apperr"
)

// InsertDirectory persists a new directory node. The caller (the lifecycle
// manager) is responsible for id and timestamp assignment and for parent
// validation; the store accepts whatever parentId it is handed.
func (d *Database) InsertDirectory(ctx context.Context, rec *DirectoryRecord) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_directory", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO directories (id, parentId, name, createdAt) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.ParentID, rec.Name, rec.CreatedAt.UnixMilli())
	if err != nil {
		err = fmt.Errorf("insert directory %s: %w", rec.ID, err)
		return err
	}
	return nil
}

// GetDirectory retrieves a single directory node by id.
func (d *Database) GetDirectory(ctx context.Context, id string) (*DirectoryRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_directory", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rec, scanErr := scanDirectory(d.db.QueryRowContext(ctx,
		`SELECT id, parentId, name, createdAt FROM directories WHERE id = ?`, id))
	if scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			err = fmt.Errorf("directory %s: %w", id, apperr.ErrNotFound)
			return nil, err
		}
		err = fmt.Errorf("get directory %s: %w", id, scanErr)
		return nil, err
	}
	return rec, nil
}

// ListDirectories returns the full flat node set in one read. Tree
// reconstruction happens in memory in the lifecycle manager.
func (d *Database) ListDirectories(ctx context.Context) ([]DirectoryRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_directories", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, queryErr := d.db.QueryContext(ctx,
		`SELECT id, parentId, name, createdAt FROM directories ORDER BY createdAt, id`)
	if queryErr != nil {
		err = fmt.Errorf("list directories: %w", queryErr)
		return nil, err
	}
	defer rows.Close()

	var records []DirectoryRecord
	for rows.Next() {
		rec, scanErr := scanDirectory(rows)
		if scanErr != nil {
			err = fmt.Errorf("scan directory row: %w", scanErr)
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

// RenameDirectory updates a node's name, leaving createdAt untouched.
// Returns the updated node, or apperr.ErrNotFound for an unknown id.
func (d *Database) RenameDirectory(ctx context.Context, id, name string) (*DirectoryRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("rename_directory", start, err) }()

	d.mu.Lock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, execErr := d.db.ExecContext(ctx,
		`UPDATE directories SET name = ? WHERE id = ?`, name, id)
	d.mu.Unlock()

	if execErr != nil {
		err = fmt.Errorf("rename directory %s: %w", id, execErr)
		return nil, err
	}
	rows, raErr := result.RowsAffected()
	if raErr != nil {
		err = raErr
		return nil, err
	}
	if rows == 0 {
		err = fmt.Errorf("directory %s: %w", id, apperr.ErrNotFound)
		return nil, err
	}

	return d.GetDirectory(ctx, id)
}

// Transaction-scoped helpers for the cascading delete and for move
// validation. They run inside the transaction obtained from BeginBatch
// (which already holds the writer lock), so they must not touch d.mu
// themselves.

// DirectoryExistsTx reports whether a node exists, within a transaction.
func (d *Database) DirectoryExistsTx(tx *sql.Tx, id string) (bool, error) {
	var n int
	err := tx.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM directories WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("directory exists %s: %w", id, err)
	}
	return n > 0, nil
}

// DirectoryChildIDsTx returns the ids of a node's direct children, within a
// transaction.
func (d *Database) DirectoryChildIDsTx(tx *sql.Tx, parentID string) ([]string, error) {
	rows, err := tx.QueryContext(context.Background(),
		`SELECT id FROM directories WHERE parentId = ? ORDER BY createdAt, id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", parentID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DirectoryParentIDsTx returns the id-to-parentId map of the whole node set,
// within a transaction.
func (d *Database) DirectoryParentIDsTx(tx *sql.Tx) (map[string]*string, error) {
	rows, err := tx.QueryContext(context.Background(),
		`SELECT id, parentId FROM directories`)
	if err != nil {
		return nil, fmt.Errorf("list directory parents: %w", err)
	}
	defer rows.Close()

	parents := make(map[string]*string)
	for rows.Next() {
		var id string
		var parentID sql.NullString
		if err := rows.Scan(&id, &parentID); err != nil {
			return nil, err
		}
		if parentID.Valid {
			p := parentID.String
			parents[id] = &p
		} else {
			parents[id] = nil
		}
	}
	return parents, rows.Err()
}

// SetDirectoryParentTx re-parents a node, within a transaction. nil parentID
// moves it to root level.
func (d *Database) SetDirectoryParentTx(tx *sql.Tx, id string, parentID *string) error {
	result, err := tx.ExecContext(context.Background(),
		`UPDATE directories SET parentId = ? WHERE id = ?`, parentID, id)
	if err != nil {
		return fmt.Errorf("move directory %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("directory %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// DeleteDirectoryRowTx removes a single node row, within a transaction.
func (d *Database) DeleteDirectoryRowTx(tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(context.Background(),
		`DELETE FROM directories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete directory %s: %w", id, err)
	}
	return nil
}

// UnlinkMediaInDirectoryTx unfiles every media record referencing the node,
// within a transaction. Records keep their content; only the weak directory
// reference is cleared.
func (d *Database) UnlinkMediaInDirectoryTx(tx *sql.Tx, directoryID string) error {
	_, err := tx.ExecContext(context.Background(),
		`UPDATE media SET directoryId = NULL, revisionTime = ? WHERE directoryId = ?`,
		time.Now().UnixMilli(), directoryID)
	if err != nil {
		return fmt.Errorf("unlink media in %s: %w", directoryID, err)
	}
	return nil
}

// RetireMediaInDirectoryTx soft-deletes every active media record referencing
// the node, within a transaction. Fingerprints survive for dedup history.
func (d *Database) RetireMediaInDirectoryTx(tx *sql.Tx, directoryID string) error {
	_, err := tx.ExecContext(context.Background(),
		`UPDATE media SET isDeleted = 1, revisionTime = ? WHERE directoryId = ? AND isDeleted = 0`,
		time.Now().UnixMilli(), directoryID)
	if err != nil {
		return fmt.Errorf("retire media in %s: %w", directoryID, err)
	}
	return nil
}

func scanDirectory(row rowScanner) (*DirectoryRecord, error) {
	var rec DirectoryRecord
	var parentID sql.NullString
	var createdAt int64

	if err := row.Scan(&rec.ID, &parentID, &rec.Name, &createdAt); err != nil {
		return nil, err
	}

	if parentID.Valid {
		rec.ParentID = &parentID.String
	}
	rec.CreatedAt = time.UnixMilli(createdAt)

	return &rec, nil
}
