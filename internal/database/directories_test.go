package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"media-vault/internal/apperr"
)

func TestInsertAndGetDirectory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	parent := "p1"
	rec := &DirectoryRecord{ID: "d1", ParentID: &parent, Name: "child", CreatedAt: time.Now()}
	if err := db.InsertDirectory(ctx, rec); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := db.GetDirectory(ctx, "d1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "child" {
		t.Errorf("name = %q, want child", got.Name)
	}
	if got.ParentID == nil || *got.ParentID != "p1" {
		t.Errorf("parent = %v, want p1", got.ParentID)
	}
	if got.CreatedAt.UnixMilli() != rec.CreatedAt.UnixMilli() {
		t.Errorf("createdAt = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}

	if _, err := db.GetDirectory(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListDirectoriesOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	ids := []string{"b", "a", "c"}
	for i, id := range ids {
		rec := &DirectoryRecord{ID: id, Name: id, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := db.InsertDirectory(ctx, rec); err != nil {
			t.Fatalf("insert %s failed: %v", id, err)
		}
	}

	records, err := db.ListDirectories(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// Insertion order by createdAt.
	for i, id := range ids {
		if records[i].ID != id {
			t.Errorf("records[%d] = %s, want %s", i, records[i].ID, id)
		}
	}
}

func TestRenameDirectory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created := time.Now().Add(-time.Minute)
	if err := db.InsertDirectory(ctx, &DirectoryRecord{ID: "d1", Name: "old", CreatedAt: created}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	renamed, err := db.RenameDirectory(ctx, "d1", "new")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if renamed.Name != "new" {
		t.Errorf("name = %q, want new", renamed.Name)
	}
	if renamed.CreatedAt.UnixMilli() != created.UnixMilli() {
		t.Errorf("createdAt must not change on rename: %v vs %v", renamed.CreatedAt, created)
	}

	if _, err := db.RenameDirectory(ctx, "missing", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSetDirectoryParentTx(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"d1", "d2"} {
		if err := db.InsertDirectory(ctx, &DirectoryRecord{ID: id, Name: id, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("insert %s failed: %v", id, err)
		}
	}

	inBatch := func(t *testing.T, id string, parentID *string) error {
		t.Helper()
		tx, err := db.BeginBatch()
		if err != nil {
			t.Fatalf("begin failed: %v", err)
		}
		return db.EndBatch(tx, db.SetDirectoryParentTx(tx, id, parentID))
	}

	dest := "d2"
	if err := inBatch(t, "d1", &dest); err != nil {
		t.Fatalf("set parent failed: %v", err)
	}
	got, _ := db.GetDirectory(ctx, "d1")
	if got.ParentID == nil || *got.ParentID != "d2" {
		t.Errorf("parent = %v, want d2", got.ParentID)
	}

	if err := inBatch(t, "d1", nil); err != nil {
		t.Fatalf("clear parent failed: %v", err)
	}
	got, _ = db.GetDirectory(ctx, "d1")
	if got.ParentID != nil {
		t.Errorf("parent = %v, want nil", *got.ParentID)
	}

	if err := inBatch(t, "missing", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestTransactionHelpers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.InsertDirectory(ctx, &DirectoryRecord{ID: "root", Name: "root", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	parent := "root"
	for _, id := range []string{"c1", "c2"} {
		if err := db.InsertDirectory(ctx, &DirectoryRecord{ID: id, ParentID: &parent, Name: id, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("insert %s failed: %v", id, err)
		}
	}
	dir := "c1"
	seedRec := &MediaRecord{
		ID: "m1", ContentFingerprint: "fp-m1", DirectoryID: &dir, Name: "m1",
		Ext: ".jpg", CreatedAt: time.Now(), RevisionTime: time.Now(),
	}
	if err := db.CreateMedia(ctx, seedRec); err != nil {
		t.Fatalf("seed media failed: %v", err)
	}

	tx, err := db.BeginBatch()
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	exists, err := db.DirectoryExistsTx(tx, "root")
	if err != nil || !exists {
		t.Errorf("root should exist in tx: %v %v", exists, err)
	}
	children, err := db.DirectoryChildIDsTx(tx, "root")
	if err != nil {
		t.Fatalf("children failed: %v", err)
	}
	if len(children) != 2 {
		t.Errorf("expected 2 children, got %v", children)
	}

	parents, err := db.DirectoryParentIDsTx(tx)
	if err != nil {
		t.Fatalf("parent map failed: %v", err)
	}
	if len(parents) != 3 {
		t.Errorf("expected 3 entries in parent map, got %d", len(parents))
	}
	if parents["root"] != nil {
		t.Errorf("root parent = %v, want nil", *parents["root"])
	}
	if parents["c1"] == nil || *parents["c1"] != "root" {
		t.Errorf("c1 parent = %v, want root", parents["c1"])
	}

	if err := db.SetDirectoryParentTx(tx, "c2", nil); err != nil {
		t.Fatalf("set parent failed: %v", err)
	}
	if err := db.SetDirectoryParentTx(tx, "ghost", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("set parent on missing node = %v, want not found", err)
	}

	if err := db.UnlinkMediaInDirectoryTx(tx, "c1"); err != nil {
		t.Fatalf("unlink failed: %v", err)
	}
	if err := db.DeleteDirectoryRowTx(tx, "c1"); err != nil {
		t.Fatalf("delete row failed: %v", err)
	}

	if err := db.EndBatch(tx, nil); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	moved, err := db.GetDirectory(ctx, "c2")
	if err != nil {
		t.Fatalf("c2 lookup failed: %v", err)
	}
	if moved.ParentID != nil {
		t.Errorf("c2 parent = %v, want nil after commit", *moved.ParentID)
	}

	if _, err := db.GetDirectory(ctx, "c1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("c1 should be gone, got %v", err)
	}
	rec, err := db.GetMedia(ctx, "m1")
	if err != nil {
		t.Fatalf("media lookup failed: %v", err)
	}
	if rec.DirectoryID != nil {
		t.Errorf("media should be unfiled, got %v", *rec.DirectoryID)
	}
}

func TestEndBatchRollback(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.InsertDirectory(ctx, &DirectoryRecord{ID: "keep", Name: "keep", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	tx, err := db.BeginBatch()
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := db.DeleteDirectoryRowTx(tx, "keep"); err != nil {
		t.Fatalf("delete row failed: %v", err)
	}

	boom := errors.New("boom")
	if err := db.EndBatch(tx, boom); !errors.Is(err, boom) {
		t.Fatalf("expected the original error back, got %v", err)
	}

	// Rolled back: the row is still there.
	if _, err := db.GetDirectory(ctx, "keep"); err != nil {
		t.Errorf("row should have survived the rollback: %v", err)
	}
}
