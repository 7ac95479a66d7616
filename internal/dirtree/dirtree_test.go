package dirtree

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"media-vault/internal/apperr"
	"media-vault/internal/database"
)

func newTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// mustCreate builds a node and fails the test on error.
func mustCreate(t *testing.T, m *Manager, name string, parentID *string) *database.DirectoryRecord {
	t.Helper()
	rec, err := m.CreateNode(context.Background(), name, parentID)
	if err != nil {
		t.Fatalf("failed to create %q: %v", name, err)
	}
	return rec
}

// seedMedia inserts a minimal media record filed under the given directory.
func seedMedia(t *testing.T, db *database.Database, id string, directoryID *string) {
	t.Helper()
	now := time.Now()
	err := db.CreateMedia(context.Background(), &database.MediaRecord{
		ID:                 id,
		ContentFingerprint: fmt.Sprintf("%064s", id),
		DirectoryID:        directoryID,
		Name:               id,
		OriginalFileName:   id + ".jpg",
		Ext:                ".jpg",
		MimeType:           "image/jpeg",
		Width:              1,
		Height:             1,
		Size:               1,
		CreatedAt:          now,
		RevisionTime:       now,
	})
	if err != nil {
		t.Fatalf("failed to seed media %s: %v", id, err)
	}
}

func TestCreateNode(t *testing.T) {
	db := newTestDB(t)
	m := NewManager(db, PolicyUnlink)
	ctx := context.Background()

	root := mustCreate(t, m, "Photos", nil)
	if root.ParentID != nil {
		t.Errorf("root node should have nil parent, got %v", *root.ParentID)
	}
	if root.ID == "" {
		t.Error("expected a generated id")
	}

	child := mustCreate(t, m, "Vacations", &root.ID)
	if child.ParentID == nil || *child.ParentID != root.ID {
		t.Errorf("child parent = %v, want %s", child.ParentID, root.ID)
	}

	// Both survive a round trip through the catalog.
	got, err := db.GetDirectory(ctx, child.ID)
	if err != nil {
		t.Fatalf("failed to read back child: %v", err)
	}
	if got.Name != "Vacations" {
		t.Errorf("name = %q, want Vacations", got.Name)
	}
}

func TestCreateNodeValidation(t *testing.T) {
	db := newTestDB(t)
	m := NewManager(db, PolicyUnlink)
	ctx := context.Background()

	if _, err := m.CreateNode(ctx, "   ", nil); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty name: expected invalid argument, got %v", err)
	}

	ghost := "no-such-parent"
	if _, err := m.CreateNode(ctx, "orphan", &ghost); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing parent: expected not found, got %v", err)
	}
}

func TestRenameNode(t *testing.T) {
	db := newTestDB(t)
	m := NewManager(db, PolicyUnlink)
	ctx := context.Background()

	node := mustCreate(t, m, "Old", nil)

	renamed, err := m.RenameNode(ctx, node.ID, "New")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if renamed.Name != "New" {
		t.Errorf("name = %q, want New", renamed.Name)
	}
	if !renamed.CreatedAt.Equal(node.CreatedAt) {
		t.Errorf("createdAt changed on rename: %v vs %v", renamed.CreatedAt, node.CreatedAt)
	}

	if _, err := m.RenameNode(ctx, "missing", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := m.RenameNode(ctx, node.ID, ""); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestMoveNode(t *testing.T) {
	db := newTestDB(t)
	m := NewManager(db, PolicyUnlink)
	ctx := context.Background()

	a := mustCreate(t, m, "a", nil)
	b := mustCreate(t, m, "b", &a.ID)
	c := mustCreate(t, m, "c", &b.ID)
	other := mustCreate(t, m, "other", nil)

	// Legal move: subtree b under a sibling root.
	if err := m.MoveNode(ctx, b.ID, &other.ID); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	moved, _ := db.GetDirectory(ctx, b.ID)
	if moved.ParentID == nil || *moved.ParentID != other.ID {
		t.Errorf("b parent = %v, want %s", moved.ParentID, other.ID)
	}

	// Move to root level.
	if err := m.MoveNode(ctx, c.ID, nil); err != nil {
		t.Fatalf("move to root failed: %v", err)
	}
	movedC, _ := db.GetDirectory(ctx, c.ID)
	if movedC.ParentID != nil {
		t.Errorf("c parent = %v, want nil", *movedC.ParentID)
	}
}

func TestMoveNodeRejectsCycles(t *testing.T) {
	db := newTestDB(t)
	m := NewManager(db, PolicyUnlink)
	ctx := context.Background()

	a := mustCreate(t, m, "a", nil)
	b := mustCreate(t, m, "b", &a.ID)
	c := mustCreate(t, m, "c", &b.ID)

	tests := []struct {
		name   string
		id     string
		dest   *string
		sentry error
	}{
		{"under itself", a.ID, &a.ID, apperr.ErrInvalidArgument},
		{"under direct child", a.ID, &b.ID, apperr.ErrInvalidArgument},
		{"under grandchild", a.ID, &c.ID, apperr.ErrInvalidArgument},
		{"missing node", "ghost", &a.ID, apperr.ErrNotFound},
		{"missing destination", c.ID, strPtr("ghost"), apperr.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.MoveNode(ctx, tt.id, tt.dest); !errors.Is(err, tt.sentry) {
				t.Errorf("expected %v, got %v", tt.sentry, err)
			}
		})
	}

	// Nothing moved.
	gotB, _ := db.GetDirectory(ctx, b.ID)
	if gotB.ParentID == nil || *gotB.ParentID != a.ID {
		t.Errorf("b parent changed unexpectedly: %v", gotB.ParentID)
	}
}

func strPtr(s string) *string { return &s }

func TestMoveNodeConcurrentOpposingMoves(t *testing.T) {
	db := newTestDB(t)
	m := NewManager(db, PolicyUnlink)
	ctx := context.Background()

	a := mustCreate(t, m, "a", nil)
	b := mustCreate(t, m, "b", nil)

	// Two opposing moves race; validation and commit share one transaction,
	// so only the first can succeed and the second must see the new edge.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); errs[0] = m.MoveNode(ctx, a.ID, &b.ID) }()
	go func() { defer wg.Done(); errs[1] = m.MoveNode(ctx, b.ID, &a.ID) }()
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			if !errors.Is(err, apperr.ErrInvalidArgument) {
				t.Errorf("expected invalid argument, got %v", err)
			}
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one move to fail, got %d (%v, %v)", failures, errs[0], errs[1])
	}

	// Both nodes must still be reachable from the forest roots.
	roots, err := m.BuildTree(ctx)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	count := 0
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		count++
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	if count != 2 {
		t.Fatalf("forest contains %d nodes, want 2", count)
	}
}

func TestBuildTree(t *testing.T) {
	db := newTestDB(t)
	m := NewManager(db, PolicyUnlink)
	ctx := context.Background()

	r1 := mustCreate(t, m, "r1", nil)
	r2 := mustCreate(t, m, "r2", nil)
	c1 := mustCreate(t, m, "c1", &r1.ID)
	mustCreate(t, m, "c2", &r1.ID)
	mustCreate(t, m, "gc1", &c1.ID)

	roots, err := m.BuildTree(ctx)
	if err != nil {
		t.Fatalf("build tree failed: %v", err)
	}
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}

	byID := map[string]*TreeNode{}
	var index func(n *TreeNode)
	index = func(n *TreeNode) {
		byID[n.ID] = n
		for _, child := range n.Children {
			index(child)
		}
	}
	for _, r := range roots {
		index(r)
	}

	if len(byID) != 5 {
		t.Errorf("expected 5 nodes in the forest, got %d", len(byID))
	}
	if got := len(byID[r1.ID].Children); got != 2 {
		t.Errorf("r1 children = %d, want 2", got)
	}
	if got := len(byID[c1.ID].Children); got != 1 {
		t.Errorf("c1 children = %d, want 1", got)
	}
	if got := len(byID[r2.ID].Children); got != 0 {
		t.Errorf("r2 children = %d, want 0", got)
	}
}

func TestBuildTreeDanglingParentBecomesRoot(t *testing.T) {
	db := newTestDB(t)
	m := NewManager(db, PolicyUnlink)
	ctx := context.Background()

	// Insert directly, bypassing CreateNode's parent validation.
	ghost := "ghost-parent"
	err := db.InsertDirectory(ctx, &database.DirectoryRecord{
		ID:        "stray",
		ParentID:  &ghost,
		Name:      "stray",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to insert stray node: %v", err)
	}

	roots, err := m.BuildTree(ctx)
	if err != nil {
		t.Fatalf("build tree failed: %v", err)
	}
	if len(roots) != 1 || roots[0].ID != "stray" {
		t.Fatalf("expected the stray node promoted to root, got %+v", roots)
	}
}

func TestBuildTreeEmpty(t *testing.T) {
	db := newTestDB(t)
	m := NewManager(db, PolicyUnlink)

	roots, err := m.BuildTree(context.Background())
	if err != nil {
		t.Fatalf("build tree failed: %v", err)
	}
	if roots == nil || len(roots) != 0 {
		t.Errorf("expected empty non-nil forest, got %v", roots)
	}
}

func TestDeleteNodeSubtree(t *testing.T) {
	db := newTestDB(t)
	m := NewManager(db, PolicyUnlink)
	ctx := context.Background()

	a := mustCreate(t, m, "a", nil)
	b := mustCreate(t, m, "b", &a.ID)
	c := mustCreate(t, m, "c", &b.ID)
	sibling := mustCreate(t, m, "sibling", nil)

	seedMedia(t, db, "m-in-a", &a.ID)
	seedMedia(t, db, "m-in-c", &c.ID)
	seedMedia(t, db, "m-unfiled", nil)

	if err := m.DeleteNode(ctx, a.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// The whole subtree is gone; the sibling survives.
	for _, id := range []string{a.ID, b.ID, c.ID} {
		if _, err := db.GetDirectory(ctx, id); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("node %s should be deleted, got %v", id, err)
		}
	}
	if _, err := db.GetDirectory(ctx, sibling.ID); err != nil {
		t.Errorf("sibling should survive: %v", err)
	}

	// Unlink policy: media survive unfiled and stay active.
	for _, id := range []string{"m-in-a", "m-in-c"} {
		rec, err := db.GetMedia(ctx, id)
		if err != nil {
			t.Fatalf("media %s should survive unlink: %v", id, err)
		}
		if rec.DirectoryID != nil {
			t.Errorf("media %s should be unfiled, got %v", id, *rec.DirectoryID)
		}
	}
}

func TestDeleteNodeCascadePolicy(t *testing.T) {
	db := newTestDB(t)
	m := NewManager(db, PolicyCascade)
	ctx := context.Background()

	a := mustCreate(t, m, "a", nil)
	b := mustCreate(t, m, "b", &a.ID)
	seedMedia(t, db, "m-in-b", &b.ID)
	seedMedia(t, db, "m-unfiled", nil)

	if err := m.DeleteNode(ctx, a.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// Cascade policy: filed media are soft-deleted, invisible to lookups by
	// id, but their fingerprint still serves dedup.
	if _, err := db.GetMedia(ctx, "m-in-b"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cascaded media should be soft-deleted, got %v", err)
	}
	if _, err := db.FindMediaByFingerprint(ctx, fmt.Sprintf("%064s", "m-in-b")); err != nil {
		t.Errorf("soft-deleted fingerprint should remain findable: %v", err)
	}
	if _, err := db.GetMedia(ctx, "m-unfiled"); err != nil {
		t.Errorf("unfiled media must not be touched: %v", err)
	}
}

func TestDeleteNodeNotFound(t *testing.T) {
	db := newTestDB(t)
	m := NewManager(db, PolicyUnlink)

	if err := m.DeleteNode(context.Background(), "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

// faultyCatalog fails DeleteDirectoryRowTx for one specific node, simulating
// a mid-transaction storage failure.
type faultyCatalog struct {
	*database.Database
	failOn string
}

func (f *faultyCatalog) DeleteDirectoryRowTx(tx *sql.Tx, id string) error {
	if id == f.failOn {
		return errors.New("injected failure")
	}
	return f.Database.DeleteDirectoryRowTx(tx, id)
}

func TestDeleteNodeRollsBackOnFailure(t *testing.T) {
	db := newTestDB(t)
	m := NewManager(db, PolicyUnlink)
	ctx := context.Background()

	a := mustCreate(t, m, "a", nil)
	b := mustCreate(t, m, "b", &a.ID)
	c := mustCreate(t, m, "c", &b.ID)
	seedMedia(t, db, "m-in-c", &c.ID)

	// Children delete fine; the root node's own deletion blows up.
	faulty := NewManager(&faultyCatalog{Database: db, failOn: a.ID}, PolicyUnlink)

	err := faulty.DeleteNode(ctx, a.ID)
	if !errors.Is(err, apperr.ErrTransactionAbort) {
		t.Fatalf("expected transaction abort, got %v", err)
	}

	// All-or-nothing: every node and the media link are untouched.
	for _, id := range []string{a.ID, b.ID, c.ID} {
		if _, err := db.GetDirectory(ctx, id); err != nil {
			t.Errorf("node %s should have been restored by rollback: %v", id, err)
		}
	}
	rec, err := db.GetMedia(ctx, "m-in-c")
	if err != nil {
		t.Fatalf("media lookup failed: %v", err)
	}
	if rec.DirectoryID == nil || *rec.DirectoryID != c.ID {
		t.Errorf("media link should have been restored, got %v", rec.DirectoryID)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want DeletePolicy
	}{
		{"cascade", PolicyCascade},
		{"CASCADE", PolicyCascade},
		{"unlink", PolicyUnlink},
		{"", PolicyUnlink},
		{"bogus", PolicyUnlink},
	}
	for _, tt := range tests {
		if got := ParsePolicy(tt.in); got != tt.want {
			t.Errorf("ParsePolicy(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
