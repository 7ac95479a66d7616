// Package dirtree implements the directory lifecycle: creating, renaming,
// and moving nodes, reconstructing the tree from the flat stored set, and
// transactionally deleting whole subtrees together with their media
// references.
package dirtree

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"media-vault/internal/apperr"
	"media-vault/internal/database"
	"media-vault/internal/logging"
	"media-vault/internal/metrics"
)

// DeletePolicy controls what happens to media filed under a deleted subtree.
type DeletePolicy string

const (
	// PolicyUnlink clears the directory reference on affected media; the
	// records stay in the catalog unfiled.
	PolicyUnlink DeletePolicy = "unlink"
	// PolicyCascade soft-deletes affected media along with the subtree.
	PolicyCascade DeletePolicy = "cascade"
)

// ParsePolicy maps a configuration string to a DeletePolicy, defaulting to
// unlink for anything unrecognized.
func ParsePolicy(s string) DeletePolicy {
	if strings.EqualFold(s, string(PolicyCascade)) {
		return PolicyCascade
	}
	return PolicyUnlink
}

// Catalog is the slice of the database layer the manager needs. It is an
// interface so delete-rollback tests can inject failures mid-transaction.
type Catalog interface {
	InsertDirectory(ctx context.Context, rec *database.DirectoryRecord) error
	GetDirectory(ctx context.Context, id string) (*database.DirectoryRecord, error)
	ListDirectories(ctx context.Context) ([]database.DirectoryRecord, error)
	RenameDirectory(ctx context.Context, id, name string) (*database.DirectoryRecord, error)

	BeginBatch() (*sql.Tx, error)
	EndBatch(tx *sql.Tx, err error) error
	DirectoryExistsTx(tx *sql.Tx, id string) (bool, error)
	DirectoryChildIDsTx(tx *sql.Tx, parentID string) ([]string, error)
	DirectoryParentIDsTx(tx *sql.Tx) (map[string]*string, error)
	SetDirectoryParentTx(tx *sql.Tx, id string, parentID *string) error
	DeleteDirectoryRowTx(tx *sql.Tx, id string) error
	UnlinkMediaInDirectoryTx(tx *sql.Tx, directoryID string) error
	RetireMediaInDirectoryTx(tx *sql.Tx, directoryID string) error
}

// TreeNode is a directory node with its resolved children, ready for
// serialization.
type TreeNode struct {
	ID        string      `json:"id"`
	ParentID  *string     `json:"parentId"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"createdAt"`
	Children  []*TreeNode `json:"children"`
}

// Manager owns directory lifecycle semantics on top of the flat catalog.
type Manager struct {
	catalog Catalog
	policy  DeletePolicy
}

// NewManager creates a Manager with the given media delete policy.
func NewManager(catalog Catalog, policy DeletePolicy) *Manager {
	return &Manager{catalog: catalog, policy: policy}
}

// Policy returns the configured media delete policy.
func (m *Manager) Policy() DeletePolicy {
	return m.policy
}

func opResult(op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DirectoryOpsTotal.WithLabelValues(op, status).Inc()
}

// CreateNode creates a directory node. A nil parentID makes a root-level
// node; a non-nil parent must exist. The stored set itself is permissive
// about dangling parents, so existence is enforced here.
func (m *Manager) CreateNode(ctx context.Context, name string, parentID *string) (rec *database.DirectoryRecord, err error) {
	defer func() { opResult("create", err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("directory name must not be empty: %w", apperr.ErrInvalidArgument)
	}

	if parentID != nil {
		if _, err = m.catalog.GetDirectory(ctx, *parentID); err != nil {
			return nil, fmt.Errorf("parent %s: %w", *parentID, err)
		}
	}

	rec = &database.DirectoryRecord{
		ID:        uuid.NewString(),
		ParentID:  parentID,
		Name:      name,
		CreatedAt: time.Now(),
	}
	if err = m.catalog.InsertDirectory(ctx, rec); err != nil {
		return nil, err
	}

	logging.Debug("created directory %s (%s)", rec.ID, rec.Name)
	return rec, nil
}

// RenameNode changes a node's name. createdAt is immutable.
func (m *Manager) RenameNode(ctx context.Context, id, name string) (rec *database.DirectoryRecord, err error) {
	defer func() { opResult("rename", err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("directory name must not be empty: %w", apperr.ErrInvalidArgument)
	}

	rec, err = m.catalog.RenameDirectory(ctx, id, name)
	return rec, err
}

// MoveNode re-parents a node. A nil newParentID moves it to root level. The
// destination must exist and must not be the node itself or any of its
// descendants; allowing that would detach a cycle from the forest.
// Validation and the update share one transaction, so two concurrent moves
// cannot both validate against the old structure and commit a cycle.
func (m *Manager) MoveNode(ctx context.Context, id string, newParentID *string) (err error) {
	defer func() { opResult("move", err) }()

	if newParentID != nil && *newParentID == id {
		return fmt.Errorf("cannot move %s under itself: %w", id, apperr.ErrInvalidArgument)
	}

	tx, err := m.catalog.BeginBatch()
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrTransactionAbort, err)
	}
	err = m.catalog.EndBatch(tx, m.moveInBatch(tx, id, newParentID))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalidArgument) {
			return err
		}
		return fmt.Errorf("%w: %w", apperr.ErrTransactionAbort, err)
	}
	return nil
}

// moveInBatch validates and applies the re-parenting inside tx.
func (m *Manager) moveInBatch(tx *sql.Tx, id string, newParentID *string) error {
	exists, err := m.catalog.DirectoryExistsTx(tx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("directory %s: %w", id, apperr.ErrNotFound)
	}

	if newParentID != nil {
		parents, err := m.catalog.DirectoryParentIDsTx(tx)
		if err != nil {
			return err
		}
		if _, ok := parents[*newParentID]; !ok {
			return fmt.Errorf("destination %s: %w", *newParentID, apperr.ErrNotFound)
		}

		// Walk up from the destination; hitting the moved node means the
		// destination lives inside its subtree. The walk is bounded by the
		// node count, so a pre-existing dangling parent cannot loop it.
		current := newParentID
		for steps := 0; current != nil && steps <= len(parents); steps++ {
			if *current == id {
				return fmt.Errorf("cannot move %s into its own subtree: %w", id, apperr.ErrInvalidArgument)
			}
			next, ok := parents[*current]
			if !ok {
				break
			}
			current = next
		}
	}

	return m.catalog.SetDirectoryParentTx(tx, id, newParentID)
}

// BuildTree reads the whole flat node set once and reconstructs the forest
// in two passes: map every node by id, then link children to parents. Nodes
// whose parentId resolves to nothing are treated as roots, so a stray
// reference degrades to a visible top-level subtree instead of vanishing.
func (m *Manager) BuildTree(ctx context.Context) (roots []*TreeNode, err error) {
	defer func() { opResult("tree", err) }()

	records, err := m.catalog.ListDirectories(ctx)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*TreeNode, len(records))
	for i := range records {
		r := records[i]
		nodes[r.ID] = &TreeNode{
			ID:        r.ID,
			ParentID:  r.ParentID,
			Name:      r.Name,
			CreatedAt: r.CreatedAt,
			Children:  []*TreeNode{},
		}
	}

	roots = []*TreeNode{}
	for i := range records {
		node := nodes[records[i].ID]
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	return roots, nil
}

// DeleteNode removes a node and its entire subtree in one transaction.
// Children are discovered inside the transaction and deleted depth-first,
// children before parent, with media in each directory handled per the
// configured policy. Any failure rolls the whole thing back.
func (m *Manager) DeleteNode(ctx context.Context, id string) (err error) {
	defer func() { opResult("delete", err) }()

	tx, err := m.catalog.BeginBatch()
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrTransactionAbort, err)
	}

	var deleted int
	deleted, err = m.deleteSubtree(tx, id, true)
	err = m.catalog.EndBatch(tx, err)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", apperr.ErrTransactionAbort, err)
	}

	metrics.DirectoryCascadeDeleted.Observe(float64(deleted))
	logging.Info("deleted directory %s and %d descendant(s) (policy %s)", id, deleted-1, m.policy)
	return nil
}

// deleteSubtree deletes id's subtree inside tx and returns how many nodes it
// removed. Recursion depth equals tree depth; the stored forest is created
// through CreateNode, which rejects dangling parents, so depth stays sane.
func (m *Manager) deleteSubtree(tx *sql.Tx, id string, isRoot bool) (int, error) {
	if isRoot {
		exists, err := m.catalog.DirectoryExistsTx(tx, id)
		if err != nil {
			return 0, err
		}
		if !exists {
			return 0, fmt.Errorf("directory %s: %w", id, apperr.ErrNotFound)
		}
	}

	children, err := m.catalog.DirectoryChildIDsTx(tx, id)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, child := range children {
		n, err := m.deleteSubtree(tx, child, false)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}

	switch m.policy {
	case PolicyCascade:
		if err := m.catalog.RetireMediaInDirectoryTx(tx, id); err != nil {
			return deleted, err
		}
	default:
		if err := m.catalog.UnlinkMediaInDirectoryTx(tx, id); err != nil {
			return deleted, err
		}
	}

	if err := m.catalog.DeleteDirectoryRowTx(tx, id); err != nil {
		return deleted, err
	}
	return deleted + 1, nil
}
