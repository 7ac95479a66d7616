// Package store owns the on-disk layout of the vault: one container
// directory per media item under the library root, holding the copied
// original file and its generated thumbnail. Container names are media ids,
// so concurrent ingestions never contend on the same directory.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"media-vault/internal/apperr"
	"media-vault/internal/filesystem"
	"media-vault/internal/logging"
)

// thumbnailSuffix is appended to the media id to name the generated
// thumbnail inside a container. Deriving the name from the id keeps it out
// of the namespace an original file name can occupy, so copying an original
// called "thumb.jpg" never collides with its own thumbnail.
const thumbnailSuffix = ".thumb.jpg"

// ThumbnailFileName returns the thumbnail file name for a media id.
func ThumbnailFileName(id string) string {
	return id + thumbnailSuffix
}

// Store manages media containers under a single library root.
type Store struct {
	root  string
	retry filesystem.RetryConfig
}

// New creates a Store rooted at dir, creating the root if needed.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create library root %s: %w: %w", root, apperr.ErrStorageIO, err)
	}
	return &Store{
		root:  root,
		retry: filesystem.DefaultRetryConfig(),
	}, nil
}

// Root returns the library root directory.
func (s *Store) Root() string {
	return s.root
}

// ContainerPath returns the container directory for a media id.
func (s *Store) ContainerPath(id string) string {
	return filepath.Join(s.root, id)
}

// OriginalPath returns the path of the copied original inside a container.
func (s *Store) OriginalPath(id, originalFileName string) string {
	return filepath.Join(s.root, id, originalFileName)
}

// ThumbnailPath returns the thumbnail path inside a container.
func (s *Store) ThumbnailPath(id string) string {
	return filepath.Join(s.root, id, ThumbnailFileName(id))
}

// ContainerExists reports whether a container directory is present.
func (s *Store) ContainerExists(id string) bool {
	info, err := filesystem.StatWithRetry(s.ContainerPath(id), s.retry)
	return err == nil && info.IsDir()
}

// CreateContainer makes the container directory for a media id.
func (s *Store) CreateContainer(id string) error {
	if err := os.MkdirAll(s.ContainerPath(id), 0o755); err != nil {
		return fmt.Errorf("create container %s: %w: %w", id, apperr.ErrStorageIO, err)
	}
	return nil
}

// WriteOriginal copies the original bytes verbatim into the container,
// preserving the source file name.
func (s *Store) WriteOriginal(id, originalFileName string, data []byte) (string, error) {
	path := s.OriginalPath(id, originalFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write original %s: %w: %w", path, apperr.ErrStorageIO, err)
	}
	return path, nil
}

// WriteThumbnail persists the encoded thumbnail alongside the original.
func (s *Store) WriteThumbnail(id string, data []byte) (string, error) {
	path := s.ThumbnailPath(id)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write thumbnail %s: %w: %w", path, apperr.ErrStorageIO, err)
	}
	return path, nil
}

// RemoveContainer deletes a container and everything in it. Removing a
// container that does not exist is a no-op, so failed-ingest cleanup can be
// retried safely.
func (s *Store) RemoveContainer(id string) error {
	path := s.ContainerPath(id)
	if err := filesystem.RemoveAllWithRetry(path, s.retry); err != nil {
		return fmt.Errorf("remove container %s: %w: %w", path, apperr.ErrStorageIO, err)
	}
	logging.Debug("removed container %s", path)
	return nil
}
