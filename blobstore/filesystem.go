package blobstore

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/verdict/core"
)

// Verify interface compliance at compile time
var _ Store = (*FilesystemStore)(nil)

// FilesystemStore implements Store on a local directory. Blobs live under
// org/<org-id>/<doc-id>.pdf so one organization's documents never share a
// directory with another's.
type FilesystemStore struct {
	root   string
	logger *slog.Logger
}

// NewFilesystemStore creates a store rooted at dir, creating it if needed.
func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if dir == "" {
		return nil, ErrRootRequired
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}

	return &FilesystemStore{
		root:   dir,
		logger: slog.Default().With("component", "blobstore"),
	}, nil
}

// Put stores the blob and returns its path relative to the store root.
func (s *FilesystemStore) Put(ctx context.Context, orgID, documentID core.ID, data []byte) (string, error) {
	blobPath := fmt.Sprintf("org/%d/%d.pdf", orgID, documentID)

	full, err := s.resolve(blobPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("creating org directory: %w", err)
	}

	// Write to a temp file then rename so readers never see partial blobs.
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return "", err
	}

	s.logger.Debug("stored blob", "path", blobPath, "bytes", len(data))
	return blobPath, nil
}

// Get retrieves a blob by path.
func (s *FilesystemStore) Get(ctx context.Context, blobPath string) ([]byte, error) {
	full, err := s.resolve(blobPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, blobPath)
		}
		return nil, err
	}
	return data, nil
}

// Delete removes a blob. Missing blobs are ignored.
func (s *FilesystemStore) Delete(ctx context.Context, blobPath string) error {
	full, err := s.resolve(blobPath)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// OrgUsage reports the total blob bytes stored for one organization.
func (s *FilesystemStore) OrgUsage(ctx context.Context, orgID core.ID) (int64, error) {
	orgDir := filepath.Join(s.root, "org", fmt.Sprintf("%d", orgID))

	var total int64
	err := filepath.WalkDir(orgDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return 0, err
	}
	return total, nil
}

// resolve joins a blob path with the root and rejects paths that escape it.
func (s *FilesystemStore) resolve(blobPath string) (string, error) {
	if blobPath == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}

	full := filepath.Join(s.root, filepath.FromSlash(blobPath))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, blobPath)
	}
	return full, nil
}
