// Package blob stores uploaded documents on the local filesystem under the
// configured blob directory. Paths handed out are relative to that root so
// the database stays portable across machines.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"airlock/internal/config"
	"airlock/internal/services"
)

// Store reads and writes document blobs.
type Store struct {
	root string
}

// NewStore builds a blob store rooted at the configured blob directory.
func NewStore(cfg *config.Config) (*Store, error) {
	if cfg.Paths.BlobDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "blob", "new",
			"blob directory is not configured", nil)
	}
	if err := os.MkdirAll(cfg.Paths.BlobDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Store{root: cfg.Paths.BlobDir}, nil
}

// Save writes content under a name derived from the original filename and a
// content hash, and returns the relative path to store on the item.
func (s *Store) Save(ctx context.Context, originalName string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Base(strings.TrimSpace(originalName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "document"
	}
	sum := sha256.Sum256(data)
	rel := hex.EncodeToString(sum[:8]) + "-" + name

	full := filepath.Join(s.root, rel)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", rel, err)
	}
	return rel, nil
}

// Download reads a blob by its stored path. A missing blob is reported as a
// not-found error so the pipeline can tell it apart from I/O failures.
func (s *Store) Download(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.root, path)
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, services.Wrap(services.ErrNotFound, "blob", "download",
			fmt.Sprintf("blob %s not found", path), err)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", path, err)
	}
	return data, nil
}

// Root returns the blob directory.
func (s *Store) Root() string {
	return s.root
}
