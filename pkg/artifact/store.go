// Package artifact manages on-disk versioned artifact directories.
//
// Each uploaded deployment version is materialized as one directory under a
// configured root. The store performs pure filesystem operations and holds no
// process or network state.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/slipway-sh/slipway/internal/logger"
)

// ErrBadArchive is returned when an uploaded byte stream is not a valid
// gzip-compressed tar archive.
var ErrBadArchive = errors.New("invalid deployment archive")

// ErrBadVersion is returned when a version identifier cannot be used as a
// directory name under the deployments root.
var ErrBadVersion = errors.New("invalid version identifier")

// Store manages versioned artifact directories under a single root.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory, creating it if
// necessary.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("deployments root must not be empty")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create deployments root %q: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the deployments root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the artifact directory for a version. It does not check
// whether the directory exists.
func (s *Store) Path(version string) string {
	return filepath.Join(s.root, version)
}

// Exists reports whether an artifact directory for the version is present.
func (s *Store) Exists(version string) bool {
	info, err := os.Stat(s.Path(version))
	return err == nil && info.IsDir()
}

// Materialize unpacks a gzip-compressed tar stream into the artifact
// directory for the given version and returns that directory's path.
//
// If a directory for the version already exists it is removed first, so a
// re-upload replaces the version wholesale rather than merging into it.
// Extraction happens in a staging directory next to the final one; the final
// rename keeps a half-written artifact from ever sitting at the version path.
func (s *Store) Materialize(version string, archive io.Reader) (string, error) {
	if err := validateVersion(version); err != nil {
		return "", err
	}

	dest := s.Path(version)
	staging := dest + ".partial"

	if err := os.RemoveAll(staging); err != nil {
		return "", fmt.Errorf("failed to clear staging directory: %w", err)
	}
	if err := os.MkdirAll(staging, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	if err := extract(archive, staging); err != nil {
		// Leave nothing behind on a failed extraction.
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			logger.Warn("failed to remove staging directory after extraction failure",
				"path", staging, "error", rmErr)
		}
		return "", err
	}

	if err := os.RemoveAll(dest); err != nil {
		_ = os.RemoveAll(staging)
		return "", fmt.Errorf("failed to remove previous artifact for %s: %w", version, err)
	}
	if err := os.Rename(staging, dest); err != nil {
		_ = os.RemoveAll(staging)
		return "", fmt.Errorf("failed to move artifact into place: %w", err)
	}

	logger.Debug("artifact materialized", "version", version, "path", dest)
	return dest, nil
}

// validateVersion rejects identifiers that would escape the deployments root
// or collide with the store's staging suffix.
func validateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("%w: empty", ErrBadVersion)
	}
	if version != filepath.Base(version) ||
		version == "." || version == ".." ||
		strings.ContainsAny(version, `/\`) {
		return fmt.Errorf("%w: %q", ErrBadVersion, version)
	}
	if strings.HasSuffix(version, ".partial") {
		return fmt.Errorf("%w: %q", ErrBadVersion, version)
	}
	return nil
}
