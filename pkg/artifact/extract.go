package artifact

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// maxFileSize caps a single extracted file at 1 GiB to keep a malformed or
// hostile archive from filling the disk through one entry.
const maxFileSize = 1 << 30

// extract unpacks a gzip-compressed tar stream into dest.
//
// Entry names are confined to dest: absolute names and names that traverse
// outside the destination are rejected as ErrBadArchive. Symlinks are
// extracted but their targets are confined the same way.
func extract(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadArchive, err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadArchive, err)
		}

		// git archive emits a pax_global_header entry; it carries no
		// file content and is not part of the artifact.
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		target, err := securePath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)|0700); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", hdr.Name, err)
			}

		case tar.TypeReg:
			if hdr.Size > maxFileSize {
				return fmt.Errorf("%w: entry %s exceeds size limit", ErrBadArchive, hdr.Name)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create parent directory for %s: %w", hdr.Name, err)
			}
			if err := writeFile(target, tr, os.FileMode(hdr.Mode)); err != nil {
				return fmt.Errorf("failed to write %s: %w", hdr.Name, err)
			}

		case tar.TypeSymlink:
			if err := secureLinkTarget(dest, hdr.Name, hdr.Linkname); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create parent directory for %s: %w", hdr.Name, err)
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("failed to create symlink %s: %w", hdr.Name, err)
			}

		default:
			// Hard links, devices and the like have no business in an
			// application artifact.
			return fmt.Errorf("%w: unsupported entry type %d for %s",
				ErrBadArchive, hdr.Typeflag, hdr.Name)
		}
	}
}

// writeFile copies src into a new file at target with the given mode, capped
// at maxFileSize.
func writeFile(target string, src io.Reader, mode os.FileMode) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return err
	}
	_, err = io.Copy(f, io.LimitReader(src, maxFileSize))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

// securePath resolves an archive entry name inside dest, rejecting names that
// would escape it.
func securePath(dest, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: entry %q escapes artifact directory", ErrBadArchive, name)
	}
	return filepath.Join(dest, cleaned), nil
}

// secureLinkTarget rejects symlink targets that resolve outside dest.
func secureLinkTarget(dest, name, linkname string) error {
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("%w: absolute symlink %q", ErrBadArchive, name)
	}
	resolved := filepath.Join(filepath.Dir(filepath.Join(dest, filepath.FromSlash(name))), filepath.FromSlash(linkname))
	rel, err := filepath.Rel(dest, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: symlink %q escapes artifact directory", ErrBadArchive, name)
	}
	return nil
}

// IsBadArchive reports whether err stems from a malformed archive rather
// than an I/O failure.
func IsBadArchive(err error) bool {
	return errors.Is(err, ErrBadArchive)
}
