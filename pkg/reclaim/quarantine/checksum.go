package quarantine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Checksum returns the hex SHA-256 of a regular file's contents. For a
// symlink it hashes the link text, so a relocated link verifies the same.
func Checksum(path string) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return "", err
		}
		_, _ = io.WriteString(h, "symlink:"+target)
	case info.Mode().IsRegular():
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer func() { _ = f.Close() }()
		if _, err := io.Copy(h, f); err != nil {
			return "", fmt.Errorf("hash %s: %w", path, err)
		}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, info.Mode().Type())
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// copyVerified copies src to dst, which must not exist, syncs it and
// checks the copy against checksum. A bad copy is removed.
func copyVerified(src, dst, checksum string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create copy: %w", err)
	}

	if err := writeAll(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("close copy: %w", err)
	}

	// Re-read the copy so the comparison covers what reached the disk.
	if got, err := Checksum(dst); err != nil || got != checksum {
		_ = os.Remove(dst)
		return fmt.Errorf("%w: copy of %s", ErrCorrupt, src)
	}

	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	syncDir(filepath.Dir(dst))
	return nil
}

func writeAll(out *os.File, in io.Reader) error {
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync copy: %w", err)
	}
	return nil
}
