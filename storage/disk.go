package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore keeps blobs as plain files under a root directory
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, errors.New("storage root can't be empty")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root, %w", err)
	}

	return &DiskStore{root: root}, nil
}

// resolve joins path onto the root and rejects anything that would
// escape it
func (d *DiskStore) resolve(path string) (string, error) {
	if strings.Contains(path, "..") {
		return "", ErrBlobNotFound
	}

	return filepath.Join(d.root, filepath.FromSlash(path)), nil
}

// Write streams r into a temp file next to the final location and renames
// it into place, so a blob is never visible half-written
func (d *DiskStore) Write(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	dst, err := d.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create blob directory, %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file, %w", err)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write blob, %w", err)
	}

	if size >= 0 && n != size {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("short blob write, got %d bytes, want %d", n, size)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to sync blob, %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close blob, %w", err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move blob into place, %w", err)
	}

	return nil
}

func (d *DiskStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	src, err := d.resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotFound
		}

		return nil, fmt.Errorf("failed to open blob, %w", err)
	}

	return f, nil
}

func (d *DiskStore) Delete(ctx context.Context, path string) error {
	dst, err := d.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrBlobNotFound
		}

		return fmt.Errorf("failed to delete blob, %w", err)
	}

	return nil
}

func (d *DiskStore) Exists(ctx context.Context, path string) (bool, error) {
	dst, err := d.resolve(path)
	if err != nil {
		return false, nil
	}

	_, err = os.Stat(dst)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to stat blob, %w", err)
	}

	return true, nil
}
