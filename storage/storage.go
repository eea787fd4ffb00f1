// Package storage persists uploaded blobs. Records in the database only
// ever reference blobs through the paths produced by DatePath, so both
// backends share the same uploads/YYYY/MM/DD/key layout.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/viper"
)

var ErrBlobNotFound = errors.New("blob not found")

// Store is the blob store every handler talks to. Paths are the
// date-partitioned keys from DatePath, never raw user input.
type Store interface {
	// Write persists size bytes from r under path. The blob must not be
	// observable under path until the write completed in full.
	Write(ctx context.Context, path string, r io.Reader, size int64, contentType string) error

	// Open returns the blob bytes for reading. ErrBlobNotFound if no
	// blob exists under path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the blob. Deleting a missing blob returns
	// ErrBlobNotFound so callers can decide whether that matters.
	Delete(ctx context.Context, path string) error

	// Exists reports whether a blob is currently stored under path
	Exists(ctx context.Context, path string) (bool, error)
}

// New builds the store selected by the storage.type config key
func New() (Store, error) {
	switch viper.GetString("storage.type") {
	case "s3":
		return NewS3Store()
	case "local":
		return NewDiskStore(viper.GetString("storage.root"))
	default:
		return nil, fmt.Errorf("unknown storage type %q", viper.GetString("storage.type"))
	}
}

// DatePath builds the canonical blob path for a storage key:
// uploads/YYYY/MM/DD/key, partitioned by upload date
func DatePath(key string, now time.Time) string {
	return fmt.Sprintf("uploads/%04d/%02d/%02d/%s", now.Year(), int(now.Month()), now.Day(), key)
}
