// Package blob stores video artifacts addressed by their generated names.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"    // local directory (default)
	DriverMinIO      Driver = "minio" // S3 / MinIO compatible
)

// Info describes a stored artifact.
type Info struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"` // relative to the store root
	Size     int64     `json:"size_bytes"`
	Checksum string    `json:"checksum,omitempty"`
	ModTime  time.Time `json:"mod_time"`
}

// Store is the durable home of uploaded artifacts.
type Store interface {
	// Write persists r under name. It fails if name is already taken.
	Write(ctx context.Context, name string, r io.Reader) (Info, error)
	// Remove deletes the artifact at path. Returns (false, nil) if it was already gone.
	Remove(ctx context.Context, path string) (bool, error)
	// Resolve maps a stored name to the path clients use to fetch it.
	Resolve(name string) string
	Exists(ctx context.Context, path string) (bool, error)
	List(ctx context.Context) ([]Info, error)
	Driver() Driver
}

var (
	ErrExists     = errors.New("blob: artifact already exists")
	ErrInvalidKey = errors.New("blob: invalid key")
)

// sanitizeKey only admits flat names: no separators, no traversal, nothing hidden.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: hidden name %q", ErrInvalidKey, key)
	}
	return key, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
