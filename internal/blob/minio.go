package blob

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/crypto/blake2b"

	"github.com/Niyati251208/sports-performance-analyzer/internal/config"
)

// Minio stores artifacts as objects in a single bucket.
type Minio struct {
	client     *minio.Client
	bucketName string
	useSSL     bool
}

// NewMinio creates a MinIO backed store and makes sure the bucket exists.
func NewMinio(ctx context.Context, cfg config.MinIO) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := newMinio(client, cfg.BucketName, cfg.UseSSL)
	if err := store.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return store, nil
}

func newMinio(client *minio.Client, bucketName string, useSSL bool) *Minio {
	return &Minio{client: client, bucketName: bucketName, useSSL: useSSL}
}

// ensureBucket creates the bucket if it doesn't exist
func (m *Minio) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

func (m *Minio) Driver() Driver { return DriverMinIO }

func (m *Minio) Write(ctx context.Context, name string, r io.Reader) (Info, error) {
	key, err := sanitizeKey(name)
	if err != nil {
		return Info{}, err
	}

	exists, err := m.Exists(ctx, key)
	if err != nil {
		return Info{}, err
	}
	if exists {
		return Info{}, fmt.Errorf("%w: %s", ErrExists, name)
	}

	opts := minio.PutObjectOptions{ContentType: contentTypeFor(key)}
	// If-None-Match: * makes a single PUT create-only. Streams of unknown length go
	// through multipart, where only the Exists check above and the random name
	// suffix guard against overwrites.
	opts.SetMatchETagExcept("*")

	size, known, err := remaining(r)
	if err != nil {
		return Info{}, fmt.Errorf("size %s: %w", name, err)
	}
	if known {
		opts.DisableMultipart = true
	} else {
		size = -1
	}

	h, _ := blake2b.New256(nil)
	uploaded, err := m.client.PutObject(ctx, m.bucketName, key, io.TeeReader(r, h), size, opts)
	if err != nil {
		if isPreconditionFailed(err) {
			return Info{}, fmt.Errorf("%w: %s", ErrExists, name)
		}
		return Info{}, fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return Info{
		Name:     name,
		Path:     key,
		Size:     uploaded.Size,
		Checksum: hex.EncodeToString(h.Sum(nil)),
		ModTime:  uploaded.LastModified,
	}, nil
}

func (m *Minio) Remove(ctx context.Context, path string) (bool, error) {
	exists, err := m.Exists(ctx, path)
	if err != nil || !exists {
		return false, err
	}
	if err := m.client.RemoveObject(ctx, m.bucketName, path, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("failed to remove object %s: %w", path, err)
	}
	return true, nil
}

func (m *Minio) Exists(ctx context.Context, path string) (bool, error) {
	if _, err := sanitizeKey(path); err != nil {
		return false, err
	}
	_, err := m.client.StatObject(ctx, m.bucketName, path, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, err
}

// remaining reports how many bytes a seekable reader has left, leaving its offset unchanged.
func remaining(r io.Reader) (int64, bool, error) {
	s, ok := r.(io.Seeker)
	if !ok {
		return 0, false, nil
	}
	cur, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, false, nil
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, false, err
	}
	if _, err := s.Seek(cur, io.SeekStart); err != nil {
		return 0, false, err
	}
	return end - cur, true, nil
}

func isPreconditionFailed(err error) bool {
	return minio.ToErrorResponse(err).Code == minio.PreconditionFailed
}

// Resolve returns the direct object URL (the bucket is expected to allow public reads).
func (m *Minio) Resolve(name string) string {
	scheme := "http"
	if m.useSSL {
		scheme = "https"
	}

	endpoint := strings.TrimPrefix(m.client.EndpointURL().String(), scheme+"://")
	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, m.bucketName, url.PathEscape(name))
}

func (m *Minio) List(ctx context.Context) ([]Info, error) {
	infos := []Info{}
	for object := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			return nil, object.Err
		}
		infos = append(infos, Info{Name: object.Key, Path: object.Key, Size: object.Size, ModTime: object.LastModified})
	}
	return infos, nil
}

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
}

func contentTypeFor(name string) string {
	if ct, ok := videoContentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
