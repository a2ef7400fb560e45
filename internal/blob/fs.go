package blob

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

const tmpPrefix = ".tmp-"

// FS keeps artifacts as flat files under a root directory.
type FS struct {
	root         string
	publicPrefix string
	link         func(oldname, newname string) error
}

// NewFS returns a filesystem store rooted at root. The directory is created on first write.
func NewFS(root, publicPrefix string) *FS {
	if root == "" {
		root = "uploads"
	}
	if publicPrefix == "" {
		publicPrefix = "/uploads/"
	}
	if !strings.HasSuffix(publicPrefix, "/") {
		publicPrefix += "/"
	}
	return &FS{root: root, publicPrefix: publicPrefix, link: os.Link}
}

func (f *FS) Driver() Driver { return DriverFilesystem }

// Root returns the directory artifacts are written to.
func (f *FS) Root() string { return f.root }

func (f *FS) PublicPrefix() string { return f.publicPrefix }

func (f *FS) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, k), nil
}

func (f *FS) Write(ctx context.Context, name string, r io.Reader) (Info, error) {
	dataPath, err := f.pathFor(name)
	if err != nil {
		return Info{}, err
	}
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return Info{}, fmt.Errorf("create blob root: %w", err)
	}

	tmp, err := os.CreateTemp(f.root, tmpPrefix+"*")
	if err != nil {
		return Info{}, fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h, _ := blake2b.New256(nil)
	size, err := io.Copy(io.MultiWriter(tmp, h), ctxReader{ctx: ctx, r: r})
	if err != nil {
		_ = tmp.Close()
		return Info{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return Info{}, fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return Info{}, fmt.Errorf("close %s: %w", name, err)
	}

	// Link fails when the destination exists, which makes the final step create-only.
	if err := f.link(tmp.Name(), dataPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Info{}, fmt.Errorf("%w: %s", ErrExists, name)
		}
		// No hard links on this filesystem.
		if err := copyExclusive(tmp.Name(), dataPath); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return Info{}, fmt.Errorf("%w: %s", ErrExists, name)
			}
			return Info{}, fmt.Errorf("publish %s: %w", name, err)
		}
	}

	st, err := os.Stat(dataPath)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Name:     name,
		Path:     name,
		Size:     size,
		Checksum: hex.EncodeToString(h.Sum(nil)),
		ModTime:  st.ModTime(),
	}, nil
}

func (f *FS) Remove(ctx context.Context, path string) (bool, error) {
	dataPath, err := f.pathFor(path)
	if err != nil {
		return false, err
	}
	err = os.Remove(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *FS) Resolve(name string) string {
	return f.publicPrefix + url.PathEscape(name)
}

func (f *FS) Exists(ctx context.Context, path string) (bool, error) {
	dataPath, err := f.pathFor(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns published artifacts sorted by name. In-flight temp files are skipped.
func (f *FS) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(f.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		st, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		infos = append(infos, Info{Name: e.Name(), Path: e.Name(), Size: st.Size(), ModTime: st.ModTime()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// copyExclusive copies src to a new file at dst, failing if dst exists.
// A failed copy removes its partial output.
func copyExclusive(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}

// RemoveStaleTemp deletes temp files left behind by writes that never finished,
// if they were last modified before cutoff. It returns how many it removed.
func (f *FS) RemoveStaleTemp(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(f.root)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if e.IsDir() || !strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		st, err := e.Info()
		if err != nil || !st.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(f.root, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Handler serves published artifacts under the public prefix. Directory listings,
// hidden names and in-flight temp files all answer 404.
func (f *FS) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, f.publicPrefix)
		dataPath, err := f.pathFor(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		st, err := os.Stat(dataPath)
		if err != nil || !st.Mode().IsRegular() {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, dataPath)
	})
}
