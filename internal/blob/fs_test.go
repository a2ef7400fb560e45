package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

func newTempFS(t *testing.T) *FS {
	return NewFS(filepath.Join(t.TempDir(), "uploads"), "/uploads/")
}

func TestFS_WriteExistsRemove(t *testing.T) {
	ctx := context.Background()
	store := newTempFS(t)

	info, err := store.Write(ctx, "1700-abcd.mp4", bytes.NewReader([]byte("hello")))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if info.Name != "1700-abcd.mp4" || info.Path != "1700-abcd.mp4" || info.Size != 5 {
		t.Fatalf("unexpected info %+v", info)
	}
	if len(info.Checksum) != 64 {
		t.Fatalf("expected 32-byte hex checksum, got %q", info.Checksum)
	}

	data, err := os.ReadFile(filepath.Join(store.Root(), info.Path))
	if err != nil || string(data) != "hello" {
		t.Fatalf("unexpected content %q: %v", data, err)
	}

	ok, err := store.Exists(ctx, info.Path)
	if err != nil || !ok {
		t.Fatalf("exists: %v %v", ok, err)
	}

	if _, err := store.Write(ctx, "1700-abcd.mp4", bytes.NewReader([]byte("x"))); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists for duplicate, got %v", err)
	}

	removed, err := store.Remove(ctx, info.Path)
	if err != nil || !removed {
		t.Fatalf("remove: %v %v", removed, err)
	}
	removed, err = store.Remove(ctx, info.Path)
	if err != nil || removed {
		t.Fatalf("second remove should be (false, nil), got (%v, %v)", removed, err)
	}
	ok, err = store.Exists(ctx, info.Path)
	if err != nil || ok {
		t.Fatalf("expected blob to be gone: %v %v", ok, err)
	}
}

func TestFS_RootCreatedLazily(t *testing.T) {
	store := newTempFS(t)

	if _, err := os.Stat(store.Root()); !os.IsNotExist(err) {
		t.Fatalf("expected root to be absent before first write, got %v", err)
	}
	list, err := store.List(context.Background())
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v %v", list, err)
	}
	if _, err := store.Write(context.Background(), "a.webm", strings.NewReader("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(store.Root()); err != nil {
		t.Fatalf("expected root to exist: %v", err)
	}
}

func TestFS_InvalidKeys(t *testing.T) {
	ctx := context.Background()
	store := newTempFS(t)

	for _, key := range []string{"", "../escape.mp4", "/abs.mp4", "nested/a.mp4", `..\a.mp4`, ".hidden.mp4"} {
		if _, err := store.Write(ctx, key, strings.NewReader("x")); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey for %q, got %v", key, err)
		}
		if _, err := store.Remove(ctx, key); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey on remove for %q, got %v", key, err)
		}
	}
}

func TestFS_WriteCanceled(t *testing.T) {
	store := newTempFS(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Write(ctx, "c.mp4", strings.NewReader("data")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	ok, _ := store.Exists(context.Background(), "c.mp4")
	if ok {
		t.Fatal("canceled write must not publish the artifact")
	}
	list, _ := store.List(context.Background())
	if len(list) != 0 {
		t.Fatalf("expected no artifacts, got %+v", list)
	}
}

func TestFS_ResolveAndList(t *testing.T) {
	ctx := context.Background()
	store := newTempFS(t)

	for _, name := range []string{"b.mp4", "a.mov"} {
		if _, err := store.Write(ctx, name, strings.NewReader(name)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "a.mov" || list[1].Name != "b.mp4" {
		t.Fatalf("unexpected list %+v", list)
	}

	if got := store.Resolve("a.mov"); got != "/uploads/a.mov" {
		t.Fatalf("unexpected resolved path %s", got)
	}
	if got := NewFS("x", "/media").Resolve("a b.mp4"); got != "/media/a%20b.mp4" {
		t.Fatalf("unexpected resolved path %s", got)
	}
}

func TestFS_WriteWithoutHardLinks(t *testing.T) {
	ctx := context.Background()
	store := newTempFS(t)
	store.link = func(oldname, newname string) error {
		return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: syscall.EPERM}
	}

	info, err := store.Write(ctx, "1700-abcd.mp4", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(store.Root(), info.Path))
	if err != nil || string(data) != "hello" {
		t.Fatalf("unexpected content %q: %v", data, err)
	}

	if _, err := store.Write(ctx, "1700-abcd.mp4", strings.NewReader("x")); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists for duplicate, got %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(store.Root(), info.Path))
	if string(data) != "hello" {
		t.Fatalf("expected original content kept, got %q", data)
	}
}

func TestFS_RemoveStaleTemp(t *testing.T) {
	ctx := context.Background()
	store := newTempFS(t)
	if err := os.MkdirAll(store.Root(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	old := filepath.Join(store.Root(), tmpPrefix+"old")
	fresh := filepath.Join(store.Root(), tmpPrefix+"fresh")
	for _, p := range []string{old, fresh} {
		if err := os.WriteFile(p, []byte("partial"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, err := store.Write(ctx, "1700-abcd.mp4", strings.NewReader("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	removed, err := store.RemoveStaleTemp(ctx, time.Now().Add(-time.Minute))
	if err != nil || removed != 1 {
		t.Fatalf("expected 1 stale temp removed, got %d %v", removed, err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old temp file gone, got %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("expected fresh temp file kept: %v", err)
	}
	if ok, _ := store.Exists(ctx, "1700-abcd.mp4"); !ok {
		t.Fatal("expected published artifact kept")
	}
}

func TestFS_Handler(t *testing.T) {
	ctx := context.Background()
	store := newTempFS(t)
	if _, err := store.Write(ctx, "1700-abcd.mp4", strings.NewReader("frames")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Root(), tmpPrefix+"partial"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/uploads/1700-abcd.mp4", http.StatusOK, "frames"},
		{"/uploads/", http.StatusNotFound, ""},
		{"/uploads/" + tmpPrefix + "partial", http.StatusNotFound, ""},
		{"/uploads/missing.mp4", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		store.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		body, _ := io.ReadAll(rec.Body)
		if rec.Code != tt.status {
			t.Fatalf("%s: expected %d, got %d", tt.path, tt.status, rec.Code)
		}
		if tt.body != "" && string(body) != tt.body {
			t.Fatalf("%s: unexpected body %q", tt.path, body)
		}
	}
}
