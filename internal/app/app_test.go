package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Niyati251208/sports-performance-analyzer/internal/blob"
	"github.com/Niyati251208/sports-performance-analyzer/internal/config"
	"github.com/Niyati251208/sports-performance-analyzer/internal/reconcile"
	"github.com/Niyati251208/sports-performance-analyzer/internal/types/uploads"
)

type testServer struct {
	*httptest.Server
	app       *App
	blobRoot  string
	publicDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	publicDir := filepath.Join(dir, "public")
	if err := os.MkdirAll(publicDir, 0o755); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(publicDir, "login.html"), []byte("<h1>login</h1>"), 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	cfg := &config.Config{
		Env:            "test",
		HTTPServer:     config.HTTPServer{PublicDir: publicDir},
		Database:       config.Database{Driver: "sqlite"},
		SQLite:         config.SQLite{Path: filepath.Join(dir, "data", "uploads.db")},
		Blob:           config.Blob{Driver: "fs", Root: filepath.Join(dir, "uploads"), PublicPrefix: "/uploads/"},
		Media:          config.Media{AllowedExtensions: []string{".mp4", ".mov", ".avi", ".webm"}, MaxFileSize: 1 << 20},
		RateLimit:      config.RateLimit{UploadsPerMinute: 10},
		JWTSecret:      "secret",
		TokenTTL:       time.Hour,
		RequestTimeout: 5 * time.Second,
	}

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go a.Hub.Run(ctx)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		_ = a.Close()
	})

	return &testServer{Server: srv, app: a, blobRoot: cfg.Blob.Root, publicDir: publicDir}
}

// upload posts a multipart form. An empty filename omits the video part, an empty user omits that field.
func (s *testServer) upload(t *testing.T, sport, filename, content, user, bearer string) (int, map[string]interface{}) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("video", filename)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		part.Write([]byte(content))
	}
	if user != "" {
		mw.WriteField("user", user)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, s.URL+"/upload/"+sport, &body)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return s.do(t, req)
}

func (s *testServer) postJSON(t *testing.T, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req)
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Unexpected error decoding %s response: %v", req.URL.Path, err)
	}
	return resp.StatusCode, out
}

func (s *testServer) listUploads(t *testing.T, email string) []map[string]interface{} {
	t.Helper()
	status, out := s.postJSON(t, "/api/uploads", `{"email":"`+email+`"}`)
	if status != http.StatusOK || out["success"] != true {
		t.Fatalf("Expected list to succeed, got %d %v", status, out)
	}

	raw, _ := out["uploads"].([]interface{})
	records := make([]map[string]interface{}, 0, len(raw))
	for _, r := range raw {
		records = append(records, r.(map[string]interface{}))
	}
	return records
}

func (s *testServer) blobCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(s.blobRoot)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	n := 0
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			n++
		}
	}
	return n
}

func TestUploadThenList(t *testing.T) {
	s := newTestServer(t)

	status, out := s.upload(t, "soccer", "video.mp4", "frames", `{"name":"A","email":"a@x.com"}`, "")
	if status != http.StatusOK || out["success"] != true || out["message"] != "Uploaded successfully" {
		t.Fatalf("Unexpected upload response %d %v", status, out)
	}

	records := s.listUploads(t, "a@x.com")
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0]["sport"] != "soccer" || records[0]["user_name"] != "A" {
		t.Fatalf("Unexpected record %v", records[0])
	}

	url, _ := records[0]["url"].(string)
	resp, err := http.Get(s.URL + url)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(data) != "frames" {
		t.Fatalf("Expected stored video at %s, got %d %q", url, resp.StatusCode, data)
	}
}

func TestUpload_UnsupportedFormat(t *testing.T) {
	s := newTestServer(t)

	status, out := s.upload(t, "soccer", "clip.txt", "text", `{"name":"A","email":"a@x.com"}`, "")
	if status != http.StatusBadRequest || out["success"] != false || out["message"] != "Only video files allowed" {
		t.Fatalf("Unexpected response %d %v", status, out)
	}
	if records := s.listUploads(t, "a@x.com"); len(records) != 0 {
		t.Fatalf("Expected no records, got %d", len(records))
	}
	if n := s.blobCount(t); n != 0 {
		t.Fatalf("Expected no blobs, got %d", n)
	}
}

func TestUpload_NoFile(t *testing.T) {
	s := newTestServer(t)

	status, out := s.upload(t, "soccer", "", "", `{"name":"A","email":"a@x.com"}`, "")
	if status != http.StatusBadRequest || out["message"] != "No video uploaded" {
		t.Fatalf("Unexpected response %d %v", status, out)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	s := newTestServer(t)

	big := strings.Repeat("x", 3<<19)
	status, out := s.upload(t, "soccer", "big.mp4", big, "", "")
	if status != http.StatusBadRequest || out["message"] != "Video exceeds maximum size" {
		t.Fatalf("Unexpected response %d %v", status, out)
	}
	if n := s.blobCount(t); n != 0 {
		t.Fatalf("Expected no blobs, got %d", n)
	}
}

func TestUpload_InvalidUserField(t *testing.T) {
	s := newTestServer(t)

	status, out := s.upload(t, "soccer", "a.mp4", "x", `["not","an","object"]`, "")
	if status != http.StatusBadRequest || out["success"] != false {
		t.Fatalf("Unexpected response %d %v", status, out)
	}
}

func TestUpload_TokenIdentity(t *testing.T) {
	s := newTestServer(t)

	status, out := s.postJSON(t, "/login", `{"name":"B","email":"b@x.com"}`)
	if status != http.StatusOK || out["success"] != true {
		t.Fatalf("Unexpected login response %d %v", status, out)
	}
	token, _ := out["token"].(string)
	if token == "" {
		t.Fatalf("Expected token in login response, got %v", out)
	}

	if status, out := s.upload(t, "tennis", "serve.webm", "x", "", token); status != http.StatusOK {
		t.Fatalf("Unexpected upload response %d %v", status, out)
	}

	records := s.listUploads(t, "b@x.com")
	if len(records) != 1 || records[0]["sport"] != "tennis" {
		t.Fatalf("Expected tennis upload for b@x.com, got %v", records)
	}
}

func TestDeleteUpload(t *testing.T) {
	s := newTestServer(t)

	if status, out := s.upload(t, "golf", "swing.mov", "x", `{"name":"A","email":"a@x.com"}`, ""); status != http.StatusOK {
		t.Fatalf("Unexpected upload response %d %v", status, out)
	}
	records := s.listUploads(t, "a@x.com")
	id := int64(records[0]["id"].(float64))

	status, out := s.postJSON(t, "/api/delete-upload", `{"id":`+jsonInt(id)+`}`)
	if status != http.StatusOK || out["success"] != true {
		t.Fatalf("Unexpected delete response %d %v", status, out)
	}
	if n := s.blobCount(t); n != 0 {
		t.Fatalf("Expected blob removed, got %d", n)
	}

	status, out = s.postJSON(t, "/api/delete-upload", `{"id":"`+jsonInt(id)+`"}`)
	if status != http.StatusOK || out["success"] != false || out["message"] != "Not found" {
		t.Fatalf("Expected soft not found, got %d %v", status, out)
	}
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestMissingParameters(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		path    string
		body    string
		message string
	}{
		{"/api/uploads", `{}`, "Email required"},
		{"/api/uploads", `{"email":""}`, "Email required"},
		{"/api/delete-upload", `{}`, "ID required"},
		{"/api/delete-upload", `{"id":"abc"}`, "ID required"},
	}

	for _, tt := range tests {
		status, out := s.postJSON(t, tt.path, tt.body)
		if status != http.StatusBadRequest || out["success"] != false || out["message"] != tt.message {
			t.Fatalf("%s %s: unexpected response %d %v", tt.path, tt.body, status, out)
		}
	}
}

func TestLogin_MissingFields(t *testing.T) {
	s := newTestServer(t)

	status, out := s.postJSON(t, "/login", `{"name":"A"}`)
	if status != http.StatusOK || out["success"] != false || out["message"] != "Name and Email required" {
		t.Fatalf("Unexpected response %d %v", status, out)
	}
}

func TestStaticAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.URL + "/")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "login") {
		t.Fatalf("Expected login page, got %q", body)
	}

	s.upload(t, "soccer", "clip.txt", "x", "", "")

	resp, err = http.Get(s.URL + "/metrics")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `sports_uploads_total{result="rejected"} 1`) {
		t.Fatalf("Expected rejected upload counter, got:\n%s", body)
	}
}

func TestStoredFiles_NoListing(t *testing.T) {
	s := newTestServer(t)

	s.upload(t, "soccer", "a.mp4", "x", `{"name":"A","email":"a@x.com"}`, "")
	s.upload(t, "soccer", "anon.mp4", "y", "", "")
	if err := os.WriteFile(filepath.Join(s.blobRoot, ".tmp-inflight"), []byte("partial"), 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, path := range []string{"/uploads/", "/uploads/.tmp-inflight"} {
		resp, err := http.Get(s.URL + path)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("Expected 404 for %s, got %d", path, resp.StatusCode)
		}
	}
}

func TestOpenCachedStorage_PruneInvalidatesCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	dir := t.TempDir()
	cfg := &config.Config{
		Database: config.Database{Driver: "sqlite"},
		SQLite:   config.SQLite{Path: filepath.Join(dir, "uploads.db")},
		Redis:    config.Redis{Address: mr.Addr()},
	}
	ctx := context.Background()

	store, redisClient, err := OpenCachedStorage(ctx, cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if redisClient == nil {
		t.Fatal("Expected a redis client")
	}
	defer redisClient.Close()
	defer store.Close()

	email := "a@x.com"
	if _, err := store.InsertUpload(ctx, uploads.UploadRecord{Sport: "golf", Filename: "gone.mp4", Filepath: "gone.mp4", UserEmail: &email}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if list, err := store.ListUploadsByEmail(ctx, email); err != nil || len(list) != 1 {
		t.Fatalf("Expected 1 cached record, got %d %v", len(list), err)
	}

	// The blob never existed, so the record is dangling.
	blobs := blob.NewFS(filepath.Join(dir, "uploads"), "/uploads/")
	report, err := reconcile.NewWorker(store, blobs, reconcile.Options{PruneDangling: true}).RunOnce(ctx)
	if err != nil || report.PrunedRecords != 1 {
		t.Fatalf("Expected 1 pruned record, got %+v %v", report, err)
	}

	if list, err := store.ListUploadsByEmail(ctx, email); err != nil || len(list) != 0 {
		t.Fatalf("Expected pruned record gone from the cached list, got %d %v", len(list), err)
	}
}

func TestOpenCachedStorage_WithoutRedis(t *testing.T) {
	cfg := &config.Config{
		Database: config.Database{Driver: "sqlite"},
		SQLite:   config.SQLite{Path: filepath.Join(t.TempDir(), "uploads.db")},
		Redis:    config.Redis{Address: "127.0.0.1:1"},
	}

	store, redisClient, err := OpenCachedStorage(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer store.Close()
	if redisClient != nil {
		t.Fatal("Expected no redis client when redis is unreachable")
	}
}
