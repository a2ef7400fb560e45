package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/Niyati251208/sports-performance-analyzer/internal/storage"
	"github.com/Niyati251208/sports-performance-analyzer/internal/types/uploads"
)

var _ storage.Storage = (*Sqlite)(nil)

// Sqlite keeps upload records in a single-file database. created_at is stored as
// unix nanoseconds so ordering stays strict within the same second.
type Sqlite struct {
	Db  *sql.DB
	now func() time.Time
}

func NewSqlite(path string) (*Sqlite, error) {
	if path == "" {
		path = "uploads.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time avoids SQLITE_BUSY under concurrent uploads.
	db.SetMaxOpenConns(1)

	s := &Sqlite{Db: db, now: time.Now}
	if err := s.CreateTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

func (s *Sqlite) CreateTables() error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS uploads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_name TEXT,
			user_email TEXT,
			sport TEXT NOT NULL,
			filename TEXT NOT NULL UNIQUE,
			filepath TEXT NOT NULL,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			checksum TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_email_created ON uploads (user_email, created_at DESC);`,
	}

	for _, q := range queries {
		if _, err := s.Db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

func (s *Sqlite) InsertUpload(ctx context.Context, rec uploads.UploadRecord) (uploads.UploadRecord, error) {
	createdAt := s.now().UTC()
	res, err := s.Db.ExecContext(ctx, `
	INSERT INTO uploads (user_name, user_email, sport, filename, filepath, size_bytes, checksum, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, storage.NullString(rec.UserName), storage.NullString(rec.UserEmail), rec.Sport, rec.Filename, rec.Filepath, rec.SizeBytes, rec.Checksum, createdAt.UnixNano())
	if err != nil {
		return uploads.UploadRecord{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return uploads.UploadRecord{}, err
	}

	rec.ID = id
	rec.CreatedAt = createdAt
	return rec, nil
}

const selectColumns = `SELECT id, user_name, user_email, sport, filename, filepath, size_bytes, checksum, created_at FROM uploads`

func (s *Sqlite) ListUploadsByEmail(ctx context.Context, email string) ([]uploads.UploadRecord, error) {
	rows, err := s.Db.QueryContext(ctx, selectColumns+` WHERE user_email = ? ORDER BY created_at DESC, id DESC`, email)
	if err != nil {
		return nil, err
	}
	return scanRows(rows)
}

func (s *Sqlite) ListAllUploads(ctx context.Context) ([]uploads.UploadRecord, error) {
	rows, err := s.Db.QueryContext(ctx, selectColumns+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanRows(rows)
}

func (s *Sqlite) FindUploadByID(ctx context.Context, id int64) (uploads.UploadRecord, error) {
	rec, err := scanRecord(s.Db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return uploads.UploadRecord{}, storage.ErrNotFound
	}
	return rec, err
}

func (s *Sqlite) DeleteUploadByID(ctx context.Context, id int64) (bool, error) {
	res, err := s.Db.ExecContext(ctx, `DELETE FROM uploads WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Sqlite) Close() error {
	return s.Db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (uploads.UploadRecord, error) {
	var (
		rec       uploads.UploadRecord
		name      sql.NullString
		email     sql.NullString
		createdAt int64
	)
	if err := row.Scan(&rec.ID, &name, &email, &rec.Sport, &rec.Filename, &rec.Filepath, &rec.SizeBytes, &rec.Checksum, &createdAt); err != nil {
		return uploads.UploadRecord{}, err
	}
	rec.UserName = storage.FromNull(name)
	rec.UserEmail = storage.FromNull(email)
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return rec, nil
}

func scanRows(rows *sql.Rows) ([]uploads.UploadRecord, error) {
	defer func() { _ = rows.Close() }()

	records := []uploads.UploadRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
