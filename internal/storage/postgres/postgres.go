package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/Niyati251208/sports-performance-analyzer/internal/config"
	"github.com/Niyati251208/sports-performance-analyzer/internal/storage"
	"github.com/Niyati251208/sports-performance-analyzer/internal/types/uploads"
)

var _ storage.Storage = (*Postgres)(nil)

type Postgres struct {
	Db *sql.DB
}

// DSN builds the lib/pq connection string from configuration.
func DSN(cfg config.PQSQL) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

func NewPostgres(ctx context.Context, cfg *config.Config) (*Postgres, error) {
	db, err := sql.Open("postgres", DSN(cfg.PGSQL))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	slog.Info("Connected to Postgres database")

	pg := &Postgres{Db: db}
	if err := pg.CreateTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return pg, nil
}

func (p *Postgres) CreateTables(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS uploads (
			id BIGSERIAL PRIMARY KEY,
			user_name VARCHAR(255),
			user_email VARCHAR(255),
			sport VARCHAR(100) NOT NULL,
			filename VARCHAR(255) NOT NULL UNIQUE,
			filepath VARCHAR(512) NOT NULL,
			size_bytes BIGINT NOT NULL DEFAULT 0,
			checksum VARCHAR(128) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_email_created ON uploads (user_email, created_at DESC);`,
	}

	for _, q := range queries {
		if _, err := p.Db.ExecContext(ctx, q); err != nil {
			return err
		}
	}

	return nil
}

func (p *Postgres) InsertUpload(ctx context.Context, rec uploads.UploadRecord) (uploads.UploadRecord, error) {
	query := `
	INSERT INTO uploads (user_name, user_email, sport, filename, filepath, size_bytes, checksum)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, created_at
	`

	err := p.Db.QueryRowContext(ctx, query,
		storage.NullString(rec.UserName), storage.NullString(rec.UserEmail),
		rec.Sport, rec.Filename, rec.Filepath, rec.SizeBytes, rec.Checksum,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return uploads.UploadRecord{}, err
	}

	return rec, nil
}

const selectColumns = `SELECT id, user_name, user_email, sport, filename, filepath, size_bytes, checksum, created_at FROM uploads`

func (p *Postgres) ListUploadsByEmail(ctx context.Context, email string) ([]uploads.UploadRecord, error) {
	rows, err := p.Db.QueryContext(ctx, selectColumns+` WHERE user_email = $1 ORDER BY created_at DESC, id DESC`, email)
	if err != nil {
		return nil, err
	}
	return scanRows(rows)
}

func (p *Postgres) ListAllUploads(ctx context.Context) ([]uploads.UploadRecord, error) {
	rows, err := p.Db.QueryContext(ctx, selectColumns+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanRows(rows)
}

func (p *Postgres) FindUploadByID(ctx context.Context, id int64) (uploads.UploadRecord, error) {
	rec, err := scanRecord(p.Db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return uploads.UploadRecord{}, storage.ErrNotFound
	}
	return rec, err
}

func (p *Postgres) DeleteUploadByID(ctx context.Context, id int64) (bool, error) {
	res, err := p.Db.ExecContext(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *Postgres) Close() error {
	return p.Db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (uploads.UploadRecord, error) {
	var (
		rec   uploads.UploadRecord
		name  sql.NullString
		email sql.NullString
	)
	if err := row.Scan(&rec.ID, &name, &email, &rec.Sport, &rec.Filename, &rec.Filepath, &rec.SizeBytes, &rec.Checksum, &rec.CreatedAt); err != nil {
		return uploads.UploadRecord{}, err
	}
	rec.UserName = storage.FromNull(name)
	rec.UserEmail = storage.FromNull(email)
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
