package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Niyati251208/sports-performance-analyzer/internal/types/uploads"
)

var ErrNotFound = errors.New("upload record not found")

// Storage is the metadata store for upload records. Every method is a single statement.
type Storage interface {
	// InsertUpload stores rec and returns the generated id and creation time.
	InsertUpload(ctx context.Context, rec uploads.UploadRecord) (uploads.UploadRecord, error)
	// ListUploadsByEmail returns the records of email, newest first.
	ListUploadsByEmail(ctx context.Context, email string) ([]uploads.UploadRecord, error)
	// FindUploadByID returns ErrNotFound when no record has id.
	FindUploadByID(ctx context.Context, id int64) (uploads.UploadRecord, error)
	// DeleteUploadByID reports whether a row was removed.
	DeleteUploadByID(ctx context.Context, id int64) (bool, error)
	ListAllUploads(ctx context.Context) ([]uploads.UploadRecord, error)
	Close() error
}

// NullString maps an optional identity field to a nullable column.
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func FromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
