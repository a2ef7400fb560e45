// Package videos coordinates the upload, listing and deletion of sport videos across the
// blob store and the metadata store.
//
// An upload is a two-step saga: the blob is written first, then the record is inserted.
// If the insert fails the blob is removed again before the error is returned. A delete
// runs the other way round: blob first, then record, so an interruption leaves at worst
// a record pointing at a missing file and never an unaccounted blob.
package videos

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Niyati251208/sports-performance-analyzer/internal/blob"
	"github.com/Niyati251208/sports-performance-analyzer/internal/events"
	"github.com/Niyati251208/sports-performance-analyzer/internal/metrics"
	"github.com/Niyati251208/sports-performance-analyzer/internal/services/media"
	"github.com/Niyati251208/sports-performance-analyzer/internal/storage"
	"github.com/Niyati251208/sports-performance-analyzer/internal/types/uploads"
)

const defaultTimeout = 30 * time.Second

// UploadRequest is one incoming video. Identity may be nil for anonymous uploads.
type UploadRequest struct {
	Sport    string
	Identity *uploads.Identity
	File     io.Reader
	Filename string
}

type Options struct {
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	// Timeout bounds each blob and store call. Zero means 30s.
	Timeout time.Duration
}

type Service struct {
	store     storage.Storage
	blobs     blob.Store
	validator *media.Validator
	namer     *media.Namer
	publisher events.Publisher
	metrics   *metrics.Metrics
	timeout   time.Duration
}

func NewService(store storage.Storage, blobs blob.Store, validator *media.Validator, namer *media.Namer, opts Options) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		store:     store,
		blobs:     blobs,
		validator: validator,
		namer:     namer,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		timeout:   timeout,
	}
}

// Upload validates, stores and records one video.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (uploads.UploadRecord, error) {
	rec, err := s.upload(ctx, req)
	switch {
	case err == nil:
		s.metrics.Upload(metrics.ResultSuccess, rec.SizeBytes)
	case IsValidation(err):
		s.metrics.Upload(metrics.ResultRejected, 0)
	default:
		s.metrics.Upload(metrics.ResultError, 0)
	}
	return rec, err
}

func (s *Service) upload(ctx context.Context, req UploadRequest) (uploads.UploadRecord, error) {
	if req.File == nil {
		return uploads.UploadRecord{}, invalid(ErrMissingFile, "No video uploaded")
	}

	sport := strings.TrimSpace(req.Sport)
	if sport == "" {
		return uploads.UploadRecord{}, invalid(ErrMissingParameter, "Sport required")
	}

	ext, err := s.validator.Validate(req.Filename)
	if err != nil {
		return uploads.UploadRecord{}, invalid(errors.Join(ErrUnsupportedFormat, err), "Only video files allowed")
	}

	body := req.File
	if s.validator.SniffEnabled() {
		head, rest, err := peek(req.File, media.SniffLen)
		if err != nil {
			return uploads.UploadRecord{}, storageErr("read upload", err)
		}
		if err := s.validator.Sniff(head); err != nil {
			return uploads.UploadRecord{}, invalid(errors.Join(ErrUnsupportedFormat, err), "Only video files allowed")
		}
		body = rest
	}

	name := s.namer.Name(ext)

	writeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	info, err := s.blobs.Write(writeCtx, name, body)
	cancel()
	if err != nil {
		return uploads.UploadRecord{}, storageErr("write blob", err)
	}

	rec := uploads.UploadRecord{
		Sport:     sport,
		Filename:  info.Name,
		Filepath:  info.Path,
		SizeBytes: info.Size,
		Checksum:  info.Checksum,
	}
	if req.Identity != nil {
		rec.UserName = req.Identity.Name
		rec.UserEmail = req.Identity.Email
	}

	insertCtx, cancel := context.WithTimeout(ctx, s.timeout)
	saved, err := s.store.InsertUpload(insertCtx, rec)
	cancel()
	if err != nil {
		s.compensate(ctx, info.Path)
		return uploads.UploadRecord{}, storageErr("insert record", err)
	}

	saved.URL = s.blobs.Resolve(saved.Filename)
	slog.Info("Upload stored",
		slog.Int64("id", saved.ID),
		slog.String("sport", saved.Sport),
		slog.String("filename", saved.Filename),
		slog.Int64("size_bytes", saved.SizeBytes))

	if s.publisher != nil {
		s.publisher.PublishUploadCreated(saved)
	}
	return saved, nil
}

// compensate removes a blob whose record could not be written. It runs even if the
// request context is already done, so a client hang-up cannot leave the orphan behind.
func (s *Service) compensate(ctx context.Context, path string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if _, err := s.blobs.Remove(cctx, path); err != nil {
		s.metrics.Compensation("failed")
		slog.Error("Failed to remove blob after insert failure; left for reconcile",
			slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	s.metrics.Compensation("removed")
	slog.Warn("Removed blob after insert failure", slog.String("path", path))
}

// ListForUser returns the uploads of email, newest first. No match is an empty slice.
func (s *Service) ListForUser(ctx context.Context, email string) ([]uploads.UploadRecord, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, invalid(ErrMissingParameter, "Email required")
	}

	listCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records, err := s.store.ListUploadsByEmail(listCtx, email)
	if err != nil {
		return nil, storageErr("list records", err)
	}
	if records == nil {
		records = []uploads.UploadRecord{}
	}
	for i := range records {
		records[i].URL = s.blobs.Resolve(records[i].Filename)
	}
	return records, nil
}

// Delete removes the blob and then the record of id. It reports false, without an
// error, when no record has id.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.delete(ctx, id)
	switch {
	case err != nil && IsValidation(err):
		s.metrics.Delete(metrics.ResultRejected)
	case err != nil:
		s.metrics.Delete(metrics.ResultError)
	case !deleted:
		s.metrics.Delete(metrics.ResultNotFound)
	default:
		s.metrics.Delete(metrics.ResultSuccess)
	}
	return deleted, err
}

func (s *Service) delete(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, invalid(ErrMissingParameter, "ID required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec, err := s.store.FindUploadByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("find record", err)
	}

	removed, err := s.blobs.Remove(ctx, rec.Filepath)
	if err != nil {
		return false, storageErr("remove blob", err)
	}
	if !removed {
		slog.Warn("Blob already missing for record", slog.Int64("id", id), slog.String("path", rec.Filepath))
	}

	deleted, err := s.store.DeleteUploadByID(ctx, id)
	if err != nil {
		return false, storageErr("delete record", err)
	}
	if !deleted {
		// A concurrent delete got there first.
		return false, nil
	}

	slog.Info("Upload deleted", slog.Int64("id", id), slog.String("filename", rec.Filename))
	if s.publisher != nil {
		s.publisher.PublishUploadDeleted(rec)
	}
	return true, nil
}

// peek returns up to n leading bytes of r and a reader that still yields all of r.
// Seekable uploads are rewound rather than buffered, so they stay seekable for the
// blob store.
func peek(r io.Reader, n int) ([]byte, io.Reader, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		start, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, nil, err
		}
		head := make([]byte, n)
		m, err := io.ReadFull(rs, head)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil, err
		}
		if _, err := rs.Seek(start, io.SeekStart); err != nil {
			return nil, nil, err
		}
		return head[:m], rs, nil
	}

	br := bufio.NewReaderSize(r, n)
	head, err := br.Peek(n)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}
	return head, br, nil
}
