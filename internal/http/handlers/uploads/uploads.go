package uploads

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Niyati251208/sports-performance-analyzer/internal/http/middleware"
	"github.com/Niyati251208/sports-performance-analyzer/internal/services/videos"
	"github.com/Niyati251208/sports-performance-analyzer/internal/types/uploads"
	"github.com/Niyati251208/sports-performance-analyzer/internal/utils/response"
)

const (
	// Form parts up to this size stay in memory, larger files spill to disk.
	maxMemory = 32 << 20
	// Room for the non-file form fields and multipart framing.
	formOverhead = 1 << 20
)

// Service is the part of the upload coordinator the handlers need.
type Service interface {
	Upload(ctx context.Context, req videos.UploadRequest) (uploads.UploadRecord, error)
	ListForUser(ctx context.Context, email string) ([]uploads.UploadRecord, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type UploadHandlers struct {
	service     Service
	maxFileSize int64
}

// NewUploadHandlers creates the upload, listing and delete handlers. maxFileSize <= 0 means no limit.
func NewUploadHandlers(service Service, maxFileSize int64) *UploadHandlers {
	return &UploadHandlers{
		service:     service,
		maxFileSize: maxFileSize,
	}
}

// writeServiceError maps coordinator errors to the response envelope.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var ve *videos.ValidationError
	if errors.As(err, &ve) {
		response.WriteJSON(w, http.StatusBadRequest, response.Failure(ve.Message))
		return
	}

	slog.Error("Request failed", slog.String("op", op), slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError())
}

// writeValidationError names the failing fields, falling back to fallback for other validator errors.
func writeValidationError(w http.ResponseWriter, err error, fallback string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verrs))
		return
	}
	response.WriteJSON(w, http.StatusBadRequest, response.Failure(fallback))
}

// Upload stores a video for a sport
// @Summary Upload a video
// @Description Multipart upload with a "video" file part and an optional "user" part holding {"name","email"} as JSON. A Bearer token identity is used when "user" is absent.
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param sport path string true "Sport name"
// @Param video formData file true "Video file (.mp4, .mov, .avi, .webm)"
// @Param user formData string false "Uploader identity as JSON"
// @Success 200 {object} uploads.UploadResponse "Uploaded successfully"
// @Failure 400 {object} response.Response "No video uploaded or unsupported format"
// @Failure 429 {object} response.Response "Too many uploads"
// @Failure 500 {object} response.Response "Server error"
// @Router /upload/{sport} [post]
func (h *UploadHandlers) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.maxFileSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+formOverhead)
		}

		if err := r.ParseMultipartForm(maxMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.WriteJSON(w, http.StatusBadRequest, response.Failure("Video exceeds maximum size"))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.Failure("No video uploaded"))
			return
		}
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				slog.Warn("Failed to remove multipart temp files", slog.String("error", err.Error()))
			}
		}()

		file, header, err := r.FormFile("video")
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.Failure("No video uploaded"))
			return
		}
		defer file.Close()

		if h.maxFileSize > 0 && header.Size > h.maxFileSize {
			response.WriteJSON(w, http.StatusBadRequest, response.Failure("Video exceeds maximum size"))
			return
		}

		identity, err := uploads.ParseIdentity(r.FormValue("user"))
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.Failure("Invalid user"))
			return
		}
		if identity == nil {
			if fromToken, ok := middleware.GetIdentityFromContext(r.Context()); ok {
				identity = fromToken
			}
		}

		rec, err := h.service.Upload(r.Context(), videos.UploadRequest{
			Sport:    r.PathValue("sport"),
			Identity: identity,
			File:     file,
			Filename: header.Filename,
		})
		if err != nil {
			writeServiceError(w, "upload", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, uploads.UploadResponse{
			Success: true,
			Message: "Uploaded successfully",
			Upload:  &rec,
		})
	}
}

// ListUploads returns the uploads of an email, newest first
// @Summary List uploads for an email
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body uploads.ListUploadsRequest true "Uploader email"
// @Success 200 {object} uploads.ListUploadsResponse "Uploads, newest first"
// @Failure 400 {object} response.Response "Email required"
// @Failure 500 {object} response.Response "Server error"
// @Router /api/uploads [post]
func (h *UploadHandlers) ListUploads() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req uploads.ListUploadsRequest

		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.Failure("Invalid request body"))
			return
		}

		if err := validator.New().Struct(req); err != nil {
			writeValidationError(w, err, "Email required")
			return
		}

		records, err := h.service.ListForUser(r.Context(), req.Email)
		if err != nil {
			writeServiceError(w, "list uploads", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, uploads.ListUploadsResponse{
			Success: true,
			Uploads: records,
		})
	}
}

// DeleteUpload removes a video and its record
// @Summary Delete an upload
// @Description An unknown id answers success false with "Not found" rather than an error status.
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body uploads.DeleteUploadRequest true "Record id"
// @Success 200 {object} response.Response "Deleted, or not found"
// @Failure 400 {object} response.Response "ID required"
// @Failure 500 {object} response.Response "Server error"
// @Router /api/delete-upload [post]
func (h *UploadHandlers) DeleteUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req uploads.DeleteUploadRequest

		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.Failure("ID required"))
			return
		}

		if err := validator.New().Struct(req); err != nil {
			writeValidationError(w, err, "ID required")
			return
		}

		deleted, err := h.service.Delete(r.Context(), int64(req.ID))
		if err != nil {
			writeServiceError(w, "delete upload", err)
			return
		}
		if !deleted {
			response.WriteJSON(w, http.StatusOK, response.Failure("Not found"))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.Response{Success: true})
	}
}
