package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"visiondash/internal/config"
	"visiondash/internal/logger"
	"visiondash/internal/model"
	"visiondash/internal/service/ingest"
	"visiondash/internal/service/session"
)

// readFormFile reads one multipart file field, capped at MAX_UPLOAD_MB.
func readFormFile(w http.ResponseWriter, r *http.Request, cfg *config.Config, field string) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("invalid upload form: %w", err)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("no %s file in the form", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	return data, filepath.Base(header.Filename), nil
}

// decodeUpload reads the "image" field and turns it into an Upload.
func decodeUpload(w http.ResponseWriter, r *http.Request, cfg *config.Config) (*model.Upload, error) {
	data, filename, err := readFormFile(w, r, cfg, "image")
	if err != nil {
		return nil, err
	}

	bitmap, err := ingest.Decode(data, filename)
	if err != nil {
		return nil, err
	}

	return &model.Upload{
		ID:         uuid.NewString(),
		Filename:   filename,
		Bitmap:     bitmap,
		UploadedAt: time.Now(),
	}, nil
}

// UploadHandler handles POST /upload: decodes the image and stores it as the
// session's pending upload. Nothing is processed until /run.
func UploadHandler(cfg *config.Config, sessions *session.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(w, r)

		upload, err := decodeUpload(w, r, cfg)
		if err != nil {
			logger.Warning("Upload rejected: %v", err)
			sessions.SetError(sid, userMessage(err))
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		sessions.SetUpload(sid, upload)
		logger.Info("Uploaded %s (%dx%d)", upload.Filename, upload.Bitmap.Bounds().Dx(), upload.Bitmap.Bounds().Dy())
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
