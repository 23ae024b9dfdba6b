package handler

import (
	"net/http"

	"visiondash/internal/config"
	"visiondash/internal/logger"
	"visiondash/internal/service"
	"visiondash/internal/service/session"
)

// ModelUploadHandler handles POST /models/detection: loads uploaded weights
// and makes them the active detector.
func ModelUploadHandler(cfg *config.Config, pipeline *service.Pipeline, sessions *session.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(w, r)

		if !cfg.ModelUploadEnabled {
			sessions.SetError(sid, userMessage(service.ErrModelUploadDisabled))
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		data, filename, err := readFormFile(w, r, cfg, "weights")
		if err == nil {
			err = pipeline.ReplaceDetector(data, filename)
		}
		if err != nil {
			logger.Warning("Detection weights upload failed: %v", err)
			sessions.SetError(sid, userMessage(err))
		} else {
			sessions.SetError(sid, "")
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
