package handler

import (
	"errors"
	"net/http"

	"visiondash/internal/config"
	"visiondash/internal/logger"
	"visiondash/internal/service"
	"visiondash/internal/service/session"
	"visiondash/internal/view"
)

// DashboardHandler renders the main page for the caller's session.
func DashboardHandler(cfg *config.Config, pipeline *service.Pipeline, sessions *session.Store, renderer *view.Renderer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(w, r)
		st := sessions.Get(sid)
		status := pipeline.Status()

		data := view.Dashboard{
			Page: view.Page{
				Title:       cfg.Title,
				Accent:      cfg.Accent,
				AuthEnabled: cfg.AuthEnabled(),
				Error:       st.Error,
			},
			Ready:              status.Ready,
			Backend:            status.Backend,
			Threshold:          status.Threshold,
			DetectionSource:    status.Detection.Source,
			ClassifierSource:   status.Classification.Source,
			Upload:             view.NewUploadView(st.Upload),
			Result:             view.NewResultView(st),
			ModelUploadEnabled: cfg.ModelUploadEnabled,
			HistoryEnabled:     status.HistoryEnabled,
		}
		if ready, err := pipeline.Ready(); !ready {
			data.ModelError = userMessage(err)
		}

		if err := renderer.Render(w, "dashboard", data); err != nil {
			logger.Error("Error rendering dashboard: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// RunHandler handles POST /run: processes the pending upload and replaces
// the session's result. On failure the previous result stays and the error
// is shown instead.
func RunHandler(pipeline *service.Pipeline, sessions *session.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := sessionID(w, r)
		st := sessions.Get(sid)

		result, err := pipeline.RunWithThreshold(r.Context(), sid, st.Upload, parseThreshold(r.FormValue("threshold")))
		if err != nil {
			if !errors.Is(err, service.ErrNoUpload) {
				logger.Error("Run failed for session %s: %v", sid, err)
			}
			sessions.SetError(sid, userMessage(err))
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		sessions.SetResult(sid, result)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
