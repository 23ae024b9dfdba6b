package handler

import (
	"bytes"
	"encoding/base64"
	"net/http"

	"github.com/disintegration/imaging"

	"visiondash/internal/config"
	"visiondash/internal/dto"
	"visiondash/internal/logger"
	"visiondash/internal/model"
	"visiondash/internal/repository"
	"visiondash/internal/service"
)

// AnalyzeHandler handles POST /api/analyze: upload and run in one request,
// answered with JSON. The annotated PNG is included as base64 unless
// ?annotated=false.
func AnalyzeHandler(cfg *config.Config, pipeline *service.Pipeline, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upload, err := decodeUpload(w, r, cfg)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		sid, _ := existingSessionID(r)
		result, err := pipeline.RunWithThreshold(r.Context(), sid, upload, parseThreshold(r.FormValue("threshold")))
		if err != nil {
			writeError(w, logger, err)
			return
		}

		annotated := ""
		if r.URL.Query().Get("annotated") != "false" {
			var buf bytes.Buffer
			if err := imaging.Encode(&buf, result.Annotated, imaging.PNG); err != nil {
				logger.Error("Error encoding annotated image: %v", err)
			} else {
				annotated = base64.StdEncoding.EncodeToString(buf.Bytes())
			}
		}

		writeJSON(w, logger, http.StatusOK, dto.NewAnalyzeResponse(result, annotated))
	}
}

// StatusHandler handles GET /api/status.
func StatusHandler(pipeline *service.Pipeline, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, pipeline.Status())
	}
}

// RunsHandler handles GET /api/runs: the paginated run history, optionally
// filtered by label. runRepo is nil when history is disabled.
func RunsHandler(runRepo repository.RunRepository, detectionRepo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runRepo == nil {
			writeJSON(w, logger, http.StatusNotFound, dto.ErrorResponse{Error: "run history is disabled", Kind: "request"})
			return
		}

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)
		if limit > 200 {
			limit = 200
		}

		filter := &model.RunFilter{
			Label:  q.Get("label"),
			Limit:  limit,
			Offset: (page - 1) * limit,
		}

		runs, err := runRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying runs from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := runRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting runs: %v", err)
			totalCount = len(runs)
		}

		labels := []string{}
		if detectionRepo != nil {
			if all, err := detectionRepo.GetAllLabels(); err != nil {
				logger.Error("Error listing labels: %v", err)
			} else if all != nil {
				labels = all
			}
		}

		infos := make([]dto.RunInfo, 0, len(runs))
		for _, run := range runs {
			infos = append(infos, dto.NewRunInfo(run))
		}

		writeJSON(w, logger, http.StatusOK, dto.RunsData{
			Runs:        infos,
			Labels:      labels,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}
