package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"visiondash/internal/dto"
	"visiondash/internal/logger"
	"visiondash/internal/model"
	"visiondash/internal/service"
)

// userMessage turns a failure into the text shown on the dashboard.
func userMessage(err error) string {
	var decodeErr *model.DecodeError
	var unavailable *model.ModelUnavailableError
	var inference *model.InferenceError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		return fmt.Sprintf("The file is too large (limit %d MB).", tooLarge.Limit>>20)
	case errors.As(err, &decodeErr):
		return fmt.Sprintf("Could not read %q: %s. Upload a JPG or PNG image.", decodeErr.Filename, decodeErr.Reason)
	case errors.As(err, &unavailable):
		return fmt.Sprintf("The %s model is unavailable: %v", unavailable.Model, unavailable.Err)
	case errors.As(err, &inference):
		return fmt.Sprintf("%s failed: %v", inferenceTitle(inference.Model), inference.Err)
	case errors.Is(err, service.ErrNoUpload):
		return "Upload an image before running detection."
	case errors.Is(err, service.ErrModelUploadDisabled):
		return "Uploading model weights is disabled."
	default:
		return err.Error()
	}
}

func inferenceTitle(m string) string {
	switch m {
	case "detection":
		return "Detection"
	case "classification":
		return "Classification"
	default:
		return "Inference"
	}
}

// errorKind maps a failure to the API error kind and HTTP status.
func errorKind(err error) (string, int) {
	var decodeErr *model.DecodeError
	var unavailable *model.ModelUnavailableError
	var inference *model.InferenceError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		return "request", http.StatusRequestEntityTooLarge
	case errors.As(err, &decodeErr):
		return "decode", http.StatusBadRequest
	case errors.As(err, &unavailable):
		return "model_unavailable", http.StatusServiceUnavailable
	case errors.As(err, &inference):
		return "inference", http.StatusInternalServerError
	default:
		return "request", http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	kind, status := errorKind(err)
	writeJSON(w, logger, status, dto.ErrorResponse{Error: userMessage(err), Kind: kind})
}

// atoiDefault returns the positive integer in s, or def.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseThreshold reads an optional threshold; 0 means the detector default.
func parseThreshold(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v > 1 {
		return 0
	}
	return v
}
