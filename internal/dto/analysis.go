package dto

import "visiondash/internal/model"

// AnalyzeResponse is the JSON form of one RunResult.
type AnalyzeResponse struct {
	RunID          string               `json:"runId"`
	Filename       string               `json:"filename"`
	Width          int                  `json:"width"`
	Height         int                  `json:"height"`
	Classification model.Classification `json:"classification"`
	Detections     []model.Detection    `json:"detections"`
	ElapsedMs      int64                `json:"elapsedMs"`
	AnnotatedPNG   string               `json:"annotatedPng,omitempty"` // base64
}

// NewAnalyzeResponse builds the payload for result; annotated is the already
// encoded PNG, empty to leave it out.
func NewAnalyzeResponse(result *model.RunResult, annotated string) AnalyzeResponse {
	detections := result.Detections
	if detections == nil {
		detections = []model.Detection{}
	}
	return AnalyzeResponse{
		RunID:          result.ID,
		Filename:       result.Filename,
		Width:          result.Width(),
		Height:         result.Height(),
		Classification: result.Classification,
		Detections:     detections,
		ElapsedMs:      result.Elapsed.Milliseconds(),
		AnnotatedPNG:   annotated,
	}
}

// ErrorResponse is returned by the JSON API on failure.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"` // decode, model_unavailable, inference, request
}
