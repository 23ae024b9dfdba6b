package dto

import (
	"encoding/json"
	"time"

	"visiondash/internal/model"
)

// RunInfo is one stored run in the history listing.
type RunInfo struct {
	ID         string               `json:"id"`
	Filename   string               `json:"filename"`
	Label      string               `json:"label"`
	Confidence float64              `json:"confidence"`
	Width      int                  `json:"width"`
	Height     int                  `json:"height"`
	CreatedAt  time.Time            `json:"createdAt"`
	Objects    []string             `json:"objects"`
	Detections []model.RunDetection `json:"detections"`
}

// MarshalJSON formats the creation time like the dashboard shows it.
func (r RunInfo) MarshalJSON() ([]byte, error) {
	type Alias RunInfo
	return json.Marshal(&struct {
		CreatedAt string `json:"createdAt"`
		Alias
	}{
		CreatedAt: r.CreatedAt.Format("02-01-2006 15:04:05"),
		Alias:     (Alias)(r),
	})
}

// NewRunInfo converts a stored run.
func NewRunInfo(run model.Run) RunInfo {
	objects := []string{}
	seen := make(map[string]bool)
	for _, d := range run.Detections {
		if !seen[d.Label] {
			seen[d.Label] = true
			objects = append(objects, d.Label)
		}
	}
	detections := run.Detections
	if detections == nil {
		detections = []model.RunDetection{}
	}
	return RunInfo{
		ID:         run.ID,
		Filename:   run.Filename,
		Label:      run.Label,
		Confidence: run.Confidence,
		Width:      run.Width,
		Height:     run.Height,
		CreatedAt:  run.CreatedAt,
		Objects:    objects,
		Detections: detections,
	}
}

// RunsData is a paginated response payload for the run history.
type RunsData struct {
	Runs        []RunInfo `json:"runs"`
	Labels      []string  `json:"labels"`
	Length      int       `json:"length"`
	TotalPages  int       `json:"totalPages"`
	CurrentPage int       `json:"currentPage"`
	Limit       int       `json:"pageSize"`
}
