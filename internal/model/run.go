package model

import "time"

// Run is a completed RunResult as stored in the history database.
type Run struct {
	ID         string         `json:"id"`
	Filename   string         `json:"filename"`
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"`
	ImagePath  string         `json:"image_path"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	CreatedAt  time.Time      `json:"created_at"`
	Detections []RunDetection `json:"detections,omitempty"`
}

// RunDetection is a stored detection row.
type RunDetection struct {
	ID         int64   `json:"id"`
	RunID      string  `json:"run_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	XMin       int     `json:"x_min"`
	YMin       int     `json:"y_min"`
	XMax       int     `json:"x_max"`
	YMax       int     `json:"y_max"`
	Color      string  `json:"color"`
}

// RunFilter narrows history queries.
type RunFilter struct {
	Label  string
	Limit  int
	Offset int
}
