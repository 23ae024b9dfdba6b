package repository

import (
	"visiondash/internal/model"
)

// RunRepository defines the interface for run history operations.
type RunRepository interface {
	// Create operations
	Insert(run *model.Run) error

	// Read operations
	GetByID(id string) (*model.Run, error)
	GetAll(filter *model.RunFilter) ([]model.Run, error)
	GetTotalCount(filter *model.RunFilter) (int, error)

	// Delete operations
	Delete(id string) error
}

// DetectionRepository defines the interface for stored detection operations.
type DetectionRepository interface {
	// Create operations
	InsertBatch(detections []model.RunDetection) error

	// Read operations
	GetByRunID(runID string) ([]model.RunDetection, error)
	GetAllLabels() ([]string, error)
}
