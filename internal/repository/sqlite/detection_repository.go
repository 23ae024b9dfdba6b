package sqlite

import (
	"database/sql"
	"fmt"

	"visiondash/internal/model"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// InsertBatch adds multiple detections in a single transaction.
func (r *DetectionRepository) InsertBatch(detections []model.RunDetection) error {
	if len(detections) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO detections (run_id, label, confidence, x_min, y_min, x_max, y_max, color)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, det := range detections {
		if _, err := stmt.Exec(det.RunID, det.Label, det.Confidence, det.XMin, det.YMin, det.XMax, det.YMax, det.Color); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	return tx.Commit()
}

// GetByRunID retrieves the detections of a run in their original order.
func (r *DetectionRepository) GetByRunID(runID string) ([]model.RunDetection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return queryDetections(r.db.Conn(), runID)
}

// GetAllLabels returns every distinct detection label.
func (r *DetectionRepository) GetAllLabels() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT label FROM detections ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}

	return labels, rows.Err()
}

func queryDetections(conn *sql.DB, runID string) ([]model.RunDetection, error) {
	rows, err := conn.Query(`
		SELECT id, run_id, label, confidence, x_min, y_min, x_max, y_max, color
		FROM detections WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var detections []model.RunDetection
	for rows.Next() {
		var det model.RunDetection
		if err := rows.Scan(&det.ID, &det.RunID, &det.Label, &det.Confidence, &det.XMin, &det.YMin, &det.XMax, &det.YMax, &det.Color); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, det)
	}

	return detections, rows.Err()
}
