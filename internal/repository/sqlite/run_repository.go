package sqlite

import (
	"database/sql"
	"fmt"

	"visiondash/internal/model"
)

// RunRepository implements repository.RunRepository for SQLite.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Insert adds a new run record to the database.
func (r *RunRepository) Insert(run *model.Run) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO runs (id, filename, label, confidence, image_path, width, height, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Filename, run.Label, run.Confidence, run.ImagePath, run.Width, run.Height, run.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// GetByID retrieves a run and its detections. It returns nil, nil when no
// run has that id.
func (r *RunRepository) GetByID(id string) (*model.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var run model.Run
	err := r.db.Conn().QueryRow(`
		SELECT id, filename, label, confidence, image_path, width, height, created_at
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Filename, &run.Label, &run.Confidence, &run.ImagePath, &run.Width, &run.Height, &run.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Detections, err = queryDetections(r.db.Conn(), run.ID)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetAll retrieves runs newest first. A label filter matches either the
// classification label or any detection label.
func (r *RunRepository) GetAll(filter *model.RunFilter) ([]model.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT DISTINCT r.id, r.filename, r.label, r.confidence, r.image_path, r.width, r.height, r.created_at
		FROM runs r
		LEFT JOIN detections d ON r.id = d.run_id
		WHERE 1=1
	`
	where, args := filterClause(filter)
	query += where
	query += " ORDER BY r.created_at DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		if err := rows.Scan(&run.ID, &run.Filename, &run.Label, &run.Confidence, &run.ImagePath, &run.Width, &run.Height, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		runs[i].Detections, err = queryDetections(r.db.Conn(), runs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// GetTotalCount returns the number of runs matching the filter.
func (r *RunRepository) GetTotalCount(filter *model.RunFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT COUNT(DISTINCT r.id)
		FROM runs r
		LEFT JOIN detections d ON r.id = d.run_id
		WHERE 1=1
	`
	where, args := filterClause(filter)
	query += where

	var count int
	if err := r.db.Conn().QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// Delete removes a run; its detections go with it.
func (r *RunRepository) Delete(id string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

func filterClause(filter *model.RunFilter) (string, []interface{}) {
	if filter == nil || filter.Label == "" {
		return "", nil
	}
	return " AND (r.label = ? OR d.label = ?)", []interface{}{filter.Label, filter.Label}
}
