package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Calibration is a persisted calibration model. The coefficient arrays are
// stored as JSON text.
type Calibration struct {
	ID        string
	CoeffX    [3]float64
	CoeffY    [3]float64
	Residual  float64
	Samples   int
	Active    bool
	CreatedAt time.Time
}

// CalibrationRepository persists fitted calibration models.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

// Save inserts a calibration and marks it active, deactivating any prior
// one in the same transaction.
func (r *CalibrationRepository) Save(c *Calibration) error {
	coeffX, err := json.Marshal(c.CoeffX)
	if err != nil {
		return fmt.Errorf("failed to encode coefficients: %w", err)
	}
	coeffY, err := json.Marshal(c.CoeffY)
	if err != nil {
		return fmt.Errorf("failed to encode coefficients: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE calibrations SET active = 0 WHERE active = 1`); err != nil {
		return err
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err = tx.Exec(
		`INSERT INTO calibrations (id, coeff_x, coeff_y, residual, samples, active, created_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?)`,
		c.ID, string(coeffX), string(coeffY), c.Residual, c.Samples, c.CreatedAt,
	)
	if err != nil {
		return err
	}

	c.Active = true
	return tx.Commit()
}

// Active returns the active calibration, or nil when none has been saved.
func (r *CalibrationRepository) Active() (*Calibration, error) {
	c := &Calibration{Active: true}
	var coeffX, coeffY string

	err := r.db.QueryRow(
		`SELECT id, coeff_x, coeff_y, residual, samples, created_at
		 FROM calibrations WHERE active = 1 ORDER BY created_at DESC LIMIT 1`,
	).Scan(&c.ID, &coeffX, &coeffY, &c.Residual, &c.Samples, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No calibration yet
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(coeffX), &c.CoeffX); err != nil {
		return nil, fmt.Errorf("failed to decode coefficients: %w", err)
	}
	if err := json.Unmarshal([]byte(coeffY), &c.CoeffY); err != nil {
		return nil, fmt.Errorf("failed to decode coefficients: %w", err)
	}

	return c, nil
}

// List retrieves all saved calibrations, newest first.
func (r *CalibrationRepository) List() ([]*Calibration, error) {
	rows, err := r.db.Query(
		`SELECT id, coeff_x, coeff_y, residual, samples, active, created_at
		 FROM calibrations ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calibrations []*Calibration
	for rows.Next() {
		c := &Calibration{}
		var coeffX, coeffY string
		var active int

		if err := rows.Scan(&c.ID, &coeffX, &coeffY, &c.Residual, &c.Samples, &active, &c.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(coeffX), &c.CoeffX); err != nil {
			return nil, fmt.Errorf("failed to decode coefficients: %w", err)
		}
		if err := json.Unmarshal([]byte(coeffY), &c.CoeffY); err != nil {
			return nil, fmt.Errorf("failed to decode coefficients: %w", err)
		}
		c.Active = active != 0
		calibrations = append(calibrations, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return calibrations, nil
}
