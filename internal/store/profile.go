package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ProfileType distinguishes static pose profiles from motion-path profiles.
type ProfileType string

const (
	// ProfileTypeStatic is a static hand pose profile.
	ProfileTypeStatic ProfileType = "static"
	// ProfileTypePath is a motion-path profile matched with DTW.
	ProfileTypePath ProfileType = "path"
)

// Profile is a persisted gesture profile. Data holds the trained reference
// as JSON: a flat descriptor for static profiles, a point path for path
// profiles.
type Profile struct {
	ID        string
	Name      string
	Type      ProfileType
	Data      json.RawMessage
	Threshold float64
	Samples   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileRepository provides CRUD operations for gesture profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

// Create inserts a new profile into the database.
func (r *ProfileRepository) Create(p *Profile) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO profiles (id, name, type, data, threshold, samples, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.Type), string(p.Data), p.Threshold, p.Samples, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	return r.get(`SELECT id, name, type, data, threshold, samples, created_at, updated_at
		 FROM profiles WHERE id = ?`, id)
}

// GetByName retrieves a profile by its name.
func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	return r.get(`SELECT id, name, type, data, threshold, samples, created_at, updated_at
		 FROM profiles WHERE name = ?`, name)
}

func (r *ProfileRepository) get(query string, arg any) (*Profile, error) {
	p := &Profile{}
	var profileType, data string

	err := r.db.QueryRow(query, arg).Scan(
		&p.ID, &p.Name, &profileType, &data, &p.Threshold, &p.Samples, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p.Type = ProfileType(profileType)
	p.Data = json.RawMessage(data)
	return p, nil
}

// List retrieves all profiles.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(
		`SELECT id, name, type, data, threshold, samples, created_at, updated_at
		 FROM profiles ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p := &Profile{}
		var profileType, data string

		err := rows.Scan(&p.ID, &p.Name, &profileType, &data, &p.Threshold, &p.Samples, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}

		p.Type = ProfileType(profileType)
		p.Data = json.RawMessage(data)
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

// Update updates an existing profile, as after retraining.
func (r *ProfileRepository) Update(p *Profile) error {
	p.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE profiles SET name = ?, type = ?, data = ?, threshold = ?, samples = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, string(p.Type), string(p.Data), p.Threshold, p.Samples, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a profile by its ID. Samples cascade.
func (r *ProfileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
