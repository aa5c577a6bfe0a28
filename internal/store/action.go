package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// TriggerDwellClick is the built-in trigger name for dwell clicks; other
// triggers are gesture profile names.
const TriggerDwellClick = "dwell_click"

// Action is a trigger-to-plugin binding stored in the database.
type Action struct {
	ID         string
	Trigger    string
	PluginName string
	ActionName string
	Config     json.RawMessage
	Enabled    bool
	CreatedAt  time.Time
}

// ActionRepository provides CRUD operations for action bindings.
type ActionRepository struct {
	db *sql.DB
}

// Actions returns the action repository for this store.
func (s *Store) Actions() *ActionRepository {
	return &ActionRepository{db: s.db}
}

// Create inserts a new action binding into the database.
func (r *ActionRepository) Create(a *Action) error {
	a.CreatedAt = time.Now()

	config := a.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	_, err := r.db.Exec(
		`INSERT INTO actions (id, trigger_name, plugin_name, action_name, config, enabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Trigger, a.PluginName, a.ActionName, string(config), a.Enabled, a.CreatedAt,
	)
	return err
}

// GetByID retrieves an action by its ID.
func (r *ActionRepository) GetByID(id string) (*Action, error) {
	a := &Action{}
	var config string
	var enabled int

	err := r.db.QueryRow(
		`SELECT id, trigger_name, plugin_name, action_name, config, enabled, created_at
		 FROM actions WHERE id = ?`,
		id,
	).Scan(&a.ID, &a.Trigger, &a.PluginName, &a.ActionName, &config, &enabled, &a.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	a.Config = json.RawMessage(config)
	a.Enabled = enabled != 0
	return a, nil
}

// GetByTrigger retrieves the binding for a trigger.
// Returns nil, nil when the trigger has no binding.
func (r *ActionRepository) GetByTrigger(trigger string) (*Action, error) {
	a := &Action{}
	var config string
	var enabled int

	err := r.db.QueryRow(
		`SELECT id, trigger_name, plugin_name, action_name, config, enabled, created_at
		 FROM actions WHERE trigger_name = ?`,
		trigger,
	).Scan(&a.ID, &a.Trigger, &a.PluginName, &a.ActionName, &config, &enabled, &a.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Silent skip - nothing bound
		}
		return nil, err
	}

	a.Config = json.RawMessage(config)
	a.Enabled = enabled != 0
	return a, nil
}

// List retrieves all action bindings.
func (r *ActionRepository) List() ([]*Action, error) {
	rows, err := r.db.Query(
		`SELECT id, trigger_name, plugin_name, action_name, config, enabled, created_at
		 FROM actions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*Action
	for rows.Next() {
		a := &Action{}
		var config string
		var enabled int

		err := rows.Scan(&a.ID, &a.Trigger, &a.PluginName, &a.ActionName, &config, &enabled, &a.CreatedAt)
		if err != nil {
			return nil, err
		}

		a.Config = json.RawMessage(config)
		a.Enabled = enabled != 0
		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return actions, nil
}

// Update updates an existing action binding.
func (r *ActionRepository) Update(a *Action) error {
	config := a.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	enabled := 0
	if a.Enabled {
		enabled = 1
	}

	result, err := r.db.Exec(
		`UPDATE actions SET trigger_name = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		a.Trigger, a.PluginName, a.ActionName, string(config), enabled, a.ID,
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

// Delete removes an action binding by its ID.
func (r *ActionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM actions WHERE id = ?`, id)
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
