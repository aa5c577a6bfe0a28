package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Gesture profiles - trained reference descriptors / paths
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL CHECK(type IN ('static', 'path')),
			data TEXT NOT NULL,
			threshold REAL NOT NULL,
			samples INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Raw recorded samples, kept so profiles can be retrained
		`CREATE TABLE IF NOT EXISTS profile_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			sample_index INTEGER NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Fitted calibration models; at most one row is active
		`CREATE TABLE IF NOT EXISTS calibrations (
			id TEXT PRIMARY KEY,
			coeff_x TEXT NOT NULL,
			coeff_y TEXT NOT NULL,
			residual REAL NOT NULL,
			samples INTEGER NOT NULL,
			active INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Trigger-to-plugin bindings; trigger is a gesture profile name or
		// the built-in "dwell_click"
		`CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			trigger_name TEXT NOT NULL,
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_profile_samples_profile_id ON profile_samples(profile_id)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_trigger ON actions(trigger_name)`,
		`CREATE INDEX IF NOT EXISTS idx_calibrations_active ON calibrations(active)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
