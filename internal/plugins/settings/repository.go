package settings

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/keyxmakerx/radio/internal/apperror"
)

// SettingsRepository is the data access contract for the site_settings
// key/value table.
type SettingsRepository interface {
	// Set upserts a value.
	Set(ctx context.Context, key, value string) error

	// GetAll returns every setting as a key-value map.
	GetAll(ctx context.Context) (map[string]string, error)
}

type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a settings repository backed by MariaDB.
func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Set upserts a setting value using INSERT ... ON DUPLICATE KEY UPDATE.
func (r *settingsRepository) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO site_settings (setting_key, setting_value)
	          VALUES (?, ?)
	          ON DUPLICATE KEY UPDATE setting_value = VALUES(setting_value)`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return apperror.NewInternal(fmt.Errorf("upserting setting %q: %w", key, err))
	}
	return nil
}

// GetAll returns all settings as a key-value map.
func (r *settingsRepository) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT setting_key, setting_value FROM site_settings`)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("querying all settings: %w", err))
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("scanning setting row: %w", err))
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("iterating settings: %w", err))
	}
	return result, nil
}
