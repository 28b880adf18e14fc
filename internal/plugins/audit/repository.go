package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AuditRepository is the data access contract for the audit log.
type AuditRepository interface {
	// Log inserts an entry and sets its ID.
	Log(ctx context.Context, entry *Entry) error

	// List returns entries most recent first, plus the total count.
	List(ctx context.Context, limit, offset int) ([]Entry, int, error)

	// ListByStation returns the most recent entries about one station.
	ListByStation(ctx context.Context, stationID string, limit int) ([]Entry, error)
}

type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a repository backed by the given DB pool.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Log inserts an entry. Details are stored as JSON; nil details as NULL.
func (r *auditRepository) Log(ctx context.Context, entry *Entry) error {
	var detailsJSON []byte
	if entry.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshaling audit details: %w", err)
		}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (user_id, action, station_id, station_name, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		nullable(entry.UserID), entry.Action, nullable(entry.StationID), nullable(entry.StationName),
		detailsJSON, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting audit entry id: %w", err)
	}
	entry.ID = id
	return nil
}

const selectEntries = `SELECT a.id, COALESCE(a.user_id, ''), a.action,
	       COALESCE(a.station_id, ''), COALESCE(a.station_name, ''),
	       a.details, a.created_at, COALESCE(u.username, '') AS user_name
	FROM audit_log a
	LEFT JOIN users u ON u.id = a.user_id`

// List returns a page of entries, most recent first.
func (r *auditRepository) List(ctx context.Context, limit, offset int) ([]Entry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		selectEntries+` ORDER BY a.created_at DESC, a.id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListByStation returns the latest entries about one station.
func (r *auditRepository) ListByStation(ctx context.Context, stationID string, limit int) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		selectEntries+` WHERE a.station_id = ? ORDER BY a.created_at DESC, a.id DESC LIMIT ?`,
		stationID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing station audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var detailsJSON sql.NullString
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Action,
			&e.StationID, &e.StationName,
			&detailsJSON, &e.CreatedAt, &e.UserName,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &e.Details); err != nil {
				// Keep the feed readable even if one row is damaged.
				e.Details = map[string]any{"_parse_error": "invalid JSON"}
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}
	return entries, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
