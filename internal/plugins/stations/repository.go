package stations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/radio/internal/apperror"
)

const mysqlDuplicateEntry = 1062

// StationRepository is the data access contract for stations.
type StationRepository interface {
	List(ctx context.Context) ([]Station, error)
	FindByID(ctx context.Context, id string) (*Station, error)
	Create(ctx context.Context, s *Station) error
	Update(ctx context.Context, s *Station) error
	Delete(ctx context.Context, id string) error
	SetArtwork(ctx context.Context, id, artwork, color string) error
}

type stationRepository struct {
	db *sql.DB
}

// NewStationRepository creates a MariaDB-backed station repository.
func NewStationRepository(db *sql.DB) StationRepository {
	return &stationRepository{db: db}
}

const stationColumns = `id, name, description, url, color, auto_restart, sort_order, artwork, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStation(row rowScanner) (*Station, error) {
	var (
		s                           Station
		description, color, artwork sql.NullString
	)
	err := row.Scan(
		&s.ID,
		&s.Name,
		&description,
		&s.URL,
		&color,
		&s.AutoRestart,
		&s.SortOrder,
		&artwork,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Description = description.String
	s.Color = color.String
	s.Artwork = artwork.String
	return &s, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// List returns all stations in display order.
func (r *stationRepository) List(ctx context.Context) ([]Station, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+stationColumns+` FROM stations ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("listing stations: %w", err)
	}
	defer rows.Close()

	var stations []Station
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning station: %w", err)
		}
		stations = append(stations, *s)
	}
	return stations, rows.Err()
}

// FindByID returns one station or apperror NotFound.
func (r *stationRepository) FindByID(ctx context.Context, id string) (*Station, error) {
	s, err := scanStation(r.db.QueryRowContext(ctx,
		`SELECT `+stationColumns+` FROM stations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("station not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying station: %w", err)
	}
	return s, nil
}

// Create inserts a station. A taken ID yields apperror Conflict.
func (r *stationRepository) Create(ctx context.Context, s *Station) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stations (id, name, description, url, color, auto_restart, sort_order, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, nullable(s.Description), s.URL, nullable(s.Color),
		s.AutoRestart, s.SortOrder, s.CreatedAt,
	)
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return apperror.NewConflict(fmt.Sprintf("a station with id %q already exists", s.ID))
	}
	if err != nil {
		return fmt.Errorf("inserting station: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of a station.
func (r *stationRepository) Update(ctx context.Context, s *Station) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE stations SET name = ?, description = ?, url = ?, color = ?,
		        auto_restart = ?, sort_order = ?
		 WHERE id = ?`,
		s.Name, nullable(s.Description), s.URL, nullable(s.Color),
		s.AutoRestart, s.SortOrder, s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating station: %w", err)
	}
	return requireRow(res)
}

// Delete removes a station.
func (r *stationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting station: %w", err)
	}
	return requireRow(res)
}

// SetArtwork records the artwork file and the (possibly derived) colour.
func (r *stationRepository) SetArtwork(ctx context.Context, id, artwork, color string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE stations SET artwork = ?, color = ? WHERE id = ?`,
		nullable(artwork), nullable(color), id,
	)
	if err != nil {
		return fmt.Errorf("updating station artwork: %w", err)
	}
	return requireRow(res)
}

// requireRow maps "no row matched" to NotFound. The DSN enables
// clientFoundRows so unchanged rows still count as matched.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("station not found")
	}
	return nil
}
