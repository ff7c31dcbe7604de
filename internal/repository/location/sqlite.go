package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Registers the "sqlite" driver.

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

var (
	// ErrNotFound is returned when no location matches.
	ErrNotFound = errors.New("location not found")
	// ErrAmbiguous is returned when a name matches several locations.
	ErrAmbiguous = errors.New("location name is ambiguous")
	// ErrEmptyName is returned when adding a location without a name.
	ErrEmptyName = errors.New("location name is empty")
)

// dirPermissions is used for the database directory.
const dirPermissions = 0o750

// Reader gives a tracking session read access to one record.
type Reader interface {
	Get(ctx context.Context, id string) (*geofence.Location, error)
}

// Repository manages saved locations.
type Repository interface {
	Reader
	Find(ctx context.Context, idOrName string) (*geofence.Location, error)
	List(ctx context.Context, favoritesOnly bool) ([]*geofence.Location, error)
	Add(ctx context.Context, location *geofence.Location) (*geofence.Location, error)
	Update(ctx context.Context, location *geofence.Location) (*geofence.Location, error)
	SetFavorite(ctx context.Context, id string, favorite bool) error
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository keeps locations in a single SQLite table.
type SQLiteRepository struct {
	db *sql.DB
}

// Open opens or creates the database at path and migrates the schema.
func Open(ctx context.Context, path string) (*SQLiteRepository, error) {
	path = filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	r := &SQLiteRepository{db: db}
	if err = r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return r, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// migrate creates the schema; it is idempotent.
func (r *SQLiteRepository) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		radius_meters INTEGER NOT NULL,
		alarm_mode TEXT NOT NULL,
		created_at TEXT NOT NULL,
		is_favorite INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_locations_name ON locations(name COLLATE NOCASE);
	`

	_, err := r.db.ExecContext(ctx, schema)

	return err
}

// Get returns the location with id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*geofence.Location, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)

	location, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return location, err
}

// Find returns the location whose id is idOrName, or whose name matches it
// case-insensitively.
func (r *SQLiteRepository) Find(ctx context.Context, idOrName string) (*geofence.Location, error) {
	location, err := r.Get(ctx, idOrName)
	if !errors.Is(err, ErrNotFound) {
		return location, err
	}

	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE name = ? COLLATE NOCASE LIMIT 2`, strings.TrimSpace(idOrName))
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}

	matches, err := scanLocations(rows)
	if err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, idOrName)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, idOrName)
	}
}

// List returns locations, newest first.
func (r *SQLiteRepository) List(ctx context.Context, favoritesOnly bool) ([]*geofence.Location, error) {
	query := selectColumns
	if favoritesOnly {
		query += ` WHERE is_favorite = 1`
	}

	rows, err := r.db.QueryContext(ctx, query+` ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}

	return scanLocations(rows)
}

// Add stores a new location. A zero radius and mode get their defaults; the
// id and creation time are assigned here.
func (r *SQLiteRepository) Add(ctx context.Context, location *geofence.Location) (*geofence.Location, error) {
	created := location.Clone()
	created.Name = strings.TrimSpace(created.Name)

	if created.Name == "" {
		return nil, ErrEmptyName
	}

	if created.RadiusMeters == 0 {
		created.RadiusMeters = geofence.DefaultRadiusMeters
	}

	if created.AlarmMode == 0 {
		created.AlarmMode = geofence.AlarmModeSound
	}

	if err := created.Target().Validate(); err != nil {
		return nil, err
	}

	created.ID = uuid.NewString()
	created.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (id, name, latitude, longitude, radius_meters, alarm_mode, created_at, is_favorite)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID,
		created.Name,
		created.Coordinate.Latitude,
		created.Coordinate.Longitude,
		created.RadiusMeters,
		created.AlarmMode.String(),
		created.CreatedAt.Format(time.RFC3339Nano),
		created.IsFavorite,
	)
	if err != nil {
		return nil, fmt.Errorf("insert location: %w", err)
	}

	return created, nil
}

// Update saves the name, radius and alarm mode of an existing location.
// The coordinate, favorite flag and creation time are left as stored.
func (r *SQLiteRepository) Update(ctx context.Context, location *geofence.Location) (*geofence.Location, error) {
	updated := location.Clone()
	updated.Name = strings.TrimSpace(updated.Name)

	if updated.Name == "" {
		return nil, ErrEmptyName
	}

	if err := updated.Target().Validate(); err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE locations SET name = ?, radius_meters = ?, alarm_mode = ? WHERE id = ?`,
		updated.Name,
		updated.RadiusMeters,
		updated.AlarmMode.String(),
		updated.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update location: %w", err)
	}

	if err = requireAffected(result, updated.ID); err != nil {
		return nil, err
	}

	return r.Get(ctx, updated.ID)
}

// SetFavorite marks or unmarks a location as favorite.
func (r *SQLiteRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE locations SET is_favorite = ? WHERE id = ?`, favorite, id)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}

	return requireAffected(result, id)
}

// Delete removes a location.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete location: %w", err)
	}

	return requireAffected(result, id)
}

const selectColumns = `SELECT id, name, latitude, longitude, radius_meters, alarm_mode, created_at, is_favorite FROM locations`

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanLocation(row scanner) (*geofence.Location, error) {
	var (
		location  geofence.Location
		mode      string
		createdAt string
	)

	err := row.Scan(
		&location.ID,
		&location.Name,
		&location.Coordinate.Latitude,
		&location.Coordinate.Longitude,
		&location.RadiusMeters,
		&mode,
		&createdAt,
		&location.IsFavorite,
	)
	if err != nil {
		return nil, err
	}

	if location.AlarmMode, err = geofence.ParseAlarmMode(mode); err != nil {
		return nil, fmt.Errorf("location %s: %w", location.ID, err)
	}

	if location.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("location %s: parse created_at: %w", location.ID, err)
	}

	return &location, nil
}

func scanLocations(rows *sql.Rows) ([]*geofence.Location, error) {
	defer func() { _ = rows.Close() }()

	var locations []*geofence.Location

	for rows.Next() {
		location, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}

		locations = append(locations, location)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}

	return locations, nil
}

func requireAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return nil
}
