package location

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "locations.db"))
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, repo.Close()) })

	return repo
}

// TestSQLiteRepository_CRUD walks a location through its lifecycle.
func TestSQLiteRepository_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	added, err := repo.Add(ctx, &geofence.Location{
		Name:       "  Kadikoy Pier ",
		Coordinate: geofence.Coordinate{Latitude: 40.9917, Longitude: 29.0233},
	})
	require.NoError(t, err)
	require.NotEmpty(t, added.ID)
	require.Equal(t, "Kadikoy Pier", added.Name)
	require.Equal(t, geofence.DefaultRadiusMeters, added.RadiusMeters)
	require.Equal(t, geofence.AlarmModeSound, added.AlarmMode)
	require.False(t, added.CreatedAt.IsZero())

	got, err := repo.Get(ctx, added.ID)
	require.NoError(t, err)
	require.Equal(t, added.Coordinate, got.Coordinate)
	require.Equal(t, added.CreatedAt.UnixNano(), got.CreatedAt.UnixNano())

	byName, err := repo.Find(ctx, "kadikoy pier")
	require.NoError(t, err)
	require.Equal(t, added.ID, byName.ID)

	require.NoError(t, repo.SetFavorite(ctx, added.ID, true))

	favorites, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	require.True(t, favorites[0].IsFavorite)

	require.NoError(t, repo.Delete(ctx, added.ID))

	_, err = repo.Get(ctx, added.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, added.ID), ErrNotFound)
	require.ErrorIs(t, repo.SetFavorite(ctx, added.ID, false), ErrNotFound)
}

// TestSQLiteRepository_ListAndFind covers filtering and ambiguous names.
func TestSQLiteRepository_ListAndFind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	for _, l := range []*geofence.Location{
		{Name: "Home", Coordinate: geofence.Coordinate{Latitude: 41, Longitude: 29}, RadiusMeters: 1000, AlarmMode: geofence.AlarmModeBoth},
		{Name: "Work", Coordinate: geofence.Coordinate{Latitude: 41.1, Longitude: 29.1}, AlarmMode: geofence.AlarmModeVibration, IsFavorite: true},
		{Name: "work", Coordinate: geofence.Coordinate{Latitude: 41.2, Longitude: 29.2}},
	} {
		_, err := repo.Add(ctx, l)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)

	favorites, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	require.Equal(t, geofence.AlarmModeVibration, favorites[0].AlarmMode)

	home, err := repo.Find(ctx, "HOME")
	require.NoError(t, err)
	require.Equal(t, 1000, home.RadiusMeters)
	require.Equal(t, geofence.AlarmModeBoth, home.AlarmMode)

	_, err = repo.Find(ctx, "work")
	require.ErrorIs(t, err, ErrAmbiguous)

	_, err = repo.Find(ctx, "nowhere")
	require.ErrorIs(t, err, ErrNotFound)
}

// TestSQLiteRepository_AddValidation rejects invalid records.
func TestSQLiteRepository_AddValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.Add(ctx, &geofence.Location{Name: " "})
	require.ErrorIs(t, err, ErrEmptyName)

	_, err = repo.Add(ctx, &geofence.Location{Name: "Pole", Coordinate: geofence.Coordinate{Latitude: 95}})
	require.ErrorIs(t, err, geofence.ErrInvalidCoordinate)

	_, err = repo.Add(ctx, &geofence.Location{Name: "Negative", RadiusMeters: -1})
	require.ErrorIs(t, err, geofence.ErrInvalidRadius)
}

// TestSQLiteRepository_Update edits a stored location in place.
func TestSQLiteRepository_Update(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	added, err := repo.Add(ctx, &geofence.Location{
		Name:       "Eminonu",
		Coordinate: geofence.Coordinate{Latitude: 41.0171, Longitude: 28.9706},
		IsFavorite: true,
	})
	require.NoError(t, err)

	edit := added.Clone()
	edit.Name = " Eminonu Pier "
	edit.RadiusMeters = 1000
	edit.AlarmMode = geofence.AlarmModeVibration
	edit.Coordinate = geofence.Coordinate{Latitude: 1, Longitude: 1}

	updated, err := repo.Update(ctx, edit)
	require.NoError(t, err)
	require.Equal(t, "Eminonu Pier", updated.Name)
	require.Equal(t, 1000, updated.RadiusMeters)
	require.Equal(t, geofence.AlarmModeVibration, updated.AlarmMode)
	require.Equal(t, added.Coordinate, updated.Coordinate)
	require.True(t, updated.IsFavorite)
	require.Equal(t, added.CreatedAt.UnixNano(), updated.CreatedAt.UnixNano())

	edit.Name = ""
	_, err = repo.Update(ctx, edit)
	require.ErrorIs(t, err, ErrEmptyName)

	edit.Name = "Eminonu"
	edit.RadiusMeters = -5
	_, err = repo.Update(ctx, edit)
	require.ErrorIs(t, err, geofence.ErrInvalidRadius)

	edit.RadiusMeters = 500
	edit.ID = "missing"
	_, err = repo.Update(ctx, edit)
	require.ErrorIs(t, err, ErrNotFound)
}

// TestOpen_Reopen verifies data survives reopening and migration is idempotent.
func TestOpen_Reopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "locations.db")

	repo, err := Open(ctx, path)
	require.NoError(t, err)

	added, err := repo.Add(ctx, &geofence.Location{Name: "Stop", Coordinate: geofence.Coordinate{Latitude: 1, Longitude: 2}})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = Open(ctx, path)
	require.NoError(t, err)

	defer func() { require.NoError(t, repo.Close()) }()

	got, err := repo.Get(ctx, added.ID)
	require.NoError(t, err)
	require.Equal(t, "Stop", got.Name)
}
