package locations

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wake-me-up/internal/config"
	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/repository/location"
)

// writeConfig saves settings with a temporary database and returns the file path.
func writeConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	cfg := config.Default()
	cfg.Database = filepath.Join(dir, "locations.db")

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, cfg))

	return path
}

// TestRun_Lifecycle adds, lists, favorites, shows and removes a location.
func TestRun_Lifecycle(t *testing.T) {
	t.Parallel()

	path := writeConfig(t)
	ctx := t.Context()

	var out bytes.Buffer

	list := func(favoritesOnly bool) string {
		out.Reset()
		require.NoError(t, Run(ctx, &Options{ConfigPath: path, Action: ActionList, FavoritesOnly: favoritesOnly, Out: &out}))

		return out.String()
	}

	require.Contains(t, list(false), "No saved locations.")

	require.NoError(t, Run(ctx, &Options{
		ConfigPath: path,
		Action:     ActionAdd,
		Location: geofence.Location{
			Name:       "Sirkeci",
			Coordinate: geofence.Coordinate{Latitude: 41.0136, Longitude: 28.9770},
			AlarmMode:  geofence.AlarmModeBoth,
		},
		Out: &out,
	}))
	require.Contains(t, out.String(), "Sirkeci")
	require.Contains(t, out.String(), "500 m")
	require.Contains(t, out.String(), "both")

	require.Contains(t, list(false), "Sirkeci")
	require.Contains(t, list(true), "No favorite locations.")

	out.Reset()
	require.NoError(t, Run(ctx, &Options{ConfigPath: path, Action: ActionFavorite, Query: "sirkeci", Favorite: true, Out: &out}))
	require.Contains(t, out.String(), "Added to favorites")
	require.Contains(t, list(true), "Sirkeci")

	out.Reset()
	require.NoError(t, Run(ctx, &Options{ConfigPath: path, Action: ActionShow, Query: "Sirkeci", Out: &out}))
	require.Contains(t, out.String(), "Favorite:    true")
	require.Contains(t, out.String(), "41.013600,28.977000")

	out.Reset()
	require.NoError(t, Run(ctx, &Options{ConfigPath: path, Action: ActionRemove, Query: "Sirkeci", Out: &out}))
	require.True(t, strings.HasPrefix(out.String(), "Removed Sirkeci"))
	require.Contains(t, list(false), "No saved locations.")

	err := Run(ctx, &Options{ConfigPath: path, Action: ActionShow, Query: "Sirkeci", Out: &out})
	require.ErrorIs(t, err, location.ErrNotFound)
}

// TestRun_Edit changes a saved location and keeps its coordinate.
func TestRun_Edit(t *testing.T) {
	t.Parallel()

	path := writeConfig(t)
	ctx := t.Context()

	var out bytes.Buffer

	require.NoError(t, Run(ctx, &Options{
		ConfigPath: path,
		Action:     ActionAdd,
		Location: geofence.Location{
			Name:       "Karakoy",
			Coordinate: geofence.Coordinate{Latitude: 41.0225, Longitude: 28.9770},
		},
		Out: &out,
	}))

	out.Reset()
	require.NoError(t, Run(ctx, &Options{
		ConfigPath: path,
		Action:     ActionEdit,
		Query:      "karakoy",
		Location:   geofence.Location{Name: "Karakoy Pier", RadiusMeters: 1000},
		Out:        &out,
	}))
	require.Contains(t, out.String(), "Karakoy Pier")
	require.Contains(t, out.String(), "1.0 km")
	require.Contains(t, out.String(), "sound")

	out.Reset()
	require.NoError(t, Run(ctx, &Options{
		ConfigPath: path,
		Action:     ActionEdit,
		Query:      "Karakoy Pier",
		Location:   geofence.Location{AlarmMode: geofence.AlarmModeVibration},
		Out:        &out,
	}))

	out.Reset()
	require.NoError(t, Run(ctx, &Options{ConfigPath: path, Action: ActionShow, Query: "Karakoy Pier", Out: &out}))
	require.Contains(t, out.String(), "vibration")
	require.Contains(t, out.String(), "41.022500,28.977000")

	err := Run(ctx, &Options{ConfigPath: path, Action: ActionEdit, Query: "Karakoy Pier", Out: &out})
	require.ErrorIs(t, err, errNothingToEdit)

	err = Run(ctx, &Options{
		ConfigPath: path,
		Action:     ActionEdit,
		Query:      "Karakoy Pier",
		Location:   geofence.Location{RadiusMeters: -1},
		Out:        &out,
	})
	require.ErrorIs(t, err, geofence.ErrInvalidRadius)

	err = Run(ctx, &Options{ConfigPath: path, Action: ActionEdit, Query: "Galata", Location: geofence.Location{Name: "x"}, Out: &out})
	require.ErrorIs(t, err, location.ErrNotFound)
}

// TestRun_Errors covers rejected input.
func TestRun_Errors(t *testing.T) {
	t.Parallel()

	path := writeConfig(t)
	ctx := t.Context()
	out := new(bytes.Buffer)

	err := Run(ctx, &Options{ConfigPath: path, Action: ActionAdd, Location: geofence.Location{Name: " "}, Out: out})
	require.ErrorIs(t, err, location.ErrEmptyName)

	err = Run(ctx, &Options{
		ConfigPath: path,
		Action:     ActionAdd,
		Location:   geofence.Location{Name: "Nowhere", Coordinate: geofence.Coordinate{Latitude: 91}},
		Out:        out,
	})
	require.ErrorIs(t, err, geofence.ErrInvalidCoordinate)

	err = Run(ctx, &Options{ConfigPath: path, Action: ActionRemove, Out: out})
	require.ErrorIs(t, err, errQueryRequired)

	err = Run(ctx, &Options{ConfigPath: path, Action: "rename", Out: out})
	require.ErrorIs(t, err, errUnknownAction)
}
