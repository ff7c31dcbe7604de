package locations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/oshokin/wake-me-up/internal/config"
	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/logger"
	"github.com/oshokin/wake-me-up/internal/repository/location"
)

// Action is a location command.
type Action string

const (
	// ActionAdd saves a new location.
	ActionAdd Action = "add"
	// ActionList prints saved locations.
	ActionList Action = "list"
	// ActionShow prints one location.
	ActionShow Action = "show"
	// ActionEdit changes the name, radius or alarm mode of a location.
	ActionEdit Action = "edit"
	// ActionFavorite marks or unmarks a location as favorite.
	ActionFavorite Action = "favorite"
	// ActionRemove deletes a location.
	ActionRemove Action = "remove"
)

// Options configures a location command.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// Action is the command to run.
	Action Action
	// Query is the id or exact name for show, edit, favorite and remove.
	Query string
	// Location holds the fields of a new location for add. For edit, its
	// non-zero name, radius and alarm mode replace the stored ones.
	Location geofence.Location
	// Favorite is the flag value set by favorite.
	Favorite bool
	// FavoritesOnly limits list to favorites.
	FavoritesOnly bool
	// Out receives the printed records; stdout when nil.
	Out io.Writer
}

var (
	errUnknownAction = errors.New("unknown location action")
	errQueryRequired = errors.New("location id or name must be provided")
	errNothingToEdit = errors.New("nothing to edit: set a name, radius or alarm mode")
)

// Run executes the location command against the configured database.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "locations")

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	store, err := location.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to close location store", "error", closeErr)
		}
	}()

	return run(ctx, store, opts, out)
}

func run(ctx context.Context, store location.Repository, opts *Options, out io.Writer) error {
	switch opts.Action {
	case ActionAdd:
		return add(ctx, store, &opts.Location, out)
	case ActionList:
		return list(ctx, store, opts.FavoritesOnly, out)
	case ActionShow:
		loc, err := find(ctx, store, opts.Query)
		if err != nil {
			return err
		}

		return printLocation(out, loc)
	case ActionEdit:
		return edit(ctx, store, opts.Query, &opts.Location, out)
	case ActionFavorite:
		loc, err := find(ctx, store, opts.Query)
		if err != nil {
			return err
		}

		if err = store.SetFavorite(ctx, loc.ID, opts.Favorite); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Favorite flag changed", "id", loc.ID, "favorite", opts.Favorite)

		verb := "Added to"
		if !opts.Favorite {
			verb = "Removed from"
		}

		_, err = fmt.Fprintf(out, "%s favorites: %s\n", verb, loc.Name)

		return err
	case ActionRemove:
		loc, err := find(ctx, store, opts.Query)
		if err != nil {
			return err
		}

		if err = store.Delete(ctx, loc.ID); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Location removed", "id", loc.ID, "name", loc.Name)

		_, err = fmt.Fprintf(out, "Removed %s (%s)\n", loc.Name, loc.ID)

		return err
	default:
		return fmt.Errorf("%w: %q", errUnknownAction, opts.Action)
	}
}

func add(ctx context.Context, store location.Repository, loc *geofence.Location, out io.Writer) error {
	warnCustomRadius(ctx, loc.RadiusMeters)

	created, err := store.Add(ctx, loc)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Location saved", "id", created.ID, "name", created.Name)

	return printLocation(out, created)
}

func edit(ctx context.Context, store location.Repository, query string, changes *geofence.Location, out io.Writer) error {
	loc, err := find(ctx, store, query)
	if err != nil {
		return err
	}

	switch {
	case changes.Name == "" && changes.RadiusMeters == 0 && changes.AlarmMode == 0:
		return errNothingToEdit
	case changes.Name != "":
		loc.Name = changes.Name
	}

	if changes.RadiusMeters != 0 {
		warnCustomRadius(ctx, changes.RadiusMeters)
		loc.RadiusMeters = changes.RadiusMeters
	}

	if changes.AlarmMode != 0 {
		loc.AlarmMode = changes.AlarmMode
	}

	updated, err := store.Update(ctx, loc)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Location updated", "id", updated.ID, "name", updated.Name,
		"radius_meters", updated.RadiusMeters, "mode", updated.AlarmMode.String())

	return printLocation(out, updated)
}

// warnCustomRadius logs radii outside the presets; they are still accepted.
func warnCustomRadius(ctx context.Context, radius int) {
	if radius != 0 && !slices.Contains(geofence.RadiusOptions, radius) {
		logger.WarnKV(ctx, "Radius is not one of the presets", "radius_meters", radius,
			"presets", geofence.RadiusOptions)
	}
}

func list(ctx context.Context, store location.Repository, favoritesOnly bool, out io.Writer) error {
	all, err := store.List(ctx, favoritesOnly)
	if err != nil {
		return err
	}

	if len(all) == 0 {
		message := "No saved locations."
		if favoritesOnly {
			message = "No favorite locations."
		}

		_, err = fmt.Fprintln(out, message)

		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "ID\tNAME\tCOORDINATE\tRADIUS\tALARM\tFAVORITE")

	for _, loc := range all {
		favorite := ""
		if loc.IsFavorite {
			favorite = "*"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			loc.ID, loc.Name, loc.Coordinate, geofence.FormatDistance(float64(loc.RadiusMeters)), loc.AlarmMode, favorite)
	}

	return w.Flush()
}

func find(ctx context.Context, store location.Repository, query string) (*geofence.Location, error) {
	if query == "" {
		return nil, errQueryRequired
	}

	return store.Find(ctx, query)
}

func printLocation(out io.Writer, loc *geofence.Location) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "ID:\t%s\n", loc.ID)
	_, _ = fmt.Fprintf(w, "Name:\t%s\n", loc.Name)
	_, _ = fmt.Fprintf(w, "Coordinate:\t%s\n", loc.Coordinate)
	_, _ = fmt.Fprintf(w, "Radius:\t%s\n", geofence.FormatDistance(float64(loc.RadiusMeters)))
	_, _ = fmt.Fprintf(w, "Alarm:\t%s\n", loc.AlarmMode)
	_, _ = fmt.Fprintf(w, "Favorite:\t%t\n", loc.IsFavorite)
	_, _ = fmt.Fprintf(w, "Created:\t%s\n", loc.CreatedAt.Local().Format(time.DateTime))

	return w.Flush()
}
