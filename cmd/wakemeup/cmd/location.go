package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/service/locations"
)

var (
	// newLocation collects the add flags.
	newLocation geofence.Location
	// alarmMode is parsed into newLocation.AlarmMode.
	alarmMode string
	// favoritesOnly limits the list to favorites.
	favoritesOnly bool
	// unfavorite clears the favorite flag instead of setting it.
	unfavorite bool
	// locationEdit collects the edit flags; zero values keep the stored field.
	locationEdit geofence.Location
	// editMode is parsed into locationEdit.AlarmMode when set.
	editMode string

	// locationCmd groups the saved-location commands.
	locationCmd = &cobra.Command{
		Use:     "location",
		Aliases: []string{"locations", "loc"},
		Short:   "Manage saved destinations.",
	}

	locationAddCmd = &cobra.Command{
		Use:   "add <name>",
		Short: "Save a destination.",
		Long: `Saves a destination by coordinate. The radius defaults to 500 m; the presets
are 500, 1000, 1500 and 2000 m. The alarm mode is sound, vibration or both.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := geofence.ParseAlarmMode(alarmMode)
			if err != nil {
				return err
			}

			loc := newLocation
			loc.Name = args[0]
			loc.AlarmMode = mode

			return runLocations(cmd, &locations.Options{Action: locations.ActionAdd, Location: loc})
		},
	}

	locationListCmd = &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved destinations, newest first.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLocations(cmd, &locations.Options{Action: locations.ActionList, FavoritesOnly: favoritesOnly})
		},
	}

	locationShowCmd = &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show one saved destination.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocations(cmd, &locations.Options{Action: locations.ActionShow, Query: args[0]})
		},
	}

	locationEditCmd = &cobra.Command{
		Use:   "edit <id|name>",
		Short: "Rename a destination or change its radius or alarm mode.",
		Long: `Changes the name, radius or alarm mode of a saved destination. Flags left
unset keep their stored values; the coordinate cannot be changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes := locationEdit

			if editMode != "" {
				mode, err := geofence.ParseAlarmMode(editMode)
				if err != nil {
					return err
				}

				changes.AlarmMode = mode
			}

			return runLocations(cmd, &locations.Options{Action: locations.ActionEdit, Query: args[0], Location: changes})
		},
	}

	locationFavoriteCmd = &cobra.Command{
		Use:   "favorite <id|name>",
		Short: "Mark a destination as favorite.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocations(cmd, &locations.Options{
				Action:   locations.ActionFavorite,
				Query:    args[0],
				Favorite: !unfavorite,
			})
		},
	}

	locationRemoveCmd = &cobra.Command{
		Use:     "remove <id|name>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved destination.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocations(cmd, &locations.Options{Action: locations.ActionRemove, Query: args[0]})
		},
	}
)

// runLocations fills the shared options and runs the command.
func runLocations(cmd *cobra.Command, opts *locations.Options) error {
	opts.ConfigPath = configPath
	opts.Out = cmd.OutOrStdout()

	return locations.Run(cmd.Context(), opts)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := locationAddCmd.Flags()
	flags.Float64Var(&newLocation.Coordinate.Latitude, "lat", 0, "latitude in degrees")
	flags.Float64Var(&newLocation.Coordinate.Longitude, "lon", 0, "longitude in degrees")
	flags.IntVarP(&newLocation.RadiusMeters, "radius", "r", geofence.DefaultRadiusMeters, "alarm radius in meters")
	flags.StringVarP(&alarmMode, "mode", "m", geofence.AlarmModeSound.String(), "alarm mode: sound, vibration or both")
	flags.BoolVarP(&newLocation.IsFavorite, "favorite", "f", false, "mark as favorite")

	for _, name := range []string{"lat", "lon"} {
		if err := locationAddCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	flags = locationEditCmd.Flags()
	flags.StringVar(&locationEdit.Name, "name", "", "new name")
	flags.IntVarP(&locationEdit.RadiusMeters, "radius", "r", 0, "new alarm radius in meters")
	flags.StringVarP(&editMode, "mode", "m", "", "new alarm mode: sound, vibration or both")

	locationListCmd.Flags().BoolVarP(&favoritesOnly, "favorites", "f", false, "list favorites only")
	locationFavoriteCmd.Flags().BoolVar(&unfavorite, "off", false, "remove the favorite mark instead")

	locationCmd.AddCommand(locationAddCmd, locationListCmd, locationShowCmd, locationEditCmd, locationFavoriteCmd, locationRemoveCmd)
	rootCmd.AddCommand(locationCmd)
}
