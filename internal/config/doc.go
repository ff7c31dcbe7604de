// Package config defines the settings of the wakemeup binary and provides
// helpers to load, validate and save them in YAML format.
//
// Settings are read from a YAML file and then overridden by WAKEMEUP_*
// environment variables, where a double underscore separates levels:
// WAKEMEUP_TRACKING__SNOOZE_DURATION=90s sets tracking.snooze_duration.
package config
