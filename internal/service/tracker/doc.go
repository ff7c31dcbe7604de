// Package tracker runs one tracking session as a foreground process.
//
// Run resolves the destination from the location store, builds the position
// source, alarm and notifier from the settings, arms the session (waiting
// while location access is blocked), serves the control API and metrics, and
// shows the terminal UI or logs progress until the session ends. Whatever
// ends the run, the session is torn down and a summary is saved for
// `wakemeup status`.
package tracker
