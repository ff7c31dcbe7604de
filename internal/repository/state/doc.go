// Package state implements persistence for the application state.
//
// The FileRepository stores and loads the state as JSON on disk and exposes a
// Repository interface that the CLI and the tracker service depend on.
package state
