// Package server hosts the gRPC control API of a running tracker, so other
// processes can read the session status, acknowledge, snooze or stop it.
package server
