// Package control implements the commands that drive a running tracker over
// its control API: status, ack, snooze and stop.
//
// When no tracker is running, status reports the summary of the last session
// saved in the state file instead of failing.
package control
