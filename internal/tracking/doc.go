// Package tracking implements the tracking session: the state machine that
// arms against a target, evaluates the distance to it on every position
// update and on a fixed evaluation tick, and drives the alarm and the
// arrival notification through trigger, snooze and stop.
//
// All state transitions happen on a single goroutine owned by the session.
// Position updates, evaluation ticks, the snooze countdown and caller
// commands are merged into that goroutine, so a trigger can never race with
// another trigger.
package tracking
