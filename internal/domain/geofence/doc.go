// Package geofence contains the core domain types of the arrival alarm.
//
// It defines the destination Target a tracking session watches, the persisted
// Location record it is projected from, position samples, the permission and
// session state enumerations, and the condition taxonomy surfaced to callers.
package geofence
