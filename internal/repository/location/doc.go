// Package location stores saved destinations in a SQLite database.
//
// A tracking session only reads one record through Reader; the CLI manages
// the records through the full Repository.
package location
