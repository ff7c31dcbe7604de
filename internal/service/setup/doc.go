// Package setup writes the default settings file and opens it for editing.
package setup
