// Package tui renders a tracking session in the terminal and maps key presses
// to session commands.
package tui
