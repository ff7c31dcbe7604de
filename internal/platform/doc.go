// Package platform wraps the operating system facilities the app reaches for
// outside of Go: opening the settings with the desktop's default handler.
package platform
