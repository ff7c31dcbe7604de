// Package onboarding prints the first-run introduction once and remembers
// that it was shown in the state file.
package onboarding
