// Package integration holds end-to-end tests that drive a real tracking
// session through the gRPC control API.
package integration
