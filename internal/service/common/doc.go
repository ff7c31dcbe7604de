// Package common holds helpers shared by several services.
//
// It provides a gRPC client for the tracker's control API with call timeouts
// and a helper to detect the current system actor (hostname/username) that is
// attached to control calls for audit purposes.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
