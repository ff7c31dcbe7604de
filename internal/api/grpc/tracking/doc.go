// Package tracking implements the gRPC transport for controlling a running
// tracking session.
//
// The service is described by hand with well-known protobuf types so no code
// generation step is needed: every method answers with a Struct snapshot of
// the session.
package tracking
