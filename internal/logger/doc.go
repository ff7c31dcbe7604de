// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - redirection to a file while a terminal UI owns stdout,
//   - convenience functions (Infof, WarnKV, ErrorKV, etc.).
//
// Services accept a context and extract the logger from it, so a tracking
// session, its actuator and its position source all log under scoped names.
package logger
