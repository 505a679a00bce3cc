// Package logger wraps zap for the hub and its client.
//
// A global sugared logger with a console encoder is installed at init time.
// Loggers travel in a context: WithName and WithKV derive scoped loggers,
// and the package-level helpers (InfoKV, WarnKV, ...) log through whatever
// logger the context carries.
package logger
