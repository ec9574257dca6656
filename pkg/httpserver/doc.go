// Package httpserver wraps net/http's Server with graceful shutdown, signal
// handling, environment-driven configuration, and health check handlers.
package httpserver
