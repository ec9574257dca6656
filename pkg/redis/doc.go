// Package redis provides helpers for connecting to a Redis server with
// retries and wiring it into readiness probes. It wraps the go-redis client.
package redis
