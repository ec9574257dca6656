// Package ratelimit provides fixed-window request limiting with in-memory
// and Redis-backed implementations, plus HTTP middleware keyed by the
// authenticated user. The email endpoints use it to cap per-user send
// volume.
package ratelimit
