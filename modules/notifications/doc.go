// Package notifications implements the per-user notification feed: an
// ordered inbox of events with read/unread accounting.
//
// The feed has its own lifecycle, independent from whatever produced its
// entries. The emails module appends entries when messages are sent or
// opened; other producers can append through the same Feed API.
//
// Storage is pluggable: MemoryStorage for development and tests,
// PostgresStorage for production. Unread counts are always computed from the
// stored rows, never cached, so they stay correct under concurrent writers.
package notifications
