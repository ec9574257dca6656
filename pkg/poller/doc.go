// Package poller provides a generic per-user refresh loop: subscribers get
// a snapshot on subscribe, on every interval tick, and on demand via
// Refresh. Concurrent refreshes for one user collapse into a single fetch,
// and each subscriber channel carries only the latest snapshot.
//
// The notification feed uses it to keep unread counts current without each
// connected client hammering the store independently.
package poller
