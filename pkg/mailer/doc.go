// Package mailer defines the outbound mail transport boundary and its
// implementations: a Postmark client for production and a filesystem sender
// for development.
//
// The Sender interface deliberately returns only success or failure; delivery
// status beyond the initial hand-off (delivered, opened) arrives later through
// provider callbacks handled by the emails module.
package mailer
