// Package emails implements outbound email for the CRM: composing from
// templates or freeform input, handing messages to the mail provider,
// tracking delivery status, and surfacing sent/opened events in the
// notification feed.
//
// A message's status moves strictly forward through draft, sent, delivered,
// and opened; a transport failure moves it from draft to failed instead.
// Both terminal states stay terminal. Feed notifications are emitted at
// most once per message and kind, guarded by an EventDeduper, so replayed
// provider callbacks never double-notify.
package emails
