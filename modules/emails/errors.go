package emails

import "errors"

var (
	// ErrMessageNotFound is returned when no email with the given ID exists.
	ErrMessageNotFound = errors.New("email message not found")

	// ErrDuplicateMessage is returned when recording an email whose ID is
	// already taken. IDs are write-once.
	ErrDuplicateMessage = errors.New("duplicate email message id")

	// ErrInvalidTransition is returned when a status change would move the
	// lifecycle backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTransport is returned when the mail provider rejected or failed
	// the send. The message is recorded as failed.
	ErrTransport = errors.New("email transport failed")

	// ErrPersistence is returned when the store could not record or update
	// an email.
	ErrPersistence = errors.New("email persistence failed")

	// ErrSentStatusUnknown is joined onto ErrPersistence when the provider
	// accepted the message but the store failed afterwards: the email went
	// out, its recorded status did not. Callers must not retry the send.
	ErrSentStatusUnknown = errors.New("email sent but status not recorded")

	// ErrUnknownEvent is returned for delivery callbacks with an
	// unrecognized event kind.
	ErrUnknownEvent = errors.New("unknown delivery event")
)
