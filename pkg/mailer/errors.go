package mailer

import "errors"

var (
	ErrSendFailed     = errors.New("mailer.errors.send_failed")
	ErrInvalidMessage = errors.New("mailer.errors.invalid_message")
	ErrInvalidConfig  = errors.New("mailer.errors.invalid_config")
)
