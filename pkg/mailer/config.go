package mailer

// Config holds mail transport configuration.
// Postmark tokens are optional so development environments can run with the
// filesystem sender instead. SenderEmail and SupportEmail are required as
// they establish sender identity and reply-to behavior for all outbound mail.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`

	// DevDir, when set, routes all mail to HTML files on disk instead of a
	// provider.
	DevDir string `env:"MAILER_DEV_DIR"`
}
